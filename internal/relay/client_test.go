package relay

import (
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// writeBundle stores srv's certificate as a PEM bundle.
func writeBundle(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ca.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}
	return path
}

// TestNewClientTrustStore checks the client fails closed without usable roots.
func TestNewClientTrustStore(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	if _, err := NewClient(ClientOptions{CABundle: filepath.Join(t.TempDir(), "absent.pem")}); err == nil {
		t.Fatalf("expected error for missing bundle")
	}

	junk := filepath.Join(t.TempDir(), "junk.pem")
	if err := os.WriteFile(junk, []byte("not a certificate"), 0o644); err != nil {
		t.Fatalf("failed to write junk bundle: %v", err)
	}
	if _, err := NewClient(ClientOptions{CABundle: junk}); err == nil {
		t.Fatalf("expected error for bundle without certificates")
	}

	trusted, err := NewClient(ClientOptions{CABundle: writeBundle(t, srv), AllowPrivate: true})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	resp, err := trusted.Get(srv.URL)
	if err != nil {
		t.Fatalf("trusted GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	system, err := NewClient(ClientOptions{AllowPrivate: true})
	if err != nil {
		t.Skipf("system trust store unavailable: %v", err)
	}
	if resp, err := system.Get(srv.URL); err == nil {
		resp.Body.Close()
		t.Fatalf("self-signed certificate accepted by system roots")
	}
}

// TestClientRedirectPolicy checks redirects are limited to allowed https hosts.
func TestClientRedirectPolicy(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/near", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/far", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://evil.invalid/x", http.StatusFound)
	})
	mux.HandleFunc("/downgrade", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://127.0.0.1/x", http.StatusFound)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientOptions{
		CABundle:     writeBundle(t, srv),
		Policy:       Policy{RedirectHosts: []string{"127.0.0.1"}},
		AllowPrivate: true,
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	resp, err := client.Get(srv.URL + "/near")
	if err != nil {
		t.Fatalf("allowed redirect failed: %v", err)
	}
	resp.Body.Close()

	for _, p := range []string{"/far", "/downgrade", "/loop"} {
		resp, err := client.Get(srv.URL + p)
		if err == nil {
			resp.Body.Close()
			t.Fatalf("%s: redirect followed", p)
		}
		if !errors.Is(err, ErrRedirectRejected) {
			t.Fatalf("%s: unexpected error %v", p, err)
		}
	}
}

// TestClientRefusesPrivateAddresses checks loopback upstreams are not dialed by default.
func TestClientRefusesPrivateAddresses(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientOptions{CABundle: writeBundle(t, srv)})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	resp, err := client.Get(srv.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatalf("loopback upstream dialed")
	}
	if !errors.Is(err, ErrPrivateAddress) {
		t.Fatalf("unexpected error %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("upstream handler reached")
	}
}

func TestIsPrivateAddr(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"127.0.0.1":           true,
		"10.1.2.3":            true,
		"172.16.0.1":          true,
		"192.168.1.1":         true,
		"169.254.169.254":     true,
		"100.64.0.1":          true,
		"0.0.0.0":             true,
		"::1":                 true,
		"fd00::1":             true,
		"fe80::1":             true,
		"::ffff:127.0.0.1":    true,
		"140.82.112.3":        false,
		"185.199.108.133":     false,
		"2606:50c0:8000::154": false,
	}
	for in, want := range tests {
		if got := IsPrivateAddr(netip.MustParseAddr(in)); got != want {
			t.Errorf("IsPrivateAddr(%s) = %v, want %v", in, got, want)
		}
	}
}
