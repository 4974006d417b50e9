package relay

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"os"
	"time"

	"tubeshelf/internal/domain/consts"

	"github.com/pkg/errors"
)

// ErrRedirectRejected is returned when an upstream redirects somewhere the policy forbids.
var ErrRedirectRejected = errors.New("redirect target not allowed")

// ClientOptions configures NewClient.
type ClientOptions struct {
	// Timeout bounds connect, TLS handshake and time to response headers.
	Timeout time.Duration
	// CABundle is a PEM file of trusted roots. Empty uses the system pool.
	CABundle string
	Policy   Policy
	// AllowPrivate permits dialing loopback and LAN addresses.
	AllowPrivate bool
}

// NewClient builds the upstream HTTP client.
//
// Certificate verification is never disabled: if no trust store can be
// loaded, NewClient fails and the relay does not start.
func NewClient(opts ClientOptions) (*http.Client, error) {
	roots, err := loadRoots(opts.CABundle)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultProxyTimeout
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("default transport is not an *http.Transport")
	}
	transport := base.Clone()
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	if !opts.AllowPrivate {
		dialer.Control = refusePrivate
	}
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil
	transport.TLSClientConfig = &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12}
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	policy := opts.Policy
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= consts.MaxRedirects {
				return errors.Wrapf(ErrRedirectRejected, "stopped after %d redirects", len(via))
			}
			if !policy.AllowsRedirect(req.URL) {
				return errors.Wrapf(ErrRedirectRejected, "redirect to %s", req.URL.Redacted())
			}
			return nil
		},
	}, nil
}

// loadRoots returns the trust store from bundle, or the system pool.
func loadRoots(bundle string) (*x509.CertPool, error) {
	if bundle != "" {
		pem, err := os.ReadFile(bundle)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read CA bundle %q", bundle)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("CA bundle %q holds no certificates", bundle)
		}
		return pool, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, errors.Wrap(err, "system trust store unavailable, set a CA bundle")
	}
	if pool == nil {
		return nil, errors.New("system trust store unavailable, set a CA bundle")
	}
	return pool, nil
}
