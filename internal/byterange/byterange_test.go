package byterange

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// payload returns n bytes of a repeating, position-dependent pattern.
func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7 % 251)
	}
	return b
}

func serve(t *testing.T, content []byte, method, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, "/audio/01_song.mp3", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	res := Resource{Length: int64(len(content)), MIMEType: "audio/mpeg", SupportsRanges: true}
	if _, err := Serve(rec, req, bytes.NewReader(content), res, 8); err != nil {
		t.Fatalf("Serve() unexpected error: %v", err)
	}
	return rec
}

// TestParse runs the header grammar.
func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   Requested
		ok     bool
	}{
		{"bytes=0-99", Requested{Start: 0, End: 99}, true},
		{"bytes=100-", Requested{Start: 100, OpenEnd: true}, true},
		{" bytes=5-10 ", Requested{Start: 5, End: 10}, true},
		{"bytes= 5 - 10", Requested{Start: 5, End: 10}, true},
		{"bytes=10-5", Requested{Start: 10, End: 5}, true}, // parsed; rejected by NewPlan
		{"bytes=-500", Requested{}, false},
		{"bytes=0-1,5-6", Requested{}, false},
		{"bytes=a-b", Requested{}, false},
		{"bytes=+1-2", Requested{}, false},
		{"bytes=1", Requested{}, false},
		{"items=0-1", Requested{}, false},
		{"bytes=99999999999999999999-", Requested{}, false},
		{"", Requested{}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.header, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse(tt.header)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.header, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}

// TestPartialResponseProperty sweeps valid ranges over several lengths.
func TestPartialResponseProperty(t *testing.T) {
	t.Parallel()

	for _, length := range []int{1, 2, 17, 64, 257} {
		content := payload(length)
		for start := 0; start < length; start += 1 + length/9 {
			for end := start; end < length; end += 1 + length/7 {
				header := fmt.Sprintf("bytes=%d-%d", start, end)
				rec := serve(t, content, http.MethodGet, header)

				if rec.Code != http.StatusPartialContent {
					t.Fatalf("L=%d %s: status %d, want 206", length, header, rec.Code)
				}
				if got := rec.Body.Len(); got != end-start+1 {
					t.Fatalf("L=%d %s: body length %d, want %d", length, header, got, end-start+1)
				}
				if !bytes.Equal(rec.Body.Bytes(), content[start:end+1]) {
					t.Fatalf("L=%d %s: body bytes mismatch", length, header)
				}
				wantCR := fmt.Sprintf("bytes %d-%d/%d", start, end, length)
				if got := rec.Header().Get("Content-Range"); got != wantCR {
					t.Fatalf("L=%d %s: Content-Range %q, want %q", length, header, got, wantCR)
				}
				if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(end-start+1) {
					t.Fatalf("L=%d %s: Content-Length %q", length, header, got)
				}
			}
		}
	}
}

// TestOpenEndedRange checks an absent end serves to the end of the resource.
func TestOpenEndedRange(t *testing.T) {
	t.Parallel()

	content := payload(100)
	rec := serve(t, content, http.MethodGet, "bytes=90-")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 90-99/100" {
		t.Fatalf("Content-Range %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), content[90:]) {
		t.Fatalf("body mismatch")
	}
}

// TestUnsatisfiable checks out-of-bounds ranges yield 416 and no body.
func TestUnsatisfiable(t *testing.T) {
	t.Parallel()

	content := payload(50)
	for _, header := range []string{"bytes=50-", "bytes=50-60", "bytes=75-80", "bytes=10-50", "bytes=20-10"} {
		rec := serve(t, content, http.MethodGet, header)
		if rec.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("%s: status %d, want 416", header, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("%s: expected no body, got %d bytes", header, rec.Body.Len())
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes */50" {
			t.Fatalf("%s: Content-Range %q, want bytes */50", header, got)
		}
	}
}

// TestFullResponse checks absent or unparseable headers return the whole body.
func TestFullResponse(t *testing.T) {
	t.Parallel()

	content := payload(123)
	for _, header := range []string{"", "bytes=0-1,4-5", "bytes=-10", "garbage"} {
		rec := serve(t, content, http.MethodGet, header)
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status %d, want 200", header, rec.Code)
		}
		if got := rec.Header().Get("Content-Length"); got != "123" {
			t.Fatalf("%q: Content-Length %q, want 123", header, got)
		}
		if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
			t.Fatalf("%q: Accept-Ranges %q", header, got)
		}
		if rec.Header().Get("Content-Range") != "" {
			t.Fatalf("%q: unexpected Content-Range on full response", header)
		}
		if !bytes.Equal(rec.Body.Bytes(), content) {
			t.Fatalf("%q: body mismatch", header)
		}
	}
}

// TestRangesDisabled checks resources without range support ignore the header.
func TestRangesDisabled(t *testing.T) {
	t.Parallel()

	content := payload(30)
	req := httptest.NewRequest(http.MethodGet, "/x.mp3", nil)
	req.Header.Set("Range", "bytes=0-9")
	rec := httptest.NewRecorder()

	res := Resource{Length: 30, MIMEType: "audio/mpeg"}
	if _, err := Serve(rec, req, bytes.NewReader(content), res, 0); err != nil {
		t.Fatalf("Serve() error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.Len() != 30 {
		t.Fatalf("expected full 200 response, got %d with %d bytes", rec.Code, rec.Body.Len())
	}
}

// TestHeadOmitsBody checks HEAD gets headers only.
func TestHeadOmitsBody(t *testing.T) {
	t.Parallel()

	rec := serve(t, payload(40), http.MethodHead, "bytes=0-9")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status %d, want 206", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("HEAD returned a body")
	}
	if got := rec.Header().Get("Content-Length"); got != "10" {
		t.Fatalf("Content-Length %q, want 10", got)
	}
}

// TestIdempotentRanges checks repeated requests return identical bytes.
func TestIdempotentRanges(t *testing.T) {
	t.Parallel()

	content := payload(1000)
	first := serve(t, content, http.MethodGet, "bytes=100-599")
	second := serve(t, content, http.MethodGet, "bytes=100-599")
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("repeated range requests returned different bodies")
	}
}

// TestConcurrentRanges checks parallel reads over one ReaderAt do not interfere.
func TestConcurrentRanges(t *testing.T) {
	t.Parallel()

	content := payload(4096)
	shared := bytes.NewReader(content)
	res := Resource{Length: int64(len(content)), MIMEType: "audio/mpeg", SupportsRanges: true}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := (i * 61) % 4000
			end := start + 50 + i
			req := httptest.NewRequest(http.MethodGet, "/a.mp3", nil)
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
			rec := httptest.NewRecorder()
			if _, err := Serve(rec, req, shared, res, 16); err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(rec.Body.Bytes(), content[start:end+1]) {
				errs <- fmt.Errorf("range %d-%d returned wrong bytes", start, end)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

// TestContentType checks the pinned audio types and the fallback.
func TestContentType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"song.MP3":     "audio/mpeg",
		"a/b/c.flac":   "audio/flac",
		"track.m4a":    "audio/mp4",
		"blob.unknown": "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Fatalf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
	if !IsAudio("x/02_Song.OGG") || IsAudio("index.html") {
		t.Fatalf("IsAudio() misclassified")
	}
}
