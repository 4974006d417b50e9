// Package library serves files from the local web root, bounded to that root.
package library

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tubeshelf/internal/apperrors"
	"tubeshelf/internal/byterange"
	"tubeshelf/internal/domain/consts"
	"tubeshelf/internal/domain/logger"
	"tubeshelf/internal/metrics"

	"github.com/dgraph-io/ristretto"
)

// Options configures a Library.
type Options struct {
	// CacheMaxBytes caps the small-file cache. Zero disables caching.
	CacheMaxBytes int64
	// CacheFileLimit is the largest file kept in the cache.
	CacheFileLimit int64
	// ChunkSize is the body copy size for audio responses.
	ChunkSize int
}

// Library resolves request paths to files under a single root directory.
type Library struct {
	root      string
	cache     *ristretto.Cache
	fileLimit int64
	chunkSize int
}

type cacheEntry struct {
	data    []byte
	size    int64
	modTime time.Time
}

// New returns a Library rooted at root.
func New(root string, opts Options) (*Library, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve web root %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve web root %q: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stat web root %q: %w", resolved, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("web root %q is not a directory", resolved)
	}

	l := &Library{
		root:      resolved,
		fileLimit: opts.CacheFileLimit,
		chunkSize: opts.ChunkSize,
	}
	if l.chunkSize <= 0 {
		l.chunkSize = consts.DefaultChunkSize
	}

	if opts.CacheMaxBytes > 0 && opts.CacheFileLimit > 0 {
		counters := opts.CacheMaxBytes / (64 << 10) * 10
		if counters < 1000 {
			counters = 1000
		}
		l.cache, err = ristretto.NewCache(&ristretto.Config{
			NumCounters:        counters,
			MaxCost:            opts.CacheMaxBytes,
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init file cache: %w", err)
		}
	}
	return l, nil
}

// Root returns the absolute, symlink-free web root.
func (l *Library) Root() string {
	return l.root
}

// Close releases the cache.
func (l *Library) Close() {
	if l.cache != nil {
		l.cache.Close()
	}
}

// Resolve maps a raw request path (query allowed, percent-encoded) to a file
// path inside the root. Paths that escape the root, including through
// symlinks, are reported as not found.
func (l *Library) Resolve(raw string) (string, error) {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", apperrors.BadRequest("invalid path encoding")
	}
	if strings.ContainsRune(decoded, 0) {
		return "", apperrors.BadRequest("invalid path")
	}

	rel := strings.TrimPrefix(path.Clean("/"+decoded), "/")
	if rel == "" {
		rel = consts.IndexFile
	}
	return l.bound(filepath.Join(l.root, filepath.FromSlash(rel)))
}

// bound follows symlinks in full and checks the result stays inside the root.
func (l *Library) bound(full string) (string, error) {
	if !l.contains(full) {
		return "", apperrors.NotFound("file not found", fmt.Errorf("path %q escapes web root", full))
	}
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", statError(err)
	}
	if !l.contains(resolved) {
		return "", apperrors.NotFound("file not found", fmt.Errorf("path %q links outside web root", full))
	}
	return resolved, nil
}

// contains reports whether p lies within the root.
func (l *Library) contains(p string) bool {
	rel, err := filepath.Rel(l.root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// statError classifies a filesystem lookup failure.
func statError(err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return apperrors.NotFound("file not found", err)
	}
	return apperrors.Internal(err)
}

// Asset is an opened file, readable at any offset by concurrent requests.
type Asset struct {
	Path     string
	ModTime  time.Time
	Resource byterange.Resource

	content io.ReaderAt
	closer  io.Closer
}

// ReadAt implements io.ReaderAt.
func (a *Asset) ReadAt(p []byte, off int64) (int, error) {
	return a.content.ReadAt(p, off)
}

// ReadSeeker returns an independent io.ReadSeeker over the asset.
func (a *Asset) ReadSeeker() io.ReadSeeker {
	return io.NewSectionReader(a.content, 0, a.Resource.Length)
}

// Close releases the underlying file, if one is held.
func (a *Asset) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Open resolves raw and opens the file. Directories open their index.html.
func (l *Library) Open(raw string) (*Asset, error) {
	p, err := l.Resolve(raw)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, statError(err)
	}
	if info.IsDir() {
		if p, err = l.bound(filepath.Join(p, consts.IndexFile)); err != nil {
			return nil, err
		}
		if info, err = os.Stat(p); err != nil {
			return nil, statError(err)
		}
	}
	if !info.Mode().IsRegular() {
		return nil, apperrors.NotFound("file not found", fmt.Errorf("%q is not a regular file", p))
	}

	asset := &Asset{
		Path:    p,
		ModTime: info.ModTime(),
		Resource: byterange.Resource{
			Length:         info.Size(),
			MIMEType:       byterange.ContentType(p),
			SupportsRanges: true,
		},
	}

	if data, ok := l.cached(p, info); ok {
		asset.content = bytes.NewReader(data)
		return asset, nil
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, statError(err)
	}

	if l.cache == nil || info.Size() > l.fileLimit {
		asset.content = f
		asset.closer = f
		return asset, nil
	}

	data, err := io.ReadAll(f)
	if closeErr := f.Close(); closeErr != nil {
		logger.Pl.E("failed to close %q: %v", p, closeErr)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if int64(len(data)) == info.Size() {
		l.cache.Set(p, &cacheEntry{data: data, size: info.Size(), modTime: info.ModTime()}, info.Size())
	}
	asset.Resource.Length = int64(len(data))
	asset.content = bytes.NewReader(data)
	return asset, nil
}

// cached returns cached bytes for p if they still match info.
func (l *Library) cached(p string, info fs.FileInfo) ([]byte, bool) {
	if l.cache == nil || info.Size() > l.fileLimit {
		return nil, false
	}
	v, ok := l.cache.Get(p)
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	e, ok := v.(*cacheEntry)
	if !ok || e.size != info.Size() || !e.modTime.Equal(info.ModTime()) {
		l.cache.Del(p)
		metrics.CacheLookups.WithLabelValues("stale").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return e.data, true
}

// ServeHTTP dispatches audio paths through the range responder and
// everything else through http.ServeContent.
func (l *Library) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if byterange.IsAudio(r.URL.Path) {
		l.ServeAudio(w, r)
		return
	}
	l.ServeStatic(w, r)
}

// ServeAudio serves an audio file with single-range support.
func (l *Library) ServeAudio(w http.ResponseWriter, r *http.Request) {
	asset, err := l.Open(r.URL.RequestURI())
	if err != nil {
		l.fail(w, r, err)
		return
	}
	defer func() {
		if err := asset.Close(); err != nil {
			logger.Pl.E("failed to close %q: %v", asset.Path, err)
		}
	}()

	cw := &countingWriter{ResponseWriter: w}
	plan, err := byterange.Serve(cw, r, asset, asset.Resource, l.chunkSize)
	metrics.BytesStreamed.WithLabelValues(metrics.SourceLocal).Add(float64(cw.n))
	if err != nil {
		logger.Pl.D(1, "Stream of %q (%d) interrupted after %d bytes: %v", r.URL.Path, plan.Status, cw.n, err)
	}
}

// ServeStatic serves a non-audio file.
func (l *Library) ServeStatic(w http.ResponseWriter, r *http.Request) {
	asset, err := l.Open(r.URL.RequestURI())
	if err != nil {
		l.fail(w, r, err)
		return
	}
	defer func() {
		if err := asset.Close(); err != nil {
			logger.Pl.E("failed to close %q: %v", asset.Path, err)
		}
	}()

	if asset.Resource.MIMEType != consts.MIMEOctetStream {
		w.Header().Set(consts.HeaderContentType, asset.Resource.MIMEType)
	}
	cw := &countingWriter{ResponseWriter: w}
	http.ServeContent(cw, r, asset.Path, asset.ModTime, asset.ReadSeeker())
	metrics.BytesStreamed.WithLabelValues(metrics.SourceLocal).Add(float64(cw.n))
}

func (l *Library) fail(w http.ResponseWriter, r *http.Request, err error) {
	e := apperrors.From(err)
	if e.Kind == apperrors.KindInternal {
		logger.Pl.E("Failed to serve %q: %v", r.URL.Path, err)
	} else {
		logger.Pl.D(2, "Rejected %q: %v", r.URL.Path, err)
	}
	apperrors.Write(w, e)
}

type countingWriter struct {
	http.ResponseWriter
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.ResponseWriter.Write(p)
	c.n += int64(n)
	return n, err
}
