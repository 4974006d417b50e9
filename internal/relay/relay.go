// Package relay fetches allow-listed release assets from upstream and
// streams them to clients with range semantics intact.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"tubeshelf/internal/apperrors"
	"tubeshelf/internal/byterange"
	"tubeshelf/internal/domain/consts"
	"tubeshelf/internal/domain/logger"
	"tubeshelf/internal/metrics"

	pkgerrors "github.com/pkg/errors"
)

// Options configures a Relay.
type Options struct {
	Policy Policy
	// Client performs upstream fetches. Build it with NewClient.
	Client *http.Client
	// IdleTimeout aborts a fetch when upstream sends nothing for this long.
	IdleTimeout time.Duration
	ChunkSize   int
}

// Relay is the proxy handler.
type Relay struct {
	policy    Policy
	client    *http.Client
	idle      time.Duration
	chunkSize int
}

// New returns a Relay.
func New(opts Options) (*Relay, error) {
	if opts.Client == nil {
		return nil, errors.New("relay requires an upstream client")
	}
	rl := &Relay{
		policy:    opts.Policy,
		client:    opts.Client,
		idle:      opts.IdleTimeout,
		chunkSize: opts.ChunkSize,
	}
	if rl.idle <= 0 {
		rl.idle = consts.DefaultProxyTimeout
	}
	if rl.chunkSize <= 0 {
		rl.chunkSize = consts.DefaultChunkSize
	}
	return rl, nil
}

// Policy returns the relay's target policy.
func (rl *Relay) Policy() Policy {
	return rl.policy
}

// Request describes one upstream fetch.
type Request struct {
	Method string
	Target *Target
	// Range is forwarded verbatim when set.
	Range string
}

// Response is an upstream response ready to mirror to a client.
type Response struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// Do fetches req.Target. Upstream failures come back as apperrors.
func (rl *Relay) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Target == nil {
		return nil, apperrors.BadRequest(invalidTargetMsg)
	}
	method := req.Method
	if method != http.MethodHead {
		method = http.MethodGet
	}

	upReq, err := http.NewRequestWithContext(ctx, method, req.Target.URL.String(), nil)
	if err != nil {
		return nil, apperrors.Internal(pkgerrors.Wrap(err, "failed to build upstream request"))
	}
	upReq.Header.Set("User-Agent", consts.UserAgent)
	if req.Range != "" {
		upReq.Header.Set(consts.HeaderRange, req.Range)
	}

	start := time.Now()
	resp, err := rl.client.Do(upReq)
	if err != nil {
		metrics.UpstreamLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, classify(ctx, err)
	}
	metrics.UpstreamLatency.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	switch {
	case resp.StatusCode >= 400:
		drain(resp.Body)
		return nil, apperrors.Upstream(resp.StatusCode, "Error fetching file: "+http.StatusText(resp.StatusCode))
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent:
		drain(resp.Body)
		return nil, apperrors.Upstream(http.StatusBadGateway, fmt.Sprintf("Unexpected upstream status %d", resp.StatusCode))
	}

	return &Response{
		Status: resp.StatusCode,
		Header: mirrorHeaders(resp.Header, req.Target.Asset),
		Body:   resp.Body,
	}, nil
}

// classify maps a transport failure to an apperror.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, ErrRedirectRejected) {
		return &apperrors.Error{
			Kind:   apperrors.KindUpstream,
			Status: http.StatusBadGateway,
			Msg:    "Upstream redirected to an untrusted location",
			Err:    err,
		}
	}
	if errors.Is(err, ErrPrivateAddress) {
		return &apperrors.Error{
			Kind:   apperrors.KindUpstream,
			Status: http.StatusBadGateway,
			Msg:    "Upstream resolved to a non-public address",
			Err:    err,
		}
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return apperrors.Timeout(err)
	}
	return apperrors.Internal(pkgerrors.Wrap(err, "upstream fetch failed"))
}

// mirrorHeaders copies the range contract from upstream and fixes up the type.
func mirrorHeaders(up http.Header, asset string) http.Header {
	h := make(http.Header)

	ct := up.Get(consts.HeaderContentType)
	mediaType := strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	switch {
	case mediaType == "" && byterange.IsAudio(asset):
		ct = byterange.ContentType(asset)
	case mediaType == "":
		ct = consts.MIMEDefaultAudio
	case strings.EqualFold(mediaType, consts.MIMEOctetStream) && byterange.IsAudio(asset):
		ct = byterange.ContentType(asset)
	}
	h.Set(consts.HeaderContentType, ct)

	for _, k := range []string{consts.HeaderContentLength, consts.HeaderContentRange} {
		if v := up.Get(k); v != "" {
			h.Set(k, v)
		}
	}
	if v := up.Get(consts.HeaderAcceptRanges); v != "" {
		h.Set(consts.HeaderAcceptRanges, v)
	} else {
		h.Set(consts.HeaderAcceptRanges, consts.RangeUnitBytes)
	}
	h.Set(consts.HeaderCacheControl, consts.CacheImmutable)
	return h
}

func drain(body io.ReadCloser) {
	_, _ = io.CopyN(io.Discard, body, 4<<10)
	_ = body.Close()
}

// ServeHTTP validates ?url=, fetches it and streams the result.
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, err := rl.policy.Validate(r.URL.Query().Get("url"))
	if err != nil {
		logger.Pl.D(2, "Rejected proxy target %q: %v", r.URL.Query().Get("url"), err)
		apperrors.Write(w, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	idle := newIdleTimer(rl.idle, cancel)
	defer idle.stop()

	resp, err := rl.Do(ctx, Request{
		Method: r.Method,
		Target: target,
		Range:  r.Header.Get(consts.HeaderRange),
	})
	if err != nil {
		switch {
		case idle.fired():
			err = apperrors.Timeout(err)
		case r.Context().Err() != nil:
			logger.Pl.D(1, "Client left before upstream answered for %s", target.URL.Redacted())
			return
		}
		rl.fail(w, target, err)
		return
	}
	defer resp.Body.Close()

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.Status)
	if r.Method == http.MethodHead {
		return
	}

	n, err := rl.stream(w, resp.Body, idle)
	metrics.BytesStreamed.WithLabelValues(metrics.SourceRelay).Add(float64(n))
	switch {
	case err == nil:
		logger.Pl.D(3, "Relayed %d bytes of %s", n, target.Asset)
	case idle.fired():
		logger.Pl.W("Upstream stalled after %d bytes of %s", n, target.URL.Redacted())
	default:
		logger.Pl.D(1, "Relay of %s stopped after %d bytes: %v", target.Asset, n, err)
	}
}

// stream copies body to w in fixed-size chunks. The idle timer only runs
// while waiting on upstream reads; it is paused for each client write.
func (rl *Relay) stream(w io.Writer, body io.Reader, idle *idleTimer) (int64, error) {
	buf := make([]byte, rl.chunkSize)
	flusher, _ := w.(http.Flusher)
	var written int64
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			idle.pause()
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, pkgerrors.Wrap(werr, "client write failed")
			}
			if flusher != nil {
				flusher.Flush()
			}
			idle.reset()
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, pkgerrors.Wrap(rerr, "upstream read failed")
		}
	}
}

func (rl *Relay) fail(w http.ResponseWriter, target *Target, err error) {
	e := apperrors.From(err)
	switch e.Kind {
	case apperrors.KindInternal:
		logger.Pl.E("Proxy fetch of %s failed: %v", target.URL.Redacted(), err)
	case apperrors.KindTimeout:
		logger.Pl.W("Proxy fetch of %s timed out", target.URL.Redacted())
	default:
		logger.Pl.D(1, "Proxy fetch of %s: %v", target.URL.Redacted(), err)
	}
	apperrors.Write(w, e)
}

// idleTimer cancels a fetch when it is not reset within d.
type idleTimer struct {
	d    time.Duration
	t    *time.Timer
	fire atomic.Bool
}

func newIdleTimer(d time.Duration, cancel context.CancelFunc) *idleTimer {
	it := &idleTimer{d: d}
	it.t = time.AfterFunc(d, func() {
		it.fire.Store(true)
		cancel()
	})
	return it
}

func (it *idleTimer) reset() {
	if !it.fire.Load() {
		it.t.Reset(it.d)
	}
}

// pause stops the timer until the next reset.
func (it *idleTimer) pause() { it.t.Stop() }

func (it *idleTimer) stop()       { it.t.Stop() }
func (it *idleTimer) fired() bool { return it.fire.Load() }
