package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"tubeshelf/internal/domain/consts"
	"tubeshelf/internal/domain/logger"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

// Config holds listener settings.
type Config struct {
	Host string
	Port int
	// MaxConnections caps concurrent connections. Zero means unlimited.
	MaxConnections  int
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StartServer listens on c.Addr() and serves h until ctx is cancelled.
func StartServer(ctx context.Context, c Config, h http.Handler) error {
	ln, err := net.Listen("tcp", c.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.Addr(), err)
	}
	return Serve(ctx, ln, c, h)
}

// Serve serves h on ln until ctx is cancelled, then drains in-flight
// requests for up to c.ShutdownTimeout.
func Serve(ctx context.Context, ln net.Listener, c Config, h http.Handler) error {
	if c.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, c.MaxConnections)
	}
	timeout := c.ShutdownTimeout
	if timeout <= 0 {
		timeout = consts.DefaultShutdownTimeout
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: consts.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Pl.S("Web server running on http://%s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Pl.I("Shutting down web server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
