package main

import (
	"context"
	"fmt"
	"os"

	"tubeshelf/internal/cfg"
	"tubeshelf/internal/domain/logger"
	"tubeshelf/internal/library"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/relay"
	"tubeshelf/internal/server"
	"tubeshelf/internal/ytdlp"
)

// run builds the components for mode and serves until ctx ends.
func run(ctx context.Context, mode server.Mode, s *cfg.Settings) error {
	if err := setupLogging(s); err != nil {
		return err
	}

	deps, cleanup, err := initializeApplication(mode, s)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Pl.I("tubeshelf %s mode listening on %s", mode, s.Server.Addr())
	return server.StartServer(ctx, s.Server, server.NewRouter(deps))
}

// setupLogging replaces the console logger once the log file and level are known.
func setupLogging(s *cfg.Settings) error {
	if s.LogFile == "" {
		logger.Pl.SetLevel(s.DebugLevel)
		return nil
	}

	pl, err := logging.SetupLogging(logging.LoggingConfig{
		LogFilePath: s.LogFile,
		Console:     os.Stdout,
		Program:     "tubeshelf",
		DebugLevel:  s.DebugLevel,
	})
	if err != nil {
		return err
	}
	logger.Pl = pl
	return nil
}

// initializeApplication wires the relay, and in serve mode the library and
// optional downloader, into router dependencies.
func initializeApplication(mode server.Mode, s *cfg.Settings) (server.Deps, func(), error) {
	policy := relay.Policy{Hosts: s.ProxyHosts, RedirectHosts: s.ProxyRedirectHosts}

	client, err := relay.NewClient(relay.ClientOptions{
		Timeout:  s.ProxyTimeout,
		CABundle: s.CABundle,
		Policy:   policy,
	})
	if err != nil {
		return server.Deps{}, nil, fmt.Errorf("failed to build upstream client: %w", err)
	}

	rl, err := relay.New(relay.Options{
		Policy:      policy,
		Client:      client,
		IdleTimeout: s.ProxyTimeout,
		ChunkSize:   s.ChunkSize,
	})
	if err != nil {
		return server.Deps{}, nil, err
	}

	deps := server.Deps{
		Mode:      mode,
		Relay:     rl,
		AccessLog: logger.Pl.Zerolog(),
	}
	cleanup := func() {}

	if mode != server.ModeServe {
		return deps, cleanup, nil
	}

	lib, err := library.New(s.WebRoot, library.Options{
		CacheMaxBytes:  s.CacheMaxBytes,
		CacheFileLimit: s.CacheFileLimit,
		ChunkSize:      s.ChunkSize,
	})
	if err != nil {
		return server.Deps{}, nil, err
	}
	deps.Library = lib
	cleanup = lib.Close
	logger.Pl.I("Serving files from %s", lib.Root())

	if s.EnableDownload {
		f, err := ytdlp.New(ytdlp.Options{
			Binary:   s.YtdlpPath,
			AudioDir: s.AudioDir,
			Timeout:  s.DownloadTimeout,
		})
		if err != nil {
			lib.Close()
			return server.Deps{}, nil, err
		}
		deps.Fetcher = f
		logger.Pl.I("Local downloads enabled, saving to %s", s.AudioDir)
	}
	return deps, cleanup, nil
}
