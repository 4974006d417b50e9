package cfg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"tubeshelf/internal/domain/keys"
	"tubeshelf/internal/server"

	"github.com/spf13/viper"
)

const maxChunkSize = 1 << 20

// Settings is the validated configuration for one run.
type Settings struct {
	Mode   server.Mode
	Server server.Config

	DebugLevel int
	LogFile    string

	// Serve mode only.
	WebRoot        string
	CacheMaxBytes  int64
	CacheFileLimit int64

	ProxyHosts         []string
	ProxyRedirectHosts []string
	ProxyTimeout       time.Duration
	ChunkSize          int
	CABundle           string

	// Serve mode only.
	EnableDownload  bool
	AudioDir        string
	YtdlpPath       string
	DownloadTimeout time.Duration
}

// Load reads settings from v and validates them for mode.
func Load(v *viper.Viper, mode server.Mode) (*Settings, error) {
	s := &Settings{
		Mode: mode,
		Server: server.Config{
			Host:            v.GetString(keys.Host),
			Port:            v.GetInt(keys.Port),
			MaxConnections:  v.GetInt(keys.MaxConnections),
			ShutdownTimeout: v.GetDuration(keys.ShutdownTimeout),
		},
		DebugLevel:         v.GetInt(keys.DebugLevel),
		LogFile:            v.GetString(keys.LogFile),
		ProxyHosts:         getList(v, keys.ProxyHosts),
		ProxyRedirectHosts: getList(v, keys.ProxyRedirectHosts),
		ProxyTimeout:       v.GetDuration(keys.ProxyTimeout),
		ChunkSize:          v.GetInt(keys.ChunkSize),
		CABundle:           v.GetString(keys.CABundle),
	}

	if mode == server.ModeServe {
		s.WebRoot = v.GetString(keys.WebRoot)
		s.CacheMaxBytes = v.GetInt64(keys.CacheMaxBytes)
		s.CacheFileLimit = v.GetInt64(keys.CacheFileLimit)
		s.EnableDownload = v.GetBool(keys.EnableDownload)
		s.AudioDir = v.GetString(keys.AudioDir)
		s.YtdlpPath = v.GetString(keys.YtdlpPath)
		s.DownloadTimeout = v.GetDuration(keys.DownloadTimeout)

		if s.AudioDir != "" && !filepath.IsAbs(s.AudioDir) {
			s.AudioDir = filepath.Join(s.WebRoot, s.AudioDir)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var errs []error

	if s.Server.Port < 0 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s %d out of range (0-65535)", keys.Port, s.Server.Port))
	}
	if s.Server.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", keys.MaxConnections))
	}
	if s.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keys.ShutdownTimeout))
	}
	if s.DebugLevel < 0 || s.DebugLevel > 5 {
		errs = append(errs, fmt.Errorf("%s %d out of range (0-5)", keys.DebugLevel, s.DebugLevel))
	}

	if len(s.ProxyHosts) == 0 {
		errs = append(errs, fmt.Errorf("%s must name at least one host", keys.ProxyHosts))
	}
	for _, h := range append(append([]string{}, s.ProxyHosts...), s.ProxyRedirectHosts...) {
		if strings.ContainsAny(h, "/:@ ") {
			errs = append(errs, fmt.Errorf("proxy host %q must be a bare hostname", h))
		}
	}
	for _, h := range s.ProxyHosts {
		if strings.HasPrefix(h, ".") {
			errs = append(errs, fmt.Errorf("%s entry %q must be an exact hostname", keys.ProxyHosts, h))
		}
	}
	if s.ProxyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keys.ProxyTimeout))
	}
	if s.ChunkSize <= 0 || s.ChunkSize > maxChunkSize {
		errs = append(errs, fmt.Errorf("%s %d out of range (1-%d)", keys.ChunkSize, s.ChunkSize, maxChunkSize))
	}

	if s.Mode == server.ModeServe {
		if s.WebRoot == "" {
			errs = append(errs, fmt.Errorf("%s must be set", keys.WebRoot))
		}
		if s.CacheMaxBytes < 0 || s.CacheFileLimit < 0 {
			errs = append(errs, fmt.Errorf("%s and %s must not be negative", keys.CacheMaxBytes, keys.CacheFileLimit))
		}
		if s.EnableDownload {
			if s.YtdlpPath == "" {
				errs = append(errs, fmt.Errorf("%s must be set when %s is on", keys.YtdlpPath, keys.EnableDownload))
			}
			if s.DownloadTimeout <= 0 {
				errs = append(errs, fmt.Errorf("%s must be positive", keys.DownloadTimeout))
			}
		}
	}

	return errors.Join(errs...)
}

// getList reads a string list, splitting comma-separated entries from env values.
func getList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
