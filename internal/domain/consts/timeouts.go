package consts

import "time"

// Listener defaults.
const (
	DefaultHost            = ""
	DefaultPort            = 8000
	DefaultShutdownTimeout = 10 * time.Second
	ReadHeaderTimeout      = 10 * time.Second
)

// Relay defaults.
const (
	DefaultProxyTimeout = 30 * time.Second
	DefaultChunkSize    = 8 * 1024
)

// Cache defaults.
const (
	DefaultCacheMaxBytes  = 64 << 20
	DefaultCacheFileLimit = 4 << 20
)

// Download defaults.
const (
	DefaultYtdlpPath       = "yt-dlp"
	DefaultDownloadTimeout = 5 * time.Minute
	DefaultAudioDir        = "audio"
)
