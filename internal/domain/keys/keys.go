// Package keys holds the Viper and terminal keys used across tubeshelf.
package keys

// Program.
const (
	ConfigFile string = "config-file"
	DebugLevel string = "debug"
	LogFile    string = "log-file"
)

// Listener.
const (
	Host            string = "host"
	Port            string = "port"
	MaxConnections  string = "max-connections"
	ShutdownTimeout string = "shutdown-timeout"
)

// Files and directories.
const (
	WebRoot  string = "web-root"
	AudioDir string = "audio-dir"
)

// Local file cache.
const (
	CacheMaxBytes  string = "cache-max-bytes"
	CacheFileLimit string = "cache-file-limit"
)

// Proxy relay.
const (
	ProxyHosts         string = "proxy-hosts"
	ProxyRedirectHosts string = "proxy-redirect-hosts"
	ProxyTimeout       string = "proxy-timeout"
	ChunkSize          string = "chunk-size"
	CABundle           string = "ca-bundle"
)

// Local download.
const (
	EnableDownload  string = "enable-download"
	YtdlpPath       string = "ytdlp-path"
	DownloadTimeout string = "download-timeout"
)

// EnvPrefix is prepended to environment variable lookups (e.g. TUBESHELF_PORT).
const EnvPrefix = "TUBESHELF"
