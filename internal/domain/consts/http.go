package consts

// Header names.
const (
	HeaderRange         = "Range"
	HeaderAcceptRanges  = "Accept-Ranges"
	HeaderContentRange  = "Content-Range"
	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
	HeaderCacheControl  = "Cache-Control"
	HeaderRequestID     = "X-Request-ID"
)

// CORS.
const (
	CORSAllowOrigin   = "*"
	CORSAllowMethods  = "GET, HEAD, POST, OPTIONS"
	CORSAllowHeaders  = "Content-Type, Range"
	CORSExposeHeaders = "Content-Length, Content-Range, Accept-Ranges"
)

// RangeUnitBytes is the only range unit tubeshelf understands.
const RangeUnitBytes = "bytes"

// CacheImmutable is sent on relayed release assets, which never change once published.
const CacheImmutable = "public, max-age=31536000, immutable"

// Relay.
const (
	ReleaseDownloadSegment = "releases/download"
	DefaultProxyHost       = "github.com"
	MaxRedirects           = 10
	UserAgent              = "tubeshelf"
)
