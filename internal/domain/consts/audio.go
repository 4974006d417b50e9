package consts

// AudioExtensions are the file extensions routed through the range responder.
var AudioExtensions = [...]string{".mp3", ".m4a", ".ogg", ".wav", ".flac"}

// AudioMIMETypes maps audio extensions to the types browsers expect.
//
// The mime package depends on the host's mime.types, which often lacks
// .flac and .m4a, so these are pinned.
var AudioMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
}

// Fallback content types.
const (
	MIMEOctetStream  = "application/octet-stream"
	MIMEDefaultAudio = "audio/mpeg"
	MIMEJSON         = "application/json"
)

// IndexFile is served for directory requests.
const IndexFile = "index.html"
