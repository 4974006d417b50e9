// Package byterange parses single byte-range requests and writes the matching
// 200, 206 or 416 responses.
package byterange

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"tubeshelf/internal/domain/consts"
)

// ByteRange is an inclusive [Start, End] interval over a resource.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (br ByteRange) Length() int64 {
	return br.End - br.Start + 1
}

// Requested is a parsed Range header, before the resource length is known.
type Requested struct {
	Start   int64
	End     int64
	OpenEnd bool // "bytes=500-"
}

// Resource describes the thing being served.
type Resource struct {
	Length         int64
	MIMEType       string
	SupportsRanges bool
}

// Parse parses a single "bytes=<start>-<end>" range.
//
// Suffix ranges ("bytes=-500"), multiple ranges, other units and anything
// malformed report false; callers then serve the whole resource.
func Parse(header string) (Requested, bool) {
	const prefix = consts.RangeUnitBytes + "="

	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, prefix) {
		return Requested{}, false
	}
	rng := header[len(prefix):]
	if strings.Contains(rng, ",") {
		return Requested{}, false
	}

	i := strings.IndexByte(rng, '-')
	if i < 0 {
		return Requested{}, false
	}
	startStr, endStr := strings.TrimSpace(rng[:i]), strings.TrimSpace(rng[i+1:])

	start, ok := parseOffset(startStr)
	if !ok {
		return Requested{}, false
	}
	if endStr == "" {
		return Requested{Start: start, OpenEnd: true}, true
	}
	end, ok := parseOffset(endStr)
	if !ok {
		return Requested{}, false
	}
	return Requested{Start: start, End: end}, true
}

// parseOffset accepts only plain decimal digits.
func parseOffset(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Plan is the response decided for one request.
type Plan struct {
	Status int
	Range  ByteRange
	Total  int64
}

// NewPlan decides the response for a resource of the given length.
func NewPlan(length int64, header string) Plan {
	full := Plan{Status: http.StatusOK, Range: ByteRange{Start: 0, End: length - 1}, Total: length}
	if header == "" {
		return full
	}

	rng, ok := Parse(header)
	if !ok {
		return full
	}

	end := rng.End
	if rng.OpenEnd {
		end = length - 1
	}
	if rng.Start >= length || end >= length || rng.Start > end {
		return Plan{Status: http.StatusRequestedRangeNotSatisfiable, Total: length}
	}
	return Plan{Status: http.StatusPartialContent, Range: ByteRange{Start: rng.Start, End: end}, Total: length}
}

// ContentLength returns the body size this plan produces.
func (p Plan) ContentLength() int64 {
	switch p.Status {
	case http.StatusOK, http.StatusPartialContent:
		return p.Range.Length()
	default:
		return 0
	}
}

// ContentRange returns the Content-Range value, or "" for full responses.
func (p Plan) ContentRange() string {
	switch p.Status {
	case http.StatusPartialContent:
		return consts.RangeUnitBytes + " " +
			strconv.FormatInt(p.Range.Start, 10) + "-" +
			strconv.FormatInt(p.Range.End, 10) + "/" +
			strconv.FormatInt(p.Total, 10)
	case http.StatusRequestedRangeNotSatisfiable:
		return consts.RangeUnitBytes + " */" + strconv.FormatInt(p.Total, 10)
	default:
		return ""
	}
}

// Apply writes the plan's range headers into h.
func (p Plan) Apply(h http.Header) {
	h.Set(consts.HeaderAcceptRanges, consts.RangeUnitBytes)
	if cr := p.ContentRange(); cr != "" {
		h.Set(consts.HeaderContentRange, cr)
	}
	if p.Status != http.StatusRequestedRangeNotSatisfiable {
		h.Set(consts.HeaderContentLength, strconv.FormatInt(p.ContentLength(), 10))
	}
}

// Serve writes the response for r over content.
//
// Each call reads through its own io.SectionReader, so concurrent requests
// against the same ReaderAt never share a read position. The body is
// copied in chunkSize pieces. The returned error is a body copy failure,
// usually a client that went away; headers have already been sent.
func Serve(w http.ResponseWriter, r *http.Request, content io.ReaderAt, res Resource, chunkSize int) (Plan, error) {
	header := r.Header.Get(consts.HeaderRange)
	if !res.SupportsRanges {
		header = ""
	}
	plan := NewPlan(res.Length, header)

	h := w.Header()
	if res.MIMEType != "" && plan.Status != http.StatusRequestedRangeNotSatisfiable {
		h.Set(consts.HeaderContentType, res.MIMEType)
	}
	plan.Apply(h)
	w.WriteHeader(plan.Status)

	if plan.Status == http.StatusRequestedRangeNotSatisfiable || r.Method == http.MethodHead {
		return plan, nil
	}

	if chunkSize <= 0 {
		chunkSize = consts.DefaultChunkSize
	}
	body := io.NewSectionReader(content, plan.Range.Start, plan.ContentLength())
	buf := make([]byte, chunkSize)

	// Hide ReadFrom so the copy really moves chunkSize pieces.
	_, err := io.CopyBuffer(struct{ io.Writer }{w}, body, buf)
	return plan, err
}

// IsAudio reports whether name carries one of the streamed audio extensions.
func IsAudio(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, a := range consts.AudioExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// ContentType guesses a MIME type from name, preferring the pinned audio types.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := consts.AudioMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return consts.MIMEOctetStream
}
