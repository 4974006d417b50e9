// Package ytdlp downloads YouTube audio as MP3 with the yt-dlp binary.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"tubeshelf/internal/apperrors"
	"tubeshelf/internal/byterange"
	"tubeshelf/internal/domain/consts"
	"tubeshelf/internal/domain/logger"
	"tubeshelf/internal/domain/regex"
)

// maxDetailLen caps the yt-dlp message returned to the client.
const maxDetailLen = 200

// Options configures a Fetcher.
type Options struct {
	// Binary is the yt-dlp executable name or path.
	Binary   string
	AudioDir string
	Timeout  time.Duration
}

// Fetcher runs yt-dlp into a single audio directory.
type Fetcher struct {
	binary   string
	audioDir string
	timeout  time.Duration
}

// Result describes a finished download.
type Result struct {
	Title string `json:"title"`
	File  string `json:"file"`
}

// New checks the binary is runnable and creates the audio directory.
func New(opts Options) (*Fetcher, error) {
	bin := opts.Binary
	if bin == "" {
		bin = consts.DefaultYtdlpPath
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp command not found: %w", err)
	}

	dir := opts.AudioDir
	if dir == "" {
		dir = consts.DefaultAudioDir
	}
	if err := os.MkdirAll(dir, consts.PermsAudioDir); err != nil {
		return nil, fmt.Errorf("failed to create audio directory %q: %w", dir, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultDownloadTimeout
	}
	return &Fetcher{binary: resolved, audioDir: dir, timeout: timeout}, nil
}

// ValidateURL accepts http(s) links on youtube.com or youtu.be.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apperrors.BadRequest("URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return apperrors.BadRequest("Invalid YouTube URL")
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtu.be", host == "youtube.com", strings.HasSuffix(host, ".youtube.com"):
		return nil
	}
	return apperrors.BadRequest("Invalid YouTube URL")
}

// Args returns the yt-dlp argument list for link.
func (f *Fetcher) Args(link string) []string {
	return []string{
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--no-playlist",
		"-o", filepath.Join(f.audioDir, "%(title)s.%(ext)s"),
		"--print", "after_move:%(filepath)s",
		"--", link,
	}
}

// Fetch downloads link and returns the resulting file and display title.
func (f *Fetcher) Fetch(ctx context.Context, link string) (*Result, error) {
	if err := ValidateURL(link); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := f.Args(link)
	logger.Pl.D(1, "Built argument list: %v", args)

	cmd := exec.CommandContext(ctx, f.binary, args...)
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	logger.Pl.I("Downloading audio from %s", link)
	runErr := cmd.Run()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, &apperrors.Error{
			Kind:   apperrors.KindTimeout,
			Status: http.StatusGatewayTimeout,
			Msg:    fmt.Sprintf("Download timeout (%s exceeded)", f.timeout),
			Err:    runErr,
		}
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case runErr != nil:
		detail := lastLine(stderr.String())
		if detail == "" {
			detail = lastLine(stdout.String())
		}
		// The download endpoint is local-only, so yt-dlp's message is shown.
		return nil, &apperrors.Error{
			Kind:   apperrors.KindInternal,
			Status: http.StatusInternalServerError,
			Msg:    "yt-dlp error: " + truncate(detail, maxDetailLen),
			Err:    runErr,
		}
	}

	file := OutputPath(stdout.String())
	if file == "" || !exists(file) {
		newest, err := newestAudio(f.audioDir, started)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		file = newest
	}
	if file == "" {
		return nil, &apperrors.Error{
			Kind:   apperrors.KindInternal,
			Status: http.StatusInternalServerError,
			Msg:    "Downloaded file not found",
		}
	}

	res := &Result{Title: CleanTitle(file), File: filepath.Base(file)}
	logger.Pl.S("Downloaded %q to %s", res.Title, file)
	return res, nil
}

// OutputPath finds the final audio path in yt-dlp output. Printed
// after-move paths and "Destination:" lines both count; the last wins.
func OutputPath(output string) string {
	var found string
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, "Destination:"); i >= 0 {
			line = strings.TrimSpace(line[i+len("Destination:"):])
		}
		if filepath.IsAbs(line) || strings.Contains(line, string(filepath.Separator)) {
			if byterange.IsAudio(line) {
				found = line
			}
		}
	}
	return found
}

// CleanTitle turns a file name into a display title: the extension, a
// two-digit "NN_" track prefix and bracketed tags are removed, and runs of
// whitespace are collapsed.
func CleanTitle(name string) string {
	base := filepath.Base(name)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if m := regex.TrackPrefixCompile().FindStringSubmatch(title); m != nil {
		title = m[1]
	}
	title = regex.BracketTagCompile().ReplaceAllString(title, "")
	return strings.TrimSpace(regex.ExtraSpacesCompile().ReplaceAllString(title, " "))
}

// newestAudio returns the most recently modified .mp3 in dir changed at or after since.
func newestAudio(dir string, since time.Time) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list %q: %w", dir, err)
	}
	var (
		best    string
		bestMod time.Time
	)
	cutoff := since.Add(-time.Second)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".mp3") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best, bestMod = filepath.Join(dir, e.Name()), info.ModTime()
		}
	}
	return best, nil
}

func exists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
