package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"tubeshelf/internal/apperrors"
	"tubeshelf/internal/domain/consts"
	"tubeshelf/internal/domain/logger"
	"tubeshelf/internal/ytdlp"
)

const maxBodyBytes = 64 << 10

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Note    string `json:"note"`
}

type downloadRequest struct {
	URL string `json:"url"`
}

type instructionsResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Instructions []string `json:"instructions"`
	Alternative  string   `json:"alternative"`
	URL          string   `json:"url"`
}

type downloadResponse struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
	File    string `json:"file"`
	Message string `json:"message"`
}

// handleAPIHealth reports the remote API is up.
func handleAPIHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: "API is running",
		Note:    "Direct YouTube download is not available on the remote API. Use the local server instead.",
	})
}

// handleAPIDownload explains how to add a song, since the remote binding
// cannot run yt-dlp.
func handleAPIDownload(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDownloadRequest(w, r)
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	if req.URL == "" {
		apperrors.WriteMessage(w, http.StatusBadRequest, "No URL provided")
		return
	}

	writeJSON(w, http.StatusOK, instructionsResponse{
		Success: false,
		Message: "Direct download is not available on the remote API",
		Instructions: []string{
			"To add this song, download it locally:",
			"",
			"1. yt-dlp -x --audio-format mp3 --audio-quality 0 \"" + req.URL + "\"",
			"2. Regenerate playlist.json",
			"3. Upload the MP3 to the audio GitHub release",
			"4. Commit and push playlist.json",
		},
		Alternative: "Run \"tubeshelf serve --enable-download\" and add the song from the local player.",
		URL:         req.URL,
	})
}

// handleLocalDownload runs yt-dlp for the posted YouTube URL.
func handleLocalDownload(f *ytdlp.Fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeDownloadRequest(w, r)
		if err != nil {
			apperrors.Write(w, err)
			return
		}
		if err := ytdlp.ValidateURL(req.URL); err != nil {
			apperrors.Write(w, err)
			return
		}

		res, err := f.Fetch(r.Context(), req.URL)
		if err != nil {
			e := apperrors.From(err)
			logger.Pl.E("Download of %s failed: %v", req.URL, err)
			apperrors.Write(w, e)
			return
		}

		writeJSON(w, http.StatusOK, downloadResponse{
			Success: true,
			Title:   res.Title,
			File:    res.File,
			Message: "Download completed successfully",
		})
	}
}

// decodeDownloadRequest reads {"url": ...}. An empty body decodes to an empty URL.
func decodeDownloadRequest(w http.ResponseWriter, r *http.Request) (downloadRequest, error) {
	var req downloadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return req, &apperrors.Error{
				Kind:   apperrors.KindBadRequest,
				Status: http.StatusRequestEntityTooLarge,
				Msg:    "Request body too large",
				Err:    err,
			}
		}
		return req, apperrors.BadRequest("Invalid JSON in request")
	}
	req.URL = strings.TrimSpace(req.URL)
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(consts.HeaderContentType, consts.MIMEJSON)
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Pl.E("failed to encode JSON response: %v", err)
	}
}
