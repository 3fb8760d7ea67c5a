package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linkvault/linkvault/pkg/linkvault"
)

// FilesHandler serves file downloads. Every successful request consumes one
// download from the record's allowance.
type FilesHandler struct {
	svc linkvault.Service
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(svc linkvault.Service) *FilesHandler {
	return &FilesHandler{svc: svc}
}

// Routes returns the routes for file downloads
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{id}", h.DownloadFile)

	return r
}

// DownloadFile consumes one download and hands the bytes to the client:
// remote blobs by redirect to a presigned URL, local blobs streamed inline.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.svc.Consume(r.Context(), id, linkvault.AccessDownload, requestPassword(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	delivery := result.Download
	if delivery == nil {
		writeError(w, r, fmt.Errorf("no blob delivery for record %s", id))
		return
	}

	if delivery.URL != "" {
		http.Redirect(w, r, delivery.URL, http.StatusFound)
		return
	}

	defer delivery.Body.Close()

	if delivery.MimeType != "" {
		w.Header().Set("Content-Type", delivery.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if delivery.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(delivery.FileSize, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", delivery.FileName))

	if _, err := io.Copy(w, delivery.Body); err != nil {
		// Headers are already out; nothing sensible left to send.
		return
	}
}
