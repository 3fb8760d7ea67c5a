package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/linkvault/linkvault/pkg/linkvault"
)

// maxUploadBytes caps the accepted request body for uploads.
const maxUploadBytes = 50 << 20 // 50 MB

// ContentHandler handles HTTP requests for content records
type ContentHandler struct {
	svc     linkvault.Service
	baseURL string
}

// NewContentHandler creates a new content handler
func NewContentHandler(svc linkvault.Service, baseURL string) *ContentHandler {
	return &ContentHandler{
		svc:     svc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Routes returns the routes for content
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/upload", h.CreateContent)
	r.Get("/content/mine/list", h.ListMine)
	r.Get("/content/{id}", h.GetContent)
	r.Post("/content/{id}/record-view", h.RecordView)
	r.Delete("/content/{id}", h.DeleteContent)

	return r
}

// CreateContentRequest is the JSON request body for sharing text
type CreateContentRequest struct {
	Text             string `json:"text"`
	ExpiresAt        string `json:"expires_at,omitempty"`
	ExpiresInMinutes int    `json:"expires_in_minutes,omitempty"`
	Password         string `json:"password,omitempty"`
	MaxViews         *int   `json:"max_views,omitempty"`
	OneTimeView      bool   `json:"one_time_view,omitempty"`
}

// CreateContentResponse is the response body for a newly shared record
type CreateContentResponse struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	DeleteToken     string    `json:"delete_token"`
	ExpiresAt       time.Time `json:"expires_at"`
	PasswordSet     bool      `json:"password_set"`
	OneTimeView     bool      `json:"one_time_view"`
	OneTimeDownload bool      `json:"one_time_download"`
}

// ContentResponse is the response body for a content record
type ContentResponse struct {
	ID                string    `json:"id"`
	Kind              string    `json:"kind"`
	Text              string    `json:"text,omitempty"`
	FileName          string    `json:"file_name,omitempty"`
	FileSize          int64     `json:"file_size,omitempty"`
	MimeType          string    `json:"mime_type,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	ViewCount         int       `json:"view_count"`
	MaxViews          *int      `json:"max_views,omitempty"`
	DownloadCount     int       `json:"download_count"`
	MaxDownloads      *int      `json:"max_downloads,omitempty"`
	OneTimeView       bool      `json:"one_time_view"`
	OneTimeDownload   bool      `json:"one_time_download"`
	PasswordProtected bool      `json:"password_protected"`
}

// CreateContent shares a new piece of content. Multipart bodies carry a
// file; JSON bodies carry text.
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var req linkvault.CreateRequest
	var err error

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		req, err = h.parseMultipartCreate(r)
	} else {
		req, err = h.parseJSONCreate(r)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.OwnerID = OwnerID(r)

	result, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, CreateContentResponse{
		ID:              result.ID,
		URL:             h.baseURL + "/api/content/" + result.ID,
		DeleteToken:     result.DeleteToken,
		ExpiresAt:       result.ExpiresAt,
		PasswordSet:     result.PasswordProtected,
		OneTimeView:     result.OneTimeView,
		OneTimeDownload: result.OneTimeDownload,
	})
}

func (h *ContentHandler) parseJSONCreate(r *http.Request) (linkvault.CreateRequest, error) {
	var body CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return linkvault.CreateRequest{}, &linkvault.ValidationError{Reason: "invalid request body"}
	}

	req := linkvault.CreateRequest{
		Text:             body.Text,
		ExpiresInMinutes: body.ExpiresInMinutes,
		Password:         body.Password,
		MaxViews:         body.MaxViews,
		OneTimeView:      body.OneTimeView,
	}
	if body.ExpiresAt != "" {
		at, err := time.Parse(time.RFC3339, body.ExpiresAt)
		if err != nil {
			return linkvault.CreateRequest{}, &linkvault.ValidationError{Reason: "expires_at must be RFC 3339"}
		}
		req.ExpiresAt = &at
	}
	return req, nil
}

func (h *ContentHandler) parseMultipartCreate(r *http.Request) (linkvault.CreateRequest, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return linkvault.CreateRequest{}, &linkvault.ValidationError{Reason: "invalid multipart body or file too large"}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return linkvault.CreateRequest{}, &linkvault.ValidationError{Reason: "file field is required"}
	}

	req := linkvault.CreateRequest{
		File: &linkvault.FileUpload{
			Reader:   file,
			FileName: header.Filename,
			FileSize: header.Size,
			MimeType: header.Header.Get("Content-Type"),
		},
		Password: r.FormValue("password"),
	}

	if v := r.FormValue("expires_at"); v != "" {
		at, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return linkvault.CreateRequest{}, &linkvault.ValidationError{Reason: "expires_at must be RFC 3339"}
		}
		req.ExpiresAt = &at
	}
	if v := r.FormValue("expires_in_minutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return linkvault.CreateRequest{}, &linkvault.ValidationError{Reason: "expires_in_minutes must be an integer"}
		}
		req.ExpiresInMinutes = minutes
	}
	if req.MaxDownloads, err = formOptionalInt(r, "max_downloads"); err != nil {
		return linkvault.CreateRequest{}, err
	}
	req.OneTimeDownload = formBool(r, "one_time_download")

	return req, nil
}

// GetContent retrieves record details without consuming an access. The
// password, when the record has one, comes from the X-Content-Password
// header or the password query parameter.
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.svc.Fetch(r.Context(), id, requestPassword(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, contentResponse(view))
}

// RecordViewResponse reports the outcome of a counted view.
type RecordViewResponse struct {
	Content   ContentResponse `json:"content"`
	ViewCount int             `json:"view_count"`
	Remaining *int            `json:"remaining,omitempty"`
	Deleted   bool            `json:"deleted"`
}

// RecordView consumes one view of a text record.
func (h *ContentHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.svc.Consume(r.Context(), id, linkvault.AccessView, requestPassword(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, RecordViewResponse{
		Content:   contentResponse(result.Record),
		ViewCount: result.Count,
		Remaining: result.Remaining,
		Deleted:   result.Deleted,
	})
}

// DeleteContent removes a record. Callers present either the delete token
// issued at creation or an owner token.
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	token := r.Header.Get("X-Delete-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" && r.Body != nil {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			token = body.Token
		}
	}

	err := h.svc.Delete(r.Context(), id, linkvault.DeleteCredential{
		Token:   token,
		OwnerID: OwnerID(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMine lists the authenticated caller's records, newest first.
func (h *ContentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerID(r)
	if ownerID == "" {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "authentication required"})
		return
	}

	items, err := h.svc.ListByOwner(r.Context(), ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []*linkvault.ListItem{}
	}

	render.JSON(w, r, items)
}

func contentResponse(view *linkvault.RecordView) ContentResponse {
	return ContentResponse{
		ID:                view.ID,
		Kind:              string(view.Kind),
		Text:              view.TextContent,
		FileName:          view.FileName,
		FileSize:          view.FileSize,
		MimeType:          view.MimeType,
		CreatedAt:         view.CreatedAt,
		ExpiresAt:         view.ExpiresAt,
		ViewCount:         view.ViewCount,
		MaxViews:          view.MaxViews,
		DownloadCount:     view.DownloadCount,
		MaxDownloads:      view.MaxDownloads,
		OneTimeView:       view.OneTimeView,
		OneTimeDownload:   view.OneTimeDownload,
		PasswordProtected: view.PasswordProtected,
	}
}

func requestPassword(r *http.Request) string {
	if pw := r.Header.Get("X-Content-Password"); pw != "" {
		return pw
	}
	return r.URL.Query().Get("password")
}

func formOptionalInt(r *http.Request, field string) (*int, error) {
	v := r.FormValue(field)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, &linkvault.ValidationError{Reason: field + " must be an integer"}
	}
	return &n, nil
}

func formBool(r *http.Request, field string) bool {
	v := r.FormValue(field)
	return v == "true" || v == "1"
}
