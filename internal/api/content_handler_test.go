package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkvault/linkvault/pkg/linkvault"
	memoryrepo "github.com/linkvault/linkvault/pkg/linkvault/repo/memory"
	memorystorage "github.com/linkvault/linkvault/pkg/linkvault/storage/memory"
)

func setupRouter(t *testing.T) (chi.Router, linkvault.Service) {
	t.Helper()

	svc, err := linkvault.New(
		linkvault.WithRepository(memoryrepo.New()),
		linkvault.WithBlobStore("local", memorystorage.New()),
		linkvault.WithLocalBackend("local"),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/api", NewContentHandler(svc, "http://localhost:8080").Routes())
	r.Mount("/api/files", NewFilesHandler(svc).Routes())
	return r, svc
}

func createText(t *testing.T, router chi.Router, body string) CreateContentResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateTextContent(t *testing.T) {
	router, _ := setupRouter(t)

	resp := createText(t, router, `{"text": "hello", "expires_in_minutes": 30}`)

	assert.Len(t, resp.ID, 12)
	assert.NotEmpty(t, resp.DeleteToken)
	assert.Equal(t, "http://localhost:8080/api/content/"+resp.ID, resp.URL)
	assert.False(t, resp.PasswordSet)
}

func TestCreateContentValidationErrors(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"malformed json", `{"text":`},
		{"zero max views", `{"text": "x", "max_views": 0}`},
		{"conflicting limits", `{"text": "x", "max_views": 2, "one_time_view": true}`},
		{"bad expiry format", `{"text": "x", "expires_at": "tomorrow"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestCreateFileContentMultipart(t *testing.T) {
	router, _ := setupRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("file body"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("one_time_download", "true"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OneTimeDownload)

	// The file is downloadable exactly once.
	dl := httptest.NewRequest(http.MethodGet, "/api/files/"+resp.ID, nil)
	dlRec := httptest.NewRecorder()
	router.ServeHTTP(dlRec, dl)
	require.Equal(t, http.StatusOK, dlRec.Code)
	assert.Equal(t, "file body", dlRec.Body.String())

	again := httptest.NewRequest(http.MethodGet, "/api/files/"+resp.ID, nil)
	againRec := httptest.NewRecorder()
	router.ServeHTTP(againRec, again)
	assert.Equal(t, http.StatusNotFound, againRec.Code)
}

func TestGetContent(t *testing.T) {
	router, _ := setupRouter(t)
	created := createText(t, router, `{"text": "readable"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/content/"+created.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "readable", resp.Text)
	assert.Equal(t, "text", resp.Kind)
	assert.Equal(t, 0, resp.ViewCount)
}

func TestGetContentNotFound(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/content/nosuchrecord", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetContentPasswordGate(t *testing.T) {
	router, _ := setupRouter(t)
	created := createText(t, router, `{"text": "locked", "password": "pw"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/content/"+created.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.True(t, errResp.RequiresPassword)

	authed := httptest.NewRequest(http.MethodGet, "/api/content/"+created.ID, nil)
	authed.Header.Set("X-Content-Password", "pw")
	authedRec := httptest.NewRecorder()
	router.ServeHTTP(authedRec, authed)
	assert.Equal(t, http.StatusOK, authedRec.Code)
}

func TestRecordView(t *testing.T) {
	router, _ := setupRouter(t)
	created := createText(t, router, `{"text": "counted", "max_views": 2}`)

	for i := 1; i <= 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/content/"+created.ID+"/record-view", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp RecordViewResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, i, resp.ViewCount)
		require.NotNil(t, resp.Remaining)
		assert.Equal(t, 2-i, *resp.Remaining)
	}

	// The ceiling is reached; further views are refused.
	req := httptest.NewRequest(http.MethodPost, "/api/content/"+created.ID+"/record-view", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRecordViewOneTimeGone(t *testing.T) {
	router, _ := setupRouter(t)
	created := createText(t, router, `{"text": "once", "one_time_view": true}`)

	req := httptest.NewRequest(http.MethodPost, "/api/content/"+created.ID+"/record-view", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecordViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)
	assert.Equal(t, "once", resp.Content.Text)

	again := httptest.NewRequest(http.MethodGet, "/api/content/"+created.ID, nil)
	againRec := httptest.NewRecorder()
	router.ServeHTTP(againRec, again)
	assert.Equal(t, http.StatusNotFound, againRec.Code)
}

func TestDeleteContent(t *testing.T) {
	router, _ := setupRouter(t)
	created := createText(t, router, `{"text": "deletable"}`)

	// Wrong token is refused.
	bad := httptest.NewRequest(http.MethodDelete, "/api/content/"+created.ID, nil)
	bad.Header.Set("X-Delete-Token", "bogus")
	badRec := httptest.NewRecorder()
	router.ServeHTTP(badRec, bad)
	assert.Equal(t, http.StatusForbidden, badRec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/content/"+created.ID, nil)
	req.Header.Set("X-Delete-Token", created.DeleteToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	again := httptest.NewRequest(http.MethodDelete, "/api/content/"+created.ID, nil)
	again.Header.Set("X-Delete-Token", created.DeleteToken)
	againRec := httptest.NewRecorder()
	router.ServeHTTP(againRec, again)
	assert.Equal(t, http.StatusNotFound, againRec.Code)
}

func TestListMineRequiresAuth(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/content/mine/list", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
