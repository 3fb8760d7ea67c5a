package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkvault/linkvault/pkg/linkvault"
	memoryrepo "github.com/linkvault/linkvault/pkg/linkvault/repo/memory"
	memorystorage "github.com/linkvault/linkvault/pkg/linkvault/storage/memory"
)

func uploadFile(t *testing.T, router chi.Router, name, body string, fields map[string]string) CreateContentResponse {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDownloadFileStreamsLocalBlob(t *testing.T) {
	router, _ := setupRouter(t)
	created := uploadFile(t, router, "report.txt", "the report body", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+created.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "the report body", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="report.txt"`)
	assert.Equal(t, "15", rec.Header().Get("Content-Length"))
}

func TestDownloadFileRedirectsRemoteBlob(t *testing.T) {
	remote := presigningStore{memorystorage.New()}
	svc, err := linkvault.New(
		linkvault.WithRepository(memoryrepo.New()),
		linkvault.WithBlobStore("local", memorystorage.New()),
		linkvault.WithLocalBackend("local"),
		linkvault.WithBlobStore("s3", remote),
		linkvault.WithRemoteBackend("s3"),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/api", NewContentHandler(svc, "http://localhost:8080").Routes())
	r.Mount("/api/files", NewFilesHandler(svc).Routes())

	created := uploadFile(t, r, "big.bin", "remote payload", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+created.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "https://cdn.example.com/")
}

func TestDownloadFilePasswordGate(t *testing.T) {
	router, _ := setupRouter(t)
	created := uploadFile(t, router, "locked.bin", "locked bytes", map[string]string{"password": "pw"})

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+created.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	authed := httptest.NewRequest(http.MethodGet, "/api/files/"+created.ID+"?password=pw", nil)
	authedRec := httptest.NewRecorder()
	router.ServeHTTP(authedRec, authed)
	require.Equal(t, http.StatusOK, authedRec.Code)
	assert.Equal(t, "locked bytes", authedRec.Body.String())
}

func TestDownloadFileCeiling(t *testing.T) {
	router, _ := setupRouter(t)
	created := uploadFile(t, router, "limited.bin", "bytes", map[string]string{"max_downloads": "1"})

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+created.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	again := httptest.NewRequest(http.MethodGet, "/api/files/"+created.ID, nil)
	againRec := httptest.NewRecorder()
	router.ServeHTTP(againRec, again)
	assert.Equal(t, http.StatusForbidden, againRec.Code)
}

func TestDownloadTextRecordRejected(t *testing.T) {
	router, _ := setupRouter(t)
	created := createText(t, router, `{"text": "not a file"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+created.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// presigningStore serves downloads by URL, standing in for the S3 backend.
type presigningStore struct {
	*memorystorage.Backend
}

func (p presigningStore) GetDownloadURL(ctx context.Context, key, filename string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}
