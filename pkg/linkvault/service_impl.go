package linkvault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// service implements the Service interface.
type service struct {
	repo   Repository
	stores map[string]BlobStore
	remote string // backend tried first for uploads; its blobs are served by URL
	local  string // fallback backend; its blobs are served by streaming

	defaultTTL time.Duration
	maxTTL     time.Duration // <= 0 means uncapped

	now    func() time.Time
	logger *slog.Logger
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithRepository sets the metadata repository.
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithBlobStore registers a blob storage backend under a name. Records carry
// the backend name in their blob reference, so names must stay stable for the
// lifetime of the stored data.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.stores == nil {
			s.stores = make(map[string]BlobStore)
		}
		s.stores[name] = store
	}
}

// WithLocalBackend names the registered backend used as upload fallback and
// served by streaming.
func WithLocalBackend(name string) Option {
	return func(s *service) {
		s.local = name
	}
}

// WithRemoteBackend names the registered backend tried first for uploads and
// served by redirect URL. Leaving it unset disables the remote variant.
func WithRemoteBackend(name string) Option {
	return func(s *service) {
		s.remote = name
	}
}

// WithTTLBounds sets the default expiry applied when a create request names
// none, and the maximum expiry accepted (max <= 0 means uncapped).
func WithTTLBounds(def, max time.Duration) Option {
	return func(s *service) {
		if def > 0 {
			s.defaultTTL = def
		}
		s.maxTTL = max
	}
}

// WithClock overrides the time source. Used by tests to drive expiry.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a lifecycle engine from the given options. A repository and a
// registered local backend are required; the remote backend is optional.
func New(options ...Option) (Service, error) {
	s := &service{
		stores:     make(map[string]BlobStore),
		defaultTTL: 10 * time.Minute,
		now:        time.Now,
		logger:     slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.local == "" {
		return nil, fmt.Errorf("local blob backend is required")
	}
	if _, ok := s.stores[s.local]; !ok {
		return nil, fmt.Errorf("local backend %q is not registered", s.local)
	}
	if s.remote != "" {
		if _, ok := s.stores[s.remote]; !ok {
			return nil, fmt.Errorf("remote backend %q is not registered", s.remote)
		}
	}

	return s, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	hasText := req.Text != ""
	hasFile := req.File != nil
	if !hasText && !hasFile {
		return nil, validationErrorf("either text or a file must be provided")
	}
	if hasText && hasFile {
		return nil, validationErrorf("cannot publish both text and a file")
	}

	if err := validateLimits(req, hasText); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expiresAt, err := s.resolveExpiry(req, now)
	if err != nil {
		return nil, err
	}

	id, err := NewContentID()
	if err != nil {
		return nil, err
	}

	rec := &ContentRecord{
		ID:          id,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
		DeleteToken: NewDeleteToken(),
		OwnerID:     req.OwnerID,
	}

	if password := strings.TrimSpace(req.Password); password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, &ContentError{ID: id, Op: "create", Err: err}
		}
		rec.PasswordHash = hash
	}

	if hasText {
		rec.Kind = KindText
		rec.TextContent = req.Text
		rec.MaxViews = req.MaxViews
		rec.OneTimeView = req.OneTimeView
	} else {
		rec.Kind = KindFile
		rec.MaxDownloads = req.MaxDownloads
		rec.OneTimeDownload = req.OneTimeDownload
		blob, err := s.storeBlob(ctx, id, req.File)
		if err != nil {
			return nil, err
		}
		rec.Blob = blob
	}

	// The blob is already durable; persisting the metadata last means a
	// failed create never leaves a record visible to readers.
	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		if rec.Blob != nil {
			s.cleanupBlob(ctx, rec)
		}
		return nil, &ContentError{ID: id, Op: "create", Err: err}
	}

	return &CreateResult{
		ID:                rec.ID,
		DeleteToken:       rec.DeleteToken,
		ExpiresAt:         rec.ExpiresAt,
		PasswordProtected: rec.PasswordProtected(),
		OneTimeView:       rec.OneTimeView,
		MaxViews:          rec.MaxViews,
		OneTimeDownload:   rec.OneTimeDownload,
		MaxDownloads:      rec.MaxDownloads,
	}, nil
}

func validateLimits(req CreateRequest, hasText bool) error {
	if hasText {
		if req.MaxDownloads != nil || req.OneTimeDownload {
			return validationErrorf("download limits apply to file content only")
		}
		if req.MaxViews != nil && *req.MaxViews <= 0 {
			return validationErrorf("max views must be positive")
		}
		if req.MaxViews != nil && req.OneTimeView {
			return validationErrorf("at most one of max views and one-time view may be set")
		}
		return nil
	}
	if req.MaxViews != nil || req.OneTimeView {
		return validationErrorf("view limits apply to text content only")
	}
	if req.MaxDownloads != nil && *req.MaxDownloads <= 0 {
		return validationErrorf("max downloads must be positive")
	}
	if req.MaxDownloads != nil && req.OneTimeDownload {
		return validationErrorf("at most one of max downloads and one-time download may be set")
	}
	return nil
}

func (s *service) resolveExpiry(req CreateRequest, now time.Time) (time.Time, error) {
	var expiresAt time.Time
	if req.ExpiresAt != nil {
		expiresAt = req.ExpiresAt.UTC()
		if !expiresAt.After(now) {
			return time.Time{}, validationErrorf("expiry must be in the future")
		}
	} else {
		minutes := req.ExpiresInMinutes
		if minutes < 0 {
			return time.Time{}, validationErrorf("expiry minutes must be positive")
		}
		ttl := time.Duration(minutes) * time.Minute
		if minutes == 0 {
			ttl = s.defaultTTL
		}
		expiresAt = now.Add(ttl)
	}
	if s.maxTTL > 0 && expiresAt.Sub(now) > s.maxTTL {
		return time.Time{}, validationErrorf("expiry exceeds the maximum of %s", s.maxTTL)
	}
	return expiresAt, nil
}

// storeBlob uploads the payload, trying the remote backend first when
// configured and falling back to the local backend. The payload is buffered
// once so the fallback can replay it.
func (s *service) storeBlob(ctx context.Context, id string, f *FileUpload) (*BlobRef, error) {
	data, err := io.ReadAll(f.Reader)
	if err != nil {
		return nil, validationErrorf("failed to read file payload: %v", err)
	}

	key := id + filepath.Ext(f.FileName)
	params := UploadParams{MimeType: f.MimeType, FileSize: int64(len(data))}
	ref := &BlobRef{
		Location: key,
		FileName: f.FileName,
		FileSize: int64(len(data)),
		MimeType: f.MimeType,
	}

	if s.remote != "" {
		err := s.stores[s.remote].Upload(ctx, key, bytes.NewReader(data), params)
		if err == nil {
			ref.Backend = s.remote
			return ref, nil
		}
		s.logger.Warn("remote upload failed, falling back to local storage",
			"backend", s.remote, "key", key, "error", err)
	}

	if err := s.stores[s.local].Upload(ctx, key, bytes.NewReader(data), params); err != nil {
		return nil, &StorageError{
			Backend: s.local,
			Key:     key,
			Op:      "upload",
			Err:     fmt.Errorf("%w: %v", ErrStorageUnavailable, err),
		}
	}
	ref.Backend = s.local
	return ref, nil
}

func (s *service) Fetch(ctx context.Context, id, password string) (*RecordView, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Expired(s.now()) {
		s.expireRecord(ctx, rec)
		return nil, ErrExpired
	}

	if !VerifyPassword(rec, password) {
		return nil, ErrAccessDenied
	}

	if rec.Consumed || rec.CeilingReached(accessKindFor(rec.Kind)) {
		return nil, ErrExhausted
	}

	return recordView(rec), nil
}

func (s *service) Consume(ctx context.Context, id string, kind AccessKind, password string) (*ConsumeResult, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if kind == AccessView && rec.Kind != KindText {
		return nil, validationErrorf("views apply to text content only")
	}
	if kind == AccessDownload && rec.Kind != KindFile {
		return nil, validationErrorf("downloads apply to file content only")
	}

	if rec.Expired(s.now()) {
		s.expireRecord(ctx, rec)
		return nil, ErrExpired
	}

	if !VerifyPassword(rec, password) {
		return nil, ErrAccessDenied
	}

	if rec.Consumed {
		return nil, ErrExhausted
	}

	// The ceiling check and increment (and the consumed flip for one-time
	// records) happen inside the repository as one atomic operation.
	updated, err := s.repo.ConsumeAccess(ctx, id, kind, s.now())
	if err != nil {
		return nil, err
	}

	res := &ConsumeResult{
		Kind:   updated.Kind,
		Count:  updated.Counter(kind),
		Record: recordView(updated),
	}
	if ceiling := updated.Ceiling(kind); ceiling != nil {
		remaining := *ceiling - res.Count
		if remaining < 0 {
			remaining = 0
		}
		res.Remaining = &remaining
	}

	if kind == AccessDownload && updated.Blob != nil {
		delivery, err := s.deliverBlob(ctx, updated)
		if err != nil {
			return nil, err
		}
		res.Download = delivery
	}

	if updated.OneTime(kind) {
		zero := 0
		res.Remaining = &zero
		res.Deleted = true
		// The caller still receives the final counter value; the record is
		// gone by the time the call returns.
		if err := s.removeRecord(ctx, updated, "consume"); err != nil {
			s.logger.Warn("one-time cleanup failed", "id", updated.ID, "error", err)
		}
	}

	return res, nil
}

// deliverBlob resolves how the bytes reach the client: remote blobs by URL,
// local blobs by stream. An already-open local stream survives the deletion
// that follows for one-time records.
func (s *service) deliverBlob(ctx context.Context, rec *ContentRecord) (*BlobDelivery, error) {
	store, ok := s.stores[rec.Blob.Backend]
	if !ok {
		return nil, &StorageError{Backend: rec.Blob.Backend, Key: rec.Blob.Location, Op: "download",
			Err: fmt.Errorf("backend not registered")}
	}

	delivery := &BlobDelivery{
		FileName: rec.Blob.FileName,
		FileSize: rec.Blob.FileSize,
		MimeType: rec.Blob.MimeType,
	}

	if rec.Blob.Backend == s.remote {
		url, err := store.GetDownloadURL(ctx, rec.Blob.Location, rec.Blob.FileName)
		if err != nil {
			return nil, &StorageError{Backend: rec.Blob.Backend, Key: rec.Blob.Location, Op: "download_url", Err: err}
		}
		delivery.URL = url
		return delivery, nil
	}

	body, err := store.Download(ctx, rec.Blob.Location)
	if err != nil {
		return nil, &StorageError{Backend: rec.Blob.Backend, Key: rec.Blob.Location, Op: "download", Err: err}
	}
	delivery.Body = body
	return delivery, nil
}

func (s *service) Delete(ctx context.Context, id string, cred DeleteCredential) error {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	if !VerifyDeleteCredential(rec, cred) {
		return ErrAccessDenied
	}

	return s.removeRecord(ctx, rec, "delete")
}

func (s *service) ListByOwner(ctx context.Context, ownerID string) ([]*ListItem, error) {
	recs, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	items := make([]*ListItem, 0, len(recs))
	for _, rec := range recs {
		item := &ListItem{
			ID:                rec.ID,
			Kind:              rec.Kind,
			CreatedAt:         rec.CreatedAt,
			ExpiresAt:         rec.ExpiresAt,
			ViewCount:         rec.ViewCount,
			MaxViews:          rec.MaxViews,
			OneTimeView:       rec.OneTimeView,
			DownloadCount:     rec.DownloadCount,
			MaxDownloads:      rec.MaxDownloads,
			OneTimeDownload:   rec.OneTimeDownload,
			PasswordProtected: rec.PasswordProtected(),
		}
		if rec.Blob != nil {
			item.FileName = rec.Blob.FileName
		}
		items = append(items, item)
	}
	return items, nil
}

// removeRecord deletes the blob (logged, never fatal) and then the metadata
// record. A dangling blob is a lesser failure than a record that can never be
// cleaned up.
func (s *service) removeRecord(ctx context.Context, rec *ContentRecord, op string) error {
	if rec.Blob != nil {
		s.cleanupBlob(ctx, rec)
	}
	if err := s.repo.DeleteRecord(ctx, rec.ID); err != nil {
		return &ContentError{ID: rec.ID, Op: op, Err: err}
	}
	return nil
}

func (s *service) cleanupBlob(ctx context.Context, rec *ContentRecord) {
	store, ok := s.stores[rec.Blob.Backend]
	if !ok {
		s.logger.Warn("blob cleanup skipped, backend not registered",
			"id", rec.ID, "backend", rec.Blob.Backend)
		return
	}
	if err := store.Delete(ctx, rec.Blob.Location); err != nil {
		s.logger.Warn("blob cleanup failed",
			"id", rec.ID, "backend", rec.Blob.Backend, "key", rec.Blob.Location, "error", err)
	}
}

// expireRecord is the lazy deletion path taken when a read observes expiry
// before the sweeper does.
func (s *service) expireRecord(ctx context.Context, rec *ContentRecord) {
	if err := s.removeRecord(ctx, rec, "expire"); err != nil {
		s.logger.Warn("lazy expiry cleanup failed", "id", rec.ID, "error", err)
	}
}

func recordView(rec *ContentRecord) *RecordView {
	view := &RecordView{
		ID:                rec.ID,
		Kind:              rec.Kind,
		TextContent:       rec.TextContent,
		CreatedAt:         rec.CreatedAt,
		ExpiresAt:         rec.ExpiresAt,
		ViewCount:         rec.ViewCount,
		MaxViews:          rec.MaxViews,
		DownloadCount:     rec.DownloadCount,
		MaxDownloads:      rec.MaxDownloads,
		OneTimeView:       rec.OneTimeView,
		OneTimeDownload:   rec.OneTimeDownload,
		PasswordProtected: rec.PasswordProtected(),
	}
	if rec.Blob != nil {
		view.FileName = rec.Blob.FileName
		view.FileSize = rec.Blob.FileSize
		view.MimeType = rec.Blob.MimeType
	}
	return view
}
