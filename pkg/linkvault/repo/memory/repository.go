package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linkvault/linkvault/pkg/linkvault"
)

// Repository implements linkvault.Repository using in-memory storage. All
// record state is guarded by a single mutex, which makes ConsumeAccess a
// naturally atomic check-and-increment.
type Repository struct {
	mu      sync.RWMutex
	records map[string]*linkvault.ContentRecord
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		records: make(map[string]*linkvault.ContentRecord),
	}
}

func (r *Repository) CreateRecord(ctx context.Context, rec *linkvault.ContentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copies on the way in and out keep callers from mutating stored state.
	r.records[rec.ID] = clone(rec)
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, id string) (*linkvault.ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[id]
	if !exists {
		return nil, linkvault.ErrNotFound
	}
	return clone(rec), nil
}

func (r *Repository) ConsumeAccess(ctx context.Context, id string, kind linkvault.AccessKind, now time.Time) (*linkvault.ContentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[id]
	if !exists {
		return nil, linkvault.ErrNotFound
	}
	if rec.Expired(now) {
		return nil, linkvault.ErrExpired
	}
	if rec.Consumed || rec.CeilingReached(kind) {
		return nil, linkvault.ErrExhausted
	}

	if kind == linkvault.AccessDownload {
		rec.DownloadCount++
	} else {
		rec.ViewCount++
	}
	if rec.OneTime(kind) {
		rec.Consumed = true
	}

	return clone(rec), nil
}

func (r *Repository) DeleteRecord(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; !exists {
		return linkvault.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*linkvault.ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*linkvault.ContentRecord
	for _, rec := range r.records {
		if rec.OwnerID != "" && rec.OwnerID == ownerID {
			result = append(result, clone(rec))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *Repository) ListExpired(ctx context.Context, now time.Time) ([]*linkvault.ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*linkvault.ContentRecord
	for _, rec := range r.records {
		if rec.Expired(now) {
			result = append(result, clone(rec))
		}
	}
	return result, nil
}

// clone deep-copies a record, including its optional ceiling and blob fields.
func clone(rec *linkvault.ContentRecord) *linkvault.ContentRecord {
	c := *rec
	if rec.MaxViews != nil {
		v := *rec.MaxViews
		c.MaxViews = &v
	}
	if rec.MaxDownloads != nil {
		v := *rec.MaxDownloads
		c.MaxDownloads = &v
	}
	if rec.Blob != nil {
		b := *rec.Blob
		c.Blob = &b
	}
	return &c
}
