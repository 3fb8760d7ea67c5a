package linkvault

import (
	"context"
	"io"
	"time"
)

// BlobStore is the capability set a storage backend must provide. The Local
// variant (storage/fs) keeps bytes in a private directory and serves them by
// streaming; the Remote variant (storage/s3) keeps bytes in a bucket and
// serves them by URL.
type BlobStore interface {
	// Upload persists the bytes under the given object key.
	Upload(ctx context.Context, objectKey string, reader io.Reader, params UploadParams) error

	// Download streams the bytes stored under the object key.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetDownloadURL returns a resolvable URL for the object, with the
	// download filename applied where the backend supports it.
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// Delete removes the object. Deleting an absent object returns an error
	// the caller may treat as success.
	Delete(ctx context.Context, objectKey string) error
}

// UploadParams carries optional metadata alongside an upload.
type UploadParams struct {
	MimeType string
	FileSize int64
}

// Repository is the durable store of content metadata records.
//
// ConsumeAccess is the single synchronization point of the system: the expiry
// check, exhaustion check, counter increment and consumed flip happen as one
// atomic operation per record. No caller may implement that sequence as
// separate read-then-write steps.
type Repository interface {
	// CreateRecord persists a new record. The id must be unused.
	CreateRecord(ctx context.Context, rec *ContentRecord) error

	// GetRecord returns the record for the id, or ErrNotFound.
	GetRecord(ctx context.Context, id string) (*ContentRecord, error)

	// ConsumeAccess atomically verifies the record is not expired, not
	// consumed, and below its ceiling for the given access kind, then
	// increments the counter; when the kind's one-time flag is set the
	// consumed flag flips in the same operation. Returns the updated record,
	// or ErrNotFound / ErrExpired / ErrExhausted with no mutation performed.
	ConsumeAccess(ctx context.Context, id string, kind AccessKind, now time.Time) (*ContentRecord, error)

	// DeleteRecord removes the record. Returns ErrNotFound if absent.
	DeleteRecord(ctx context.Context, id string) error

	// ListByOwner returns all records owned by the given opaque owner id,
	// newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*ContentRecord, error)

	// ListExpired returns all records whose expiry precedes now.
	ListExpired(ctx context.Context, now time.Time) ([]*ContentRecord, error)
}
