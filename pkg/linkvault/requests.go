package linkvault

import (
	"io"
	"time"
)

// Request/result DTOs for the lifecycle engine.

// FileUpload carries the bytes and metadata of a file payload at create time.
type FileUpload struct {
	Reader   io.Reader
	FileName string
	FileSize int64
	MimeType string
}

// CreateRequest contains parameters for publishing a new piece of content.
// Exactly one of Text / File must be set. Expiry is either an absolute future
// timestamp or a relative duration in minutes; when neither is given the
// engine's default TTL applies.
type CreateRequest struct {
	Text string
	File *FileUpload

	ExpiresAt        *time.Time
	ExpiresInMinutes int

	Password string

	// Text records: at most one of MaxViews / OneTimeView.
	MaxViews    *int
	OneTimeView bool

	// File records: at most one of MaxDownloads / OneTimeDownload.
	MaxDownloads    *int
	OneTimeDownload bool

	// OwnerID is the opaque identity-provider key; empty for anonymous.
	OwnerID string
}

// CreateResult is returned once per record. The delete token is never
// retrievable again after this call.
type CreateResult struct {
	ID                string
	DeleteToken       string
	ExpiresAt         time.Time
	PasswordProtected bool
	OneTimeView       bool
	MaxViews          *int
	OneTimeDownload   bool
	MaxDownloads      *int
}

// RecordView is the read-only projection returned by Fetch. It carries no
// secrets and mutates no counters.
type RecordView struct {
	ID          string      `json:"id"`
	Kind        ContentKind `json:"kind"`
	TextContent string      `json:"text_content,omitempty"`
	FileName    string      `json:"file_name,omitempty"`
	FileSize    int64       `json:"file_size,omitempty"`
	MimeType    string      `json:"mime_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	ViewCount     int  `json:"view_count"`
	MaxViews      *int `json:"max_views"`
	DownloadCount int  `json:"download_count"`
	MaxDownloads  *int `json:"max_downloads"`

	OneTimeView       bool `json:"one_time_view"`
	OneTimeDownload   bool `json:"one_time_download"`
	PasswordProtected bool `json:"password_protected"`
}

// BlobDelivery tells the caller how to hand the bytes of a consumed download
// to the client: redirect to URL when set, otherwise stream Body. Exactly one
// is populated.
type BlobDelivery struct {
	URL      string
	Body     io.ReadCloser
	FileName string
	FileSize int64
	MimeType string
}

// ConsumeResult reports the outcome of a successful Consume call. Count is
// the counter value after the increment; Remaining is nil for unlimited
// records. Deleted is true when a one-time record was removed before the call
// returned.
type ConsumeResult struct {
	Kind      ContentKind
	Count     int
	Remaining *int
	Deleted   bool

	// Record is the post-increment view of the record.
	Record *RecordView

	// Download is set only for Consume(download) on file records.
	Download *BlobDelivery
}

// DeleteCredential authorizes a Delete call: a delete token, an owner
// identity, or the trusted system credential used by the expiry sweeper.
type DeleteCredential struct {
	Token   string
	OwnerID string
	System  bool
}

// SystemCredential returns the trusted credential that bypasses token and
// ownership checks.
func SystemCredential() DeleteCredential {
	return DeleteCredential{System: true}
}

// ListItem is one row of the list-by-owner query: non-secret metadata only.
type ListItem struct {
	ID                string      `json:"id"`
	Kind              ContentKind `json:"kind"`
	FileName          string      `json:"file_name,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	ExpiresAt         time.Time   `json:"expires_at"`
	ViewCount         int         `json:"view_count"`
	MaxViews          *int        `json:"max_views"`
	OneTimeView       bool        `json:"one_time_view"`
	DownloadCount     int         `json:"download_count"`
	MaxDownloads      *int        `json:"max_downloads"`
	OneTimeDownload   bool        `json:"one_time_download"`
	PasswordProtected bool        `json:"password_protected"`
}
