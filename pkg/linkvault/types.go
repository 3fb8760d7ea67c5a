package linkvault

import (
	"time"
)

// ContentKind is the domain type for the two payload shapes a record can hold.
type ContentKind string

// Content kind constants (typed).
const (
	KindText ContentKind = "text"
	KindFile ContentKind = "file"
)

// AccessKind names the counter an access consumes.
type AccessKind string

// Access kind constants (typed).
const (
	AccessView     AccessKind = "view"
	AccessDownload AccessKind = "download"
)

// BlobRef points at the stored payload of a file record. Backend names the
// blob store variant holding the bytes; Location is opaque to everything but
// that backend. Dispatch always goes through the Backend tag, never by
// inspecting the Location string.
type BlobRef struct {
	Backend  string `json:"backend"`
	Location string `json:"location"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

// ContentRecord is the sole persisted entity: a piece of text or a file
// published behind a short unguessable id, with self-destruction rules fixed
// at creation time.
//
// Exactly one of TextContent / Blob is populated, matching Kind. The view
// counter pair applies to text records, the download pair to file records;
// the other pair stays at its zero values.
type ContentRecord struct {
	ID   string      `json:"id"`
	Kind ContentKind `json:"kind"`

	TextContent string   `json:"text_content,omitempty"`
	Blob        *BlobRef `json:"blob,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	ViewCount     int  `json:"view_count"`
	MaxViews      *int `json:"max_views,omitempty"`
	DownloadCount int  `json:"download_count"`
	MaxDownloads  *int `json:"max_downloads,omitempty"`

	OneTimeView     bool `json:"one_time_view"`
	OneTimeDownload bool `json:"one_time_download"`
	Consumed        bool `json:"consumed"`

	// Secrets. Never exposed through RecordView or ListItem.
	PasswordHash string `json:"-"`
	DeleteToken  string `json:"-"`

	// OwnerID is an opaque key from the external identity provider; empty for
	// anonymous uploads.
	OwnerID string `json:"owner_id,omitempty"`
}

// Expired reports whether the record is past its expiry at the given time.
func (r *ContentRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// PasswordProtected reports whether reads are gated behind a password.
func (r *ContentRecord) PasswordProtected() bool {
	return r.PasswordHash != ""
}

// Counter returns the current counter value for the given access kind.
func (r *ContentRecord) Counter(kind AccessKind) int {
	if kind == AccessDownload {
		return r.DownloadCount
	}
	return r.ViewCount
}

// Ceiling returns the counter ceiling for the given access kind, or nil for
// unlimited.
func (r *ContentRecord) Ceiling(kind AccessKind) *int {
	if kind == AccessDownload {
		return r.MaxDownloads
	}
	return r.MaxViews
}

// OneTime reports whether the given access kind forces deletion after one
// successful access.
func (r *ContentRecord) OneTime(kind AccessKind) bool {
	if kind == AccessDownload {
		return r.OneTimeDownload
	}
	return r.OneTimeView
}

// CeilingReached reports whether another access of the given kind would cross
// the configured ceiling. Always false when the ceiling is unlimited.
func (r *ContentRecord) CeilingReached(kind AccessKind) bool {
	ceiling := r.Ceiling(kind)
	return ceiling != nil && r.Counter(kind) >= *ceiling
}

// accessKindFor maps a record's kind to the counter its reads consume.
func accessKindFor(kind ContentKind) AccessKind {
	if kind == KindFile {
		return AccessDownload
	}
	return AccessView
}
