package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkvault/linkvault/pkg/linkvault"
)

// DBTX is an interface that allows us to use either a database connection or a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements linkvault.Repository using PostgreSQL. The atomic
// check-and-increment of ConsumeAccess is expressed as a single conditional
// UPDATE, so no two concurrent consumers can both pass the ceiling check.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const recordColumns = `
	id, kind, text_content, blob_backend, blob_location, file_name, file_size, mime_type,
	created_at, expires_at, view_count, max_views, download_count, max_downloads,
	one_time_view, one_time_download, consumed, password_hash, delete_token, owner_id`

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("content id already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) CreateRecord(ctx context.Context, rec *linkvault.ContentRecord) error {
	query := `
		INSERT INTO content (
			id, kind, text_content, blob_backend, blob_location, file_name, file_size, mime_type,
			created_at, expires_at, view_count, max_views, download_count, max_downloads,
			one_time_view, one_time_download, consumed, password_hash, delete_token, owner_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	var blobBackend, blobLocation, fileName, mimeType *string
	var fileSize *int64
	if rec.Blob != nil {
		blobBackend = &rec.Blob.Backend
		blobLocation = &rec.Blob.Location
		fileName = &rec.Blob.FileName
		fileSize = &rec.Blob.FileSize
		mimeType = &rec.Blob.MimeType
	}

	_, err := r.db.Exec(ctx, query,
		rec.ID, string(rec.Kind), nullString(rec.TextContent),
		blobBackend, blobLocation, fileName, fileSize, mimeType,
		rec.CreatedAt, rec.ExpiresAt,
		rec.ViewCount, rec.MaxViews, rec.DownloadCount, rec.MaxDownloads,
		rec.OneTimeView, rec.OneTimeDownload, rec.Consumed,
		nullString(rec.PasswordHash), rec.DeleteToken, nullString(rec.OwnerID))

	if err != nil {
		return r.handlePostgresError("create record", err)
	}

	return nil
}

func (r *Repository) GetRecord(ctx context.Context, id string) (*linkvault.ContentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM content WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, linkvault.ErrNotFound
		}
		return nil, r.handlePostgresError("get record", err)
	}

	return rec, nil
}

func (r *Repository) ConsumeAccess(ctx context.Context, id string, kind linkvault.AccessKind, now time.Time) (*linkvault.ContentRecord, error) {
	// Single conditional UPDATE: the ceiling check, the increment, and the
	// consumed flip for one-time records are one indivisible statement.
	var query string
	if kind == linkvault.AccessDownload {
		query = `
			UPDATE content SET
				download_count = download_count + 1,
				consumed = consumed OR one_time_download
			WHERE id = $1 AND expires_at >= $2 AND NOT consumed
				AND (max_downloads IS NULL OR download_count < max_downloads)
			RETURNING ` + recordColumns
	} else {
		query = `
			UPDATE content SET
				view_count = view_count + 1,
				consumed = consumed OR one_time_view
			WHERE id = $1 AND expires_at >= $2 AND NOT consumed
				AND (max_views IS NULL OR view_count < max_views)
			RETURNING ` + recordColumns
	}

	rec, err := scanRecord(r.db.QueryRow(ctx, query, id, now))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, r.handlePostgresError("consume access", err)
	}

	// The guarded UPDATE matched nothing; re-read to classify the refusal.
	current, err := r.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Expired(now) {
		return nil, linkvault.ErrExpired
	}
	return nil, linkvault.ErrExhausted
}

func (r *Repository) DeleteRecord(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete record", err)
	}
	if tag.RowsAffected() == 0 {
		return linkvault.ErrNotFound
	}
	return nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*linkvault.ContentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM content WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, r.handlePostgresError("list by owner", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *Repository) ListExpired(ctx context.Context, now time.Time) ([]*linkvault.ContentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM content WHERE expires_at < $1`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, r.handlePostgresError("list expired", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]*linkvault.ContentRecord, error) {
	var records []*linkvault.ContentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*linkvault.ContentRecord, error) {
	var rec linkvault.ContentRecord
	var kind string
	var textContent, blobBackend, blobLocation, fileName, mimeType, passwordHash, ownerID *string
	var fileSize *int64

	err := row.Scan(
		&rec.ID, &kind, &textContent,
		&blobBackend, &blobLocation, &fileName, &fileSize, &mimeType,
		&rec.CreatedAt, &rec.ExpiresAt,
		&rec.ViewCount, &rec.MaxViews, &rec.DownloadCount, &rec.MaxDownloads,
		&rec.OneTimeView, &rec.OneTimeDownload, &rec.Consumed,
		&passwordHash, &rec.DeleteToken, &ownerID)
	if err != nil {
		return nil, err
	}

	rec.Kind = linkvault.ContentKind(kind)
	if textContent != nil {
		rec.TextContent = *textContent
	}
	if passwordHash != nil {
		rec.PasswordHash = *passwordHash
	}
	if ownerID != nil {
		rec.OwnerID = *ownerID
	}
	if blobBackend != nil && blobLocation != nil {
		rec.Blob = &linkvault.BlobRef{
			Backend:  *blobBackend,
			Location: *blobLocation,
		}
		if fileName != nil {
			rec.Blob.FileName = *fileName
		}
		if fileSize != nil {
			rec.Blob.FileSize = *fileSize
		}
		if mimeType != nil {
			rec.Blob.MimeType = *mimeType
		}
	}

	return &rec, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
