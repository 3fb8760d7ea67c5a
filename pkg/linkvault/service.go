package linkvault

import (
	"context"
)

// Service is the lifecycle engine: creation, gated reads, consumption
// accounting, and deletion of ephemeral content records.
type Service interface {
	// Create publishes a new record and returns its public id and single-use
	// delete token.
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)

	// Fetch returns a read-only view of a record without consuming it.
	Fetch(ctx context.Context, id, password string) (*RecordView, error)

	// Consume atomically records one access of the given kind. For downloads
	// the result carries the blob delivery. One-time records are deleted
	// before the call returns.
	Consume(ctx context.Context, id string, kind AccessKind, password string) (*ConsumeResult, error)

	// Delete removes the record and its blob, authorized by a delete token,
	// owner identity, or the system credential.
	Delete(ctx context.Context, id string, cred DeleteCredential) error

	// ListByOwner returns the non-secret metadata of all records owned by the
	// given opaque owner id, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*ListItem, error)
}
