package repository

import (
	"context"

	"backend/internal/model"
)

// RecordStore is the durable collection of procedure records, keyed by id.
// Only the latest version per id is materialized; prior versions live in the
// record's embedded history. Implementations must serialize writes so that
// concurrent Create/ReplaceVersion calls never lose an update, and reads
// must never observe a partially written collection.
type RecordStore interface {
	// Create appends a brand-new version-1 record. Returns ErrConflict if a
	// record with the same id already exists.
	Create(ctx context.Context, rec *model.Procedure) error

	// FindByID returns the current record for id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Procedure, error)

	// ListAll returns every current record.
	ListAll(ctx context.Context) ([]model.Procedure, error)

	// ListByOwner returns the current records created by identity.
	ListByOwner(ctx context.Context, identity string) ([]model.Procedure, error)

	// ReplaceVersion atomically swaps the stored record for id with rec.
	// Returns ErrNotFound if no record with that id exists.
	ReplaceVersion(ctx context.Context, id string, rec *model.Procedure) error
}
