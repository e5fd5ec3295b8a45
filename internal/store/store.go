// Package store implements page record persistence.
//
// Two backends satisfy the same PageStore contract: a sqlite database via
// GORM and a flat JSON file. Callers never branch on backend identity; the
// backend is selected once at startup by capability probing (see Open).
//
// The store owns revision and timestamp assignment. Every mutation is
// serialized through a write queue so mutating calls run to completion
// without interleaving.
package store

import (
	"context"
	"errors"

	"github.com/haierkeys/holarchy-browser-service/internal/model"
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"
)

// ErrNotFound is returned when an operation targets an absent id.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// CreateFields are the caller-suppliable fields for Create.
type CreateFields struct {
	Title   string
	Content string
}

// UpdateFields is a partial update; nil fields keep their prior value.
// UpdatedAt, when set, is honored verbatim as the record's new timestamp.
type UpdateFields struct {
	Title     *string
	Content   *string
	UpdatedAt *timex.Time
}

// Batch exposes the raw record operations the sync reconciler needs.
// All operations inside one Batch call are applied atomically: on I/O
// failure nothing is persisted.
type Batch interface {
	// GetAny returns the record with the given id, including tombstones.
	GetAny(id int64) (*model.Page, error)

	// Insert stores a new record. A zero ID is replaced with the next
	// server id; a positive ID is honored and the id counter advanced
	// past it so later creates cannot collide.
	Insert(p *model.Page) error

	// Overwrite replaces every field of the record with p's fields.
	Overwrite(p *model.Page) error

	// Clear removes all records and resets the id counter.
	Clear() error
}

// PageStore is the persistence contract for page records.
type PageStore interface {
	// Name identifies the backend for logging.
	Name() string

	// Create assigns the next id, revision 1 and current timestamps.
	Create(ctx context.Context, fields CreateFields) (*model.Page, error)

	// Get returns the non-deleted record with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (*model.Page, error)

	// Update applies a partial update, increments the revision and stamps
	// the caller-supplied updated timestamp or now. Returns ErrNotFound
	// for an absent id.
	Update(ctx context.Context, id int64, patch UpdateFields) (*model.Page, error)

	// SoftDelete marks the record deleted, increments the revision and
	// stamps now. Returns false if the id is absent.
	SoftDelete(ctx context.Context, id int64) (bool, error)

	// List returns non-deleted records, newest updated first.
	List(ctx context.Context) ([]*model.Page, error)

	// ChangesSince returns records with updated_at strictly after since,
	// ascending by updated_at. A nil since returns the full set including
	// tombstones.
	ChangesSince(ctx context.Context, since *timex.Time) ([]*model.Page, error)

	// ExportAll returns every record including tombstones, ascending by id.
	ExportAll(ctx context.Context) ([]*model.Page, error)

	// RunBatch executes fn against a Batch view atomically, serialized
	// with all other writes to this store.
	RunBatch(ctx context.Context, fn func(Batch) error) error

	// Close releases the backend.
	Close() error
}
