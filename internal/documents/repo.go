package documents

import "context"

// Repo persists documents. Ids come from the collection's own counter,
// start at 1 and are never reused.
type Repo interface {
	Create(ctx context.Context, in NewDocument) (Document, error)
	GetByID(ctx context.Context, id int64) (Document, error)
	// Update applies p to an existing document. A missing id returns
	// ErrNotFound and inserts nothing.
	Update(ctx context.Context, id int64, p Patch) (Document, error)
	// List returns documents in insertion order, optionally for one owner.
	List(ctx context.Context, userID *int64) ([]Document, error)
}
