// Package store bundles the per-collection repositories behind one value so
// callers choose the in-memory or Postgres backend in a single place.
package store

import (
	"database/sql"

	"docproc-backend/internal/conversions"
	"docproc-backend/internal/documents"
	"docproc-backend/internal/users"
)

// Store holds the users, documents and conversions collections. Each has
// its own id counter.
type Store struct {
	Users       users.Repo
	Documents   documents.Repo
	Conversions conversions.Repo
	// Durable reports whether state survives a restart and is shared
	// between processes.
	Durable bool
}

// NewMemory returns a process-local store.
func NewMemory() Store {
	return Store{
		Users:       users.NewMemoryRepo(),
		Documents:   documents.NewMemoryRepo(),
		Conversions: conversions.NewMemoryRepo(),
	}
}

// NewPostgres returns a store backed by db. Migrations must already be applied.
func NewPostgres(db *sql.DB) Store {
	return Store{
		Users:       &users.PGRepo{DB: db},
		Documents:   &documents.PGRepo{DB: db},
		Conversions: &conversions.PGRepo{DB: db},
		Durable:     true,
	}
}
