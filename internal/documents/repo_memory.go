package documents

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	data   map[int64]Document
	order  []int64
	nextID int64
	now    func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[int64]Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create assigns the next id and stores a pending document.
func (r *MemoryRepo) Create(ctx context.Context, in NewDocument) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	doc := Document{
		ID:           r.nextID,
		Filename:     in.Filename,
		OriginalName: in.OriginalName,
		MimeType:     in.MimeType,
		Size:         in.Size,
		Status:       StatusPending,
		UploadedAt:   r.now(),
		UserID:       clonePtr(in.UserID),
	}
	r.data[doc.ID] = doc
	r.order = append(r.order, doc.ID)
	return clone(doc), nil
}

// GetByID returns a document by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return clone(doc), nil
}

// Update applies a patch to an existing document.
func (r *MemoryRepo) Update(ctx context.Context, id int64, p Patch) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	p.Apply(&doc)
	r.data[id] = doc
	return clone(doc), nil
}

// List returns documents in insertion order.
func (r *MemoryRepo) List(ctx context.Context, userID *int64) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Document, 0, len(r.order))
	for _, id := range r.order {
		doc := r.data[id]
		if userID != nil && (doc.UserID == nil || *doc.UserID != *userID) {
			continue
		}
		out = append(out, clone(doc))
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
