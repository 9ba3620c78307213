package conversions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	data   map[int64]Conversion
	order  []int64
	nextID int64
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[int64]Conversion)}
}

func (r *MemoryRepo) Create(ctx context.Context, in NewConversion) (Conversion, error) {
	if err := ctx.Err(); err != nil {
		return Conversion{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := Conversion{
		ID:         r.nextID,
		DocumentID: in.DocumentID,
		FromFormat: in.FromFormat,
		ToFormat:   in.ToFormat,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	r.data[c.ID] = c
	r.order = append(r.order, c.ID)
	return clone(c), nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Conversion, error) {
	if err := ctx.Err(); err != nil {
		return Conversion{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.data[id]
	if !ok {
		return Conversion{}, ErrNotFound
	}
	return clone(c), nil
}

func (r *MemoryRepo) Update(ctx context.Context, id int64, p Patch) (Conversion, error) {
	if err := ctx.Err(); err != nil {
		return Conversion{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok {
		return Conversion{}, ErrNotFound
	}
	p.Apply(&c)
	r.data[id] = c
	return clone(c), nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID int64) ([]Conversion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Conversion{}
	for _, id := range r.order {
		if c := r.data[id]; c.DocumentID == documentID {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
