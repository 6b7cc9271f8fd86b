package businesses

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Business
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byID: map[string]Business{}} }

func (r *MemoryRepo) Create(ctx context.Context, b Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.OwnerID == b.OwnerID {
			return ErrAlreadyExists
		}
	}
	r.byID[b.ID] = b
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return Business{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepo) GetByOwner(ctx context.Context, ownerID string) (Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.OwnerID == ownerID {
			return b, nil
		}
	}
	return Business{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context) ([]Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Business, 0, len(r.byID))
	for _, b := range r.byID {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, b Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[b.ID]; !ok {
		return ErrNotFound
	}
	r.byID[b.ID] = b
	return nil
}

func (r *MemoryRepo) Stats(ctx context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Stats
	for _, b := range r.byID {
		s.Total++
		if b.IsActive {
			s.Active++
		}
	}
	s.Inactive = s.Total - s.Active
	return s, nil
}
