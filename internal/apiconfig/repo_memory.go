package apiconfig

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu   sync.Mutex
	rows []Config
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Create(ctx context.Context, c Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.IsActive {
		for _, existing := range r.rows {
			if existing.BusinessID == c.BusinessID && existing.IsActive {
				return ErrAlreadyExists
			}
		}
	}
	r.rows = append(r.rows, c)
	return nil
}

func (r *MemoryRepo) GetLatest(ctx context.Context, businessID string) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		best  Config
		found bool
	)
	for _, c := range r.rows {
		if c.BusinessID != businessID {
			continue
		}
		if !found || (c.IsActive && !best.IsActive) || (c.IsActive == best.IsActive && c.UpdatedAt.After(best.UpdatedAt)) {
			best, found = c, true
		}
	}
	if !found {
		return Config{}, ErrNotFound
	}
	return best, nil
}

func (r *MemoryRepo) GetActive(ctx context.Context, businessID string) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.BusinessID == businessID && c.IsActive {
			return c, nil
		}
	}
	return Config{}, ErrNotFound
}

func (r *MemoryRepo) Update(ctx context.Context, c Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, existing := range r.rows {
		if existing.ID == c.ID {
			idx = i
		} else if c.IsActive && existing.BusinessID == c.BusinessID && existing.IsActive {
			return ErrAlreadyExists
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	r.rows[idx] = c
	return nil
}
