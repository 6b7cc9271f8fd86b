package settings

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu         sync.Mutex
	byBusiness map[string]Settings
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byBusiness: map[string]Settings{}} }

func (r *MemoryRepo) Create(ctx context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byBusiness[s.BusinessID]; ok {
		return ErrAlreadyExists
	}
	r.byBusiness[s.BusinessID] = s
	return nil
}

func (r *MemoryRepo) GetByBusiness(ctx context.Context, businessID string) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byBusiness[businessID]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) Update(ctx context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byBusiness[s.BusinessID]; !ok {
		return ErrNotFound
	}
	r.byBusiness[s.BusinessID] = s
	return nil
}
