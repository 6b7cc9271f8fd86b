package invites

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Invite
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byID: map[string]Invite{}} }

func (r *MemoryRepo) Create(ctx context.Context, inv Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[inv.ID] = inv
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return Invite{}, ErrNotFound
	}
	return inv, nil
}

func (r *MemoryRepo) GetByToken(ctx context.Context, token string) (Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.byID {
		if inv.Token == token {
			return inv, nil
		}
	}
	return Invite{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context) ([]Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Invite, 0, len(r.byID))
	for _, inv := range r.byID {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) HasPending(ctx context.Context, email string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.byID {
		if inv.Email == email && inv.Redeemable(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) CountPending(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, inv := range r.byID {
		if inv.Redeemable(now) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) Accept(ctx context.Context, token, email string, now time.Time) (Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, inv := range r.byID {
		if inv.Token != token || inv.Email != email || !inv.Redeemable(now) {
			continue
		}
		used := now
		inv.Status = StatusAccepted
		inv.UsedAt = &used
		r.byID[id] = inv
		return inv, nil
	}
	return Invite{}, ErrInvalidInvite
}

func (r *MemoryRepo) Transition(ctx context.Context, id string, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok || inv.Status != from {
		return false, nil
	}
	inv.Status = to
	r.byID[id] = inv
	return true, nil
}

func (r *MemoryRepo) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, inv := range r.byID {
		if inv.Status == StatusPending && !now.Before(inv.ExpiresAt) {
			inv.Status = StatusExpired
			r.byID[id] = inv
			n++
		}
	}
	return n, nil
}
