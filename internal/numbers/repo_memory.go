package numbers

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]PhoneNumber
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byID: map[string]PhoneNumber{}} }

func (r *MemoryRepo) Create(ctx context.Context, n PhoneNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.PhoneNumber == n.PhoneNumber || existing.TwilioSID == n.TwilioSID {
			return ErrNumberTaken
		}
	}
	r.byID[n.ID] = n
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return PhoneNumber{}, ErrNotFound
	}
	return n, nil
}

func (r *MemoryRepo) GetActiveByNumber(ctx context.Context, e164 string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.byID {
		if n.PhoneNumber == e164 && n.Status == StatusActive {
			return n, nil
		}
	}
	return PhoneNumber{}, ErrNotFound
}

func (r *MemoryRepo) ListByBusiness(ctx context.Context, businessID string) ([]PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []PhoneNumber{}
	for _, n := range r.byID {
		if n.BusinessID == businessID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}

func (r *MemoryRepo) CountActive(ctx context.Context, businessID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, n := range r.byID {
		if n.BusinessID == businessID && n.Status == StatusActive {
			c++
		}
	}
	return c, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, n PhoneNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[n.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Status = n.Status
	cur.UpdatedAt = n.UpdatedAt
	r.byID[n.ID] = cur
	return nil
}
