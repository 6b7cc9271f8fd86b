package calls

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository. GetBySIDForUpdate does not lock;
// tests serialize through the service.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Call
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byID: map[string]Call{}} }

func (r *MemoryRepo) Create(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.TwilioCallSID == c.TwilioCallSID {
			return ErrDuplicateSID
		}
	}
	r.byID[c.ID] = c
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) GetBySIDForUpdate(ctx context.Context, sid string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.TwilioCallSID == sid {
			return c, nil
		}
	}
	return Call{}, ErrNotFound
}

func (r *MemoryRepo) Update(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; !ok {
		return ErrNotFound
	}
	r.byID[c.ID] = c
	return nil
}

func (r *MemoryRepo) ListByBusiness(ctx context.Context, businessID string, f ListFilter) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Call{}
	for _, c := range r.byID {
		if c.BusinessID != businessID {
			continue
		}
		if !f.From.IsZero() && c.StartTime.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !c.StartTime.Before(f.To) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []Call{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
