package reporting

import (
	"context"
	"sync"

	"call-assistant/internal/calls"
)

// MemoryRepo aggregates an in-memory call list for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	Calls []calls.Call
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Add(c ...calls.Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, c...)
}

func (r *MemoryRepo) CallTotals(ctx context.Context, businessID string, tr TimeRange) (Totals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]calls.Call, 0, len(r.Calls))
	for _, c := range r.Calls {
		if c.BusinessID != businessID {
			continue
		}
		if !tr.From.IsZero() && c.StartTime.Before(tr.From) {
			continue
		}
		if !tr.To.IsZero() && !c.StartTime.Before(tr.To) {
			continue
		}
		rows = append(rows, c)
	}
	return Summarize(rows), nil
}
