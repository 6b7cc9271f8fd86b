// Package notify delivers outbound notifications off the request path:
// business webhooks, NATS call events and invite emails.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"call-assistant/internal/metrics"

	"github.com/panjf2000/ants/v2"
)

// Pool is a bounded worker pool. Submit never blocks; a full pool drops
// the task with ants.ErrPoolOverload.
type Pool struct {
	p *ants.Pool
}

func NewPool(size int, log *slog.Logger) (*Pool, error) {
	p, err := ants.NewPool(size,
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(time.Minute),
		ants.WithLogger(antsLogger{log}),
		ants.WithPanicHandler(func(v any) {
			log.Error("notify worker panic", "panic", v)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notify pool: %w", err)
	}
	return &Pool{p: p}, nil
}

func (p *Pool) Submit(task func()) error {
	err := p.p.Submit(func() {
		defer func() { metrics.NotifyPoolRunning.Set(float64(p.p.Running())) }()
		task()
	})
	metrics.NotifyPoolRunning.Set(float64(p.p.Running()))
	return err
}

func (p *Pool) Running() int { return p.p.Running() }

// Release waits up to timeout for running tasks, then stops the workers.
func (p *Pool) Release(timeout time.Duration) error {
	return p.p.ReleaseTimeout(timeout)
}

type antsLogger struct{ log *slog.Logger }

func (l antsLogger) Printf(format string, args ...any) {
	l.log.Info(fmt.Sprintf(format, args...), "component", "ants_pool")
}
