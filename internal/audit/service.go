package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for call events.
// It is append-only: there are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByCall(ctx context.Context, callID string) ([]Event, error)
}

// Service appends call events, filling id and timestamp.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) (Event, error) {
	if s.repo == nil {
		return Event{}, errors.New("audit: repository not configured")
	}
	if e.CallID == "" || e.Type == "" {
		return Event{}, ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock().UTC()
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Record is Append for the common (call, type, data) shape.
func (s *Service) Record(ctx context.Context, callID string, typ EventType, data map[string]any) error {
	_, err := s.Append(ctx, Event{CallID: callID, Type: typ, Data: data})
	return err
}

func (s *Service) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	if callID == "" {
		return nil, ErrInvalidEvent
	}
	return s.repo.ListByCall(ctx, callID)
}
