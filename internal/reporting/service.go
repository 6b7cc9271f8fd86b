package reporting

import (
	"context"
	"errors"

	"call-assistant/internal/businesses"
	"call-assistant/internal/calls"
)

type RecentCalls interface {
	List(ctx context.Context, businessID string, f calls.ListFilter) ([]calls.Call, error)
}

type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

type BusinessCounter interface {
	Stats(ctx context.Context) (businesses.Stats, error)
}

type InviteCounter interface {
	CountPending(ctx context.Context) (int, error)
}

type Service struct {
	repo       Repository
	calls      RecentCalls
	users      UserCounter
	businesses BusinessCounter
	invites    InviteCounter
}

func NewService(repo Repository, recent RecentCalls, users UserCounter, biz BusinessCounter, invites InviteCounter) *Service {
	return &Service{repo: repo, calls: recent, users: users, businesses: biz, invites: invites}
}

// Dashboard aggregates biz's calls in r plus the most recent ones.
func (s *Service) Dashboard(ctx context.Context, biz businesses.Business, r TimeRange) (Dashboard, error) {
	if biz.ID == "" {
		return Dashboard{}, errors.New("reporting: business required")
	}
	totals, err := s.repo.CallTotals(ctx, biz.ID, r)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := s.calls.List(ctx, biz.ID, calls.ListFilter{From: r.From, To: r.To, Limit: RecentCallsLimit})
	if err != nil {
		return Dashboard{}, err
	}
	if recent == nil {
		recent = []calls.Call{}
	}
	return Dashboard{Totals: totals, RecentCalls: recent, Business: biz}, nil
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	var out Statistics
	n, err := s.users.Count(ctx)
	if err != nil {
		return Statistics{}, err
	}
	out.TotalUsers = n

	bs, err := s.businesses.Stats(ctx)
	if err != nil {
		return Statistics{}, err
	}
	out.TotalBusinesses = bs.Total
	out.ActiveBusinesses = bs.Active
	out.InactiveBusinesses = bs.Inactive

	if out.PendingInvites, err = s.invites.CountPending(ctx); err != nil {
		return Statistics{}, err
	}
	return out, nil
}
