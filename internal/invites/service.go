package invites

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/internal/rbac"
	"call-assistant/internal/validator"
	"call-assistant/pkg/logger"

	"github.com/google/uuid"
)

// EmailChecker reports whether a user already exists for an email.
type EmailChecker interface {
	EmailRegistered(ctx context.Context, email string) (bool, error)
}

// Mailer delivers invite emails. Implementations may send asynchronously.
type Mailer interface {
	SendInvite(ctx context.Context, to, role, registerURL string) error
}

type CreateInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin business_owner"`
}

type Service struct {
	repo        Repository
	users       EmailChecker
	mailer      Mailer
	frontendURL string
	ttl         time.Duration
	clock       func() time.Time
}

func NewService(repo Repository, users EmailChecker, mailer Mailer, frontendURL string) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		ttl:         DefaultTTL,
		clock:       time.Now,
	}
}

// Create issues an invite and queues its email. Email delivery failures are
// logged, not returned; the invite stays valid and can be resent by link.
func (s *Service) Create(ctx context.Context, invitedBy string, in CreateInput) (Invite, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validator.Struct(in); err != nil {
		return Invite{}, err
	}
	if in.Role == "" {
		in.Role = rbac.RoleBusinessOwner
	}

	now := s.clock().UTC()
	if s.users != nil {
		exists, err := s.users.EmailRegistered(ctx, in.Email)
		if err != nil {
			return Invite{}, err
		}
		if exists {
			return Invite{}, apperrors.Conflict("user with this email already exists")
		}
	}
	pending, err := s.repo.HasPending(ctx, in.Email, now)
	if err != nil {
		return Invite{}, err
	}
	if pending {
		return Invite{}, apperrors.Conflict("pending invitation already exists for this email")
	}

	inv := Invite{
		ID:        uuid.NewString(),
		Email:     in.Email,
		Role:      in.Role,
		Token:     uuid.NewString(),
		InvitedBy: invitedBy,
		Status:    StatusPending,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return Invite{}, err
	}

	log := logger.From(ctx)
	if s.mailer != nil {
		if err := s.mailer.SendInvite(ctx, inv.Email, inv.Role, s.RegisterURL(inv.Token)); err != nil {
			log.Warn("invite email not sent", "invite_id", inv.ID, "err", err)
		}
	}
	log.Info("invite created", "invite_id", inv.ID, "role", inv.Role, "invited_by", invitedBy)
	return inv, nil
}

// RegisterURL is the frontend link embedded in invite emails.
func (s *Service) RegisterURL(token string) string {
	return s.frontendURL + "/register?token=" + url.QueryEscape(token)
}

// List returns every invite, newest first, after expiring stale ones.
func (s *Service) List(ctx context.Context) ([]Invite, error) {
	if _, err := s.repo.ExpireStale(ctx, s.clock().UTC()); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Validate returns a redeemable invite for token. A pending invite found past
// its expiry is marked expired.
func (s *Service) Validate(ctx context.Context, token string) (Invite, error) {
	if strings.TrimSpace(token) == "" {
		return Invite{}, ErrInvalidInvite
	}
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Invite{}, ErrInvalidInvite
		}
		return Invite{}, err
	}
	now := s.clock().UTC()
	if inv.Status == StatusPending && !now.Before(inv.ExpiresAt) {
		if _, err := s.repo.Transition(ctx, inv.ID, StatusPending, StatusExpired); err != nil {
			return Invite{}, err
		}
		return Invite{}, ErrInvalidInvite
	}
	if !inv.Redeemable(now) {
		return Invite{}, ErrInvalidInvite
	}
	return inv, nil
}

// Redeem consumes the invite for email and returns the granted role.
// It implements users.InviteRedeemer and runs inside the caller's transaction.
func (s *Service) Redeem(ctx context.Context, token, email string) (string, error) {
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidInvite
		}
		return "", err
	}
	if inv.Email != email {
		return "", ErrEmailMismatch
	}
	accepted, err := s.repo.Accept(ctx, token, email, s.clock().UTC())
	if err != nil {
		return "", err
	}
	return accepted.Role, nil
}

// Cancel moves a pending invite to cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (Invite, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Invite{}, err
	}
	ok, err := s.repo.Transition(ctx, id, StatusPending, StatusCancelled)
	if err != nil {
		return Invite{}, err
	}
	if !ok {
		return Invite{}, ErrNotPending
	}
	inv.Status = StatusCancelled
	logger.From(ctx).Info("invite cancelled", "invite_id", id)
	return inv, nil
}

// CountPending counts redeemable invites (admin statistics).
func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.repo.CountPending(ctx, s.clock().UTC())
}
