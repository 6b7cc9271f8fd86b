package businesses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/internal/auth"
	"call-assistant/internal/rbac"
	"call-assistant/internal/validator"
	"call-assistant/pkg/logger"
	"call-assistant/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrForbidden         = fmt.Errorf("%w: business belongs to another owner", apperrors.ErrForbidden)
	ErrBusinessIDMissing = apperrors.Validation("business_id query parameter is required for admins")
	ErrOwnerIDMissing    = apperrors.Validation("owner_id is required when an admin creates a business")
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Create registers a business. Owners always create for themselves and
// may hold a single business. Admins create on behalf of owner_id.
func (s *Service) Create(ctx context.Context, who auth.Identity, in CreateInput) (Business, error) {
	if err := validator.Struct(in); err != nil {
		return Business{}, err
	}
	ownerID := who.UserID
	if rbac.IsAdmin(who.Role) {
		if in.OwnerID == "" {
			return Business{}, ErrOwnerIDMissing
		}
		ownerID = in.OwnerID
	} else if who.Role != rbac.RoleBusinessOwner {
		return Business{}, ErrForbidden
	}

	if _, err := s.repo.GetByOwner(ctx, ownerID); err == nil {
		return Business{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return Business{}, err
	}

	phone, err := normalizeOwnerPhone(in.OwnerPhone)
	if err != nil {
		return Business{}, err
	}

	now := s.clock().UTC()
	b := Business{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		BusinessName: strings.TrimSpace(in.BusinessName),
		OwnerPhone:   phone,
		Industry:     strings.TrimSpace(in.Industry),
		Description:  strings.TrimSpace(in.Description),
		Address:      strings.TrimSpace(in.Address),
		Website:      strings.TrimSpace(in.Website),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return Business{}, err
	}
	logger.From(ctx).Info("business created", "business_id", b.ID, "owner_id", b.OwnerID)
	return b, nil
}

// List returns every business for admins and the caller's own otherwise.
func (s *Service) List(ctx context.Context, who auth.Identity) ([]Business, error) {
	if rbac.IsAdmin(who.Role) {
		return s.repo.List(ctx)
	}
	b, err := s.repo.GetByOwner(ctx, who.UserID)
	if errors.Is(err, ErrNotFound) {
		return []Business{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []Business{b}, nil
}

func (s *Service) Get(ctx context.Context, who auth.Identity, id string) (Business, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Business{}, err
	}
	if !rbac.CanAccessBusiness(who.Role, who.UserID, b.OwnerID) {
		return Business{}, ErrForbidden
	}
	return b, nil
}

// GetByID loads a business without an ownership check. Webhook handlers use it.
func (s *Service) GetByID(ctx context.Context, id string) (Business, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, who auth.Identity, id string, in UpdateInput) (Business, error) {
	if err := validator.Struct(in); err != nil {
		return Business{}, err
	}
	b, err := s.Get(ctx, who, id)
	if err != nil {
		return Business{}, err
	}
	if in.BusinessName != nil {
		b.BusinessName = strings.TrimSpace(*in.BusinessName)
	}
	if in.OwnerPhone != nil {
		phone, err := normalizeOwnerPhone(*in.OwnerPhone)
		if err != nil {
			return Business{}, err
		}
		b.OwnerPhone = phone
	}
	if in.Industry != nil {
		b.Industry = strings.TrimSpace(*in.Industry)
	}
	if in.Description != nil {
		b.Description = strings.TrimSpace(*in.Description)
	}
	if in.Address != nil {
		b.Address = strings.TrimSpace(*in.Address)
	}
	if in.Website != nil {
		b.Website = strings.TrimSpace(*in.Website)
	}
	if in.IsActive != nil {
		// Reactivation and deactivation stay with admins.
		if !rbac.IsAdmin(who.Role) {
			return Business{}, ErrForbidden
		}
		b.IsActive = *in.IsActive
	}
	b.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, b); err != nil {
		return Business{}, err
	}
	return b, nil
}

// Deactivate is the admin DELETE. Rows are kept for call history.
func (s *Service) Deactivate(ctx context.Context, who auth.Identity, id string) (Business, error) {
	if !rbac.IsAdmin(who.Role) {
		return Business{}, ErrForbidden
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Business{}, err
	}
	if !b.IsActive {
		return b, nil
	}
	b.IsActive = false
	b.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, b); err != nil {
		return Business{}, err
	}
	logger.From(ctx).Info("business deactivated", "business_id", b.ID, "by", who.UserID)
	return b, nil
}

// Resolve picks the business a /api/me request operates on. Owners get
// their own; admins must name one with businessID.
func (s *Service) Resolve(ctx context.Context, who auth.Identity, businessID string) (Business, error) {
	businessID = strings.TrimSpace(businessID)
	if rbac.IsAdmin(who.Role) {
		if businessID == "" {
			return Business{}, ErrBusinessIDMissing
		}
		return s.repo.GetByID(ctx, businessID)
	}
	b, err := s.repo.GetByOwner(ctx, who.UserID)
	if err != nil {
		return Business{}, err
	}
	if businessID != "" && businessID != b.ID {
		return Business{}, ErrForbidden
	}
	return b, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

func normalizeOwnerPhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	phone, err := utils.NormalizeE164(raw)
	if err != nil {
		return "", apperrors.Validation("owner_phone: %v", err)
	}
	return phone, nil
}
