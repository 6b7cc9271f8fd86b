package users

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
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	ErrDisabled           = fmt.Errorf("%w: account is disabled", apperrors.ErrForbidden)
)

// InviteRedeemer consumes a pending invite for email and returns the role it grants.
type InviteRedeemer interface {
	Redeem(ctx context.Context, token, email string) (string, error)
}

type RegisterInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FirstName   string `json:"first_name" validate:"max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	InviteToken string `json:"invite_token,omitempty"`
}

// Service implements registration, credential checks and admin bootstrap.
type Service struct {
	repo       Repository
	invites    InviteRedeemer
	tx         utils.Transactor
	bcryptCost int
	clock      func() time.Time
}

func NewService(repo Repository, invites InviteRedeemer, tx utils.Transactor, bcryptCost int) *Service {
	if tx == nil {
		tx = utils.NoopTransactor{}
	}
	return &Service{repo: repo, invites: invites, tx: tx, bcryptCost: bcryptCost, clock: time.Now}
}

// Register creates a business_owner, or the invite's role when a token is
// given. The invite is consumed in the same transaction as the user insert.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validator.Struct(in); err != nil {
		return User{}, err
	}
	email := in.Email
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return User{}, err
	}

	now := s.clock().UTC()
	u := User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hash,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Role:           rbac.RoleBusinessOwner,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if token := strings.TrimSpace(in.InviteToken); token != "" {
			if s.invites == nil {
				return apperrors.Validation("invitations are not enabled")
			}
			role, err := s.invites.Redeem(ctx, token, email)
			if err != nil {
				return err
			}
			u.Role = role
		}
		return s.repo.Create(ctx, u)
	})
	if err != nil {
		return User{}, err
	}

	logger.From(ctx).Info("user registered", "user_id", u.ID, "role", u.Role, "invited", in.InviteToken != "")
	return u, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := auth.CheckPassword(u.HashedPassword, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return User{}, ErrDisabled
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// CreateAdmin creates an admin user directly (admin-only endpoint).
func (s *Service) CreateAdmin(ctx context.Context, in RegisterInput) (User, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validator.Struct(in); err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return User{}, err
	}
	now := s.clock().UTC()
	u := User{
		ID:             uuid.NewString(),
		Email:          in.Email,
		HashedPassword: hash,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Role:           rbac.RoleAdmin,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	logger.From(ctx).Info("admin created", "user_id", u.ID)
	return u, nil
}

// EnsureAdmin seeds the default admin when no admin exists yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	n, err := s.repo.CountByRole(ctx, rbac.RoleAdmin)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateAdmin(ctx, RegisterInput{Email: email, Password: password, FirstName: "Admin"}); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EmailRegistered implements invites.EmailChecker.
func (s *Service) EmailRegistered(ctx context.Context, email string) (bool, error) {
	return Directory{repo: s.repo}.EmailRegistered(ctx, email)
}

// Directory answers email lookups from the repository alone. It lets the
// invites service be built before the users service that redeems invites.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) Directory { return Directory{repo: repo} }

func (d Directory) EmailRegistered(ctx context.Context, email string) (bool, error) {
	_, err := d.repo.GetByEmail(ctx, NormalizeEmail(email))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
