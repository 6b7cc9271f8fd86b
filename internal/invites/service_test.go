package invites

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers map[string]bool

func (s stubUsers) EmailRegistered(ctx context.Context, email string) (bool, error) {
	return s[email], nil
}

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendInvite(ctx context.Context, to, role, registerURL string) error {
	m.sent = append(m.sent, to+"|"+role+"|"+registerURL)
	return m.err
}

type fixture struct {
	svc    *Service
	repo   *MemoryRepo
	mailer *recordingMailer
	now    time.Time
}

func newFixture(existing stubUsers) *fixture {
	f := &fixture{repo: NewMemoryRepo(), mailer: &recordingMailer{}, now: time.Unix(1700000000, 0).UTC()}
	f.svc = NewService(f.repo, existing, f.mailer, "https://app.example.com/")
	f.svc.clock = func() time.Time { return f.now }
	return f
}

func TestCreate_IssuesTokenAndSendsEmail(t *testing.T) {
	f := newFixture(nil)

	inv, err := f.svc.Create(context.Background(), "admin-1", CreateInput{Email: " New@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", inv.Email)
	assert.Equal(t, rbac.RoleBusinessOwner, inv.Role)
	assert.Equal(t, StatusPending, inv.Status)
	assert.Equal(t, f.now.Add(7*24*time.Hour), inv.ExpiresAt)
	require.Len(t, f.mailer.sent, 1)
	assert.True(t, strings.HasSuffix(f.mailer.sent[0], "https://app.example.com/register?token="+inv.Token))
}

func TestCreate_MailFailureDoesNotFail(t *testing.T) {
	f := newFixture(nil)
	f.mailer.err = errors.New("smtp down")

	_, err := f.svc.Create(context.Background(), "admin-1", CreateInput{Email: "a@example.com", Role: rbac.RoleAdmin})
	assert.NoError(t, err)
}

func TestCreate_Conflicts(t *testing.T) {
	f := newFixture(stubUsers{"taken@example.com": true})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "admin-1", CreateInput{Email: "taken@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.svc.Create(ctx, "admin-1", CreateInput{Email: "fresh@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "admin-1", CreateInput{Email: "fresh@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreate_RejectsUnknownRole(t *testing.T) {
	f := newFixture(nil)
	_, err := f.svc.Create(context.Background(), "admin-1", CreateInput{Email: "a@example.com", Role: "root"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRedeem_SingleUse(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, "admin-1", CreateInput{Email: "a@example.com", Role: rbac.RoleAdmin})
	require.NoError(t, err)

	role, err := f.svc.Redeem(ctx, inv.Token, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, role)

	stored, _ := f.repo.GetByID(ctx, inv.ID)
	assert.Equal(t, StatusAccepted, stored.Status)
	require.NotNil(t, stored.UsedAt)

	_, err = f.svc.Redeem(ctx, inv.Token, "a@example.com")
	assert.ErrorIs(t, err, ErrInvalidInvite)
}

func TestRedeem_EmailMustMatch(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	inv, _ := f.svc.Create(ctx, "admin-1", CreateInput{Email: "a@example.com"})

	_, err := f.svc.Redeem(ctx, inv.Token, "b@example.com")
	assert.ErrorIs(t, err, ErrEmailMismatch)
}

func TestValidate_ExpiresStaleInvite(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	inv, _ := f.svc.Create(ctx, "admin-1", CreateInput{Email: "a@example.com"})

	_, err := f.svc.Validate(ctx, inv.Token)
	require.NoError(t, err)

	f.now = f.now.Add(8 * 24 * time.Hour)
	_, err = f.svc.Validate(ctx, inv.Token)
	assert.ErrorIs(t, err, ErrInvalidInvite)

	stored, _ := f.repo.GetByID(ctx, inv.ID)
	assert.Equal(t, StatusExpired, stored.Status)

	_, err = f.svc.Redeem(ctx, inv.Token, "a@example.com")
	assert.ErrorIs(t, err, ErrInvalidInvite)
}

func TestCancel_PendingOnly(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	inv, _ := f.svc.Create(ctx, "admin-1", CreateInput{Email: "a@example.com"})

	got, err := f.svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	_, err = f.svc.Cancel(ctx, inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.svc.Cancel(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCountPending(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	_, _ = f.svc.Create(ctx, "admin-1", CreateInput{Email: "a@example.com"})
	inv, _ := f.svc.Create(ctx, "admin-1", CreateInput{Email: "b@example.com"})
	_, _ = f.svc.Cancel(ctx, inv.ID)

	n, err := f.svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
