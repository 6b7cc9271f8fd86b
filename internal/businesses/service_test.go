package businesses

import (
	"context"
	"testing"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/internal/auth"
	"call-assistant/internal/rbac"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin = auth.Identity{UserID: "admin-1", Role: rbac.RoleAdmin}
	owner = auth.Identity{UserID: "owner-1", Role: rbac.RoleBusinessOwner}
	other = auth.Identity{UserID: "owner-2", Role: rbac.RoleBusinessOwner}
)

func newTestService() *Service {
	s := NewService(NewMemoryRepo())
	s.clock = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func fakeInput() CreateInput {
	return CreateInput{
		BusinessName: gofakeit.Company(),
		OwnerPhone:   "(415) 555-0100",
		Industry:     "plumbing",
		Website:      "https://" + gofakeit.DomainName(),
	}
}

func TestCreate_OwnerGetsOneBusiness(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	b, err := s.Create(ctx, owner, fakeInput())
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, b.OwnerID)
	assert.Equal(t, "+14155550100", b.OwnerPhone)
	assert.True(t, b.IsActive)

	_, err = s.Create(ctx, owner, fakeInput())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreate_OwnerIDIgnoredForOwners(t *testing.T) {
	s := newTestService()
	in := fakeInput()
	in.OwnerID = "8b0bdf6f-6d3e-4e0f-9a7f-2a7f3f1b6c11"

	b, err := s.Create(context.Background(), owner, in)
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, b.OwnerID)
}

func TestCreate_AdminMustNameOwner(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Create(ctx, admin, fakeInput())
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	in := fakeInput()
	in.OwnerID = "8b0bdf6f-6d3e-4e0f-9a7f-2a7f3f1b6c11"
	b, err := s.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, in.OwnerID, b.OwnerID)
}

func TestCreate_RejectsBadInput(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	in := fakeInput()
	in.BusinessName = ""
	_, err := s.Create(ctx, owner, in)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	in = fakeInput()
	in.OwnerPhone = "12"
	_, err = s.Create(ctx, owner, in)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetAndUpdate_Ownership(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	b, err := s.Create(ctx, owner, fakeInput())
	require.NoError(t, err)

	_, err = s.Get(ctx, other, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = s.Get(ctx, admin, b.ID)
	assert.NoError(t, err)

	name := "Renamed Ltd"
	got, err := s.Update(ctx, owner, b.ID, UpdateInput{BusinessName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, got.BusinessName)

	_, err = s.Update(ctx, other, b.ID, UpdateInput{BusinessName: &name})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	inactive := false
	_, err = s.Update(ctx, owner, b.ID, UpdateInput{IsActive: &inactive})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDeactivate_AdminOnly(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	b, err := s.Create(ctx, owner, fakeInput())
	require.NoError(t, err)

	_, err = s.Deactivate(ctx, owner, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	got, err := s.Deactivate(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 1, Active: 0, Inactive: 1}, stats)
}

func TestList_ScopedByRole(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	_, err := s.Create(ctx, owner, fakeInput())
	require.NoError(t, err)
	_, err = s.Create(ctx, other, fakeInput())
	require.NoError(t, err)

	all, err := s.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, owner.UserID, mine[0].OwnerID)

	none, err := s.List(ctx, auth.Identity{UserID: "nobody", Role: rbac.RoleBusinessOwner})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResolve(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	b, err := s.Create(ctx, owner, fakeInput())
	require.NoError(t, err)

	got, err := s.Resolve(ctx, owner, "")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = s.Resolve(ctx, owner, "someone-else")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = s.Resolve(ctx, admin, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	got, err = s.Resolve(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = s.Resolve(ctx, other, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
