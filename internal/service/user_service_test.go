package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bootstrapEmail = "founder@example.com"
	bootstrapUID   = "uid-founder"
)

// resolveActor mirrors what the auth middleware does for every request
func resolveActor(t *testing.T, f *testFixtures, uid, email string) *access.Actor {
	t.Helper()
	ctx := context.Background()
	policy := access.NewBootstrapPolicy(access.BootstrapIdentity{Email: bootstrapEmail, Subject: bootstrapUID})

	role, err := f.users.OwnRole(ctx, uid)
	require.NoError(t, err)

	actor := &access.Actor{ID: uid, Email: email, Role: role}
	var summary access.SummaryRead
	if policy.NeedsSummary(email, uid, role) {
		summary.HasAnyAdmin, summary.Err = f.summary.HasAnyAdmin(ctx)
	}
	policy.Evaluate(email, uid, role, summary).Apply(actor)
	return actor
}

func TestUserService_RecordLogin(t *testing.T) {
	f := setupServices(t, nil)

	first, err := f.users.RecordLogin(as(userA))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStandard, first.Role)
	assert.Equal(t, userA.Email, first.Email)
	require.NotNil(t, first.LastLogin)

	time.Sleep(5 * time.Millisecond)
	second, err := f.users.RecordLogin(as(userA))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStandard, second.Role)
	assert.True(t, second.LastLogin.After(*first.LastLogin))

	role, err := f.users.OwnRole(context.Background(), userA.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStandard, role)

	role, err = f.users.OwnRole(context.Background(), "uid-never-seen")
	require.NoError(t, err)
	assert.Empty(t, role)

	_, err = f.users.RecordLogin(as(nil))
	assertKind(t, err, domain.KindAuthRequired)
}

func TestUserService_RepeatLoginKeepsSummary(t *testing.T) {
	f := setupServices(t, nil)
	ctx := context.Background()

	_, err := f.users.RecordLogin(as(userA))
	require.NoError(t, err)
	summary, err := f.metadataRepo.GetAdminSummary(ctx)
	require.NoError(t, err)
	assert.False(t, summary.HasAnyAdmin)

	// a later sign-in only touches lastLogin and leaves the stored summary alone
	marker := &domain.AdminSummary{HasAnyAdmin: true, AdminCount: 7}
	require.NoError(t, f.metadataRepo.SetAdminSummary(ctx, marker))

	_, err = f.users.RecordLogin(as(userA))
	require.NoError(t, err)

	summary, err = f.metadataRepo.GetAdminSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.AdminCount)
}

func TestUserService_BootstrapScenario(t *testing.T) {
	f := setupServices(t, nil)

	// no admin exists: the bootstrap identity acts as Admin
	founder := resolveActor(t, f, bootstrapUID, "Founder@Example.com")
	require.True(t, founder.SessionAdmin)

	_, err := f.users.RecordLogin(as(founder))
	require.NoError(t, err)

	// an impostor with the right email but another subject gets nothing
	impostor := resolveActor(t, f, "uid-impostor", bootstrapEmail)
	assert.False(t, impostor.IsAdmin())

	// the founder provisions the first Admin
	created, err := f.users.Create(as(founder), &domain.CreateUserRequest{
		ID:    "uid-first-admin",
		Email: "first.admin@example.com",
		Role:  domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, created.Role)

	summary, err := f.metadataRepo.GetAdminSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.HasAnyAdmin)
	assert.Equal(t, 1, summary.AdminCount)

	// the grant is gone on the next request because the founder's own record is Standard
	founder = resolveActor(t, f, bootstrapUID, bootstrapEmail)
	assert.False(t, founder.SessionAdmin)
	assert.False(t, founder.IsAdmin())

	_, err = f.users.List(as(founder), 0)
	assertKind(t, err, domain.KindAccessDenied)

	// once the real Admin promotes the founder, the founder is Admin by record
	firstAdmin := resolveActor(t, f, "uid-first-admin", "first.admin@example.com")
	require.True(t, firstAdmin.IsAdmin())
	_, err = f.users.UpdateRole(as(firstAdmin), bootstrapUID, domain.RoleAdmin)
	require.NoError(t, err)

	founder = resolveActor(t, f, bootstrapUID, bootstrapEmail)
	assert.True(t, founder.IsAdmin())
	assert.False(t, founder.SessionAdmin)
}

func TestUserService_BootstrapCanCreateOwnAdminRecord(t *testing.T) {
	f := setupServices(t, nil)

	founder := resolveActor(t, f, bootstrapUID, bootstrapEmail)
	require.True(t, founder.SessionAdmin)

	_, err := f.users.Create(as(founder), &domain.CreateUserRequest{
		ID:    bootstrapUID,
		Email: bootstrapEmail,
		Role:  domain.RoleAdmin,
	})
	require.NoError(t, err)

	founder = resolveActor(t, f, bootstrapUID, bootstrapEmail)
	assert.True(t, founder.IsAdmin())
	assert.False(t, founder.SessionAdmin)
	assert.Equal(t, domain.RoleAdmin, founder.Role)
}

func TestUserService_StandardSelfCreateIsStandard(t *testing.T) {
	f := setupServices(t, nil)

	user, err := f.users.Create(as(userA), &domain.CreateUserRequest{
		ID:    userA.ID,
		Email: userA.Email,
		Role:  domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStandard, user.Role)

	_, err = f.users.Create(as(userA), &domain.CreateUserRequest{ID: userB.ID, Email: userB.Email, Role: domain.RoleStandard})
	assertKind(t, err, domain.KindAccessDenied)

	_, err = f.users.Create(as(userA), &domain.CreateUserRequest{ID: userA.ID, Email: userA.Email, Role: domain.RoleStandard})
	assertKind(t, err, domain.KindConflict)
}

func TestUserService_AdminManagement(t *testing.T) {
	f := setupServices(t, nil)
	ctx := as(admin)

	for _, u := range []*access.Actor{userA, userB} {
		_, err := f.users.RecordLogin(as(u))
		require.NoError(t, err)
	}

	users, err := f.users.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	got, err := f.users.GetByID(ctx, userA.ID)
	require.NoError(t, err)
	assert.Equal(t, userA.Email, got.Email)

	updated, err := f.users.UpdateRole(ctx, userA.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	summary, err := f.metadataRepo.GetAdminSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AdminCount)

	_, err = f.users.UpdateRole(ctx, userA.ID, domain.Role("Owner"))
	assertKind(t, err, domain.KindInvalid)

	_, err = f.users.UpdateRole(ctx, "uid-missing", domain.RoleAdmin)
	assertKind(t, err, domain.KindNotFound)

	require.NoError(t, f.users.Delete(ctx, userA.ID))
	summary, err = f.metadataRepo.GetAdminSummary(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.HasAnyAdmin)
	assert.Zero(t, summary.AdminCount)

	err = f.users.Delete(ctx, userA.ID)
	assertKind(t, err, domain.KindNotFound)
}

func TestUserService_SelfEditsForbidden(t *testing.T) {
	f := setupServices(t, nil)

	_, err := f.users.Create(as(admin), &domain.CreateUserRequest{ID: admin.ID, Email: admin.Email, Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = f.users.UpdateRole(as(admin), admin.ID, domain.RoleStandard)
	assertKind(t, err, domain.KindAccessDenied)

	err = f.users.Delete(as(admin), admin.ID)
	assertKind(t, err, domain.KindAccessDenied)

	_, err = f.users.UpdateRole(as(userA), userA.ID, domain.RoleAdmin)
	assertKind(t, err, domain.KindAccessDenied)
}

func TestUserService_Session(t *testing.T) {
	f := setupServices(t, nil)

	session, err := f.users.Session(as(userA))
	require.NoError(t, err)
	assert.Equal(t, userA.ID, session.UserID)
	assert.Equal(t, domain.RoleStandard, session.EffectiveRole)
	assert.False(t, session.Bootstrap)

	bootstrap := &access.Actor{ID: bootstrapUID, Email: bootstrapEmail, SessionAdmin: true}
	session, err = f.users.Session(auth.WithActor(context.Background(), bootstrap))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, session.EffectiveRole)
	assert.True(t, session.Bootstrap)

	_, err = f.users.Session(as(nil))
	assertKind(t, err, domain.KindAuthRequired)
}

func TestUserService_SummaryUnavailableIsTransient(t *testing.T) {
	f := setupServices(t, nil)

	actor := &access.Actor{ID: bootstrapUID, Email: bootstrapEmail, SummaryUnavailable: true}
	_, err := f.users.List(as(actor), 0)
	assertKind(t, err, domain.KindTransient)
	assert.True(t, errors.Is(err, domain.ErrTransient))
}
