package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogprojesi/backend/internal/models"
)

func strPtr(s string) *string { return &s }

func TestUsers_RegisterUsesDefaultRole(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.Users.Register(f.ctx, RegisterInput{
		Username:  "alice",
		Email:     "Alice@Example.com",
		Password:  testPassword,
		FirstName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.Enabled)
	assert.NotEqual(t, testPassword, user.Password)
	assert.Equal(t, "Alice", user.FullName())
	assert.Zero(t, f.auditCount(t, models.ActionUserCreate))
}

func TestUsers_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "taken", models.RoleUser)

	cases := map[string]RegisterInput{
		"short username": {Username: "ab", Email: "ab@example.com", Password: testPassword},
		"bad email":      {Username: "alice", Email: "not-an-email", Password: testPassword},
		"weak password":  {Username: "alice", Email: "alice@example.com", Password: "password"},
		"bad name":       {Username: "alice", Email: "alice@example.com", Password: testPassword, FirstName: "R2D2"},
		"taken username": {Username: "taken", Email: "other@example.com", Password: testPassword},
		"taken email":    {Username: "alice", Email: "taken@example.com", Password: testPassword},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Users.Register(f.ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUsers_RegisterDisabled(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Settings.SetBool(f.ctx, models.SettingRegistrationEnabled, false, "root")
	require.NoError(t, err)

	_, err = f.svc.Users.Register(f.ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: testPassword})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUsers_Authenticate(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice", models.RoleUser)

	got, err := f.svc.Users.Authenticate(f.ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = f.svc.Users.Authenticate(f.ctx, "alice", "Wrong123!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Users.Authenticate(f.ctx, "ghost", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Users.ToggleEnabled(f.ctx, alice.ID, systemActor, "")
	require.NoError(t, err)
	_, err = f.svc.Users.Authenticate(f.ctx, "alice", testPassword)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestUsers_MarkLogin(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice", models.RoleUser)
	require.Nil(t, alice.LastLoginAt)

	require.NoError(t, f.svc.Users.MarkLogin(f.ctx, alice.ID))
	got, err := f.svc.Users.Get(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)
}

func TestUsers_CreateUserAudits(t *testing.T) {
	f := newFixture(t)

	user := f.createUser(t, "editor", models.RoleAdmin)
	assert.Equal(t, models.RoleAdmin, user.Role)

	entries, err := f.svc.Audit.EntriesByTarget(f.ctx, models.TargetUser, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionUserCreate, entries[0].ActionType)
	assert.Equal(t, systemActor.Username, entries[0].AdminUsername)

	_, err = f.svc.Users.CreateUser(f.ctx, CreateUserInput{
		RegisterInput: RegisterInput{Username: "bad", Email: "bad@example.com", Password: testPassword},
		Role:          "owner",
	}, systemActor, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUsers_ListAndSearch(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "alice", models.RoleUser)
	f.createUser(t, "bob", models.RoleUser)
	f.createUser(t, "carol", models.RoleAdmin)

	all, err := f.svc.Users.List(f.ctx, UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, "carol", all.Items[0].Username)

	admins, err := f.svc.Users.List(f.ctx, UserFilter{Role: "admin"})
	require.NoError(t, err)
	require.Len(t, admins.Items, 1)
	assert.Equal(t, "carol", admins.Items[0].Username)

	found, err := f.svc.Users.List(f.ctx, UserFilter{Search: "BO"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "bob", found.Items[0].Username)

	n, err := f.svc.Users.CountByRole(f.ctx, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := f.svc.Users.Admins(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.Users.Get(f.ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsers_UpdateUser(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice", models.RoleUser)
	f.createUser(t, "bob", models.RoleUser)

	updated, err := f.svc.Users.UpdateUser(f.ctx, alice.ID, UpdateUserInput{
		Email:     strPtr("alice@new.example.com"),
		FirstName: strPtr("Alice"),
		Bio:       strPtr("  writes things  "),
	}, systemActor, "")
	require.NoError(t, err)
	assert.Equal(t, "alice@new.example.com", updated.Email)
	assert.Equal(t, "Alice", *updated.FirstName)
	assert.Equal(t, "writes things", *updated.Bio)
	assert.Equal(t, int64(1), f.auditCount(t, models.ActionUserUpdate))

	_, err = f.svc.Users.UpdateUser(f.ctx, alice.ID, UpdateUserInput{Email: strPtr("bob@example.com")}, systemActor, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Users.UpdateUser(f.ctx, 999, UpdateUserInput{}, systemActor, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsers_ToggleEnabled(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin", models.RoleAdmin)
	alice := f.createUser(t, "alice", models.RoleUser)

	got, err := f.svc.Users.ToggleEnabled(f.ctx, alice.ID, admin, "")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	got, err = f.svc.Users.ToggleEnabled(f.ctx, alice.ID, admin, "")
	require.NoError(t, err)
	assert.True(t, got.Enabled)

	assert.Equal(t, int64(1), f.auditCount(t, models.ActionUserDisable))
	assert.Equal(t, int64(1), f.auditCount(t, models.ActionUserEnable))

	_, err = f.svc.Users.ToggleEnabled(f.ctx, admin.ID, admin, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUsers_ChangeRole(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin", models.RoleAdmin)
	alice := f.createUser(t, "alice", models.RoleUser)

	got, err := f.svc.Users.ChangeRole(f.ctx, alice.ID, "admin", admin, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)

	entries, err := f.svc.Audit.EntriesByActionType(f.ctx, models.ActionUserRoleChange)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "User role changed: USER -> ADMIN", entries[0].Action)

	_, err = f.svc.Users.ChangeRole(f.ctx, admin.ID, models.RoleUser, admin, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Users.ChangeRole(f.ctx, alice.ID, "root", admin, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUsers_ResetPassword(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice", models.RoleUser)

	assert.ErrorIs(t, f.svc.Users.ResetPassword(f.ctx, alice.ID, "short", systemActor, ""), ErrValidation)
	require.NoError(t, f.svc.Users.ResetPassword(f.ctx, alice.ID, "Another456?", systemActor, ""))

	_, err := f.svc.Users.Authenticate(f.ctx, "alice", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Users.Authenticate(f.ctx, "alice", "Another456?")
	assert.NoError(t, err)
}

func TestUsers_DeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin", models.RoleAdmin)
	alice := f.createUser(t, "alice", models.RoleUser)
	bob := f.createUser(t, "bob", models.RoleUser)

	alicePost := f.createPost(t, alice, "Alice writes", true)
	bobPost := f.createPost(t, bob, "Bob writes", true)
	_, err := f.svc.Comments.Add(f.ctx, alicePost.ID, bob, "nice one")
	require.NoError(t, err)
	_, err = f.svc.Comments.Add(f.ctx, bobPost.ID, alice, "thanks")
	require.NoError(t, err)
	_, err = f.svc.Comments.Add(f.ctx, bobPost.ID, bob, "self reply")
	require.NoError(t, err)

	require.NoError(t, f.svc.Users.DeleteUser(f.ctx, alice.ID, admin, ""))

	_, err = f.svc.Users.Get(f.ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Posts.Get(f.ctx, alicePost.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := f.svc.Comments.Count(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := f.svc.Audit.EntriesByActionType(f.ctx, models.ActionUserDelete)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "User deleted: alice", entries[0].Action)
}

func TestUsers_DeleteUserGuards(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin", models.RoleAdmin)

	assert.ErrorIs(t, f.svc.Users.DeleteUser(f.ctx, admin.ID, admin, ""), ErrForbidden)
	assert.ErrorIs(t, f.svc.Users.DeleteUser(f.ctx, admin.ID, systemActor, ""), ErrForbidden)
	assert.ErrorIs(t, f.svc.Users.DeleteUser(f.ctx, 999, admin, ""), ErrNotFound)

	second := f.createUser(t, "second", models.RoleAdmin)
	require.NoError(t, f.svc.Users.DeleteUser(f.ctx, second.ID, admin, ""))
	assert.Equal(t, int64(1), f.auditCount(t, models.ActionUserDelete))
}

func TestUsers_EnsureAdmin(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Users.EnsureAdmin(f.ctx, "", "", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = f.svc.Users.EnsureAdmin(f.ctx, "boss", "", testPassword)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.Users.EnsureAdmin(f.ctx, "other", "", testPassword)
	require.NoError(t, err)
	assert.False(t, created)

	boss, err := f.svc.Users.Authenticate(f.ctx, "boss", testPassword)
	require.NoError(t, err)
	assert.True(t, boss.IsAdmin())
	assert.Equal(t, "boss@localhost.localdomain", boss.Email)
}

func TestUsers_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice", models.RoleUser)

	updated, err := f.svc.Users.UpdateProfile(f.ctx, alice, UpdateUserInput{
		FirstName: strPtr("Alice"),
		LastName:  strPtr("O'Neil"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", *updated.FirstName)
	assert.Equal(t, "O'Neil", *updated.LastName)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.Zero(t, f.auditCount(t, models.ActionUserUpdate))

	_, err = f.svc.Users.UpdateProfile(f.ctx, alice, UpdateUserInput{FirstName: strPtr("R2D2")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Users.UpdateProfile(f.ctx, alice, UpdateUserInput{Email: strPtr("not-an-email")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUsers_ChangePassword(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice", models.RoleUser)

	assert.ErrorIs(t, f.svc.Users.ChangePassword(f.ctx, alice.ID, "Wrong123!", "Another456?"), ErrValidation)
	assert.ErrorIs(t, f.svc.Users.ChangePassword(f.ctx, alice.ID, testPassword, "weak"), ErrValidation)
	assert.ErrorIs(t, f.svc.Users.ChangePassword(f.ctx, 999, testPassword, "Another456?"), ErrNotFound)

	require.NoError(t, f.svc.Users.ChangePassword(f.ctx, alice.ID, testPassword, "Another456?"))
	_, err := f.svc.Users.Authenticate(f.ctx, "alice", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Users.Authenticate(f.ctx, "alice", "Another456?")
	assert.NoError(t, err)
}
