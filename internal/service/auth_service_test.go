package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neovidya/internal/database"
	"neovidya/internal/models"
	"neovidya/internal/repository"
)

func TestResolveLogin(t *testing.T) {
	tests := []struct {
		name      string
		login     string
		wantField repository.LoginField
		wantValue string
	}{
		{name: "username", login: "demo", wantField: repository.LoginByUsername, wantValue: "demo"},
		{name: "username keeps case", login: "Demo", wantField: repository.LoginByUsername, wantValue: "Demo"},
		{name: "email lower-cased", login: "Demo@Example.COM", wantField: repository.LoginByEmail, wantValue: "demo@example.com"},
		{name: "whitespace trimmed", login: "  demo@example.com \n", wantField: repository.LoginByEmail, wantValue: "demo@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, value := ResolveLogin(tt.login)
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, models.Anonymous(), RegisterInput{
		Username: "  asha ",
		Email:    "Asha@Example.com",
		Password: "secret1",
		Role:     "teacher",
	})
	require.NoError(t, err)
	assert.Equal(t, "asha", user.Username)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.NotEqual(t, "secret1", user.PasswordHash, "password must be stored hashed")

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{name: "missing fields", input: RegisterInput{Username: "x"}, wantErr: ErrValidation},
		{name: "bad email", input: RegisterInput{Username: "ravi", Email: "not-an-email", Password: "1234"}, wantErr: ErrValidation},
		{name: "short password", input: RegisterInput{Username: "ravi", Email: "ravi@example.com", Password: "12"}, wantErr: ErrValidation},
		{name: "username taken", input: RegisterInput{Username: "asha", Email: "other@example.com", Password: "1234"}, wantErr: ErrUsernameTaken},
		{name: "email taken case-insensitively", input: RegisterInput{Username: "other", Email: "ASHA@example.com", Password: "1234"}, wantErr: ErrEmailTaken},
		{name: "unknown school", input: RegisterInput{Username: "ravi", Email: "ravi@example.com", Password: "1234", SchoolID: int64Ptr(999)}, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(ctx, models.Anonymous(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.ErrorIs(t, ErrUsernameTaken, ErrConflict)
}

func TestDuplicateCause(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, models.Anonymous(), RegisterInput{Username: "asha", Email: "asha@example.com", Password: "1234"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.auth.duplicateCause(ctx, "asha"), ErrUsernameTaken)
	assert.ErrorIs(t, env.auth.duplicateCause(ctx, "ravi"), ErrEmailTaken)

	// A failed lookup is a store error, not a conflict
	require.NoError(t, env.db.Close())
	err = env.auth.duplicateCause(ctx, "ravi")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestRegisterRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		actor models.AuthContext
		role  string
		want  models.Role
	}{
		{name: "default", actor: models.Anonymous(), role: "", want: models.RoleStudent},
		{name: "unknown role", actor: models.Anonymous(), role: "wizard", want: models.RoleStudent},
		{name: "self-registered admin downgraded", actor: models.Anonymous(), role: "admin", want: models.RoleStudent},
		{name: "admin creates admin", actor: models.Authenticated(1, models.RoleAdmin), role: "admin", want: models.RoleAdmin},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := []string{"ua", "ub", "uc", "ud"}[i] + "user"
			user, err := env.auth.Register(ctx, tt.actor, RegisterInput{Username: name, Email: name + "@example.com", Password: "1234", Role: tt.role})
			require.NoError(t, err)
			assert.Equal(t, tt.want, user.Role)
		})
	}
}

func TestRegisterWithSchool(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.db.SeedSchools(ctx, database.DefaultSchools)
	require.NoError(t, err)
	schools, err := env.schools.ListSchools(ctx)
	require.NoError(t, err)

	user, err := env.auth.Register(ctx, models.Anonymous(), RegisterInput{
		Username: "pupil", Email: "pupil@example.com", Password: "1234", SchoolID: &schools[0].ID,
	})
	require.NoError(t, err)
	require.NotNil(t, user.SchoolID)
	assert.Equal(t, schools[0].ID, *user.SchoolID)
}

// Username and email logins resolve to the same account, and every failure looks the same.
func TestLoginByUsernameOrEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	demo, _ := env.demo(t)

	for _, login := range []string{"demo", "demo@example.com", "DEMO@example.com"} {
		t.Run(login, func(t *testing.T) {
			res, err := env.auth.Login(ctx, login, "1234")
			require.NoError(t, err)
			assert.Equal(t, demo.ID, res.User.ID)
			assert.NotEmpty(t, res.Token)
			require.NotNil(t, res.User.LastActive)
			assert.True(t, res.User.LastActive.Equal(env.clock))

			auth, err := env.auth.Authenticate(res.Token)
			require.NoError(t, err)
			assert.Equal(t, demo.ID, auth.UserID)
		})
	}

	failures := []struct{ login, password string }{
		{"demo", "wrong"},
		{"demo@example.com", "wrong"},
		{"nobody", "1234"},
		{"nobody@example.com", "1234"},
	}
	for _, f := range failures {
		_, err := env.auth.Login(ctx, f.login, f.password)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "%s/%s", f.login, f.password)
		assert.NotErrorIs(t, err, ErrNotFound)
	}

	_, err := env.auth.Login(ctx, "", "1234")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoginRefreshesLastActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	demo, _ := env.demo(t)

	_, err := env.auth.Login(ctx, "demo", "1234")
	require.NoError(t, err)

	stored, err := env.users.GetUserByID(ctx, demo.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastActive)
	assert.True(t, stored.LastActive.Equal(env.clock))
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	auth, err := env.auth.Authenticate("nope")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, auth.IsAuthenticated())
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	demo, actor := env.demo(t)

	me, err := env.auth.Me(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, demo.Username, me.Username)

	_, err = env.auth.Me(ctx, models.Anonymous())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.auth.Me(ctx, models.Authenticated(demo.ID+50, models.RoleStudent))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEnsureUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seed := SeedUser{Username: "demo", Email: "demo@example.com", Password: "1234", Role: models.RoleStudent}

	created, err := env.auth.EnsureUser(ctx, seed)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.auth.EnsureUser(ctx, seed)
	require.NoError(t, err)
	assert.False(t, created)

	created, err = env.auth.EnsureUser(ctx, SeedUser{Username: "root", Email: "root@example.com", Password: "rootpass", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, created)

	root, err := env.users.GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, root.Role)
}

func int64Ptr(v int64) *int64 { return &v }
