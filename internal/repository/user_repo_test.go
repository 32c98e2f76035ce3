package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neovidya/internal/database/dbtest"
	"neovidya/internal/models"
)

func TestUserRepositoryCreateAndLookup(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "demo", Email: "demo@example.com", PasswordHash: "hash", Role: models.RoleStudent}
	require.NoError(t, repo.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	byName, err := repo.GetUserByLogin(ctx, LoginByUsername, "demo")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, user.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)
	assert.Equal(t, models.RoleStudent, byName.Role)
	assert.Nil(t, byName.SchoolID)
	assert.Nil(t, byName.LastActive)

	byEmail, err := repo.GetUserByLogin(ctx, LoginByEmail, "demo@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	missing, err := repo.GetUserByID(ctx, user.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.GetUserByLogin(ctx, LoginField("password_hash"), "hash")
	assert.Error(t, err)
}

func TestUserRepositoryDuplicates(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &models.User{Username: "demo", Email: "demo@example.com", PasswordHash: "h", Role: models.RoleStudent}))

	err := repo.CreateUser(ctx, &models.User{Username: "demo", Email: "other@example.com", PasswordHash: "h", Role: models.RoleStudent})
	assert.True(t, errors.Is(err, ErrDuplicate), "username clash: %v", err)

	err = repo.CreateUser(ctx, &models.User{Username: "other", Email: "demo@example.com", PasswordHash: "h", Role: models.RoleStudent})
	assert.True(t, errors.Is(err, ErrDuplicate), "email clash: %v", err)
}

func TestUserRepositoryUpdateStats(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "demo", Email: "demo@example.com", PasswordHash: "h", Role: models.RoleStudent}
	require.NoError(t, repo.CreateUser(ctx, user))

	xp, streak := 120, 4
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	found, err := repo.UpdateStats(ctx, user.ID, models.StatsUpdate{XP: &xp, Streak: &streak}, now)
	require.NoError(t, err)
	assert.True(t, found)

	onlyXP := 50
	later := now.Add(time.Hour)
	found, err = repo.UpdateStats(ctx, user.ID, models.StatsUpdate{XP: &onlyXP}, later)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.XP)
	assert.Equal(t, 4, got.Streak, "streak left untouched")
	require.NotNil(t, got.LastActive)
	assert.True(t, got.LastActive.Equal(later))

	found, err = repo.UpdateStats(ctx, user.ID+100, models.StatsUpdate{XP: &xp}, now)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUserRepositoryListAndTouch(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta"} {
		require.NoError(t, repo.CreateUser(ctx, &models.User{Username: name, Email: name + "@example.com", PasswordHash: "h", Role: models.RoleTeacher}))
	}

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alpha", users[0].Username)
	assert.Equal(t, models.RoleTeacher, users[1].Role)

	now := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	require.NoError(t, repo.TouchLastActive(ctx, users[0].ID, now))

	got, err := repo.GetUserByID(ctx, users[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastActive)
	assert.True(t, got.LastActive.Equal(now))
}
