package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neovidya/internal/database"
	"neovidya/internal/database/dbtest"
	"neovidya/internal/models"
)

func TestSchoolRepository(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	_, err := db.SeedSchools(ctx, database.DefaultSchools)
	require.NoError(t, err)

	schools := NewSchoolRepository(db)
	list, err := schools.ListSchools(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Sample School 1", list[0].Name)
	assert.Equal(t, "123 Main St", list[0].Address)

	got, err := schools.GetSchoolByID(ctx, list[1].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sample School 2", got.Name)

	missing, err := schools.GetSchoolByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteSchoolKeepsMembers(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	_, err := db.SeedSchools(ctx, database.DefaultSchools)
	require.NoError(t, err)

	schools := NewSchoolRepository(db)
	users := NewUserRepository(db)

	list, err := schools.ListSchools(ctx)
	require.NoError(t, err)
	schoolID := list[0].ID

	user := &models.User{Username: "pupil", Email: "pupil@example.com", PasswordHash: "h", Role: models.RoleStudent, SchoolID: &schoolID}
	require.NoError(t, users.CreateUser(ctx, user))

	deleted, err := schools.DeleteSchool(ctx, schoolID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "deleting a school must not delete its members")
	assert.Nil(t, got.SchoolID)

	deleted, err = schools.DeleteSchool(ctx, schoolID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
