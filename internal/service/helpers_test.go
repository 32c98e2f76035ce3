package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neovidya/internal/catalogue"
	"neovidya/internal/config"
	"neovidya/internal/database"
	"neovidya/internal/database/dbtest"
	"neovidya/internal/models"
	"neovidya/internal/repository"
	"neovidya/internal/security"
)

type testEnv struct {
	db       *database.DB
	users    *repository.UserRepository
	schools  *repository.SchoolRepository
	courses  *repository.CourseRepository
	progress *repository.ProgressRepository
	tokens   *security.TokenManager

	auth    *AuthService
	ledger  *ProgressService
	stats   *StatsService
	admin   *SchoolService
	backups *BackupService

	clock time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.New(t)
	cat, err := catalogue.Default()
	require.NoError(t, err)

	env := &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		schools:  repository.NewSchoolRepository(db),
		courses:  repository.NewCourseRepository(db),
		progress: repository.NewProgressRepository(db),
		tokens: security.NewTokenManager(config.AuthConfig{
			JWTSecret: "service-test-secret-0123456789",
			TokenTTL:  time.Hour,
			Issuer:    "neovidya",
		}),
		clock: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return env.clock }

	env.auth = NewAuthService(env.users, env.schools, env.tokens)
	env.auth.now = now
	env.ledger = NewProgressService(env.courses, env.progress, cat)
	env.ledger.now = now
	env.stats = NewStatsService(env.users, env.progress)
	env.stats.now = now
	env.admin = NewSchoolService(env.schools, env.users)
	env.backups = NewBackupService(db, zap.NewNop())
	env.backups.now = now

	return env
}

// demo registers the demo account and returns its identity
func (e *testEnv) demo(t *testing.T) (*models.User, models.AuthContext) {
	t.Helper()
	user, err := e.auth.Register(context.Background(), models.Anonymous(), RegisterInput{
		Username: "demo",
		Email:    "demo@example.com",
		Password: "1234",
	})
	require.NoError(t, err)
	return user, models.Authenticated(user.ID, user.Role)
}

func intPtr(v int) *int { return &v }
