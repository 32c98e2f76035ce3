package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
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
	"neovidya/internal/service"
)

type testServer struct {
	handler http.Handler
	db      *database.DB
	auth    *service.AuthService
	static  string
}

func newTestServer(t *testing.T, limiter security.Limiter) *testServer {
	t.Helper()
	ctx := context.Background()

	db := dbtest.New(t)
	_, err := db.SeedSchools(ctx, database.DefaultSchools)
	require.NoError(t, err)

	cat, err := catalogue.Default()
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	tokens := security.NewTokenManager(config.AuthConfig{
		JWTSecret: "handler-test-secret-0123456789",
		TokenTTL:  time.Hour,
		Issuer:    "neovidya",
	})
	authService := service.NewAuthService(userRepo, schoolRepo, tokens)
	progressService := service.NewProgressService(courseRepo, progressRepo, cat)

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "dash1.html"), []byte("<h1>dashboard</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log('app')"), 0o644))

	logger := zap.NewNop()
	m := NewMiddleware(authService, limiter, logger, MiddlewareOptions{
		AllowedOrigins: []string{"http://localhost:5500"},
		BodyLimit:      1 << 20,
	})
	handler := NewRouter(Handlers{
		Auth:     NewAuthHandler(authService, logger),
		Courses:  NewCourseHandler(cat, progressService, logger),
		Progress: NewProgressHandler(progressService, service.NewStatsService(userRepo, progressRepo), logger),
		Admin:    NewAdminHandler(service.NewSchoolService(schoolRepo, userRepo), service.NewBackupService(db, logger), logger),
		Health:   NewHealthHandler(db, logger),
		Static:   NewStaticHandler(static, "dash1.html"),
	}, m)

	return &testServer{handler: handler, db: db, auth: authService, static: static}
}

// do sends a request with an optional JSON body and bearer token
func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// login registers an account when needed and returns its token
func (s *testServer) login(t *testing.T, username string, role models.Role) string {
	t.Helper()
	ctx := context.Background()

	_, err := s.auth.EnsureUser(ctx, service.SeedUser{
		Username: username,
		Email:    username + "@example.com",
		Password: "1234",
		Role:     role,
	})
	require.NoError(t, err)

	result, err := s.auth.Login(ctx, username, "1234")
	require.NoError(t, err)
	return result.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
