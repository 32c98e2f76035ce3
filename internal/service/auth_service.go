package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"neovidya/internal/models"
	"neovidya/internal/repository"
	"neovidya/internal/security"
	"neovidya/internal/validation"
)

// RegisterInput is the data a new account is created from
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
	SchoolID *int64
}

// LoginResult is returned by a successful login
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// SeedUser describes an account created at startup when missing
type SeedUser struct {
	Username string
	Email    string
	Password string
	Role     models.Role
}

// AuthService handles registration, login and token verification
type AuthService struct {
	userRepo   *repository.UserRepository
	schoolRepo *repository.SchoolRepository
	tokens     *security.TokenManager
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, schoolRepo *repository.SchoolRepository, tokens *security.TokenManager) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		schoolRepo: schoolRepo,
		tokens:     tokens,
		now:        time.Now,
	}
}

// ResolveLogin decides which column a login string refers to and normalises it.
// Anything containing "@" is an email and is lower-cased.
func ResolveLogin(login string) (repository.LoginField, string) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return repository.LoginByEmail, strings.ToLower(login)
	}
	return repository.LoginByUsername, login
}

// Register creates a new account. Only an admin actor may create admins;
// any other requested role outside student/teacher becomes student.
func (s *AuthService) Register(ctx context.Context, actor models.AuthContext, in RegisterInput) (*models.User, error) {
	return s.register(ctx, in, actor.HasRole(models.RoleAdmin))
}

func (s *AuthService) register(ctx context.Context, in RegisterInput, allowAdmin bool) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	password := strings.TrimSpace(in.Password)

	if username == "" || email == "" || password == "" {
		return nil, invalid("", "username, email, password are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fromValidation(err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fromValidation(err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fromValidation(err)
	}

	role := models.ParseRole(strings.TrimSpace(in.Role))
	if role == models.RoleAdmin && !allowAdmin {
		role = models.RoleStudent
	}

	if in.SchoolID != nil {
		school, err := s.schoolRepo.GetSchoolByID(ctx, *in.SchoolID)
		if err != nil {
			return nil, err
		}
		if school == nil {
			return nil, invalid("school_id", "unknown school")
		}
	}

	// Friendly messages first; the unique constraints below still decide races.
	if existing, err := s.userRepo.GetUserByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}
	if existing, err := s.userRepo.GetUserByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		SchoolID:     in.SchoolID,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.duplicateCause(ctx, username)
		}
		return nil, err
	}

	return user, nil
}

// duplicateCause works out which unique field a lost insert race collided on
func (s *AuthService) duplicateCause(ctx context.Context, username string) error {
	existing, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

// Login verifies credentials and issues an access token. Unknown logins and
// wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	field, value := ResolveLogin(login)
	password = strings.TrimSpace(password)
	if value == "" || password == "" {
		return nil, invalid("login", "login (email/username) and password are required")
	}

	user, err := s.userRepo.GetUserByLogin(ctx, field, value)
	if err != nil {
		return nil, err
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.userRepo.TouchLastActive(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastActive = &now

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate turns a bearer token into the identity it was issued for
func (s *AuthService) Authenticate(token string) (models.AuthContext, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return models.Anonymous(), ErrUnauthenticated
	}
	return claims.AuthContext(), nil
}

// Me returns the actor's own account
func (s *AuthService) Me(ctx context.Context, actor models.AuthContext) (*models.User, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// EnsureUser creates the account when neither its username nor its email is
// in use yet. It reports whether a row was written.
func (s *AuthService) EnsureUser(ctx context.Context, seed SeedUser) (bool, error) {
	in := RegisterInput{
		Username: seed.Username,
		Email:    seed.Email,
		Password: seed.Password,
		Role:     string(seed.Role),
	}

	_, err := s.register(ctx, in, true)
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
