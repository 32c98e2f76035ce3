package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"neovidya/internal/models"
	"neovidya/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=256"`
	Role     string `json:"role" validate:"max=32"`
	SchoolID *int64 `json:"school_id" validate:"omitempty,gt=0"`
}

// loginRequest accepts the login under any of the names frontends send it as
type loginRequest struct {
	Login    string `json:"login" validate:"required_without_all=Email Username,max=254"`
	Email    string `json:"email" validate:"max=254"`
	Username string `json:"username" validate:"max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

func (req loginRequest) identifier() string {
	switch {
	case req.Login != "":
		return req.Login
	case req.Email != "":
		return req.Email
	default:
		return req.Username
	}
}

type userPayload struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	SchoolID *int64      `json:"school_id,omitempty"`
}

func newUserPayload(u *models.User) *userPayload {
	return &userPayload{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		SchoolID: u.SchoolID,
	}
}

// Register creates an account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAuthError(h.logger, w, r, err)
		return
	}
	if err := validateRequest(req, MsgRegisterRequired); err != nil {
		respondAuthError(h.logger, w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), ActorFromContext(r.Context()), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		SchoolID: req.SchoolID,
	})
	if err != nil {
		respondAuthError(h.logger, w, r, err)
		return
	}

	h.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	respondJSON(w, http.StatusCreated, authResponse{
		OK:      true,
		Message: MsgRegistered,
		User:    newUserPayload(user),
	})
}

// Login verifies credentials and returns an access token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAuthError(h.logger, w, r, err)
		return
	}
	if err := validateRequest(req, MsgLoginRequired); err != nil {
		respondAuthError(h.logger, w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		respondAuthError(h.logger, w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{
		OK:        true,
		Message:   MsgLoggedIn,
		User:      newUserPayload(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Me(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
