package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"neovidya/internal/service"
	"neovidya/internal/validation"
)

// statusFor maps a service error to its HTTP status and the message shown to
// the client. Errors outside the service taxonomy are reported as 500.
func statusFor(err error) (int, string) {
	var verr *service.ValidationError
	var ferr *validation.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.As(err, &ferr):
		return http.StatusBadRequest, ferr.Message
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, MsgInvalidCredentials
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, MsgTokenRequired
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, MsgForbidden
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict, MsgUsernameTaken
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, MsgEmailTaken
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, MsgUserNotFound
	case errors.Is(err, service.ErrSubjectNotFound):
		return http.StatusNotFound, MsgCourseNotFound
	case errors.Is(err, service.ErrSchoolNotFound):
		return http.StatusNotFound, MsgSchoolNotFound
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	default:
		return http.StatusInternalServerError, MsgInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// respondWithError writes {"error": message} and logs anything unexpected
func respondWithError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	logUnexpected(logger, r, status, err)
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondAuthError writes the {"ok": false, "message": ...} envelope used by
// the auth endpoints
func respondAuthError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		msg = MsgServerError
	}
	logUnexpected(logger, r, status, err)
	respondJSON(w, status, authResponse{OK: false, Message: msg})
}

func logUnexpected(logger *zap.Logger, r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	logger.Error("request failed",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &service.ValidationError{Field: "body", Message: MsgBodyTooLarge}
	}
	return &service.ValidationError{Field: "body", Message: MsgInvalidJSON}
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type authResponse struct {
	OK        bool         `json:"ok"`
	Message   string       `json:"message"`
	User      *userPayload `json:"user,omitempty"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt string       `json:"expires_at,omitempty"`
}

// validateRequest checks req against its validate tags. When requiredMsg is
// set it replaces the message for a missing required field.
func validateRequest(req interface{}, requiredMsg string) error {
	err := validation.Struct(req)
	if err == nil || requiredMsg == "" || !validation.IsRequired(err) {
		return err
	}
	var ferr *validation.Error
	errors.As(err, &ferr)
	return &validation.Error{Field: ferr.Field, Tag: ferr.Tag, Message: requiredMsg}
}
