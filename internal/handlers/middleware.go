package handlers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"neovidya/internal/models"
	"neovidya/internal/security"
	"neovidya/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	ActorContextKey     ContextKey = "actor"
	RequestIDContextKey ContextKey = "request_id"
)

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline'; " +
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
	"font-src 'self' https://fonts.gstatic.com data:; " +
	"img-src 'self' data: https:; " +
	"connect-src 'self'; " +
	"base-uri 'self'; form-action 'self'; frame-ancestors 'self'; object-src 'none'"

var secureHeaders = secure.New(secure.Options{
	ContentSecurityPolicy:   contentSecurityPolicy,
	ContentTypeNosniff:      true,
	CustomFrameOptionsValue: "SAMEORIGIN",
	ReferrerPolicy:          "no-referrer",
})

// MiddlewareOptions configures the request filters
type MiddlewareOptions struct {
	AllowedOrigins []string
	BodyLimit      int64
	// ClientIP resolves the caller address; nil uses the socket address
	ClientIP *security.ClientIP
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService    *service.AuthService
	limiter        security.Limiter
	logger         *zap.Logger
	allowedOrigins []string
	bodyLimit      int64
	clientIP       *security.ClientIP
}

// NewMiddleware creates a new middleware instance. A nil limiter disables rate limiting.
func NewMiddleware(authService *service.AuthService, limiter security.Limiter, logger *zap.Logger, opts MiddlewareOptions) *Middleware {
	return &Middleware{
		authService:    authService,
		limiter:        limiter,
		logger:         logger,
		allowedOrigins: opts.AllowedOrigins,
		bodyLimit:      opts.BodyLimit,
		clientIP:       opts.ClientIP,
	}
}

// Authenticate resolves a bearer token into the request's actor. Requests
// without a token continue as anonymous; a bad token is rejected.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: MsgTokenInvalid})
			return
		}

		actor, err := m.authService.Authenticate(strings.TrimSpace(token))
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: MsgTokenInvalid})
			return
		}

		ctx := context.WithValue(r.Context(), ActorContextKey, actor)
		next(w, r.WithContext(ctx))
	}
}

// RequireAuth is middleware that requires a valid access token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFromContext(r.Context()).IsAuthenticated() {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: MsgTokenRequired})
			return
		}
		next(w, r)
	})
}

// RequireRole is middleware that requires an authenticated actor with one of roles
func (m *Middleware) RequireRole(roles ...models.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			if !ActorFromContext(r.Context()).HasRole(roles...) {
				respondJSON(w, http.StatusForbidden, errorResponse{Error: MsgForbidden})
				return
			}
			next(w, r)
		})
	}
}

// RateLimit limits requests per client IP. Limiter failures are logged and
// the request is let through.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil {
			next(w, r)
			return
		}

		ip := m.clientIP.Resolve(r)
		allowed, retryAfter, err := m.limiter.Allow(r.Context(), ip)
		if err != nil {
			m.logger.Warn("rate limiter unavailable",
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("ip", ip),
				zap.Error(err),
			)
			next(w, r)
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: MsgTooManyRequests})
			return
		}

		next(w, r)
	}
}

// BodyLimit caps the size of request bodies
func (m *Middleware) BodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.bodyLimit > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, m.bodyLimit)
		}
		next.ServeHTTP(w, r)
	})
}

// CORS allows credentialed requests from the configured origins only.
// Requests without an Origin header are not cross-origin and pass through;
// unknown origins are refused with 403.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: m.allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut,
			http.MethodPatch, http.MethodPost, http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
	})
	allowed := c.Handler(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !slices.Contains(m.allowedOrigins, origin) {
			w.Header().Add("Vary", "Origin")
			respondJSON(w, http.StatusForbidden, errorResponse{Error: fmt.Sprintf("%s: %s", MsgOriginNotAllowed, origin)})
			return
		}
		allowed.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets the browser hardening headers on every response
func SecurityHeaders(next http.Handler) http.Handler {
	return secureHeaders.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("X-DNS-Prefetch-Control", "off")
		next.ServeHTTP(w, r)
	}))
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Logging assigns a request id and logs each request once it has been served
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", m.clientIP.Resolve(r)),
		}
		switch {
		case rec.status >= http.StatusInternalServerError:
			m.logger.Error("request", fields...)
		case rec.status >= http.StatusBadRequest:
			m.logger.Warn("request", fields...)
		default:
			m.logger.Info("request", fields...)
		}
	})
}

// ActorFromContext returns the identity attached by Authenticate, or anonymous
func ActorFromContext(ctx context.Context) models.AuthContext {
	actor, ok := ctx.Value(ActorContextKey).(models.AuthContext)
	if !ok {
		return models.Anonymous()
	}
	return actor
}

// RequestIDFromContext returns the id assigned by Logging
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
