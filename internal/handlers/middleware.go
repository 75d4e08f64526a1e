package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"familyphotos/internal/apperr"
	"familyphotos/internal/gate"
	"familyphotos/internal/models"
	"familyphotos/internal/security"
	"familyphotos/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	IdentityContextKey ContextKey = "identity"
	SessionContextKey  ContextKey = "session_id"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	db          gate.Querier
	codec       *security.SessionCodec
	csrf        *security.CSRFGenerator
	limiter     *security.RateLimiter
	logger      *zap.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, db gate.Querier, codec *security.SessionCodec,
	csrf *security.CSRFGenerator, limiter *security.RateLimiter, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		db:          db,
		codec:       codec,
		csrf:        csrf,
		limiter:     limiter,
		logger:      logger,
	}
}

// RequireSession is middleware that requires a valid session. It does not
// check family membership.
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := m.codec.SessionID(r)
		if sessionID == "" {
			respondWithError(w, m.logger, r, gate.ErrUnauthorized)
			return
		}

		identity, err := m.authService.ValidateSession(r.Context(), sessionID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnauthorized {
				http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
			}
			respondWithError(w, m.logger, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		ctx = context.WithValue(ctx, SessionContextKey, sessionID)
		next(w, r.WithContext(ctx))
	}
}

// RequireMember is middleware that requires a valid session belonging to an
// active family member.
func (m *Middleware) RequireMember(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireSession(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentityFromContext(r.Context())
		if err := gate.Check(r.Context(), m.db, identity.ID); err != nil {
			respondWithError(w, m.logger, r, err)
			return
		}
		next(w, r)
	})
}

// CSRFProtect rejects mutating requests whose X-CSRF-Token header does not
// match the session. It must run inside RequireSession.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		sessionID, _ := r.Context().Value(SessionContextKey).(string)
		if !m.csrf.ValidateToken(sessionID, r.Header.Get(security.CSRFHeader)) {
			m.logger.Warn("csrf token rejected", zap.String("path", r.URL.Path))
			respondWithError(w, m.logger, r, apperr.Forbidden(ErrInvalidCSRFToken))
			return
		}
		next(w, r)
	}
}

// Member is shorthand for RequireMember(CSRFProtect(next))
func (m *Middleware) Member(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireMember(m.CSRFProtect(next))
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			m.logger.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: ErrTooManyRequests})
			return
		}
		next(w, r)
	}
}

type loggingRecorder struct {
	http.ResponseWriter
	status int
}

func (r *loggingRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *loggingRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Logging middleware logs HTTP requests
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &loggingRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// GetIdentityFromContext retrieves the signed-in identity from the request context
func GetIdentityFromContext(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(IdentityContextKey).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}

func actor(r *http.Request) int64 {
	if identity := GetIdentityFromContext(r.Context()); identity != nil {
		return identity.ID
	}
	return 0
}
