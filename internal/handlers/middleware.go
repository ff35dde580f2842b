package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"flashkids/internal/security"
	"flashkids/internal/session"
)

// pinAttemptsPerMinute bounds PIN guesses from one client.
const pinAttemptsPerMinute = 5

// Middleware holds dependencies shared by the request middleware.
type Middleware struct {
	tracker    *session.Tracker
	log        *zap.Logger
	signingKey []byte
	sessionTTL time.Duration
	pinLimiter *security.RateLimiter
}

// NewMiddleware creates the middleware set. signingKey signs parent session
// tokens; sessionTTL bounds how long a PIN verification stays valid.
func NewMiddleware(tracker *session.Tracker, log *zap.Logger, signingKey []byte, sessionTTL time.Duration) *Middleware {
	return &Middleware{
		tracker:    tracker,
		log:        log,
		signingKey: signingKey,
		sessionTTL: sessionTTL,
		pinLimiter: security.NewRateLimiter(pinAttemptsPerMinute, time.Minute),
	}
}

// RateLimitPIN throttles PIN verification attempts per client address.
func (m *Middleware) RateLimitPIN(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.pinLimiter.Allow(security.ClientKey(r)) {
			respondWithError(w, m.log, http.StatusTooManyRequests, "Too many PIN attempts, try again later", "", nil)
			return
		}
		next(w, r)
	}
}

// IssueParentSession sets a signed parent-session cookie after a successful
// PIN verification.
func (m *Middleware) IssueParentSession(w http.ResponseWriter) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "parent",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return fmt.Errorf("signing parent session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     ParentSessionCookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(m.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearParentSession expires the parent-session cookie.
func (m *Middleware) ClearParentSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     ParentSessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// RequireParent gates parent-only endpoints. When no PIN is configured the
// gate is open; otherwise the request must carry a valid parent-session
// cookie issued by a PIN verification. Settings restored from a backup can
// claim the gate is on even though this device holds no PIN hash; the gate
// stays open then, as no verification could ever succeed.
func (m *Middleware) RequireParent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.tracker.Settings().PINRequired || !m.tracker.HasPIN() {
			next(w, r)
			return
		}

		cookie, err := r.Cookie(ParentSessionCookieName)
		if err != nil || cookie.Value == "" {
			respondWithError(w, m.log, http.StatusUnauthorized, ErrMsgUnauthorized, "", nil)
			return
		}

		if err := m.validateParentToken(cookie.Value); err != nil {
			m.ClearParentSession(w)
			respondWithError(w, m.log, http.StatusUnauthorized, ErrMsgUnauthorized, "invalid parent session token", err)
			return
		}

		next(w, r)
	}
}

func (m *Middleware) validateParentToken(raw string) error {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.signingKey, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("token is not valid")
	}
	return nil
}

// Logging logs each request with method, path, status and duration.
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
