// Package auth provides password login backed by signed session cookies.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Drayday134/project-dashboard/internal/logging"
	"github.com/Drayday134/project-dashboard/internal/metrics"
	"github.com/Drayday134/project-dashboard/internal/protocol"
)

// CookieName is the session cookie.
const CookieName = "dashboard_session"

const issuer = "project-dashboard"

type contextKey string

const sessionContextKey contextKey = "session"

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
)

// Config configures the authentication gate.
type Config struct {
	Username string
	Password string
	// PasswordBcrypt, if set, is used instead of hashing Password.
	PasswordBcrypt string
	// SecretKey signs session cookies. Empty means a random per-process key.
	SecretKey  string
	TTL        time.Duration
	Secure     bool
	BcryptCost int
}

// Claims is the signed content of a session cookie. ID (jti) names the
// server-side session.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Session is a live login.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Auth checks credentials and tracks sessions in memory.
type Auth struct {
	username     string
	passwordHash []byte
	secret       []byte
	ephemeral    bool
	ttl          time.Duration
	secure       bool
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates an Auth from cfg.
func New(cfg Config) (*Auth, error) {
	if cfg.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session TTL must be positive")
	}

	var hash []byte
	if cfg.PasswordBcrypt != "" {
		hash = []byte(cfg.PasswordBcrypt)
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("invalid password hash: %w", err)
		}
	} else {
		if cfg.Password == "" {
			return nil, fmt.Errorf("password is required")
		}
		cost := cfg.BcryptCost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	a := &Auth{
		username:     cfg.Username,
		passwordHash: hash,
		secret:       []byte(cfg.SecretKey),
		ttl:          cfg.TTL,
		secure:       cfg.Secure,
		now:          time.Now,
		sessions:     make(map[string]*Session),
	}
	if len(a.secret) == 0 {
		a.secret = make([]byte, 32)
		if _, err := rand.Read(a.secret); err != nil {
			return nil, fmt.Errorf("generate secret key: %w", err)
		}
		a.ephemeral = true
	}
	return a, nil
}

// EphemeralKey reports whether the signing key was generated at startup, in
// which case sessions do not survive a restart.
func (a *Auth) EphemeralKey() bool {
	return a.ephemeral
}

// Authenticate checks a username/password pair against the configured
// credentials. Both comparisons always run.
func (a *Auth) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	ok := userOK && passOK
	metrics.RecordAuthAttempt(ok)
	return ok
}

// Login creates a session for username and returns its signed token.
func (a *Auth) Login(username string) (string, *Session, error) {
	now := a.now()
	s := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}

	a.mu.Lock()
	a.sessions[s.ID] = s
	n := len(a.sessions)
	a.mu.Unlock()
	metrics.SetSessionsActive(n)

	return token, s, nil
}

// Validate verifies a token's signature and expiry and that its session is
// still live.
func (a *Auth) Validate(token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	a.mu.RLock()
	s, ok := a.sessions[claims.ID]
	a.mu.RUnlock()
	if !ok || !a.now().Before(s.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired or revoked", ErrInvalidSession)
	}
	return s, nil
}

// Revoke ends a session.
func (a *Auth) Revoke(id string) {
	a.mu.Lock()
	delete(a.sessions, id)
	n := len(a.sessions)
	a.mu.Unlock()
	metrics.SetSessionsActive(n)
}

// Cleanup drops expired sessions and returns how many were removed.
func (a *Auth) Cleanup() int {
	now := a.now()
	a.mu.Lock()
	removed := 0
	for id, s := range a.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(a.sessions, id)
			removed++
		}
	}
	n := len(a.sessions)
	a.mu.Unlock()
	metrics.SetSessionsActive(n)
	return removed
}

// SessionCount returns the number of stored sessions.
func (a *Auth) SessionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// SetCookie writes the session cookie.
func (a *Auth) SetCookie(w http.ResponseWriter, token string, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie in the browser.
func (a *Auth) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest validates the session cookie on r.
func (a *Auth) FromRequest(r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return a.Validate(c.Value)
}

// GetSession returns the session stored in ctx by a middleware.
func GetSession(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// RequireHTML redirects requests without a valid session to /login.
func (a *Auth) RequireHTML(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := a.FromRequest(r)
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				logging.WithContext(r.Context()).Debug("rejected session", logging.Err(err))
				a.ClearCookie(w)
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		logging.SetUser(r.Context(), s.Username)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequireJSON rejects requests without a valid session with 401.
func (a *Auth) RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := a.FromRequest(r)
		if err != nil {
			msg := "authentication required"
			if !errors.Is(err, ErrNoSession) {
				msg = "session expired or invalid"
			}
			sendAuthError(w, http.StatusUnauthorized, msg)
			return
		}
		logging.SetUser(r.Context(), s.Username)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func sendAuthError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
