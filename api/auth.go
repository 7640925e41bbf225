package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kilianp07/fleetops/config"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

var (
	errCredentialsRequired = errors.New("Username and password are required")
	errUsernameTooShort    = errors.New("Username must be at least 3 characters")
	errPasswordTooShort    = errors.New("Password must be at least 6 characters")
	errInvalidCredentials  = errors.New("Invalid username or password")
)

// ErrUsernameTaken is returned by Register for an existing username.
var ErrUsernameTaken = errors.New("Username already exists")

// Claims is the JWT payload issued to managers.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// ClaimsFromContext returns the claims of the authenticated manager.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Authenticator registers managers and issues and verifies their tokens.
type Authenticator struct {
	managers store.ManagerRepository
	secret   []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time
}

var errNoSecret = errors.New("api: auth.jwt_secret is required")

// NewAuthenticator creates an Authenticator. Without a signing secret it can
// register managers but neither issue nor verify tokens.
func NewAuthenticator(cfg config.AuthConfig, managers store.ManagerRepository) (*Authenticator, error) {
	if managers == nil {
		return nil, errors.New("api: manager repository is nil")
	}
	cfg.SetDefaults()
	return &Authenticator{
		managers: managers,
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.TokenTTL,
		cost:     cfg.BcryptCost,
		now:      time.Now,
	}, nil
}

func normalizeCredentials(username, password string) (string, string, error) {
	if username == "" || password == "" {
		return "", "", errCredentialsRequired
	}
	return strings.ToLower(strings.TrimSpace(username)), strings.TrimSpace(password), nil
}

// Register creates a manager account.
func (a *Authenticator) Register(ctx context.Context, username, password string) (model.Manager, error) {
	username, password, err := normalizeCredentials(username, password)
	if err != nil {
		return model.Manager{}, err
	}
	if len(username) < minUsernameLen {
		return model.Manager{}, errUsernameTooShort
	}
	if len(password) < minPasswordLen {
		return model.Manager{}, errPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return model.Manager{}, fmt.Errorf("hash password: %w", err)
	}
	m, err := a.managers.CreateManager(ctx, model.Manager{Username: username, PasswordHash: string(hash)})
	if errors.Is(err, store.ErrConflict) {
		return model.Manager{}, ErrUsernameTaken
	}
	if err != nil {
		return model.Manager{}, fmt.Errorf("create manager: %w", err)
	}
	return m, nil
}

// Login verifies the credentials and returns a signed token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	username, password, err := normalizeCredentials(username, password)
	if err != nil {
		return "", err
	}
	m, err := a.managers.GetManagerByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", errInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("find manager: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		return "", errInvalidCredentials
	}
	return a.Issue(m)
}

// Issue signs a token for m.
func (a *Authenticator) Issue(m model.Manager) (string, error) {
	if len(a.secret) == 0 {
		return "", errNoSecret
	}
	now := a.now()
	claims := Claims{
		ID:       m.ID,
		Username: m.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   m.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, errNoSecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			respondError(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		claims, err := a.Verify(token)
		if err != nil {
			respondError(w, http.StatusForbidden, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// bearerToken returns the second space-separated part of the header.
func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.authError(w, err)
		return
	}
	s.log.Infof("manager %s registered", m.Username)
	respondMessage(w, http.StatusCreated, "Manager created successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.authError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) authError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errCredentialsRequired),
		errors.Is(err, errUsernameTooShort),
		errors.Is(err, errPasswordTooShort),
		errors.Is(err, ErrUsernameTaken),
		errors.Is(err, errInvalidCredentials):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Errorf("auth: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
