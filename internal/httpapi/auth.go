package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
)

const tokenIssuer = "remvin-reports"

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInactiveAccount    = errors.New("account is inactive")
	errInvalidToken       = errors.New("invalid or expired token")
)

// UserStore is the slice of the repository the auth layer needs.
type UserStore interface {
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// AuthManager issues and verifies report API tokens. Accounts are read from
// the user store and cached by username; the cache is refreshed on every
// login so accounts created elsewhere become usable without a restart.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	hashCost int
	users    UserStore

	mu          sync.RWMutex
	credentials map[string]credential
}

type credential struct {
	hash   string
	role   domain.Role
	active bool
}

type reportClaims struct {
	jwtlib.RegisteredClaims
	Role domain.Role `json:"role"`
}

func NewAuthManager(ctx context.Context, secret string, tokenTTL time.Duration, users UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	manager := &AuthManager{
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
		hashCost:    bcrypt.DefaultCost,
		users:       users,
		credentials: make(map[string]credential),
	}
	// A store outage at startup is not fatal; the next login retries.
	_ = manager.reloadCredentials(ctx)
	return manager
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	_ = a.reloadCredentials(ctx)

	username := normalizeUsername(req.Username)
	cred, ok := a.lookup(username)
	if !ok || !cred.matches(req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !cred.active {
		return domain.LoginResponse{}, errInactiveAccount
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, cred.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        cred.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// ParseToken verifies signature, issuer and expiry and returns the caller.
// Tokens naming a role this service does not know are rejected.
func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &reportClaims{}
	_, err := jwtlib.ParseWithClaims(tokenStr, claims, func(*jwtlib.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Actor{}, errInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return domain.Actor{}, errInvalidToken
	}
	return domain.Actor{Username: claims.Subject, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username string, role domain.Role, expiresAt time.Time) (string, error) {
	claims := reportClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Role: role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) lookup(username string) (credential, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cred, ok := a.credentials[username]
	return cred, ok
}

// reloadCredentials replaces the credential cache with the store's accounts.
// Stored roles go through domain.ParseRole; plain-text passwords left by
// older installs are hashed and written back.
func (a *AuthManager) reloadCredentials(ctx context.Context) error {
	if a.users == nil {
		return nil
	}
	accounts, err := a.users.ListUsers(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]credential, len(accounts))
	for _, account := range accounts {
		username := normalizeUsername(account.Username)
		if username == "" {
			continue
		}
		next[username] = credential{
			hash:   a.ensureHashed(ctx, username, account.Password),
			role:   domain.ParseRole(string(account.Role)),
			active: account.Active,
		}
	}

	a.mu.Lock()
	a.credentials = next
	a.mu.Unlock()
	return nil
}

func (a *AuthManager) ensureHashed(ctx context.Context, username string, stored string) string {
	if isPasswordHash(stored) || stored == "" {
		return stored
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(stored), a.hashCost)
	if err != nil {
		return ""
	}
	// A failed write-back is retried on the next reload.
	_ = a.users.UpdateUserPassword(ctx, username, string(hashed))
	return string(hashed)
}

func (c credential) matches(input string) bool {
	if c.hash == "" || strings.TrimSpace(input) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.hash), []byte(input)) == nil
}

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func isPasswordHash(value string) bool {
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}
