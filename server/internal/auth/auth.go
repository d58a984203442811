package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/openclaw/quotatop/server/internal/store"
)

type contextKey string

const (
	accountIDKey contextKey = "accountID"
	accountKey   contextKey = "account"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateAPIKey generates a random API key
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "qt_" + hex.EncodeToString(bytes), nil
}

// GenerateID generates a random ID
func GenerateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Middleware handles session and API-key authentication
type Middleware struct {
	db       *store.DB
	sessions *scs.SessionManager
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(db *store.DB, sessions *scs.SessionManager) *Middleware {
	return &Middleware{db: db, sessions: sessions}
}

// RequireLogin requires a valid dashboard session
func (m *Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := m.sessions.GetString(r.Context(), "accountID")
		if accountID == "" {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		account, err := m.db.AccountByID(accountID)
		if err != nil || account == nil {
			m.sessions.Destroy(r.Context())
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, accountID)
		ctx = context.WithValue(ctx, accountKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAPIKey requires a valid API key
func (m *Middleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			// Try Authorization: Bearer token
			authz := r.Header.Get("Authorization")
			if strings.HasPrefix(authz, "Bearer ") {
				apiKey = strings.TrimPrefix(authz, "Bearer ")
			}
		}

		if apiKey == "" {
			http.Error(w, "API key required", http.StatusUnauthorized)
			return
		}

		account, err := m.db.AccountByAPIKey(apiKey)
		if err != nil || account == nil {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, account.ID)
		ctx = context.WithValue(ctx, accountKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAccountID returns the account ID from context
func GetAccountID(ctx context.Context) string {
	if id, ok := ctx.Value(accountIDKey).(string); ok {
		return id
	}
	return ""
}

// GetAccount returns the account from context
func GetAccount(ctx context.Context) *store.Account {
	if a, ok := ctx.Value(accountKey).(*store.Account); ok {
		return a
	}
	return nil
}
