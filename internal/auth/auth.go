package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/0x3st/ainic/internal/database"
)

// SessionManager issues and verifies the HS256 bearer tokens the API uses.
// The signing secret is generated once and persisted in the settings table.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	db     *database.DB
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what the middleware hands to handlers through the request
// context.
type Identity struct {
	Username string
	Role     string
}

type contextKey struct{}

func NewSessionManager(db *database.DB, ttl time.Duration) (*SessionManager, error) {
	secret, err := db.EnsureSigningSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to load signing secret: %w", err)
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, db: db}, nil
}

func (sm *SessionManager) IssueToken(username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
}

// VerifyToken parses and validates a token, pinning the signing method to
// HS256 so an attacker cannot downgrade it.
func (sm *SessionManager) VerifyToken(token string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return sm.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return &Identity{Username: claims.Subject, Role: claims.Role}, nil
}

// FromRequest extracts and verifies the bearer token, then re-checks the
// user row so deactivated accounts lose access before their token expires.
func (sm *SessionManager) FromRequest(r *http.Request) (*Identity, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	ident, err := sm.VerifyToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil, false
	}
	user, err := sm.db.GetUserByUsername(ident.Username)
	if err != nil || user == nil || !user.Active {
		return nil, false
	}
	ident.Role = user.Role
	return ident, true
}

func (sm *SessionManager) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := sm.FromRequest(r)
		if !ok {
			deny(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, ident)))
	}
}

func (sm *SessionManager) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return sm.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if ident := IdentityFrom(r.Context()); ident == nil || ident.Role != "admin" {
			deny(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

func deny(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"message":%q,"code":%d}`+"\n", msg, code)
}

// IdentityFrom returns the authenticated identity, or nil outside the
// RequireAuth chain.
func IdentityFrom(ctx context.Context) *Identity {
	ident, _ := ctx.Value(contextKey{}).(*Identity)
	return ident
}
