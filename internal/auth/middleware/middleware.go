package auth

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hackmathlogic/hackmath/internal/rbac"
)

// SessionCookie carries the token for browser clients.
const SessionCookie = "session"

type AuthService struct {
	hmac []byte
	ttl  time.Duration
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &AuthService{hmac: []byte(secret), ttl: ttl}
}

func (a *AuthService) TTL() time.Duration { return a.ttl }

// Claims identify an account; the role is never taken from the token.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject.
func (c *Claims) UserID() (int64, bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	return id, err == nil && id > 0
}

func (a *AuthService) IssueJWT(userID int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    "hackmath",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// TokenFromRequest reads a bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate marks the request as authenticated when it carries a valid,
// unrevoked token. Requests without one pass through anonymously; the access
// gate decides what they may do.
func Authenticate(a *AuthService, rev Revoker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := a.verify(r.Context(), TokenFromRequest(r), rev)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			uid, _ := claims.UserID()
			ctx := WithClaims(r.Context(), claims)
			ctx = rbac.WithPrincipal(ctx, rbac.Principal{Authenticated: true, UserID: uid})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *AuthService) verify(ctx context.Context, tok string, rev Revoker) (*Claims, bool) {
	if tok == "" {
		return nil, false
	}
	claims, err := a.Parse(tok)
	if err != nil {
		return nil, false
	}
	if _, ok := claims.UserID(); !ok {
		return nil, false
	}
	if rev != nil && claims.ID != "" {
		revoked, err := rev.IsRevoked(ctx, claims.ID)
		if err != nil {
			log.Printf("revocation check: %v", err)
			return nil, false
		}
		if revoked {
			return nil, false
		}
	}
	return claims, true
}
