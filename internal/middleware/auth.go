package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/health-risk-server/internal/domain"
)

const claimsKey = "auth_claims"

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the caller of an authenticated request.
type Claims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 tokens.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. A zero ttl defaults to 24h.
func NewAuthenticator(cfg domain.AuthConfig) *Authenticator {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// IssueToken signs a token for the user and role.
func (a *Authenticator) IssueToken(userID string, role domain.Role) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, domain.NewValidationError("userId", "user id is required", userID)
	}
	if !role.IsValid() {
		return "", time.Time{}, domain.NewValidationError("role", "unknown role", string(role))
	}

	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseToken verifies tok and returns its claims.
func (a *Authenticator) ParseToken(tok string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, ErrInvalidToken
}

// RequireAuth rejects requests without a valid bearer token. Browsers
// cannot set headers on websocket upgrades, so the access_token query
// parameter is accepted as well.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c)
		if !ok {
			abortAuth(c, http.StatusUnauthorized, domain.ErrAuthentication, "missing bearer token")
			return
		}
		claims, err := a.ParseToken(tok)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, domain.ErrAuthentication, "invalid or expired token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects authenticated callers without the given role. It must
// run after RequireAuth.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abortAuth(c, http.StatusUnauthorized, domain.ErrAuthentication, "missing bearer token")
			return
		}
		if claims.Role != role {
			abortAuth(c, http.StatusForbidden, domain.ErrForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by RequireAuth.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	if h := c.GetHeader("Authorization"); h != "" {
		if !strings.HasPrefix(h, "Bearer ") {
			return "", false
		}
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), true
	}
	if q := c.Query("access_token"); q != "" {
		return q, true
	}
	return "", false
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	e := domain.NewServiceError(code, msg, "", c.GetString(CorrelationIDKey))
	c.AbortWithStatusJSON(status, e)
}
