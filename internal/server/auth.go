package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/dailies/internal/remote"
)

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

const userIDKey = "dailies_user_id"

// ErrNoSession means the request carried no usable session credential.
var ErrNoSession = errors.New("not signed in")

// Tokens issues and verifies HS256 session tokens whose subject is the
// user id.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens returns a token codec for secret.
func NewTokens(secret string) (*Tokens, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("jwt secret must be at least 16 bytes")
	}
	return &Tokens{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for userID valid for ttl.
func (t *Tokens) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("empty user id")
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the user id carried by a valid token.
func (t *Tokens) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("verify token: missing subject")
	}
	return claims.Subject, nil
}

// credential extracts the session token from the cookie or a bearer
// Authorization header.
func credential(c *gin.Context) string {
	if v, err := c.Cookie(remote.SessionCookie); err == nil && v != "" {
		return v
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// userFrom resolves the signed-in user for the request.
func (s *Server) userFrom(c *gin.Context) (string, error) {
	raw := credential(c)
	if raw == "" {
		return "", ErrNoSession
	}
	return s.tokens.Verify(raw)
}

// requireUser rejects requests without a valid session with 401.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := s.userFrom(c)
		if err != nil {
			s.logger.Debug("unauthenticated request", "path", c.FullPath(), "error", err)
			abortJSON(c, http.StatusUnauthorized, ErrNoSession)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
