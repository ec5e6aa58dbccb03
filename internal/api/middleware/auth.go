package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	domain "training-enrollment/internal/domain/enrollment"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const requesterKey = "requester"

// Header fallbacks used only when token auth is disabled
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carries the caller identity. Subject holds the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth turns bearer tokens into a domain.Requester on the gin context
type Auth struct {
	secret   []byte
	disabled bool
}

func NewAuth(secret string, disabled bool) *Auth {
	return &Auth{secret: []byte(secret), disabled: disabled}
}

// IssueToken signs an HS256 token for the requester
func IssueToken(secret string, requester domain.Requester, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: string(requester.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   requester.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (a *Auth) Verify(tokenString string) (domain.Requester, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return domain.Requester{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Requester{}, ErrInvalidToken
	}

	return parseRequester(claims.Subject, claims.Role)
}

// Authenticate rejects requests without a valid identity
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			requester domain.Requester
			err       error
		)

		if a.disabled {
			requester, err = parseRequester(c.GetHeader(HeaderUserID), c.GetHeader(HeaderUserRole))
		} else {
			header := c.GetHeader("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				err = ErrMissingToken
			} else {
				requester, err = a.Verify(strings.TrimPrefix(header, "Bearer "))
			}
		}

		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthorized",
				"errors":  err.Error(),
			})
			return
		}

		c.Set(requesterKey, requester)
		c.Next()
	}
}

// RequireRole allows only the listed roles through. Admins always pass.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, ok := RequesterFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		if requester.IsAdmin() {
			c.Next()
			return
		}
		for _, role := range roles {
			if requester.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": fmt.Sprintf("role %s is not allowed", requester.Role),
		})
	}
}

func RequesterFrom(c *gin.Context) (domain.Requester, bool) {
	value, ok := c.Get(requesterKey)
	if !ok {
		return domain.Requester{}, false
	}
	requester, ok := value.(domain.Requester)
	return requester, ok
}

func parseRequester(subject, role string) (domain.Requester, error) {
	userID, err := uuid.Parse(subject)
	if err != nil {
		return domain.Requester{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	r := domain.Role(strings.ToLower(role))
	switch r {
	case domain.RoleStudent, domain.RoleTrainer, domain.RoleAdmin:
	default:
		return domain.Requester{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role)
	}

	return domain.Requester{UserID: userID, Role: r}, nil
}
