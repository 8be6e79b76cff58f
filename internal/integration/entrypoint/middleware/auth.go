// Package middleware provides HTTP middleware for the API endpoints.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/application/adapter"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
	"github.com/propertyledger/backend/internal/integration/entrypoint/dto"
)

// ClaimsKey is the gin context key holding the caller's *adapter.TokenClaims.
const ClaimsKey = "ledger.claims"

// bearerChallenge is sent with every 401 so clients know which token to fetch.
const bearerChallenge = `Bearer realm="property-ledger"`

// AuthMiddleware verifies bearer tokens issued by the identity service. Every
// ledger route checks property ownership against the caller it attaches.
type AuthMiddleware struct {
	tokenService adapter.TokenService
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(tokenService adapter.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// Authenticate rejects requests without a usable bearer token and attaches
// the verified claims for the ownership checks downstream.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			code := domainerror.ErrCodeInvalidToken
			if errors.Is(err, domainerror.ErrMissingToken) {
				code = domainerror.ErrCodeMissingToken
			}
			reject(c, code, err.Error())
			return
		}

		claims, err := m.tokenService.ValidateAccessToken(c.Request.Context(), token)
		switch {
		case errors.Is(err, domainerror.ErrExpiredToken):
			reject(c, domainerror.ErrCodeExpiredToken, "token has expired")
			return
		case err != nil:
			reject(c, domainerror.ErrCodeInvalidToken, "token could not be verified")
			return
		case claims.UserID == uuid.Nil:
			// Ownership checks need a subject; a token without one owns nothing.
			reject(c, domainerror.ErrCodeInvalidToken, "token has no subject")
			return
		}

		SetClaims(c, claims)
		c.Next()
	}
}

// bearerToken extracts the credentials of a Bearer authorization header. The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", domainerror.ErrMissingToken
	}
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("authorization scheme must be Bearer")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domainerror.ErrMissingToken
	}
	return token, nil
}

func reject(c *gin.Context, code domainerror.AuthErrorCode, message string) {
	slog.Warn("Rejected unauthenticated request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"code", code,
		"reason", message,
	)
	c.Header("WWW-Authenticate", bearerChallenge)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error: message,
		Code:  string(code),
	})
}

// SetClaims attaches verified claims to the request.
func SetClaims(c *gin.Context, claims *adapter.TokenClaims) {
	c.Set(ClaimsKey, claims)
}

// GetClaimsFromContext returns the claims attached by Authenticate.
func GetClaimsFromContext(c *gin.Context) (*adapter.TokenClaims, bool) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*adapter.TokenClaims)
	return claims, ok && claims != nil
}

// GetUserIDFromContext returns the caller whose property ownership the
// handlers check.
func GetUserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	claims, ok := GetClaimsFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}
