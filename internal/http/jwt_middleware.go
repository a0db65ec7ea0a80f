package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quickchat/internal/domain"
	"quickchat/internal/service"
)

const (
	authClaimsKey = "auth_claims"
	authUserKey   = "auth_user"

	sessionTokenHeader = "token"
)

// UserLoader resuelve el usuario dueño de un session token.
type UserLoader interface {
	CurrentUser(ctx context.Context, userID string) (domain.User, error)
}

// JWTAuthMiddleware valida el session token (header token o Authorization
// Bearer), carga el usuario y lo deja en el contexto.
func JWTAuthMiddleware(jwtSvc *service.JWTService, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil || users == nil {
			fail(c, http.StatusInternalServerError, "auth not configured")
			return
		}

		token := sessionTokenFromRequest(c.Request)
		if token == "" {
			fail(c, http.StatusUnauthorized, "jwt must be provided")
			return
		}

		claims, err := jwtSvc.ParseSessionToken(token)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, service.ErrJWTExpired) {
				message = "Token expired"
			}
			fail(c, http.StatusUnauthorized, message)
			return
		}

		user, err := users.CurrentUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				fail(c, http.StatusUnauthorized, "User not found")
				return
			}
			fail(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		c.Set(authClaimsKey, claims)
		c.Set(authUserKey, user)
		c.Next()
	}
}

func sessionTokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(sessionTokenHeader)); token != "" {
		return token
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return ""
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

// GetAuthUser obtiene el usuario autenticado desde el contexto.
func GetAuthUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}
