package middleware

import (
	"context"
	"errors"
	"strings"

	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const authLocalsKey = "auth"

// TokenVerifier verifies an access token and returns the caller identity
type TokenVerifier interface {
	VerifyAccess(token string) (domain.AuthContext, error)
}

// PermissionLoader loads a user's stored permissions. Only services that
// own the user store provide one.
type PermissionLoader interface {
	PermissionsFor(ctx context.Context, userID uint) ([]string, error)
}

// RequireAuth rejects requests without a valid bearer token and attaches
// the caller's AuthContext to the request.
func RequireAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth, err := verifier.VerifyAccess(bearerToken(c))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenMissing):
				return response.Unauthorized(c, "Access token required")
			case errors.Is(err, domain.ErrTokenExpired):
				return response.Unauthorized(c, "Access token expired")
			default:
				return response.Unauthorized(c, "Invalid access token")
			}
		}

		setAuth(c, auth)
		return c.Next()
	}
}

// RequirePermission allows the request when the caller holds any of perms.
// When the token carries no permissions at all and loader is not nil, the
// stored permissions are used instead.
func RequirePermission(loader PermissionLoader, perms ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth, ok := Auth(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		if len(auth.Permissions) == 0 && loader != nil {
			stored, err := loader.PermissionsFor(c.UserContext(), auth.UserID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return response.FromError(c, err)
			}
			auth.Permissions = stored
			setAuth(c, auth)
		}

		for _, p := range perms {
			if auth.HasPermission(p) {
				return c.Next()
			}
		}
		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// Auth returns the AuthContext attached by RequireAuth
func Auth(c *fiber.Ctx) (domain.AuthContext, bool) {
	auth, ok := c.Locals(authLocalsKey).(domain.AuthContext)
	return auth, ok
}

func setAuth(c *fiber.Ctx, auth domain.AuthContext) {
	c.Locals(authLocalsKey, auth)
	c.SetUserContext(domain.WithAuthContext(c.UserContext(), auth))
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
