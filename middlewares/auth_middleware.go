package middlewares

import (
	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/services/auth"
	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// AuthMiddleware verifies the bearer token and stores the admin identity
// in Locals for later handlers.
func AuthMiddleware(gateway *auth.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := gateway.Verify(auth.BearerToken(c.Get(fiber.HeaderAuthorization)))
		if err != nil {
			return err
		}
		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// Identity returns the admin stored by AuthMiddleware.
func Identity(c *fiber.Ctx) (auth.Identity, error) {
	identity, ok := c.Locals(identityKey).(auth.Identity)
	if !ok || identity.AdminID == "" {
		return auth.Identity{}, apperrors.Unauthorized(apperrors.ReasonMissing, "Admin ID not found in token")
	}
	return identity, nil
}
