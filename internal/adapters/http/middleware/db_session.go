package middleware

import (
	"loanbook/internal/adapters/persistence/repositories"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DBSession pins one pooled connection for the whole request and releases
// it when the handler chain returns, whatever the outcome.
func DBSession(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return db.WithContext(c.UserContext()).Connection(func(session *gorm.DB) error {
			c.SetUserContext(repositories.WithSession(c.UserContext(), session))
			return c.Next()
		})
	}
}
