package rayid

import (
	"syncstore/core/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// Header carries the request id in requests and responses.
	Header = "X-Ray-ID"
	// Local is the fiber local holding the request id.
	Local = logger.RayIDKey
)

// New assigns a request id to every request. An id sent by the client is kept.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(Header)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals(Local, rid)
		c.Set(Header, rid)
		return c.Next()
	}
}
