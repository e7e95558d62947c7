package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"appserver/pkg/logger"
)

const (
	// RequestIDHeader is the standard header name used to propagate request IDs.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is the key used to store the request ID in Fiber's context locals.
	RequestIDLocalKey = "request_id"
)

// RequestID ensures every request has a request ID.
//
// Behavior:
// - Reads X-Request-ID from the incoming request header, generating a UUID when missing.
// - Stores it in Fiber locals under RequestIDLocalKey and echoes it in the response header.
// - Attaches a logger carrying request_id to the request's user context.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)
		c.SetUserContext(logger.WithFields(c.UserContext(), zap.String("request_id", id)))

		return c.Next()
	}
}

// RequestIDFromCtx returns the ID stored by RequestID, or "".
func RequestIDFromCtx(c *fiber.Ctx) string {
	if s, ok := c.Locals(RequestIDLocalKey).(string); ok {
		return s
	}
	return ""
}
