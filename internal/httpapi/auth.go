package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/roach88/wastelog/internal/identity"
)

// authenticate attaches the caller identity to the request context. With
// an issuer configured, a valid "Bearer <token>" header is required.
func (s *Server) authenticate(c *fiber.Ctx) error {
	id := s.opts.DefaultIdentity

	if s.opts.Issuer != nil {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}
		parsed, err := s.opts.Issuer.Parse(strings.TrimSpace(token))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		id = parsed
	}

	c.SetUserContext(identity.NewContext(c.UserContext(), id))
	return c.Next()
}
