package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/roach88/wastelog/internal/waste"
)

type recycleRequest struct {
	RecycledQuantity waste.Optional[float64] `json:"recycledQuantity"`
}

// POST /api/waste-entries
func (s *Server) createEntry(c *fiber.Ctx) error {
	var p waste.Payload
	if err := c.BodyParser(&p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	e, err := s.svc.Create(c.UserContext(), p)
	if err != nil {
		return err
	}
	c.Location("/api/waste-entries/" + e.ID)
	return s.sendEntry(c.Status(fiber.StatusCreated), e)
}

// GET /api/waste-entries
func (s *Server) listEntries(c *fiber.Ctx) error {
	entries, err := s.svc.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return sendList(c, entries)
}

// GET /api/waste-entries/verified
func (s *Server) listVerified(c *fiber.Ctx) error {
	entries, err := s.svc.ListVerified(c.UserContext())
	if err != nil {
		return err
	}
	return sendList(c, entries)
}

// GET /api/waste-entries/stats
func (s *Server) stats(c *fiber.Ctx) error {
	st, err := s.svc.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// GET /api/waste-entries/:id
func (s *Server) getEntry(c *fiber.Ctx) error {
	e, err := s.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return s.sendEntry(c, e)
}

// PUT /api/waste-entries/:id
func (s *Server) updateEntry(c *fiber.Ctx) error {
	var p waste.Payload
	if err := c.BodyParser(&p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	e, err := s.svc.Update(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return err
	}
	return s.sendEntry(c, e)
}

// DELETE /api/waste-entries/:id
func (s *Server) deleteEntry(c *fiber.Ctx) error {
	e, err := s.svc.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(e)
}

// POST /api/waste-entries/:id/verify
func (s *Server) verifyEntry(c *fiber.Ctx) error {
	e, err := s.svc.Verify(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return s.sendEntry(c, e)
}

// POST /api/waste-entries/:id/recycle
func (s *Server) recycleEntry(c *fiber.Ctx) error {
	var req recycleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	amount, ok := req.RecycledQuantity.Get()
	if !ok {
		return waste.NewValidationError("recycledQuantity", "recycledQuantity is required")
	}

	e, err := s.svc.Recycle(c.UserContext(), c.Params("id"), amount)
	if err != nil {
		return err
	}
	return s.sendEntry(c, e)
}

// sendEntry writes e with its canonical digest as ETag. A matching
// If-None-Match on a GET yields 304.
func (s *Server) sendEntry(c *fiber.Ctx, e waste.Entry) error {
	digest, err := waste.Digest(e)
	if err != nil {
		return err
	}
	etag := `"` + digest + `"`
	c.Set(fiber.HeaderETag, etag)

	if c.Method() == fiber.MethodGet && c.Get(fiber.HeaderIfNoneMatch) == etag {
		return c.SendStatus(fiber.StatusNotModified)
	}
	return c.JSON(e)
}

// sendList renders an empty result as [] rather than null.
func sendList(c *fiber.Ctx, entries []waste.Entry) error {
	if entries == nil {
		entries = []waste.Entry{}
	}
	return c.JSON(entries)
}
