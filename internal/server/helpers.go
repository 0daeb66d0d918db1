package server

import (
	"errors"

	"shopagg/internal/models"
	"shopagg/internal/service"
	"shopagg/internal/session"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	return param
}

// identity is the caller as the like ledger and city resolution see it.
func identity(c *fiber.Ctx) service.Identity {
	userID, _ := c.Locals("userID").(uint)
	return service.Identity{UserID: userID, Session: session.FromContext(c)}
}

// wantsPartial reports whether the caller asked for the "load more" fragment
// instead of a full page.
func wantsPartial(c *fiber.Ctx) bool {
	return c.XHR() || c.Query("partial") == "1"
}
