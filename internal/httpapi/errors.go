package httpapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/roach88/wastelog/internal/waste"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Field   string `json:"field,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind waste.Kind) int {
	switch kind {
	case waste.KindValidation:
		return fiber.StatusBadRequest
	case waste.KindNotFound:
		return fiber.StatusNotFound
	case waste.KindOverRecycle, waste.KindIdentityCollision:
		return fiber.StatusConflict
	case waste.KindStorageFailure:
		return fiber.StatusInsufficientStorage
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var we *waste.Error
	if errors.As(err, &we) {
		if we.Kind == waste.KindStorageFailure {
			s.logger.Error("storage failure", "path", c.Path(), "error", err)
		}
		return c.Status(StatusFor(we.Kind)).JSON(errorBody{Error: errorDetail{
			Code:    string(we.Kind),
			Message: we.Message,
			ID:      we.ID,
			Field:   we.Field,
		}})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody{Error: errorDetail{
			Code:    statusCode(fe.Code),
			Message: fe.Message,
		}})
	}

	s.logger.Error("unexpected error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: errorDetail{
		Code:    statusCode(fiber.StatusInternalServerError),
		Message: "internal server error",
	}})
}

// statusCode turns an HTTP status into an error code, e.g. 401 -> UNAUTHORIZED.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(status), " ", "_"))
}
