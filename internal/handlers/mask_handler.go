package handlers

import (
	"smooth/internal/format"

	"github.com/gofiber/fiber/v2"
)

// MaskHandler formats raw input the way form fields do.
type MaskHandler struct{}

// NewMaskHandler creates a new MaskHandler.
func NewMaskHandler() *MaskHandler {
	return &MaskHandler{}
}

// RegisterRoutes registers the mask routes with the Fiber app.
func (h *MaskHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/masks/:kind", h.HandleApply)
}

type maskRequest struct {
	Value string `json:"value"`
}

// HandleApply masks the posted value with the mask named in the path.
func (h *MaskHandler) HandleApply(c *fiber.Ctx) error {
	var req maskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	value, err := format.Apply(format.Kind(c.Params("kind")), req.Value)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Unknown mask",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"value": value})
}
