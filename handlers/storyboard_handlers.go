package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"storythingy/storyboard-api/internal/pipeline"
	"storythingy/storyboard-api/internal/segmenter"
	"storythingy/storyboard-api/utils"
)

// CreateStoryboardRequest is the JSON body for segmenting a new script.
type CreateStoryboardRequest struct {
	Script        string  `json:"script" validate:"required"`
	TargetSeconds float64 `json:"target_seconds" validate:"omitempty,gt=0"`
}

// CreateStoryboard segments a script into a storyboard of timed scenes.
// @Summary      Segment a script into a storyboard
// @Accept       json
// @Produce      json
// @Param        request body CreateStoryboardRequest true "Script to segment"
// @Success      201 {object} models.Storyboard
// @Failure      422 {object} map[string]interface{}
// @Router       /storyboards [post]
func (h *ApplicationHandler) CreateStoryboard(c *fiber.Ctx) error {
	payload := new(CreateStoryboardRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	target := payload.TargetSeconds
	if target == 0 {
		target = h.TargetSeconds
	}

	p := h.Registry.Create()
	sb, err := p.Segment(c.Context(), payload.Script, target)
	if err != nil {
		h.Registry.Remove(p.ID)
		var malformed *segmenter.MalformedSegmentationError
		if errors.As(err, &malformed) {
			return utils.RespondWithError(c, fiber.StatusUnprocessableEntity, malformed.Error())
		}
		h.Logger.WithError(err).Error("Segmentation failed")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not segment script")
	}

	h.Logger.WithFields(map[string]interface{}{
		"storyboard_id": sb.ID,
		"scenes":        len(sb.Scenes),
	}).Info("Storyboard created")
	return utils.RespondWithJSON(c, fiber.StatusCreated, sb)
}

// GetStoryboard returns a storyboard with per-scene stage statuses.
// @Summary      Fetch a storyboard
// @Produce      json
// @Param        id path string true "Storyboard ID"
// @Success      200 {object} models.Storyboard
// @Failure      404 {object} map[string]interface{}
// @Router       /storyboards/{id} [get]
func (h *ApplicationHandler) GetStoryboard(c *fiber.Ctx) error {
	p, ok := h.lookup(c)
	if !ok {
		return nil
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, p.Storyboard())
}

// lookup resolves the :id path param to a live pipeline. When it cannot,
// it writes the error response itself and returns ok=false.
func (h *ApplicationHandler) lookup(c *fiber.Ctx) (*pipeline.Pipeline, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		_ = utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid storyboard ID format")
		return nil, false
	}
	p, ok := h.Registry.Get(id)
	if !ok {
		_ = utils.RespondWithError(c, fiber.StatusNotFound, "Storyboard not found")
		return nil, false
	}
	return p, true
}
