package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"storythingy/storyboard-api/internal/pipeline"
	"storythingy/storyboard-api/utils"
)

// StartImageStageRequest selects which scenes the image stage covers.
type StartImageStageRequest struct {
	Scope string `json:"scope" validate:"omitempty,oneof=all retry"`
}

// StartImageStage kicks off image generation for the storyboard's scenes
// in the background. Progress is observed via GET .../progress.
// @Summary      Start the image generation stage
// @Accept       json
// @Produce      json
// @Param        id path string true "Storyboard ID"
// @Param        request body StartImageStageRequest false "Stage scope"
// @Success      202 {object} map[string]interface{}
// @Failure      409 {object} map[string]interface{}
// @Router       /storyboards/{id}/images [post]
func (h *ApplicationHandler) StartImageStage(c *fiber.Ctx) error {
	p, ok := h.lookup(c)
	if !ok {
		return nil
	}

	payload := new(StartImageStageRequest)
	if len(c.Body()) > 0 {
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
	}
	scope := pipeline.ScopeAll
	if payload.Scope == string(pipeline.ScopeRetry) {
		scope = pipeline.ScopeRetry
	}

	// Claim the stage before replying so a conflicting start gets its 409;
	// only the generation loop itself is detached from the request.
	run, err := p.StartImageStage(scope)
	if err != nil {
		if errors.Is(err, pipeline.ErrStageRunning) {
			return utils.RespondWithError(c, fiber.StatusConflict, err.Error())
		}
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not start image stage")
	}
	go func() {
		if err := run(context.Background()); err != nil {
			h.Logger.WithError(err).WithField("storyboard_id", p.ID).Error("Image stage ended batch-fatal")
		}
	}()

	h.Logger.WithFields(map[string]interface{}{
		"storyboard_id": p.ID,
		"scope":         scope,
	}).Info("Image stage started")
	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"storyboard_id": p.ID,
		"stage":         "images",
		"scope":         scope,
	})
}

// StartVideoStage kicks off video generation for every eligible scene
// (completed image, video not already generating or completed).
// @Summary      Start the video generation stage
// @Produce      json
// @Param        id path string true "Storyboard ID"
// @Success      202 {object} map[string]interface{}
// @Failure      409 {object} map[string]interface{}
// @Router       /storyboards/{id}/videos [post]
func (h *ApplicationHandler) StartVideoStage(c *fiber.Ctx) error {
	p, ok := h.lookup(c)
	if !ok {
		return nil
	}

	run, err := p.StartVideoStage()
	if err != nil {
		if errors.Is(err, pipeline.ErrStageRunning) {
			return utils.RespondWithError(c, fiber.StatusConflict, err.Error())
		}
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not start video stage")
	}
	go func() {
		if err := run(context.Background()); err != nil {
			h.Logger.WithError(err).WithField("storyboard_id", p.ID).Error("Video stage failed")
		}
	}()

	h.Logger.WithField("storyboard_id", p.ID).Info("Video stage started")
	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"storyboard_id": p.ID,
		"stage":         "videos",
	})
}

// GetProgress reports the batch state, per-scene statuses and, during an
// export, the stitcher's phase and percentage.
// @Summary      Poll pipeline progress
// @Produce      json
// @Param        id path string true "Storyboard ID"
// @Success      200 {object} pipeline.Progress
// @Router       /storyboards/{id}/progress [get]
func (h *ApplicationHandler) GetProgress(c *fiber.Ctx) error {
	p, ok := h.lookup(c)
	if !ok {
		return nil
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, p.Snapshot())
}
