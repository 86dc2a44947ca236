package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"storythingy/storyboard-api/internal/pipeline"
	"storythingy/storyboard-api/utils"
)

// ExportStoryboard stitches every scene's clip, in narration order, into
// one video and returns the binary. Requires all video stages completed.
// @Summary      Export the stitched storyboard video
// @Produce      video/mp4
// @Param        id path string true "Storyboard ID"
// @Success      200 {file} binary
// @Failure      409 {object} map[string]interface{}
// @Failure      502 {object} map[string]interface{}
// @Router       /storyboards/{id}/export [post]
func (h *ApplicationHandler) ExportStoryboard(c *fiber.Ctx) error {
	p, ok := h.lookup(c)
	if !ok {
		return nil
	}

	data, err := p.Export(c.Context())
	if err != nil {
		var incomplete *pipeline.IncompleteScenesError
		var fetchFailed *pipeline.FetchFailedError
		switch {
		case errors.As(err, &incomplete):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"status":        "error",
				"message":       "Not every scene has a completed video; re-animate the failed scenes first",
				"missing_count": incomplete.Missing,
			})
		case errors.As(err, &fetchFailed):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"status":      "error",
				"message":     fmt.Sprintf("Clip for scene %d is unavailable; re-animate it and export again", fetchFailed.SceneIndex),
				"scene_index": fetchFailed.SceneIndex,
			})
		case errors.Is(err, pipeline.ErrStageRunning):
			return utils.RespondWithError(c, fiber.StatusConflict, err.Error())
		default:
			h.Logger.WithError(err).WithField("storyboard_id", p.ID).Error("Export failed")
			return utils.RespondWithError(c, fiber.StatusInternalServerError, "Export failed")
		}
	}

	h.Logger.WithFields(map[string]interface{}{
		"storyboard_id": p.ID,
		"bytes":         len(data),
	}).Info("Storyboard exported")

	c.Set(fiber.HeaderContentType, "video/mp4")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="storyboard_%s.mp4"`, p.ID))
	return c.Status(fiber.StatusOK).Send(data)
}
