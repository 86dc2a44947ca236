package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"storythingy/storyboard-api/internal/pipeline"
)

var validate = validator.New()

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Registry      *pipeline.Registry
	Logger        *logrus.Logger
	TargetSeconds float64
}

// NewApplicationHandler creates an ApplicationHandler with the given dependencies.
func NewApplicationHandler(registry *pipeline.Registry, logger *logrus.Logger, targetSeconds float64) *ApplicationHandler {
	return &ApplicationHandler{
		Registry:      registry,
		Logger:        logger,
		TargetSeconds: targetSeconds,
	}
}
