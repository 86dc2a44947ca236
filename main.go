package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"storythingy/storyboard-api/config"
	_ "storythingy/storyboard-api/docs"
	"storythingy/storyboard-api/handlers"
	"storythingy/storyboard-api/internal/archive"
	"storythingy/storyboard-api/internal/gateway"
	"storythingy/storyboard-api/internal/pipeline"
	"storythingy/storyboard-api/internal/segmenter"
	"storythingy/storyboard-api/internal/stitcher"
	"storythingy/storyboard-api/middleware"
)

// @title Storyboard API
// @version 1.0
// @description Turns a narration script into a stitched video: segmentation, image generation, video generation, export.
// @BasePath /api/v1
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	config.InitLogger()
	logger := config.Log

	gw := gateway.NewClient(cfg.Gateway.BaseURL, logger)
	gw.ImageModel = cfg.Gateway.ImageModel
	gw.VideoModel = cfg.Gateway.VideoModel
	gw.ChatModel = cfg.Gateway.ChatModel

	var archiver pipeline.Archiver
	if cfg.Archive.Enabled {
		ok, err := config.InitSupabase()
		if err != nil {
			log.Fatalf("Failed to initialize Supabase: %v", err)
		}
		if ok {
			archiver = archive.New(config.SupabaseClient, config.GetSupabaseURL(), cfg.Archive.Bucket, logger)
			logger.WithField("bucket", cfg.Archive.Bucket).Info("Export archive enabled")
		} else {
			logger.Warn("Archive enabled but Supabase environment not set; exports will not be archived")
		}
	}

	seg := segmenter.New(gateway.ChunkSource(gw, logger), logger)
	stitch := stitcher.New(cfg.Paths.WorkDir, logger)

	opts := gateway.GenOptions{
		Aspect: gateway.Aspect(cfg.Pipeline.AspectRatio),
		Style:  cfg.Pipeline.Style,
	}
	registry := pipeline.NewRegistry(func() *pipeline.Pipeline {
		return pipeline.New(pipeline.Config{
			Segmenter: seg,
			Gateway:   gw,
			Stitcher:  stitch,
			Archiver:  archiver,
			Opts:      opts,
			Limit:     cfg.Pipeline.Concurrency,
			CacheDir:  cfg.Paths.ClipCache,
			Log:       logger,
		})
	})

	handler := handlers.NewApplicationHandler(registry, logger, cfg.Pipeline.TargetSeconds)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Storyboard API is healthy",
		})
	})
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	apiV1 := app.Group("/api/v1")

	apiV1.Post("/storyboards", handler.CreateStoryboard)
	apiV1.Get("/storyboards/:id", handler.GetStoryboard)
	apiV1.Post("/storyboards/:id/images", handler.StartImageStage)
	apiV1.Post("/storyboards/:id/videos", handler.StartVideoStage)
	apiV1.Get("/storyboards/:id/progress", handler.GetProgress)
	apiV1.Post("/storyboards/:id/export", handler.ExportStoryboard)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.WithField("addr", addr).Info("Starting Storyboard API")
	log.Fatal(app.Listen(addr))
}
