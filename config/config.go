package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from config.yaml. Secrets
// (gateway API key, Supabase credentials) come from the environment, not
// the file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Paths    PathsConfig    `yaml:"paths"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type GatewayConfig struct {
	BaseURL    string `yaml:"base_url"`
	ImageModel string `yaml:"image_model"`
	VideoModel string `yaml:"video_model"`
	ChatModel  string `yaml:"chat_model"`
}

type PipelineConfig struct {
	Concurrency   int     `yaml:"concurrency"`
	AspectRatio   string  `yaml:"aspect_ratio"`
	Style         string  `yaml:"style"`
	TargetSeconds float64 `yaml:"target_seconds"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
}

type PathsConfig struct {
	ClipCache string `yaml:"clip_cache"`
	WorkDir   string `yaml:"work_dir"`
}

// Load reads the YAML config and applies defaults for anything unset.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 3
	}
	if cfg.Pipeline.AspectRatio == "" {
		cfg.Pipeline.AspectRatio = "9:16"
	}
	if cfg.Pipeline.TargetSeconds == 0 {
		cfg.Pipeline.TargetSeconds = 60
	}
	if cfg.Archive.Bucket == "" {
		cfg.Archive.Bucket = "storyboard-exports"
	}
	if cfg.Paths.ClipCache == "" {
		cfg.Paths.ClipCache = "./data/clips"
	}
	if cfg.Paths.WorkDir == "" {
		cfg.Paths.WorkDir = "./data/work"
	}
	return cfg, nil
}
