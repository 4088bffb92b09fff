package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	UIFyne    = "fyne"
	UIHighGUI = "highgui"
)

type Config struct {
	UI            string
	FillColor     color.RGBA
	PreviewMax    int
	RenderTimeout time.Duration
	LogLevel      string
	LogFormat     string
}

func Default() *Config {
	return &Config{
		UI:            UIFyne,
		FillColor:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
		PreviewMax:    800,
		RenderTimeout: 30 * time.Second,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a config from a lookup function so tests can avoid the
// process environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()

	if v := getenv("EDGE_TUNER_UI"); v != "" {
		cfg.UI = strings.ToLower(v)
	}
	if v := getenv("EDGE_TUNER_FILL_COLOR"); v != "" {
		c, err := ParseColor(v)
		if err != nil {
			return nil, err
		}
		cfg.FillColor = c
	}
	if v := getenv("EDGE_TUNER_PREVIEW_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("EDGE_TUNER_PREVIEW_MAX: %w", err)
		}
		cfg.PreviewMax = n
	}
	if v := getenv("EDGE_TUNER_RENDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("EDGE_TUNER_RENDER_TIMEOUT: %w", err)
		}
		cfg.RenderTimeout = d
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.UI {
	case UIFyne, UIHighGUI:
	default:
		return fmt.Errorf("unknown ui %q, want %q or %q", c.UI, UIFyne, UIHighGUI)
	}
	if c.PreviewMax < 64 {
		return fmt.Errorf("preview size must be at least 64, got: %d", c.PreviewMax)
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("render timeout must be positive, got: %s", c.RenderTimeout)
	}
	return nil
}

// ParseColor accepts #rrggbb or #rgb.
func ParseColor(hex string) (color.RGBA, error) {
	hex = strings.TrimSpace(hex)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid fill color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
