package config

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)
	require.Equal(t, UIFyne, cfg.UI)
	require.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, cfg.FillColor)
	require.Equal(t, 800, cfg.PreviewMax)
	require.Equal(t, 30*time.Second, cfg.RenderTimeout)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"EDGE_TUNER_UI":             "HighGUI",
		"EDGE_TUNER_FILL_COLOR":     "#ff8000",
		"EDGE_TUNER_PREVIEW_MAX":    "512",
		"EDGE_TUNER_RENDER_TIMEOUT": "5s",
		"LOG_LEVEL":                 "debug",
		"LOG_FORMAT":                "json",
	}))
	require.NoError(t, err)
	require.Equal(t, UIHighGUI, cfg.UI)
	require.Equal(t, color.RGBA{R: 255, G: 128, B: 0, A: 255}, cfg.FillColor)
	require.Equal(t, 512, cfg.PreviewMax)
	require.Equal(t, 5*time.Second, cfg.RenderTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"ui":      {"EDGE_TUNER_UI": "tk"},
		"color":   {"EDGE_TUNER_FILL_COLOR": "#zzzzzz"},
		"preview": {"EDGE_TUNER_PREVIEW_MAX": "tiny"},
		"small":   {"EDGE_TUNER_PREVIEW_MAX": "10"},
		"timeout": {"EDGE_TUNER_RENDER_TIMEOUT": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			require.Error(t, err)
		})
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("00ff00")
	require.NoError(t, err)
	require.Equal(t, color.RGBA{G: 255, A: 255}, c)

	c, err = ParseColor("#fff")
	require.NoError(t, err)
	require.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, c)
}
