// Package config loads cc-trace settings from a TOML file, falling back
// to defaults when the file is absent and warning on unknown keys.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Display DisplayConfig
	Render  RenderConfig
}

// DisplayConfig controls the live activity trace.
type DisplayConfig struct {
	EventBufferSize int  `toml:"event_buffer_size"`
	MaxWidth        int  `toml:"max_width"`
	ActivityStyling bool `toml:"activity_styling"`
}

// RenderConfig controls the post-turn transcript and summary views.
type RenderConfig struct {
	Mode          string `toml:"mode"`           // auto, document, or plain
	MarkdownStyle string `toml:"markdown_style"` // auto, dark, or light
	MaxBodyLines  int    `toml:"max_body_lines"`
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

func DefaultConfig() Config {
	return Config{
		Display: DisplayConfig{
			EventBufferSize: 2048,
			MaxWidth:        120,
			ActivityStyling: true,
		},
		Render: RenderConfig{
			Mode:          "auto",
			MarkdownStyle: "auto",
			MaxBodyLines:  14,
		},
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cc-trace", "config.toml")
}

func Load() (*LoadResult, error) {
	return LoadFrom(defaultConfigPath())
}

func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			return &LoadResult{Config: cfg}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromString(string(data))
}

func LoadFromString(data string) (*LoadResult, error) {
	cfg := DefaultConfig()
	result := &LoadResult{Config: cfg}

	if data == "" {
		return result, nil
	}

	var raw map[string]any
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	knownTopLevel := map[string]bool{
		"display": true,
		"render":  true,
	}
	for key := range raw {
		if !knownTopLevel[key] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key))
		}
	}

	var tf tomlFile
	if _, err := toml.Decode(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	mergeFromRaw(&result.Config, &tf, raw)

	if err := validate(&result.Config); err != nil {
		return nil, err
	}

	return result, nil
}

type tomlFile struct {
	Display *DisplayConfig `toml:"display"`
	Render  *RenderConfig  `toml:"render"`
}

// mergeFromRaw applies only the keys actually present in the file, so a
// partial config keeps defaults for everything it does not mention.
func mergeFromRaw(cfg *Config, tf *tomlFile, raw map[string]any) {
	if tf.Display != nil {
		if section, ok := rawSection(raw, "display"); ok {
			if _, exists := section["event_buffer_size"]; exists {
				cfg.Display.EventBufferSize = tf.Display.EventBufferSize
			}
			if _, exists := section["max_width"]; exists {
				cfg.Display.MaxWidth = tf.Display.MaxWidth
			}
			if _, exists := section["activity_styling"]; exists {
				cfg.Display.ActivityStyling = tf.Display.ActivityStyling
			}
		}
	}
	if tf.Render != nil {
		if section, ok := rawSection(raw, "render"); ok {
			if _, exists := section["mode"]; exists {
				cfg.Render.Mode = tf.Render.Mode
			}
			if _, exists := section["markdown_style"]; exists {
				cfg.Render.MarkdownStyle = tf.Render.MarkdownStyle
			}
			if _, exists := section["max_body_lines"]; exists {
				cfg.Render.MaxBodyLines = tf.Render.MaxBodyLines
			}
		}
	}
}

func rawSection(raw map[string]any, key string) (map[string]any, bool) {
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Display.EventBufferSize < 1 {
		errs = append(errs, fmt.Sprintf("event_buffer_size must be positive, got %d", cfg.Display.EventBufferSize))
	}
	if cfg.Display.MaxWidth < 40 {
		errs = append(errs, fmt.Sprintf("max_width must be at least 40, got %d", cfg.Display.MaxWidth))
	}

	switch cfg.Render.Mode {
	case "auto", "document", "plain":
	default:
		errs = append(errs, fmt.Sprintf("render mode must be auto, document, or plain, got %q", cfg.Render.Mode))
	}
	switch cfg.Render.MarkdownStyle {
	case "auto", "dark", "light":
	default:
		errs = append(errs, fmt.Sprintf("markdown_style must be auto, dark, or light, got %q", cfg.Render.MarkdownStyle))
	}
	if cfg.Render.MaxBodyLines < 1 {
		errs = append(errs, fmt.Sprintf("max_body_lines must be positive, got %d", cfg.Render.MaxBodyLines))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}
