package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// settingsKey is used to store settings in context.
type settingsKey struct{}

// loggerKey is used to store logger in context.
type loggerKey struct{}

// Load loads settings from defaults, AO_* environment variables and flags.
// Precedence (highest to lowest): flags > env vars > defaults. Only flags that
// were explicitly set take part.
func Load(flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"project_dir": DefaultProjectDir,
		"verbose":     false,
		"output":      DefaultOutput,
		"timeout":     "0s",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load environment variables (AO_ prefix)
	// Transform: AO_PROJECT_DIR -> project_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 3. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if f.Value.Type() == "duration" {
				return key, f.Value.String()
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}
	s.Output = strings.ToLower(s.Output)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// NewLogger creates the CLI logger: warnings and errors only, or everything
// down to debug level when verbose.
func NewLogger(s *Settings, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if s != nil && s.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithSettings returns a copy of ctx carrying s.
func WithSettings(ctx context.Context, s *Settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

// GetSettings retrieves the settings from the command context.
func GetSettings(ctx context.Context) *Settings {
	if s, ok := ctx.Value(settingsKey{}).(*Settings); ok {
		return s
	}
	// Return defaults as safe fallback
	return &Settings{ProjectDir: DefaultProjectDir, Output: DefaultOutput}
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
