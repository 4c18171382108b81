// Package logging wraps log/slog with the configuration surface used by the
// rest of the system: level, format, and output target selected from YAML.
// Loggers are obtained by name through the package-level manager so every
// component logs with a stable "module" attribute.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config selects how log records are rendered and where they go.
type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // json, text
	Output     string `yaml:"output"`      // stdout, stderr, file
	OutputPath string `yaml:"output_path"` // path when Output is "file"
	AddSource  bool   `yaml:"add_source"`
	TimeFormat string `yaml:"time_format"`
}

// Logger is a structured logger bound to one handler configuration.
type Logger struct {
	*slog.Logger
	config *Config
}

// NewLogger builds a logger from config; a nil config uses the defaults.
func NewLogger(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	handler, err := createHandler(config, parseLevel(config.Level))
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: slog.New(handler),
		config: config,
	}, nil
}

// DefaultConfig returns the configuration used before any file is loaded:
// info-level text records on stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "text",
		Output:     "stdout",
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func createHandler(config *Config, level slog.Level) (slog.Handler, error) {
	var writer *os.File
	var err error

	switch strings.ToLower(config.Output) {
	case "stderr":
		writer = os.Stderr
	case "file":
		if config.OutputPath == "" {
			config.OutputPath = "logs/stepcontrol.log"
		}
		if err := os.MkdirAll("logs", 0755); err != nil {
			return nil, err
		}
		writer, err = os.OpenFile(config.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
	default:
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	}

	if strings.ToLower(config.Format) == "json" {
		return slog.NewJSONHandler(writer, opts), nil
	}
	return slog.NewTextHandler(writer, opts), nil
}

// With returns a logger carrying additional attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
	}
}

// UpdateLevel rebuilds the handler with a new minimum level.
func (l *Logger) UpdateLevel(level string) {
	l.config.Level = level

	handler, err := createHandler(l.config, parseLevel(level))
	if err != nil {
		l.Error("Failed to update log level", "error", err)
		return
	}

	l.Logger = slog.New(handler)
}
