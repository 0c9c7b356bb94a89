// Package config holds the settings shared by the t8 tools.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/Urethramancer/t8/assembler"
	"github.com/Urethramancer/t8/symtab"
)

// Environment variables read by FromEnv.
const (
	EnvSymbolCapacity  = "T8_SYMBOL_CAPACITY"
	EnvResizeThreshold = "T8_RESIZE_THRESHOLD"
	EnvResizeRate      = "T8_RESIZE_RATE"
	EnvLogLevel        = "T8_LOG_LEVEL"
	EnvLogFormat       = "T8_LOG_FORMAT"
	EnvSymbols         = "T8_SYMBOLS"
	EnvOutput          = "T8_OUTPUT"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the run configuration.
type Config struct {
	// SymbolCapacity is the initial slot count of the symbol table.
	SymbolCapacity  int
	ResizeThreshold float64
	ResizeRate      float64
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string
	// LogFormat is text or json.
	LogFormat string
	// Symbols asks for a symbol table dump after assembly.
	Symbols bool
	// Output is the destination file. Empty means derive it from the input.
	Output string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SymbolCapacity:  64,
		ResizeThreshold: symtab.DefaultResizeThreshold,
		ResizeRate:      symtab.DefaultResizeRate,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// FromEnv returns the defaults overridden by any T8_* variables that are set.
func FromEnv() Config {
	d := Default()
	return Config{
		SymbolCapacity:  env.Int(EnvSymbolCapacity, d.SymbolCapacity),
		ResizeThreshold: env.Float64(EnvResizeThreshold, d.ResizeThreshold),
		ResizeRate:      env.Float64(EnvResizeRate, d.ResizeRate),
		LogLevel:        strings.ToLower(env.Str(EnvLogLevel, d.LogLevel)),
		LogFormat:       strings.ToLower(env.Str(EnvLogFormat, d.LogFormat)),
		Symbols:         env.Bool(EnvSymbols),
		Output:          env.Str(EnvOutput),
	}
}

// Validate checks the numeric limits and the logging choices.
func (c Config) Validate() error {
	switch {
	case c.SymbolCapacity < 1:
		return fmt.Errorf("%w: symbol capacity %d", ErrInvalid, c.SymbolCapacity)
	case c.ResizeThreshold <= 0 || c.ResizeThreshold > 1:
		return fmt.Errorf("%w: resize threshold %g not in (0,1]", ErrInvalid, c.ResizeThreshold)
	case c.ResizeRate <= 1:
		return fmt.Errorf("%w: resize rate %g must exceed 1", ErrInvalid, c.ResizeRate)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// SymtabOptions converts the table settings.
func (c Config) SymtabOptions() []symtab.Option {
	return []symtab.Option{
		symtab.WithCapacity(c.SymbolCapacity),
		symtab.WithResizeThreshold(c.ResizeThreshold),
		symtab.WithResizeRate(c.ResizeRate),
	}
}

// Symtab builds an empty symbol table from the configuration.
func (c Config) Symtab() (*symtab.Table[uint64], error) {
	return symtab.New[uint64](c.SymtabOptions()...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "trace":
		return assembler.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
}

// Logger returns a logger writing to w in the configured format and level.
// Call Validate first; an unknown level falls back to info.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
