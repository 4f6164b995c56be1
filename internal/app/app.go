package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/gribdef/internal/ctxlog"
	"github.com/vk/gribdef/internal/grib"

	// Accessor classes register themselves with the default registry.
	_ "github.com/vk/gribdef/internal/accessors"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	parser  grib.Parser
	context *grib.Context
}

// NewApp is the constructor for the main application. Decoded output goes to
// outW and logs to logW. The definitions context is shared by everything the
// app decodes.
func NewApp(outW, logW io.Writer, cfg *Config, parser grib.Parser) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	gctx := grib.NewContext(parser,
		grib.WithSearchPath(cfg.SearchPath()...),
		grib.WithBootFile(cfg.BootFile),
		grib.WithContextLogger(logger),
	)
	logger.Debug("Definitions context created.", "definitions", gctx.SearchPath(), "boot", cfg.BootFile)

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		parser:  parser,
		context: gctx,
	}
}

// Context returns the application's definitions context. This is primarily for testing.
func (a *App) Context() *grib.Context {
	return a.context
}

// Close releases the definitions caches.
func (a *App) Close() {
	a.context.Close()
}

func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
