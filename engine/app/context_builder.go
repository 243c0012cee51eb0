package app

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer"
)

// ContextBuilderOption is a functional option for configuring a Context.
type ContextBuilderOption func(*appContext)

// WithLogger sets the logger shared by every component of the context.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) ContextBuilderOption {
	return func(c *appContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRendererOptions appends options passed to renderer.NewRenderer after the defaults.
func WithRendererOptions(options ...renderer.RendererBuilderOption) ContextBuilderOption {
	return func(c *appContext) {
		c.rendererOptions = append(c.rendererOptions, options...)
	}
}
