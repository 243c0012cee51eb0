package panel

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-depth/common"
)

// PanelBuilderOption is a functional option for configuring a Panel.
type PanelBuilderOption func(*panel)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) PanelBuilderOption {
	return func(p *panel) {
		p.logger = logger
	}
}

// WithInitialState sets the starting viewer toggle and light position. The light is clamped.
//
// Parameters:
//   - viewerActive: whether the viewer draws the final frame
//   - light: the starting light position
//
// Returns:
//   - PanelBuilderOption: option function to apply
func WithInitialState(viewerActive bool, light common.Vec3) PanelBuilderOption {
	return func(p *panel) {
		p.viewerActive = viewerActive
		p.light = light
	}
}

// WithStep sets how far one key press moves the light, 0.5 by default.
func WithStep(step float32) PanelBuilderOption {
	return func(p *panel) {
		p.step = step
	}
}
