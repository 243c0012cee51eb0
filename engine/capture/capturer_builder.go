package capture

import "log/slog"

// CapturerBuilderOption is a functional option for configuring a Capturer.
type CapturerBuilderOption func(*capturer)

// WithLogger sets the structured logger.
//
// Parameters:
//   - logger: the logger, slog.Default() when unset
//
// Returns:
//   - CapturerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) CapturerBuilderOption {
	return func(c *capturer) {
		c.logger = logger
	}
}

// WithLabel sets the prefix of target and snapshot labels, "depth" by default.
func WithLabel(label string) CapturerBuilderOption {
	return func(c *capturer) {
		c.label = label
	}
}
