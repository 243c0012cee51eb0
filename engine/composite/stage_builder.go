package composite

import "log/slog"

// StageBuilderOption is a functional option for configuring a Stage.
type StageBuilderOption func(*stage)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(logger *slog.Logger) StageBuilderOption {
	return func(s *stage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGroup sets the bind group index of the composite resources.
//
// Parameters:
//   - group: the bind group index, must not collide with the camera (0) or surface (1) groups
//
// Returns:
//   - StageBuilderOption: functional option to set the group
func WithGroup(group int) StageBuilderOption {
	return func(s *stage) {
		s.group = group
	}
}
