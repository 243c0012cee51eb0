package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer sets a buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithBorrowedViews marks texture views and samplers as owned by someone else, so Release
// leaves them alive. Used for providers that bind cached depth textures.
//
// Returns:
//   - BindGroupProviderOption: a function that marks the provider's views as borrowed
func WithBorrowedViews() BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.ownsViews = false
	}
}
