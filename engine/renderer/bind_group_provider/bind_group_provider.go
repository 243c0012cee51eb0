package bind_group_provider

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label added for convenience.
	label string

	// bindGroups holds one bind group per pipeline key. Layouts reflected from different
	// shaders may differ in visibility, so a bind group is only reused with the pipeline it
	// was created for.
	bindGroups map[string]*wgpu.BindGroup
	// generation is the source generation the bind groups were created for.
	generation uint64

	buffers      map[int]*wgpu.Buffer
	textureViews map[int]*wgpu.TextureView
	samplers     map[int]*wgpu.Sampler

	// ownsViews is false when texture views and samplers are borrowed from a cache.
	ownsViews bool

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

// BindGroupProvider holds the GPU resources behind one logical bind group: a camera, a surface,
// a mesh or the composite program. The backend creates the buffers once and creates a bind
// group lazily for each pipeline that binds it.
//
// Usage pattern:
//  1. Backend creates a BindGroupProvider and stores buffers, views and samplers on it
//  2. Backend writes uniform data through BufferWrite
//  3. Backend calls BindGroup(pipelineKey) and creates the bind group on a miss
//  4. When the bound resources change, InvalidateBindGroups drops every cached bind group
type BindGroupProvider interface {
	// Release releases every GPU resource held by this provider. Borrowed texture views and
	// samplers are left alone.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the bind group created for a pipeline, or nil.
	//
	// Parameters:
	//   - pipelineKey: the key of the pipeline the group is bound with
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup(pipelineKey string) *wgpu.BindGroup

	// SetBindGroup stores the bind group created for a pipeline.
	//
	// Parameters:
	//   - pipelineKey: the key of the pipeline the group is bound with
	//   - bg: the created bind group
	SetBindGroup(pipelineKey string, bg *wgpu.BindGroup)

	// InvalidateBindGroups releases every cached bind group and records the new source generation.
	//
	// Parameters:
	//   - generation: the generation of the resources that will be bound next
	InvalidateBindGroups(generation uint64)

	// Generation returns the generation passed to the last InvalidateBindGroups call.
	Generation() uint64

	Buffer(binding int) *wgpu.Buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	TextureView(binding int) *wgpu.TextureView
	SetTextureView(binding int, tv *wgpu.TextureView)

	Sampler(binding int) *wgpu.Sampler
	SetSampler(binding int, s *wgpu.Sampler)

	VertexBuffer() *wgpu.Buffer
	SetVertexBuffer(buf *wgpu.Buffer)
	IndexBuffer() *wgpu.Buffer
	SetIndexBuffer(buf *wgpu.Buffer)

	// IndexCount returns the number of indices for draw calls.
	IndexCount() int
	SetIndexCount(count int)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label used for every GPU object created for this provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:           &sync.Mutex{},
		label:        label,
		bindGroups:   make(map[string]*wgpu.BindGroup),
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
		ownsViews:    true,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup(pipelineKey string) *wgpu.BindGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroups[pipelineKey]
}

func (p *bindGroupProvider) SetBindGroup(pipelineKey string, bg *wgpu.BindGroup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old := p.bindGroups[pipelineKey]; old != nil && old != bg {
		old.Release()
	}
	p.bindGroups[pipelineKey] = bg
}

func (p *bindGroupProvider) InvalidateBindGroups(generation uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, bg := range p.bindGroups {
		bg.Release()
		delete(p.bindGroups, key)
	}
	p.generation = generation
}

func (p *bindGroupProvider) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textureViews[binding]
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samplers[binding] = s
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer) {
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, bg := range p.bindGroups {
		bg.Release()
		delete(p.bindGroups, key)
	}
	if p.ownsViews {
		for i, tv := range p.textureViews {
			if tv != nil {
				tv.Release()
			}
			delete(p.textureViews, i)
		}
		for i, s := range p.samplers {
			if s != nil {
				s.Release()
			}
			delete(p.samplers, i)
		}
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}

	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
}
