package renderer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/light"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-depth/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// Bind group indices shared by the built-in programs.
const (
	cameraGroup  = 0
	surfaceGroup = 1
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	logger *slog.Logger

	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        wgpu.TextureFormat
	width                int
	height               int
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode         wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount         MSAASampleCount  // MSAA sample count of the final frame
	depthTextureSupport bool

	surfaceShader   shader.Shader
	depthOnlyShader shader.Shader
	pipelines       map[string]pipeline.Pipeline

	meshes        map[*scene.Mesh]bind_group_provider.BindGroupProvider
	surfaceGroups map[*scene.Surface]bind_group_provider.BindGroupProvider
	captureCamera bind_group_provider.BindGroupProvider
	frameCamera   bind_group_provider.BindGroupProvider

	// Composite program state. Depth textures are bound through gpuDepth views: snapshots carry
	// their own, other textures are uploaded once and cached by ID.
	composite       bind_group_provider.BindGroupProvider
	compositeIDs    []uint64
	compositeShader shader.Shader
	uploads         map[uint64]*gpuDepth
	nearestSampler  *wgpu.Sampler
	diffuseTexture  *wgpu.Texture
	diffuseView     *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(logger *slog.Logger, surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount, depthTextureSupport bool, depthType texture.DepthType) *wgpuRendererBackendImpl {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:              &sync.Mutex{},
		logger:          logger,
		instance:        wgpu.CreateInstance(nil),
		presentMode:     wgpu.PresentModeImmediate,
		sampleCount:     sampleCount,
		surfaceShader:   shader.MustShader(shader.KeySurface, shader.SurfaceSource),
		depthOnlyShader: shader.MustShader(shader.KeyDepthOnly, shader.DepthOnlySource),
		pipelines:       make(map[string]pipeline.Pipeline),
		meshes:          make(map[*scene.Mesh]bind_group_provider.BindGroupProvider),
		surfaceGroups:   make(map[*scene.Surface]bind_group_provider.BindGroupProvider),
		uploads:         make(map[uint64]*gpuDepth),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	b.depthTextureSupport = depthTextureSupport && b.probeDepthTexture(depthType)
	if err := b.initSharedResources(); err != nil {
		panic(err)
	}
	return b
}

// probeDepthTexture checks that a depth attachment of the given type can also be sampled and copied.
func (b *wgpuRendererBackendImpl) probeDepthTexture(t texture.DepthType) bool {
	tex, err := b.device.CreateTexture(depthProbeDescriptor(t))
	if err != nil {
		b.logger.Warn("depth textures unavailable", "depth_type", t.String(), "error", err)
		return false
	}
	tex.Release()
	return true
}

// initSharedResources creates the camera buffers, the nearest sampler and the 1x1 diffuse placeholder.
func (b *wgpuRendererBackendImpl) initSharedResources() error {
	cameraSize := uint64((&camera.GPUCameraUniform{}).Size())
	lightSize := uint64((&light.GPULight{}).Size())

	b.captureCamera = bind_group_provider.NewBindGroupProvider("Capture Camera")
	b.frameCamera = bind_group_provider.NewBindGroupProvider("Frame Camera")
	for _, p := range []bind_group_provider.BindGroupProvider{b.captureCamera, b.frameCamera} {
		buf, err := b.createUniformBuffer(p.Label()+" Buffer", cameraSize)
		if err != nil {
			return err
		}
		p.SetBuffer(0, buf)
	}
	lightBuf, err := b.createUniformBuffer("Frame Light Buffer", lightSize)
	if err != nil {
		return err
	}
	b.frameCamera.SetBuffer(1, lightBuf)

	b.nearestSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Depth Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create depth sampler: %w", err)
	}

	b.diffuseTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Diffuse Placeholder",
		Size:          wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create diffuse placeholder: %w", err)
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: b.diffuseTexture, Aspect: wgpu.TextureAspectAll},
		[]byte{255, 255, 255, 255},
		&wgpu.TextureDataLayout{BytesPerRow: 4, RowsPerImage: 1},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	b.diffuseView, err = b.diffuseTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create diffuse placeholder view: %w", err)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) createUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) SupportsDepthTexture() bool {
	return b.depthTextureSupport
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]
	b.width, b.height = width, height

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseFrameAttachments()
	count := uint32(b.sampleCount)
	msaaEnabled := count > 1
	size := wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}

	var err error
	if msaaEnabled {
		// The render pass draws into the MSAA texture and resolves into the swapchain view.
		b.msaaTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = b.msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// The frame's depth buffer is never read back, so Depth24Plus is fine here.
	b.depthTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Frame Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTextureView, err = b.depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    b.msaaTextureView, // nil when MSAA is off; set per frame
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: storeOp,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuRendererBackendImpl) releaseFrameAttachments() {
	for _, v := range []*wgpu.TextureView{b.msaaTextureView, b.depthTextureView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{b.msaaTexture, b.depthTexture} {
		if t != nil {
			t.Release()
		}
	}
	b.msaaTexture, b.msaaTextureView = nil, nil
	b.depthTexture, b.depthTextureView = nil, nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) CreateRenderTarget(desc RenderTargetDescriptor) (RenderTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	format := depthTextureFormat(desc.DepthType)
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          wgpu.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	t := &wgpuTarget{owner: b, format: format, tex: tex, view: view}
	t.targetInfo = newTargetInfo(desc, func() {
		t.view.Release()
		t.tex.Release()
		t.view, t.tex = nil, nil
	})
	return t, nil
}

func (b *wgpuRendererBackendImpl) target(t RenderTarget) (*wgpuTarget, error) {
	wt, ok := t.(*wgpuTarget)
	if !ok || wt.owner != b {
		return nil, ErrForeignTarget
	}
	if wt.Released() {
		return nil, ErrTargetReleased
	}
	return wt, nil
}

// draw is one prepared indexed draw.
type draw struct {
	pipeline   pipeline.Pipeline
	mesh       bind_group_provider.BindGroupProvider
	bindGroups []*wgpu.BindGroup
}

func (b *wgpuRendererBackendImpl) DrawDepth(target RenderTarget, surfaces []*scene.Surface, cam camera.Camera) error {
	wt, err := b.target(target)
	if err != nil {
		return fmt.Errorf("draw depth into %q: %w", target.Label(), err)
	}
	wt.mu.Lock()
	defer wt.mu.Unlock()
	if wt.released {
		return fmt.Errorf("draw depth into %q: %w", wt.Label(), ErrTargetReleased)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	camUniform := camera.NewGPUCameraUniform(cam)
	b.queue.WriteBuffer(b.captureCamera.Buffer(0), 0, camUniform.Marshal())

	draws := make([]draw, 0, len(surfaces))
	for _, surf := range surfaces {
		p, err := b.pipeline(pipeline.PipelineTypeDepth, b.depthOnlyShader, wt.format, surf.DoubleSided)
		if err != nil {
			return err
		}
		d, err := b.prepareDraw(p, surf, b.captureCamera)
		if err != nil {
			return err
		}
		draws = append(draws, d)
	}

	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "Depth Capture Encoder"})
	if err != nil {
		return err
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: wt.Label(),
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            wt.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	encodeDraws(pass, draws)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	// Block until the pass completes so the target can be copied or released right away.
	b.device.Poll(true, nil)
	return nil
}

func (b *wgpuRendererBackendImpl) DrawFrame(frame FrameDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	camUniform := camera.NewGPUCameraUniform(frame.Camera)
	b.queue.WriteBuffer(b.frameCamera.Buffer(0), 0, camUniform.Marshal())
	var lightUniform light.GPULight
	if frame.Light != nil {
		lightUniform = light.NewGPULight(frame.Light)
	}
	b.queue.WriteBuffer(b.frameCamera.Buffer(1), 0, lightUniform.Marshal())

	if frame.Composite != nil {
		if err := b.bindComposite(frame.Composite); err != nil {
			return err
		}
	}

	draws := make([]draw, 0, len(frame.Surfaces))
	for _, surf := range frame.Surfaces {
		sh := b.surfaceShader
		composite := surf.Material == scene.MaterialComposite && frame.Composite != nil
		if composite {
			sh = frame.Composite.Shader()
		}
		p, err := b.pipeline(pipeline.PipelineTypeRender, sh, wgpu.TextureFormatDepth24Plus, surf.DoubleSided)
		if err != nil {
			return err
		}
		d, err := b.prepareDraw(p, surf, b.frameCamera)
		if err != nil {
			return err
		}
		if composite {
			bg, err := b.bindGroup(p, frame.Composite.Group(), b.composite)
			if err != nil {
				return err
			}
			d.bindGroups = append(d.bindGroups, bg)
		}
		draws = append(draws, d)
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	// With MSAA the swapchain view is the resolve target, otherwise it is drawn to directly.
	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	bg := frame.Background
	b.renderPassDescriptor.ColorAttachments[0].ClearValue = wgpu.Color{R: float64(bg.R), G: float64(bg.G), B: float64(bg.B), A: float64(bg.A)}

	pass := encoder.BeginRenderPass(b.renderPassDescriptor)
	encodeDraws(pass, draws)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	b.surface.Present()
	return nil
}

func encodeDraws(pass *wgpu.RenderPassEncoder, draws []draw) {
	for _, d := range draws {
		pass.SetPipeline(d.pipeline.RenderPipeline())
		for i, bg := range d.bindGroups {
			pass.SetBindGroup(uint32(i), bg, nil)
		}
		pass.SetVertexBuffer(0, d.mesh.VertexBuffer(), 0, wgpu.WholeSize)
		pass.SetIndexBuffer(d.mesh.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(uint32(d.mesh.IndexCount()), 1, 0, 0, 0)
	}
}

// prepareDraw uploads the surface's mesh and uniforms and resolves groups 0 and 1 for p.
func (b *wgpuRendererBackendImpl) prepareDraw(p pipeline.Pipeline, surf *scene.Surface, cam bind_group_provider.BindGroupProvider) (draw, error) {
	mesh, err := b.meshProvider(surf.Mesh)
	if err != nil {
		return draw{}, err
	}
	group, err := b.surfaceProvider(surf)
	if err != nil {
		return draw{}, err
	}
	camGroup, err := b.bindGroup(p, cameraGroup, cam)
	if err != nil {
		return draw{}, err
	}
	surfGroup, err := b.bindGroup(p, surfaceGroup, group)
	if err != nil {
		return draw{}, err
	}
	return draw{pipeline: p, mesh: mesh, bindGroups: []*wgpu.BindGroup{camGroup, surfGroup}}, nil
}

func (b *wgpuRendererBackendImpl) meshProvider(m *scene.Mesh) (bind_group_provider.BindGroupProvider, error) {
	if p, ok := b.meshes[m]; ok {
		return p, nil
	}
	p := bind_group_provider.NewBindGroupProvider(m.Name + " Mesh")
	vertexData := common.SliceToBytes(m.Vertices)
	indexData := common.SliceToBytes(m.Indices)

	vb, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.Label() + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(vb, 0, vertexData)
	p.SetVertexBuffer(vb)

	ib, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.Label() + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	b.queue.WriteBuffer(ib, 0, indexData)
	p.SetIndexBuffer(ib)
	p.SetIndexCount(len(m.Indices))

	b.meshes[m] = p
	return p, nil
}

// surfaceProvider returns the surface's uniform group with the current model, color and flags written.
func (b *wgpuRendererBackendImpl) surfaceProvider(surf *scene.Surface) (bind_group_provider.BindGroupProvider, error) {
	uniform := scene.NewGPUSurfaceUniform(surf)
	p, ok := b.surfaceGroups[surf]
	if !ok {
		p = bind_group_provider.NewBindGroupProvider(surf.Name + " Surface")
		buf, err := b.createUniformBuffer(p.Label()+" Buffer", uint64(uniform.Size()))
		if err != nil {
			return nil, err
		}
		p.SetBuffer(0, buf)
		b.surfaceGroups[surf] = p
	}
	b.queue.WriteBuffer(p.Buffer(0), 0, uniform.Marshal())
	return p, nil
}

// bindGroup returns the provider's bind group for p, creating it from p's reflected layout.
func (b *wgpuRendererBackendImpl) bindGroup(p pipeline.Pipeline, group int, provider bind_group_provider.BindGroupProvider) (*wgpu.BindGroup, error) {
	if bg := provider.BindGroup(p.PipelineKey()); bg != nil {
		return bg, nil
	}
	layout := p.BindGroupLayout(group)
	if layout == nil {
		return nil, fmt.Errorf("pipeline %s has no bind group %d", p.PipelineKey(), group)
	}

	bindings := p.Shader().Group(group)
	entries := make([]wgpu.BindGroupEntry, 0, len(bindings))
	for _, binding := range bindings {
		entry := wgpu.BindGroupEntry{Binding: uint32(binding.Binding)}
		switch {
		case binding.Kind.IsBuffer():
			entry.Buffer = provider.Buffer(binding.Binding)
			entry.Size = wgpu.WholeSize
			if entry.Buffer == nil {
				return nil, fmt.Errorf("%s: binding %d (%s) has no buffer", provider.Label(), binding.Binding, binding.Name)
			}
		case binding.Kind.IsSampler():
			entry.Sampler = provider.Sampler(binding.Binding)
			if entry.Sampler == nil {
				return nil, fmt.Errorf("%s: binding %d (%s) has no sampler", provider.Label(), binding.Binding, binding.Name)
			}
		default:
			entry.TextureView = provider.TextureView(binding.Binding)
			if entry.TextureView == nil {
				return nil, fmt.Errorf("%s: binding %d (%s) has no texture view", provider.Label(), binding.Binding, binding.Name)
			}
		}
		entries = append(entries, entry)
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s %s Bind Group", provider.Label(), p.PipelineKey()),
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	provider.SetBindGroup(p.PipelineKey(), bg)
	return bg, nil
}

// pipeline returns a cached pipeline, creating it on first use.
func (b *wgpuRendererBackendImpl) pipeline(kind pipeline.PipelineType, sh shader.Shader, depthFormat wgpu.TextureFormat, doubleSided bool) (pipeline.Pipeline, error) {
	cull := wgpu.CullModeBack
	if doubleSided {
		cull = wgpu.CullModeNone
	}
	key := fmt.Sprintf("%s/%s/%d/%d", kind, sh.Key(), depthFormat, cull)
	if p, ok := b.pipelines[key]; ok {
		return p, nil
	}

	opts := []pipeline.PipelineBuilderOption{
		pipeline.WithShader(sh),
		pipeline.WithDepthFormat(depthFormat),
		pipeline.WithCullMode(cull),
	}
	if kind == pipeline.PipelineTypeRender {
		opts = append(opts,
			pipeline.WithColorFormat(b.surfaceFormat),
			pipeline.WithSampleCount(uint32(b.sampleCount)),
		)
	}
	p := pipeline.NewPipeline(key, kind, opts...)
	if err := b.registerPipeline(p); err != nil {
		return nil, fmt.Errorf("create pipeline %s: %w", key, err)
	}
	b.pipelines[key] = p
	b.logger.Debug("pipeline created", "key", key)
	return p, nil
}

// registerPipeline creates the shader module, the layouts and the render pipeline for p.
// Depth pipelines have no fragment stage and no color target.
func (b *wgpuRendererBackendImpl) registerPipeline(p pipeline.Pipeline) error {
	sh := p.Shader()
	if sh.VertexEntryPoint() == "" {
		return errors.New("a vertex entry point is required")
	}
	if p.Type() == pipeline.PipelineTypeRender && sh.FragmentEntryPoint() == "" {
		return errors.New("render pipelines require a fragment entry point")
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: sh.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: sh.Source(),
		},
	})
	if err != nil {
		return err
	}
	defer module.Release()

	groups := sh.Groups()
	maxGroup := -1
	if len(groups) > 0 {
		maxGroup = slices.Max(groups)
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range layouts {
		desc, err := pipeline.BindGroupLayoutDescriptor(sh, g)
		if err != nil {
			return err
		}
		layouts[g], err = b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: sh.VertexEntryPoint(),
			Buffers:    pipeline.VertexBufferLayouts(sh),
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: p.SampleCount(),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              p.DepthFormat(),
			DepthWriteEnabled:   p.DepthWriteEnabled(),
			DepthCompare:        depthCompare(p.DepthTestEnabled()),
			DepthBias:           p.DepthBias(),
			DepthBiasSlopeScale: p.DepthBiasSlopeScale(),
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	}
	if p.Type() == pipeline.PipelineTypeRender {
		target := wgpu.ColorTargetState{
			Format:    p.ColorFormat(),
			WriteMask: p.WriteMask(),
		}
		if p.BlendEnabled() {
			target.Blend = p.BlendState()
		}
		desc.Fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: sh.FragmentEntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		}
	}

	created, err := b.device.CreateRenderPipeline(desc)
	if err != nil {
		return err
	}
	p.SetRenderPipeline(created, layouts)
	return nil
}

func depthCompare(testEnabled bool) wgpu.CompareFunction {
	if testEnabled {
		return wgpu.CompareFunctionLess
	}
	return wgpu.CompareFunctionAlways
}

// bindComposite refreshes the composite group when the program, its generation or its textures change.
func (b *wgpuRendererBackendImpl) bindComposite(program CompositeProgram) error {
	textures := program.DepthTextures()
	ids := make([]uint64, len(textures))
	for i, tex := range textures {
		if tex.Released() {
			return fmt.Errorf("composite texture %q: %w", tex.Label(), texture.ErrReleased)
		}
		ids[i] = tex.ID()
	}

	sh := program.Shader()
	stale := b.composite == nil ||
		b.compositeShader != sh ||
		b.composite.Generation() != program.Generation() ||
		!slices.Equal(b.compositeIDs, ids)

	if stale {
		if b.composite != nil && b.compositeShader != sh {
			b.composite.Release()
			b.composite = nil
		}
		if b.composite == nil {
			b.composite = bind_group_provider.NewBindGroupProvider("Composite", bind_group_provider.WithBorrowedViews())
		}
		b.composite.InvalidateBindGroups(program.Generation())

		depthIndex := 0
		for _, binding := range sh.Group(program.Group()) {
			switch binding.Kind {
			case shader.ResourceUniformBuffer:
				if b.composite.Buffer(binding.Binding) == nil {
					buf, err := b.createUniformBuffer("Composite Uniforms", max(binding.MinBindingSize, uint64(len(program.UniformBytes()))))
					if err != nil {
						return err
					}
					b.composite.SetBuffer(binding.Binding, buf)
				}
			case shader.ResourceNonFilteringSampler, shader.ResourceFilteringSampler:
				b.composite.SetSampler(binding.Binding, b.nearestSampler)
			case shader.ResourceTexture:
				b.composite.SetTextureView(binding.Binding, b.diffuseView)
			case shader.ResourceDepthTexture:
				if depthIndex >= len(textures) {
					return fmt.Errorf("composite program declares more depth textures than the %d bound", len(textures))
				}
				view, err := b.depthView(textures[depthIndex])
				if err != nil {
					return err
				}
				b.composite.SetTextureView(binding.Binding, view)
				depthIndex++
			}
		}
		b.compositeShader = sh
		b.compositeIDs = ids
		b.pruneUploads()
		b.logger.Debug("composite rebound", "generation", program.Generation(), "textures", len(ids))
	}

	for _, binding := range sh.Group(program.Group()) {
		if binding.Kind == shader.ResourceUniformBuffer {
			b.queue.WriteBuffer(b.composite.Buffer(binding.Binding), 0, program.UniformBytes())
		}
	}
	return nil
}

// depthView returns a sampleable view of tex. Snapshots taken by this backend carry their own;
// any other texture is uploaded as Depth16Unorm, the only depth format writable from the host.
func (b *wgpuRendererBackendImpl) depthView(tex texture.DepthTexture) (*wgpu.TextureView, error) {
	if snap, ok := tex.(*wgpuDepthTexture); ok {
		snap.mu.Lock()
		defer snap.mu.Unlock()
		if snap.gpu != nil {
			return snap.gpu.view, nil
		}
	}
	if up, ok := b.uploads[tex.ID()]; ok {
		return up.view, nil
	}

	pixels, err := tex.Pixels()
	if err != nil {
		return nil, err
	}
	w, h := tex.Width(), tex.Height()
	format := wgpu.TextureFormatDepth16Unorm
	gpuTex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         tex.Label(),
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	rowBytes := alignedRowBytes(w, format)
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: gpuTex, Aspect: wgpu.TextureAspectDepthOnly},
		encodeDepth16(pixels, w, h, rowBytes),
		&wgpu.TextureDataLayout{BytesPerRow: rowBytes, RowsPerImage: uint32(h)},
		&wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	)
	view, err := gpuTex.CreateView(nil)
	if err != nil {
		gpuTex.Release()
		return nil, err
	}
	b.uploads[tex.ID()] = &gpuDepth{tex: gpuTex, view: view}
	return view, nil
}

// pruneUploads releases uploads that are no longer bound by the composite group.
func (b *wgpuRendererBackendImpl) pruneUploads() {
	for id, up := range b.uploads {
		if !slices.Contains(b.compositeIDs, id) {
			up.release()
			delete(b.uploads, id)
		}
	}
}

func (b *wgpuRendererBackendImpl) CopyDepth(target RenderTarget, label string) (texture.DepthTexture, error) {
	wt, err := b.target(target)
	if err != nil {
		return nil, fmt.Errorf("copy depth from %q: %w", target.Label(), err)
	}
	wt.mu.Lock()
	defer wt.mu.Unlock()
	if wt.released {
		return nil, fmt.Errorf("copy depth from %q: %w", wt.Label(), ErrTargetReleased)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	w, h := wt.Width(), wt.Height()
	extent := wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}
	rowBytes := alignedRowBytes(w, wt.format)
	size := uint64(rowBytes) * uint64(h)

	readBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Read-back",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer readBuf.Release()

	gpuTex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wt.format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "Depth Copy Encoder"})
	if err != nil {
		gpuTex.Release()
		return nil, err
	}
	source := &wgpu.ImageCopyTexture{Texture: wt.tex, Aspect: wgpu.TextureAspectDepthOnly}
	encoder.CopyTextureToBuffer(source, &wgpu.ImageCopyBuffer{
		Buffer: readBuf,
		Layout: wgpu.TextureDataLayout{BytesPerRow: rowBytes, RowsPerImage: uint32(h)},
	}, &extent)
	encoder.CopyTextureToTexture(source, &wgpu.ImageCopyTexture{Texture: gpuTex, Aspect: wgpu.TextureAspectAll}, &extent)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		gpuTex.Release()
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	var status wgpu.BufferMapAsyncStatus
	err = readBuf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		gpuTex.Release()
		return nil, err
	}
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		gpuTex.Release()
		return nil, fmt.Errorf("depth read-back of %q: map status %v", wt.Label(), status)
	}
	data, err := decodeDepthRows(readBuf.GetMappedRange(0, uint(size)), w, h, rowBytes, wt.format)
	readBuf.Unmap()
	if err != nil {
		gpuTex.Release()
		return nil, err
	}

	host, err := texture.NewDepthTexture(label, w, h, wt.DepthType(), data)
	if err != nil {
		gpuTex.Release()
		return nil, err
	}
	view, err := gpuTex.CreateView(nil)
	if err != nil {
		gpuTex.Release()
		return nil, err
	}
	return &wgpuDepthTexture{
		DepthTexture: host,
		mu:           &sync.Mutex{},
		gpu:          &gpuDepth{tex: gpuTex, view: view},
	}, nil
}

func (b *wgpuRendererBackendImpl) ReadFrame() (*image.RGBA, error) {
	return nil, ErrFrameUnavailable
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, p := range b.pipelines {
		p.Release()
		delete(b.pipelines, key)
	}
	for m, p := range b.meshes {
		p.Release()
		delete(b.meshes, m)
	}
	for s, p := range b.surfaceGroups {
		p.Release()
		delete(b.surfaceGroups, s)
	}
	if b.composite != nil {
		b.composite.Release()
		b.composite = nil
	}
	for id, up := range b.uploads {
		up.release()
		delete(b.uploads, id)
	}
	b.captureCamera.Release()
	b.frameCamera.Release()
	b.nearestSampler.Release()
	b.diffuseView.Release()
	b.diffuseTexture.Release()
	b.releaseFrameAttachments()

	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
	runtime.UnlockOSThread()
}
