package shader

// Stage is a bitmask of the pipeline stages a binding is visible to.
type Stage uint32

const (
	StageNone     Stage = 0
	StageVertex   Stage = 1 << 0
	StageFragment Stage = 1 << 1
)

// ResourceKind classifies a bound resource.
type ResourceKind int

const (
	ResourceUnknown ResourceKind = iota
	ResourceUniformBuffer
	ResourceStorageBuffer
	ResourceReadOnlyStorageBuffer
	ResourceFilteringSampler
	ResourceNonFilteringSampler
	ResourceComparisonSampler
	ResourceTexture
	ResourceDepthTexture
	ResourceStorageTexture
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceUniformBuffer:
		return "uniform"
	case ResourceStorageBuffer:
		return "storage"
	case ResourceReadOnlyStorageBuffer:
		return "read_only_storage"
	case ResourceFilteringSampler:
		return "sampler"
	case ResourceNonFilteringSampler:
		return "non_filtering_sampler"
	case ResourceComparisonSampler:
		return "sampler_comparison"
	case ResourceTexture:
		return "texture"
	case ResourceDepthTexture:
		return "depth_texture"
	case ResourceStorageTexture:
		return "storage_texture"
	default:
		return "unknown"
	}
}

// IsBuffer reports whether the resource is a uniform or storage buffer.
func (k ResourceKind) IsBuffer() bool {
	return k == ResourceUniformBuffer || k == ResourceStorageBuffer || k == ResourceReadOnlyStorageBuffer
}

// IsSampler reports whether the resource is any kind of sampler.
func (k ResourceKind) IsSampler() bool {
	return k == ResourceFilteringSampler || k == ResourceNonFilteringSampler || k == ResourceComparisonSampler
}

// ViewDimension is the dimensionality of a texture binding.
type ViewDimension int

const (
	ViewDimensionUndefined ViewDimension = iota
	ViewDimension1D
	ViewDimension2D
	ViewDimension2DArray
	ViewDimension3D
	ViewDimensionCube
	ViewDimensionCubeArray
)

// SampleType is the component type returned when sampling a texture binding.
type SampleType int

const (
	SampleTypeUndefined SampleType = iota
	SampleTypeFloat
	SampleTypeSint
	SampleTypeUint
	SampleTypeDepth
)

// Binding is a single @group/@binding declaration reflected from WGSL source.
type Binding struct {
	Group   int
	Binding int
	Name    string
	// TypeName is the declared WGSL type, e.g. "texture_depth_2d" or "CompositeUniforms".
	TypeName string

	Kind          ResourceKind
	Visibility    Stage
	ViewDimension ViewDimension
	SampleType    SampleType
	Multisampled  bool
	// StorageFormat is the texel format of a storage texture, e.g. "rgba8unorm".
	StorageFormat string
	// StorageAccess is "read", "write" or "read_write" for storage textures.
	StorageAccess string
	// MinBindingSize is the byte size of the bound type for buffers, when it could be resolved.
	MinBindingSize uint64
}

// VertexFormat is the data type of a vertex attribute.
type VertexFormat int

const (
	VertexFormatUndefined VertexFormat = iota
	VertexFormatFloat32
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatSint32
	VertexFormatSint32x2
	VertexFormatSint32x3
	VertexFormatSint32x4
	VertexFormatUint32
	VertexFormatUint32x2
	VertexFormatUint32x3
	VertexFormatUint32x4
	VertexFormatFloat16x2
	VertexFormatFloat16x4
)

// VertexAttribute places one @location input inside a vertex buffer.
type VertexAttribute struct {
	Location int
	Format   VertexFormat
	Offset   uint64
}

// VertexLayout describes one interleaved per-vertex buffer.
type VertexLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// vertexFormatInfo holds the vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format VertexFormat
	size   uint64
}

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension ViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
// Used to compute MinBindingSize for buffer bindings.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
