package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {VertexFormatFloat32, 4},
	"vec2f":     {VertexFormatFloat32x2, 8},
	"vec2<f32>": {VertexFormatFloat32x2, 8},
	"vec3f":     {VertexFormatFloat32x3, 12},
	"vec3<f32>": {VertexFormatFloat32x3, 12},
	"vec4f":     {VertexFormatFloat32x4, 16},
	"vec4<f32>": {VertexFormatFloat32x4, 16},
	"i32":       {VertexFormatSint32, 4},
	"vec2i":     {VertexFormatSint32x2, 8},
	"vec2<i32>": {VertexFormatSint32x2, 8},
	"vec3i":     {VertexFormatSint32x3, 12},
	"vec3<i32>": {VertexFormatSint32x3, 12},
	"vec4i":     {VertexFormatSint32x4, 16},
	"vec4<i32>": {VertexFormatSint32x4, 16},
	"u32":       {VertexFormatUint32, 4},
	"vec2u":     {VertexFormatUint32x2, 8},
	"vec2<u32>": {VertexFormatUint32x2, 8},
	"vec3u":     {VertexFormatUint32x3, 12},
	"vec3<u32>": {VertexFormatUint32x3, 12},
	"vec4u":     {VertexFormatUint32x4, 16},
	"vec4<u32>": {VertexFormatUint32x4, 16},
	"vec2<f16>": {VertexFormatFloat16x2, 4},
	"vec2h":     {VertexFormatFloat16x2, 4},
	"vec4<f16>": {VertexFormatFloat16x4, 8},
	"vec4h":     {VertexFormatFloat16x4, 8},
}

// wgslSampledTextureMap maps WGSL sampled texture base names to their view dimension and multisampled flag
var wgslSampledTextureMap = map[string]sampledTextureInfo{
	"texture_1d":                    {ViewDimension1D, false},
	"texture_2d":                    {ViewDimension2D, false},
	"texture_2d_array":              {ViewDimension2DArray, false},
	"texture_3d":                    {ViewDimension3D, false},
	"texture_cube":                  {ViewDimensionCube, false},
	"texture_cube_array":            {ViewDimensionCubeArray, false},
	"texture_multisampled_2d":       {ViewDimension2D, true},
	"texture_depth_2d":              {ViewDimension2D, false},
	"texture_depth_2d_array":        {ViewDimension2DArray, false},
	"texture_depth_cube":            {ViewDimensionCube, false},
	"texture_depth_cube_array":      {ViewDimensionCubeArray, false},
	"texture_depth_multisampled_2d": {ViewDimension2D, true},
}

// wgslStorageTextureDimMap maps WGSL storage texture base names to their view dimension
var wgslStorageTextureDimMap = map[string]ViewDimension{
	"texture_storage_1d":       ViewDimension1D,
	"texture_storage_2d":       ViewDimension2D,
	"texture_storage_2d_array": ViewDimension2DArray,
	"texture_storage_3d":       ViewDimension3D,
}

// wgslSampleTypeMap maps WGSL scalar type parameters to their texture sample type
var wgslSampleTypeMap = map[string]SampleType{
	"f32": SampleTypeFloat,
	"i32": SampleTypeSint,
	"u32": SampleTypeUint,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	// or handle types: @group(1) @binding(2) var tDepth0: texture_depth_2d;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexLayouts extracts vertex buffer layouts from WGSL source code.
// It finds all structs that are pure vertex inputs (have @location attributes but no @builtin fields)
// and converts them into VertexLayout entries, in declaration order. Structs containing
// unrecognized WGSL types are skipped.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []VertexLayout: one layout per vertex input struct
func parseVertexLayouts(source string) []VertexLayout {
	var result []VertexLayout
	structs := parseStructBlocks(stripComments(source))

	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		layout, ok := buildVertexLayout(ps)
		if !ok {
			continue
		}
		result = append(result, layout)
	}

	return result
}

// parseBindings extracts all @group(N) @binding(M) resource declarations from WGSL
// source, sorted by group then binding. The provided visibility is applied to every entry.
// A plain sampler that shares a group with depth textures is classified non-filtering,
// since depth textures cannot be read through a filtering sampler.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - visibility: the shader stages that declared the bindings
//
// Returns:
//   - []Binding: the reflected bindings
func parseBindings(source string, visibility Stage) []Binding {
	cleaned := stripComments(source)

	// struct sizes let buffer bindings carry MinBindingSize
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	var bindings []Binding
	depthGroups := make(map[int]bool)
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		typeName := strings.TrimSpace(match[5])

		b := classifyResource(addressSpace, typeName)
		b.Group = group
		b.Binding = binding
		b.Name = strings.TrimSpace(match[4])
		b.TypeName = typeName
		b.Visibility = visibility

		if b.Kind.IsBuffer() {
			if layout, ok := resolveTypeLayout(typeName, structSizes); ok && layout.size > 0 {
				b.MinBindingSize = layout.size
			}
		}
		if b.Kind == ResourceDepthTexture {
			depthGroups[group] = true
		}
		bindings = append(bindings, b)
	}

	for i := range bindings {
		if bindings[i].Kind == ResourceFilteringSampler && depthGroups[bindings[i].Group] {
			bindings[i].Kind = ResourceNonFilteringSampler
		}
	}

	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings
}

// parseEntryPoint extracts the entry point function name for the given stage from WGSL source.
// Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - stage: StageVertex or StageFragment
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, stage Stage) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch stage {
	case StageVertex:
		re = vertexEntryRegex
	case StageFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{
			isBuiltin: builtinRegex.MatchString(line),
			location:  -1,
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])

		fields = append(fields, field)
	}

	return fields
}
