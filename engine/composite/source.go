package composite

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed assets/composite.wgsl.tmpl
var compositeTemplateSource string

var compositeTemplate = template.Must(template.New("composite").Parse(compositeTemplateSource))

const (
	// DefaultGroup is the bind group holding the composite uniforms, sampler and depth textures.
	DefaultGroup = 2

	uniformBinding    = 0
	samplerBinding    = 1
	diffuseBinding    = 2
	firstDepthBinding = 3
)

// depthSlot is one branch of the generated dispatch ladder.
type depthSlot struct {
	Index   int
	Binding int
}

type templateData struct {
	Group          int
	UniformBinding int
	SamplerBinding int
	DiffuseBinding int
	Count          int
	Slots          []depthSlot
}

// DepthBinding returns the binding index of depth texture i within the composite group.
func DepthBinding(i int) int {
	return firstDepthBinding + i
}

// GenerateSource renders the composite WGSL program for a fixed texture count.
// Each texture gets its own texture_depth_2d binding and its own case in the
// fetchDepth switch.
//
// Parameters:
//   - group: bind group index for the composite resources
//   - count: number of depth textures (N)
//
// Returns:
//   - string: the WGSL source, still containing @oxy: annotations
//   - error: ErrInvalidCount if count < 1
func GenerateSource(group, count int) (string, error) {
	if count < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	data := templateData{
		Group:          group,
		UniformBinding: uniformBinding,
		SamplerBinding: samplerBinding,
		DiffuseBinding: diffuseBinding,
		Count:          count,
		Slots:          make([]depthSlot, count),
	}
	for i := range data.Slots {
		data.Slots[i] = depthSlot{Index: i, Binding: DepthBinding(i)}
	}

	var sb strings.Builder
	if err := compositeTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("composite: render template: %w", err)
	}
	return sb.String(), nil
}
