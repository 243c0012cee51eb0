package scene

import (
	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/chewxy/math32"
)

// Vertex is the interleaved vertex layout shared by every mesh: position, normal and uv (32 bytes).
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// VertexStride is the size in bytes of one Vertex.
const VertexStride = 32

// Mesh is indexed triangle geometry in model space.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

// TriangleCount returns the number of indexed triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// BoundingSphere returns a sphere enclosing every vertex, centered on the vertex AABB.
//
// Returns:
//   - common.Vec3: center in model space
//   - float32: radius
func (m *Mesh) BoundingSphere() (common.Vec3, float32) {
	if len(m.Vertices) == 0 {
		return common.Vec3{}, 0
	}
	lo := common.Vec3FromArray(m.Vertices[0].Position)
	hi := lo
	for _, v := range m.Vertices[1:] {
		p := common.Vec3FromArray(v.Position)
		lo = common.V3(min(lo.X, p.X), min(lo.Y, p.Y), min(lo.Z, p.Z))
		hi = common.V3(max(hi.X, p.X), max(hi.Y, p.Y), max(hi.Z, p.Z))
	}
	center := lo.Add(hi).Scale(0.5)
	var r float32
	for _, v := range m.Vertices {
		r = max(r, common.Vec3FromArray(v.Position).Sub(center).Length())
	}
	return center, r
}

// NewPlaneMesh builds a width x height plane in the XY plane facing +Z, centered on the origin.
// UV (0, 0) is the bottom-left corner and v grows upward.
//
// Parameters:
//   - width: extent along X
//   - height: extent along Y
//
// Returns:
//   - *Mesh: a two-triangle mesh
func NewPlaneMesh(width, height float32) *Mesh {
	hw, hh := width/2, height/2
	n := [3]float32{0, 0, 1}
	return &Mesh{
		Name: "plane",
		Vertices: []Vertex{
			{Position: [3]float32{-hw, hh, 0}, Normal: n, UV: [2]float32{0, 1}},
			{Position: [3]float32{hw, hh, 0}, Normal: n, UV: [2]float32{1, 1}},
			{Position: [3]float32{-hw, -hh, 0}, Normal: n, UV: [2]float32{0, 0}},
			{Position: [3]float32{hw, -hh, 0}, Normal: n, UV: [2]float32{1, 0}},
		},
		Indices: []uint32{0, 2, 1, 2, 3, 1},
	}
}

// NewSphereMesh builds a UV sphere.
//
// Parameters:
//   - radius: sphere radius
//   - widthSegments: segments around the equator (minimum 3)
//   - heightSegments: segments from pole to pole (minimum 2)
//
// Returns:
//   - *Mesh: the sphere mesh
func NewSphereMesh(radius float32, widthSegments, heightSegments int) *Mesh {
	widthSegments = max(widthSegments, 3)
	heightSegments = max(heightSegments, 2)

	m := &Mesh{Name: "sphere"}
	for y := 0; y <= heightSegments; y++ {
		v := float32(y) / float32(heightSegments)
		theta := v * math32.Pi
		for x := 0; x <= widthSegments; x++ {
			u := float32(x) / float32(widthSegments)
			phi := u * 2 * math32.Pi
			n := [3]float32{
				-math32.Cos(phi) * math32.Sin(theta),
				math32.Cos(theta),
				math32.Sin(phi) * math32.Sin(theta),
			}
			m.Vertices = append(m.Vertices, Vertex{
				Position: [3]float32{n[0] * radius, n[1] * radius, n[2] * radius},
				Normal:   n,
				UV:       [2]float32{u, 1 - v},
			})
		}
	}

	stride := uint32(widthSegments + 1)
	for y := 0; y < heightSegments; y++ {
		for x := 0; x < widthSegments; x++ {
			a := uint32(y)*stride + uint32(x) + 1
			b := uint32(y)*stride + uint32(x)
			c := uint32(y+1)*stride + uint32(x)
			d := uint32(y+1)*stride + uint32(x) + 1
			if y != 0 {
				m.Indices = append(m.Indices, a, b, d)
			}
			if y != heightSegments-1 {
				m.Indices = append(m.Indices, b, c, d)
			}
		}
	}
	return m
}
