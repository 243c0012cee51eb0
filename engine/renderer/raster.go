package renderer

import (
	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/scene"
)

// clipEpsilon keeps perspective-divided vertices away from w = 0.
const clipEpsilon = 1e-6

// rasterVertex is a post-transform vertex. Pos is in clip space; Normal is in world space.
type rasterVertex struct {
	pos    [4]float32
	normal common.Vec3
	uv     [2]float32
}

func lerpVertex(a, b rasterVertex, t float32) rasterVertex {
	var out rasterVertex
	for i := range 4 {
		out.pos[i] = a.pos[i] + (b.pos[i]-a.pos[i])*t
	}
	out.normal = a.normal.Add(b.normal.Sub(a.normal).Scale(t))
	out.uv[0] = a.uv[0] + (b.uv[0]-a.uv[0])*t
	out.uv[1] = a.uv[1] + (b.uv[1]-a.uv[1])*t
	return out
}

// clipPlanes are the homogeneous half-spaces a vertex must satisfy: z >= 0, z <= w and w > 0.
var clipPlanes = [3]func(p [4]float32) float32{
	func(p [4]float32) float32 { return p[2] },
	func(p [4]float32) float32 { return p[3] - p[2] },
	func(p [4]float32) float32 { return p[3] - clipEpsilon },
}

// clipPolygon clips a triangle against the depth range and the w > 0 plane. X and Y are
// left to the rasterizer's bounding box, which is clamped to the target.
func clipPolygon(tri [3]rasterVertex) []rasterVertex {
	poly := tri[:]
	for _, dist := range clipPlanes {
		if len(poly) == 0 {
			return nil
		}
		out := make([]rasterVertex, 0, len(poly)+1)
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			da, db := dist(a.pos), dist(b.pos)
			if da >= 0 {
				out = append(out, a)
			}
			if (da >= 0) != (db >= 0) {
				out = append(out, lerpVertex(a, b, da/(da-db)))
			}
		}
		poly = out
	}
	return poly
}

// screenVertex is a clipped vertex after the perspective divide and viewport transform.
// Attributes are pre-divided by w for perspective-correct interpolation.
type screenVertex struct {
	x, y, z float32
	invW    float32
	normalW common.Vec3
	uvW     [2]float32
}

// triangle is a screen-space triangle ready for rasterization.
type triangle struct {
	v     [3]screenVertex
	front bool
	area  float32

	minX, maxX int
	minY, maxY int

	surface *scene.Surface
}

// toScreen maps a clip-space vertex to pixel coordinates with row 0 at the top.
func toScreen(v rasterVertex, width, height int) screenVertex {
	invW := 1 / v.pos[3]
	ndcX, ndcY := v.pos[0]*invW, v.pos[1]*invW
	return screenVertex{
		x:       (ndcX*0.5 + 0.5) * float32(width),
		y:       (0.5 - ndcY*0.5) * float32(height),
		z:       v.pos[2] * invW,
		invW:    invW,
		normalW: v.normal.Scale(invW),
		uvW:     [2]float32{v.uv[0] * invW, v.uv[1] * invW},
	}
}

// edge returns twice the signed area of (a, b, p) in screen space.
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// assembleTriangles transforms a surface's mesh into screen-space triangles. Back faces are
// dropped unless the surface is double-sided. Counter-clockwise in NDC is front facing, which
// is clockwise once y points down.
func assembleTriangles(surf *scene.Surface, viewProj [16]float32, width, height int) []triangle {
	mesh := surf.Mesh
	model := surf.ModelMatrix()
	var mvp [16]float32
	common.Mul4(mvp[:], viewProj[:], model[:])

	verts := make([]rasterVertex, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		verts[i] = rasterVertex{
			pos:    common.TransformPoint(mvp[:], v.Position[0], v.Position[1], v.Position[2]),
			normal: common.Vec3FromArray(common.TransformDirection(model[:], v.Normal[0], v.Normal[1], v.Normal[2])),
			uv:     v.UV,
		}
	}

	tris := make([]triangle, 0, mesh.TriangleCount())
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		ia, ib, ic := mesh.Indices[i], mesh.Indices[i+1], mesh.Indices[i+2]
		if int(ia) >= len(verts) || int(ib) >= len(verts) || int(ic) >= len(verts) {
			continue
		}
		poly := clipPolygon([3]rasterVertex{verts[ia], verts[ib], verts[ic]})
		if len(poly) < 3 {
			continue
		}

		screen := make([]screenVertex, len(poly))
		for j, v := range poly {
			screen[j] = toScreen(v, width, height)
		}
		for j := 1; j+1 < len(screen); j++ {
			t, ok := newTriangle(screen[0], screen[j], screen[j+1], width, height)
			if !ok {
				continue
			}
			if !t.front && !surf.DoubleSided {
				continue
			}
			t.surface = surf
			tris = append(tris, t)
		}
	}
	return tris
}

func newTriangle(a, b, c screenVertex, width, height int) (triangle, bool) {
	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if area == 0 {
		return triangle{}, false
	}
	t := triangle{
		v:     [3]screenVertex{a, b, c},
		front: area < 0,
		area:  area,
		minX:  max(int(min(a.x, b.x, c.x)), 0),
		maxX:  min(int(max(a.x, b.x, c.x)), width-1),
		minY:  max(int(min(a.y, b.y, c.y)), 0),
		maxY:  min(int(max(a.y, b.y, c.y)), height-1),
	}
	if t.minX > t.maxX || t.minY > t.maxY {
		return triangle{}, false
	}
	return t, true
}

// fragment is an interpolated sample inside a triangle.
type fragment struct {
	x, y   int
	depth  float32
	normal common.Vec3
	uv     [2]float32
	front  bool
}

// rasterizeRows walks the triangle's pixels between rows y0 and y1 (exclusive). Coverage is
// tested at pixel centers and includes the edges, so triangles sharing an edge leave no gaps.
// The depth test is "less": visit is called only for fragments closer than the stored depth,
// and visit decides whether to store it.
func (t *triangle) rasterizeRows(y0, y1 int, depth []float32, width int, visit func(f *fragment) error) error {
	a, b, c := t.v[0], t.v[1], t.v[2]
	invArea := 1 / t.area
	var f fragment
	f.front = t.front

	for y := max(y0, t.minY); y < y1 && y <= t.maxY; y++ {
		py := float32(y) + 0.5
		row := y * width
		for x := t.minX; x <= t.maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(b.x, b.y, c.x, c.y, px, py) * invArea
			w1 := edge(c.x, c.y, a.x, a.y, px, py) * invArea
			w2 := edge(a.x, a.y, b.x, b.y, px, py) * invArea
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*a.z + w1*b.z + w2*c.z
			if z < 0 || z > 1 || z >= depth[row+x] {
				continue
			}

			invW := w0*a.invW + w1*b.invW + w2*c.invW
			f.x, f.y, f.depth = x, y, z
			f.normal = a.normalW.Scale(w0).Add(b.normalW.Scale(w1)).Add(c.normalW.Scale(w2)).Scale(1 / invW)
			f.uv[0] = (w0*a.uvW[0] + w1*b.uvW[0] + w2*c.uvW[0]) / invW
			f.uv[1] = (w0*a.uvW[1] + w1*b.uvW[1] + w2*c.uvW[1]) / invW
			if err := visit(&f); err != nil {
				return err
			}
		}
	}
	return nil
}
