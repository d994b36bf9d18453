package atlas

import (
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/Faultbox/atlasbuild/internal/hull"
	"github.com/Faultbox/atlasbuild/internal/logger"
	"github.com/Faultbox/atlasbuild/internal/pack"
	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

// hullDilate keeps a pixel border around hulls so bilinear filtering does not clip edges.
const hullDilate = 2

// fallbackRect is the full sprite rectangle, clockwise.
var fallbackRect = []hull.Point{{X: -0.5, Y: -0.5}, {X: -0.5, Y: 0.5}, {X: 0.5, Y: 0.5}, {X: 0.5, Y: -0.5}}

// hasAlpha reports whether the colour model of img can carry transparency.
func hasAlpha(img image.Image) bool {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model, color.YCbCrModel, color.CMYKModel:
		return false
	}
	return true
}

// BuildConvexHull computes the trimmed polygon of img with at most hullVertexCount vertices.
//
// With no alpha channel, a zero budget or a failed hull the full sprite rectangle is used.
// UVs are zero until CreatePolygonUVs places the sprite on a page. Returns nil when img is nil
// or has an empty raster.
func BuildConvexHull(img image.Image, hullVertexCount int) *textureset.SpriteGeometry {
	if img == nil || img.Bounds().Empty() {
		return nil
	}
	b := img.Bounds()
	geom := &textureset.SpriteGeometry{Width: uint32(b.Dx()), Height: uint32(b.Dy())}

	var points []hull.Point
	if hasAlpha(img) && hullVertexCount != 0 {
		mask := hull.MaskFromImage(img, 0)
		points = hull.ConvexHull(mask, hullVertexCount, hullDilate)
		if points == nil {
			points = hull.BoundingRect(mask, hullDilate)
		}
	}
	if points == nil || len(points) > hullVertexCount {
		logger.Named("atlas").Debug("using rectangle geometry",
			zap.Int("width", b.Dx()), zap.Int("height", b.Dy()), zap.Int("hullVertexCount", hullVertexCount))
		points = fallbackRect
	}

	geom.Vertices = make([]float32, 0, len(points)*2)
	for _, p := range points {
		geom.Vertices = append(geom.Vertices, float32(p.X), float32(p.Y))
	}
	geom.UVs = make([]float32, len(geom.Vertices))
	for v := 1; v <= len(points)-2; v++ {
		geom.Indices = append(geom.Indices, 0, uint32(v), uint32(v+1))
	}
	return geom
}

// CreatePolygonUVs returns a copy of geom with UVs locating its vertices on a width x height
// page, given the clipped rect the sprite occupies.
func CreatePolygonUVs(geom *textureset.SpriteGeometry, r pack.Rect, width, height int) *textureset.SpriteGeometry {
	out := geom.Clone()
	if out == nil {
		return nil
	}

	ow, oh := float32(geom.Width), float32(geom.Height)
	cx := float32(r.X) + float32(r.Width)/2
	cy := float32(r.Y) + float32(r.Height)/2
	pw, ph := float32(width), float32(height)
	out.UVs = make([]float32, len(out.Vertices))

	for i := 0; i+1 < len(out.Vertices); i += 2 {
		lx := out.Vertices[i] * ow
		ly := -(out.Vertices[i+1] * oh)
		if r.Rotated {
			lx, ly = -ly, lx
		}
		out.UVs[i] = (cx + lx) / pw
		out.UVs[i+1] = 1 - (cy+ly)/ph
	}
	return out
}
