package atlas

import (
	"github.com/Faultbox/atlasbuild/internal/pack"
	"github.com/Faultbox/atlasbuild/pkg/math"
)

// UVTransform maps unit-square coordinates of a sprite to page UV space.
type UVTransform struct {
	Translation math.Vec2
	Scale       math.Vec2
	Rotated     bool
}

// DefaultUVTransform is the identity with a flipped V axis.
func DefaultUVTransform() UVTransform {
	return UVTransform{Translation: math.Vec2{X: 0, Y: 1}, Scale: math.Vec2{X: 1, Y: -1}}
}

// NewUVTransform returns the transform of a clipped rect on a width x height page.
func NewUVTransform(r pack.Rect, width, height int) UVTransform {
	xs := 1 / float32(width)
	ys := 1 / float32(height)
	return UVTransform{
		Translation: math.Vec2{X: float32(r.X) * xs, Y: 1 - float32(r.Y)*ys},
		Scale:       math.Vec2{X: xs * float32(r.Width), Y: -ys * float32(r.Height)},
		Rotated:     r.Rotated,
	}
}

// Apply transforms p. Rotated transforms turn p a quarter around the unit-square centre first.
func (t UVTransform) Apply(p math.Vec2) math.Vec2 {
	if t.Rotated {
		p = p.RotateAbout90(math.Vec2{X: 0.5, Y: 0.5})
	}
	return p.Mul(t.Scale).Add(t.Translation)
}
