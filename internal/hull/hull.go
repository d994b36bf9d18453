package hull

import (
	"math"
	"sort"
)

// Point is a vertex in object space: the sprite spans [-0.5, 0.5] on both axes, Y up.
type Point struct {
	X, Y float64
}

const epsilon = 1e-9

// ConvexHull returns the convex hull of the covered pixels of m, dilated by dilate pixels,
// as a CCW polygon with at most maxVertices vertices.
//
// Hulls with too many vertices are simplified by removing the edge whose removal adds the
// least area, extending its two neighbours to their intersection. The polygon never leaves
// the sprite rectangle and always covers the exact hull. Returns nil if the mask is empty or
// the budget cannot be met.
func ConvexHull(m *Mask, maxVertices, dilate int) []Point {
	if m == nil || maxVertices < 3 || m.Width == 0 || m.Height == 0 {
		return nil
	}

	d := m.Dilate(dilate)
	pts := boundaryCorners(d)
	if len(pts) == 0 {
		return nil
	}

	h := monotoneChain(pts)
	if len(h) < 3 {
		return nil
	}

	full := h
	for len(h) > maxVertices {
		var ok bool
		h, ok = removeCheapestEdge(h)
		if !ok {
			return nil
		}
	}
	if area(h) <= epsilon {
		return nil
	}
	// simplification only grows the polygon
	for _, p := range full {
		if !contains(h, p) {
			return nil
		}
	}
	return h
}

// BoundingRect returns the dilated bounding box of the covered pixels as 4 CCW points,
// or nil if the mask is empty.
func BoundingRect(m *Mask, dilate int) []Point {
	if m == nil {
		return nil
	}
	d := m.Dilate(dilate)
	minX, minY, maxX, maxY, ok := d.Bounds()
	if !ok {
		return nil
	}

	w, h := float64(d.Width), float64(d.Height)
	x0 := float64(minX)/w - 0.5
	x1 := float64(maxX+1)/w - 0.5
	yTop := 0.5 - float64(minY)/h
	yBottom := 0.5 - float64(maxY+1)/h

	return []Point{
		{x0, yBottom},
		{x1, yBottom},
		{x1, yTop},
		{x0, yTop},
	}
}

// area returns the signed area of the polygon; positive for CCW winding.
func area(poly []Point) float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return a / 2
}

// contains reports whether p lies inside or on the CCW convex polygon.
func contains(poly []Point, p Point) bool {
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		if cross(a, b, p) < -1e-7 {
			return false
		}
	}
	return true
}

// boundaryCorners collects the outer pixel corners of each covered row, in object space.
// Interior pixels can never be hull vertices.
func boundaryCorners(m *Mask) []Point {
	w, h := float64(m.Width), float64(m.Height)
	var pts []Point
	for y := 0; y < m.Height; y++ {
		left, right := -1, -1
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				if left < 0 {
					left = x
				}
				right = x
			}
		}
		if left < 0 {
			continue
		}
		top := 0.5 - float64(y)/h
		bottom := 0.5 - float64(y+1)/h
		l := float64(left)/w - 0.5
		r := float64(right+1)/w - 0.5
		pts = append(pts, Point{l, top}, Point{l, bottom}, Point{r, top}, Point{r, bottom})
	}
	return pts
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// monotoneChain computes the CCW hull without collinear vertices.
func monotoneChain(pts []Point) []Point {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= epsilon {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= epsilon {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// removeCheapestEdge drops one edge of the CCW polygon h by extending its neighbours.
func removeCheapestEdge(h []Point) ([]Point, bool) {
	n := len(h)
	if n <= 3 {
		return h, false
	}

	best := -1
	bestArea := math.Inf(1)
	var bestPoint Point

	for i := 0; i < n; i++ {
		prev := h[(i+n-1)%n]
		a := h[i]
		b := h[(i+1)%n]
		next := h[(i+2)%n]

		p, ok := intersectRays(prev, a, next, b)
		if !ok || !insideUnitBox(p) {
			continue
		}
		area := math.Abs(cross(a, p, b)) / 2
		if area < bestArea {
			bestArea = area
			best = i
			bestPoint = p
		}
	}
	if best < 0 {
		return h, false
	}

	out := make([]Point, 0, n-1)
	for i := 0; i < n; i++ {
		switch i {
		case best:
			out = append(out, bestPoint)
		case (best + 1) % n:
			// replaced by the intersection
		default:
			out = append(out, h[i])
		}
	}
	return out, true
}

// intersectRays intersects the ray from a continuing the direction prev->a with the ray
// from b continuing the direction next->b. Both parameters must be non-negative.
func intersectRays(prev, a, next, b Point) (Point, bool) {
	d1 := Point{a.X - prev.X, a.Y - prev.Y}
	d2 := Point{b.X - next.X, b.Y - next.Y}
	denom := d1.X*d2.Y - d1.Y*d2.X
	if math.Abs(denom) < epsilon {
		return Point{}, false
	}
	ex, ey := b.X-a.X, b.Y-a.Y
	s := (ex*d2.Y - ey*d2.X) / denom
	t := (ex*d1.Y - ey*d1.X) / denom
	if s < -epsilon || t < -epsilon {
		return Point{}, false
	}
	return Point{a.X + s*d1.X, a.Y + s*d1.Y}, true
}

func insideUnitBox(p Point) bool {
	const limit = 0.5 + 1e-6
	return p.X >= -limit && p.X <= limit && p.Y >= -limit && p.Y <= limit
}
