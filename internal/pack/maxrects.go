package pack

import (
	"fmt"
	"math"
	"sort"
)

// maxUnboundedSide caps the page growth of unbounded packing.
const maxUnboundedSide = 1 << 15

type area struct {
	x, y, w, h int
}

func (a area) contains(b area) bool {
	return b.x >= a.x && b.y >= a.y && b.x+b.w <= a.x+a.w && b.y+b.h <= a.y+a.h
}

func (a area) intersects(b area) bool {
	return a.x < b.x+b.w && b.x < a.x+a.w && a.y < b.y+b.h && b.y < a.y+a.h
}

// bin is one MaxRects page using the best-short-side-fit heuristic.
type bin struct {
	free   []area
	placed []Rect
}

func newBin(width, height int) *bin {
	return &bin{free: []area{{0, 0, width, height}}}
}

// find returns the best free position for a w x h footprint.
func (b *bin) find(w, h int, allowRotate bool) (area, bool, bool) {
	bestShort, bestLong := math.MaxInt, math.MaxInt
	var best area
	found, rotated := false, false

	try := func(fw, fh int, rot bool) {
		for _, f := range b.free {
			if fw > f.w || fh > f.h {
				continue
			}
			short := min(f.w-fw, f.h-fh)
			long := max(f.w-fw, f.h-fh)
			if short < bestShort || (short == bestShort && long < bestLong) {
				bestShort, bestLong = short, long
				best = area{f.x, f.y, fw, fh}
				found, rotated = true, rot
			}
		}
	}

	try(w, h, false)
	if allowRotate && w != h {
		try(h, w, true)
	}
	return best, rotated, found
}

// occupy splits every free area overlapping used and prunes contained areas.
func (b *bin) occupy(used area) {
	var next []area
	for _, f := range b.free {
		if !f.intersects(used) {
			next = append(next, f)
			continue
		}
		if used.x > f.x {
			next = append(next, area{f.x, f.y, used.x - f.x, f.h})
		}
		if used.x+used.w < f.x+f.w {
			next = append(next, area{used.x + used.w, f.y, f.x + f.w - (used.x + used.w), f.h})
		}
		if used.y > f.y {
			next = append(next, area{f.x, f.y, f.w, used.y - f.y})
		}
		if used.y+used.h < f.y+f.h {
			next = append(next, area{f.x, used.y + used.h, f.w, f.y + f.h - (used.y + used.h)})
		}
	}

	pruned := make([]area, 0, len(next))
	for i, a := range next {
		redundant := false
		for j, c := range next {
			if i == j || !c.contains(a) {
				continue
			}
			// Keep the first of two identical areas.
			if a == c && i < j {
				continue
			}
			redundant = true
			break
		}
		if !redundant {
			pruned = append(pruned, a)
		}
	}
	b.free = pruned
}

// insert places r if it fits; the footprint is grown by margin on the right and bottom.
func (b *bin) insert(r Rect, margin int, allowRotate bool) bool {
	pos, rotated, ok := b.find(r.Width+margin, r.Height+margin, allowRotate)
	if !ok {
		return false
	}
	b.occupy(pos)

	r.X, r.Y = pos.x, pos.y
	r.Rotated = rotated
	if rotated {
		r.Width, r.Height = r.Height, r.Width
	}
	b.placed = append(b.placed, r)
	return true
}

func (b *bin) extent() (int, int) {
	w, h := 0, 0
	for _, r := range b.placed {
		w = max(w, r.Right())
		h = max(h, r.Bottom())
	}
	return w, h
}

// packOrder sorts by area, then longest side, then index, all descending except index.
func packOrder(rects []Rect) []Rect {
	sorted := append([]Rect(nil), rects...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Area() != b.Area() {
			return a.Area() > b.Area()
		}
		if la, lb := max(a.Width, a.Height), max(b.Width, b.Height); la != lb {
			return la > lb
		}
		return a.Index < b.Index
	})
	return sorted
}

// PackedLayout bin-packs rects onto as many maxWidth x maxHeight pages as needed.
//
// All returned pages share the same size: the power of two covering the largest page
// extent, clamped to the limits. With a non-positive limit everything goes on one page
// that grows until it fits.
func PackedLayout(margin int, rects []Rect, allowRotate bool, maxWidth, maxHeight int) ([]Layout, error) {
	if len(rects) == 0 {
		return nil, nil
	}
	if maxWidth <= 0 || maxHeight <= 0 {
		return packUnbounded(margin, rects, allowRotate)
	}

	order := packOrder(rects)
	var bins []*bin
	for _, r := range order {
		placed := false
		for _, b := range bins {
			if b.insert(r, margin, allowRotate) {
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		b := newBin(maxWidth+margin, maxHeight+margin)
		if !b.insert(r, margin, allowRotate) {
			return nil, &TooLargeError{
				ID: r.ID, Width: r.Width, Height: r.Height,
				MaxWidth: maxWidth, MaxHeight: maxHeight, Rotate: allowRotate,
			}
		}
		bins = append(bins, b)
	}

	pageW, pageH := 0, 0
	for _, b := range bins {
		w, h := b.extent()
		pageW = max(pageW, w)
		pageH = max(pageH, h)
	}
	pageW = min(NextPowerOfTwo(pageW), maxWidth)
	pageH = min(NextPowerOfTwo(pageH), maxHeight)

	return toLayouts(bins, pageW, pageH), nil
}

func packUnbounded(margin int, rects []Rect, allowRotate bool) ([]Layout, error) {
	total, longest := 0, 0
	for _, r := range rects {
		total += (r.Width + margin) * (r.Height + margin)
		longest = max(longest, r.Width, r.Height)
	}
	side := NextPowerOfTwo(int(math.Ceil(math.Sqrt(float64(total)))))
	w := max(side, NextPowerOfTwo(longest))
	h := w

	order := packOrder(rects)
	for w <= maxUnboundedSide && h <= maxUnboundedSide {
		b := newBin(w+margin, h+margin)
		fits := true
		for _, r := range order {
			if !b.insert(r, margin, allowRotate) {
				fits = false
				break
			}
		}
		if fits {
			ew, eh := b.extent()
			return toLayouts([]*bin{b}, NextPowerOfTwo(ew), NextPowerOfTwo(eh)), nil
		}
		if w <= h {
			w *= 2
		} else {
			h *= 2
		}
	}
	return nil, fmt.Errorf("%w: %d rectangles need more than %dx%d", ErrPageTooLarge, len(rects), maxUnboundedSide, maxUnboundedSide)
}

func toLayouts(bins []*bin, width, height int) []Layout {
	layouts := make([]Layout, len(bins))
	for page, b := range bins {
		placed := make([]Rect, len(b.placed))
		for i, r := range b.placed {
			r.Page = page
			placed[i] = r
		}
		layouts[page] = Layout{Width: width, Height: height, Rects: placed}
	}
	return layouts
}
