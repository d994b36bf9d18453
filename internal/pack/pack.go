// Package pack places sprite rectangles on atlas pages.
//
// Two strategies are provided: a fixed tile grid and a multi-page MaxRects bin packer with
// optional 90 degree rotation. Both preserve the full set of rectangle indices; neither
// preserves order.
package pack

import (
	"errors"
	"fmt"
	"sort"
)

// Packing errors.
var (
	ErrGridTooSmall = errors.New("tile grid too small for all rectangles")
	ErrPageTooLarge = errors.New("page size limit exceeded")
)

// Rect is one sprite footprint.
//
// Index is the stable position of the sprite in the source list. After packing, X/Y/Page hold
// the placement and Width/Height the footprint on the page, swapped when Rotated.
type Rect struct {
	ID      string
	Index   int
	X       int
	Y       int
	Width   int
	Height  int
	Rotated bool
	Page    int
}

// NewRect returns an unplaced rectangle.
func NewRect(id string, index, width, height int) Rect {
	return Rect{ID: id, Index: index, Width: width, Height: height}
}

// Area returns Width*Height.
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Right returns the exclusive right edge.
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Layout is one output page.
type Layout struct {
	Width  int
	Height int
	Rects  []Rect
}

// Grid is the tile grid of a tile source. Zero values are derived from the rect count.
type Grid struct {
	Columns int
	Rows    int
}

// Mode selects the placement strategy.
type Mode struct {
	UseGrid   bool
	Grid      Grid
	MaxWidth  int // bin mode page limit, <= 0 for a single unbounded page
	MaxHeight int
}

// GridMode returns a fixed-grid mode.
func GridMode(g Grid) Mode {
	return Mode{UseGrid: true, Grid: g}
}

// BinMode returns a bin-packing mode bounded by maxWidth x maxHeight per page.
func BinMode(maxWidth, maxHeight int) Mode {
	return Mode{MaxWidth: maxWidth, MaxHeight: maxHeight}
}

// String describes the mode for logs.
func (m Mode) String() string {
	if m.UseGrid {
		return fmt.Sprintf("grid(%dx%d)", m.Grid.Columns, m.Grid.Rows)
	}
	if m.MaxWidth <= 0 || m.MaxHeight <= 0 {
		return "bin(unbounded)"
	}
	return fmt.Sprintf("bin(%dx%d)", m.MaxWidth, m.MaxHeight)
}

// TooLargeError reports a rectangle that cannot fit on any page.
type TooLargeError struct {
	ID        string
	Width     int
	Height    int
	MaxWidth  int
	MaxHeight int
	Rotate    bool
}

func (e *TooLargeError) Error() string {
	hint := ""
	if !e.Rotate {
		hint = " (rotation disabled)"
	}
	return fmt.Sprintf("image %q (%dx%d) does not fit a %dx%d page%s", e.ID, e.Width, e.Height, e.MaxWidth, e.MaxHeight, hint)
}

// Default packs with GridLayout or PackedLayout depending on the mode.
type Default struct{}

// Pack implements the packer contract of the atlas engine.
func (Default) Pack(rects []Rect, margin int, allowRotate bool, mode Mode) ([]Layout, error) {
	if mode.UseGrid {
		layout, err := GridLayout(margin, rects, mode.Grid)
		if err != nil {
			return nil, err
		}
		if len(layout.Rects) == 0 {
			return nil, nil
		}
		return []Layout{layout}, nil
	}
	return PackedLayout(margin, rects, allowRotate, mode.MaxWidth, mode.MaxHeight)
}

// GridLayout places rects row-major by index into uniform cells the size of the largest rect.
func GridLayout(margin int, rects []Rect, grid Grid) (Layout, error) {
	if len(rects) == 0 {
		return Layout{}, nil
	}

	sorted := append([]Rect(nil), rects...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	cellW, cellH := 0, 0
	for _, r := range sorted {
		cellW = max(cellW, r.Width)
		cellH = max(cellH, r.Height)
	}

	cols, rows := grid.Columns, grid.Rows
	if cols <= 0 {
		cols = 1
		for cols*cols < len(sorted) {
			cols++
		}
	}
	if rows <= 0 {
		rows = (len(sorted) + cols - 1) / cols
	}
	if cols*rows < len(sorted) {
		return Layout{}, fmt.Errorf("%w: %dx%d cells for %d rectangles", ErrGridTooSmall, cols, rows, len(sorted))
	}

	for i := range sorted {
		sorted[i].X = (i % cols) * (cellW + margin)
		sorted[i].Y = (i / cols) * (cellH + margin)
		sorted[i].Rotated = false
		sorted[i].Page = 0
	}

	return Layout{
		Width:  NextPowerOfTwo(cols*cellW + (cols-1)*margin),
		Height: NextPowerOfTwo(rows*cellH + (rows-1)*margin),
		Rects:  sorted,
	}, nil
}

// NextPowerOfTwo returns the smallest power of two >= v (1 for v <= 1).
func NextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}
