package atlas

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/atlasbuild/internal/logger"
	"github.com/Faultbox/atlasbuild/internal/pack"
)

// GrowRects returns copies of rects enlarged by amount on every side.
func GrowRects(rects []pack.Rect, amount int) []pack.Rect {
	out := make([]pack.Rect, len(rects))
	for i, r := range rects {
		r.Width += 2 * amount
		r.Height += 2 * amount
		out[i] = r
	}
	return out
}

// ClipBorders returns copies of rects shrunk by b on every side.
func ClipBorders(rects []pack.Rect, b int) []pack.Rect {
	out := make([]pack.Rect, len(rects))
	for i, r := range rects {
		r.X += b
		r.Y += b
		r.Width -= 2 * b
		r.Height -= 2 * b
		out[i] = r
	}
	return out
}

// CalculateLayout grows rects by padding and extrusion, packs them and returns the layouts
// together with the placed rects clipped back by the extrusion, ordered by index.
//
// Rect indices are reassigned to input order. The caller's slice is not modified.
func CalculateLayout(rects []pack.Rect, opts Options) (LayoutResult, []pack.Rect, error) {
	indexed := make([]pack.Rect, len(rects))
	for i, r := range rects {
		r.Index = i
		indexed[i] = r
	}
	grown := GrowRects(indexed, opts.InnerPadding+opts.ExtrudeBorders)

	mode := opts.mode()
	layouts, err := opts.packer().Pack(grown, opts.Margin, opts.AllowRotate, mode)
	if err != nil {
		return LayoutResult{}, nil, err
	}

	var placed []pack.Rect
	for page := range layouts {
		for i := range layouts[page].Rects {
			if !mode.UseGrid {
				layouts[page].Rects[i].Page = page
			}
			placed = append(placed, layouts[page].Rects[i])
		}
	}
	sort.SliceStable(placed, func(i, j int) bool { return placed[i].Index < placed[j].Index })

	if err := checkIndexSet(placed, indexed); err != nil {
		return LayoutResult{}, nil, err
	}

	if logger.Enabled(zapcore.DebugLevel) {
		perPage := make([]int, len(layouts))
		for p, l := range layouts {
			perPage[p] = len(l.Rects)
		}
		logger.Named("atlas").Debug("layout complete",
			zap.Stringer("mode", mode),
			zap.Int("rects", len(placed)),
			zap.Int("pages", len(layouts)),
			zap.Ints("rectsPerPage", perPage))
	}

	result := LayoutResult{Layouts: layouts, InnerPadding: opts.InnerPadding, ExtrudeBorders: opts.ExtrudeBorders}
	return result, ClipBorders(placed, opts.ExtrudeBorders), nil
}

// checkIndexSet verifies that sorted holds exactly the indices 0..len(input)-1.
func checkIndexSet(sorted, input []pack.Rect) error {
	for i, r := range sorted {
		switch {
		case r.Index < 0 || r.Index >= len(input):
			return &IndexSetError{ID: r.ID, Index: r.Index, Reason: fmt.Sprintf("is outside [0,%d)", len(input))}
		case r.Index < i:
			return &IndexSetError{ID: r.ID, Index: r.Index, Reason: "appears more than once"}
		case r.Index > i:
			missing := input[i]
			return &IndexSetError{ID: missing.ID, Index: i, Reason: "is missing from the layout"}
		}
	}
	if len(sorted) < len(input) {
		missing := input[len(sorted)]
		return &IndexSetError{ID: missing.ID, Index: missing.Index, Reason: "is missing from the layout"}
	}
	return nil
}
