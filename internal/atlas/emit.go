package atlas

import (
	"github.com/Faultbox/atlasbuild/internal/pack"
	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

// VertexData is the per-quad output of EmitVertexData.
//
// Quads 0..TileCount-1 are the static sprites in index order; animation frames follow,
// each animation occupying a contiguous [Start, End) range.
type VertexData struct {
	TileCount    int
	FrameIndices []uint32
	PageIndices  []uint32
	TexCoords    []float32 // TexCoordsPerQuad values per quad
	TexDims      []float32 // TexDimsPerQuad values per quad
	Animations   []textureset.Animation
	UVTransforms []UVTransform
}

// QuadCount returns the number of emitted quads.
func (vd *VertexData) QuadCount() int {
	return len(vd.FrameIndices)
}

// EmitVertexData writes one quad per rect and one per animation frame.
//
// rects must be the clipped rects in index order and width x height the page size.
// The iterator is drained once and rewound.
func EmitVertexData(width, height int, rects []pack.Rect, it AnimIterator) (VertexData, error) {
	anims := collectAnimations(it)

	quads := len(rects)
	for _, a := range anims {
		quads += len(a.Frames)
	}

	vd := VertexData{
		TileCount:    len(rects),
		FrameIndices: make([]uint32, 0, quads),
		PageIndices:  make([]uint32, 0, quads),
		TexCoords:    make([]float32, 0, quads*textureset.TexCoordsPerQuad),
		TexDims:      make([]float32, 0, quads*textureset.TexDimsPerQuad),
		UVTransforms: make([]UVTransform, 0, quads),
	}

	xs := 1 / float32(width)
	ys := 1 / float32(height)

	for i, r := range rects {
		vd.putRect(r, xs, ys, width, height)
		vd.FrameIndices = append(vd.FrameIndices, uint32(i))
	}

	for _, a := range anims {
		if len(a.Frames) == 0 {
			continue
		}
		start := vd.QuadCount()
		for f, idx := range a.Frames {
			if idx < 0 || idx >= len(rects) {
				return VertexData{}, &FrameIndexError{Animation: a.Desc.ID, Frame: f, Index: idx, Count: len(rects)}
			}
			vd.putRect(rects[idx], xs, ys, width, height)
			vd.FrameIndices = append(vd.FrameIndices, uint32(idx))
		}

		ref := rects[a.Frames[0]]
		w, h := ref.Width, ref.Height
		if ref.Rotated {
			w, h = h, w
		}
		vd.Animations = append(vd.Animations, textureset.Animation{
			ID:             a.Desc.ID,
			Start:          uint32(start),
			End:            uint32(vd.QuadCount()),
			Playback:       a.Desc.Playback,
			FPS:            uint32(max(a.Desc.FPS, 0)),
			FlipHorizontal: boolToUint(a.Desc.FlipHorizontal),
			FlipVertical:   boolToUint(a.Desc.FlipVertical),
			Width:          uint32(w),
			Height:         uint32(h),
		})
	}
	return vd, nil
}

func (vd *VertexData) putRect(r pack.Rect, xs, ys float32, width, height int) {
	x0, y0 := float32(r.X)*xs, float32(r.Y)*ys
	x1, y1 := float32(r.X+r.Width)*xs, float32(r.Y+r.Height)*ys

	if r.Rotated {
		vd.TexCoords = append(vd.TexCoords, x0, 1-y0, x1, 1-y0, x1, 1-y1, x0, 1-y1)
		vd.TexDims = append(vd.TexDims, float32(r.Height), float32(r.Width))
	} else {
		vd.TexCoords = append(vd.TexCoords, x0, 1-y1, x0, 1-y0, x1, 1-y0, x1, 1-y1)
		vd.TexDims = append(vd.TexDims, float32(r.Width), float32(r.Height))
	}
	vd.PageIndices = append(vd.PageIndices, uint32(r.Page))
	vd.UVTransforms = append(vd.UVTransforms, NewUVTransform(r, width, height))
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
