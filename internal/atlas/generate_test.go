package atlas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/atlasbuild/internal/pack"
	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

func TestBuildConvexHull_NoRaster(t *testing.T) {
	assert.Nil(t, BuildConvexHull(nil, 8))
	assert.Nil(t, BuildConvexHull(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 8))
	assert.Nil(t, BuildConvexHull(image.NewNRGBA(image.Rect(0, 0, 5, 0)), 0))
}

func TestBuildConvexHull_Fallback(t *testing.T) {
	want := []float32{-0.5, -0.5, -0.5, 0.5, 0.5, 0.5, 0.5, -0.5}

	tests := []struct {
		name   string
		img    image.Image
		budget int
	}{
		{"no alpha", image.NewGray(image.Rect(0, 0, 12, 6)), 8},
		{"zero budget", solid(12, 6, red), 0},
		{"budget below rectangle", solid(12, 6, red), 3},
		{"fully transparent", image.NewNRGBA(image.Rect(0, 0, 12, 6)), 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := BuildConvexHull(tt.img, tt.budget)
			require.NotNil(t, g)
			assert.Equal(t, uint32(12), g.Width)
			assert.Equal(t, uint32(6), g.Height)
			assert.Equal(t, want, g.Vertices)
			assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, g.Indices)
			assert.Len(t, g.UVs, len(g.Vertices))

			again := BuildConvexHull(tt.img, tt.budget)
			assert.Equal(t, g, again)
		})
	}
}

func TestBuildConvexHull_Trimmed(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			dx, dy := x-32, y-32
			if dx*dx+dy*dy <= 12*12 {
				img.SetNRGBA(x, y, green)
			}
		}
	}

	g := BuildConvexHull(img, 8)
	require.NotNil(t, g)
	n := g.VertexCount()
	assert.LessOrEqual(t, n, 8)
	assert.GreaterOrEqual(t, n, 3)
	assert.Len(t, g.Indices, 3*(n-2))
	for _, v := range g.Vertices {
		assert.GreaterOrEqual(t, v, float32(-0.5))
		assert.LessOrEqual(t, v, float32(0.5))
	}
	// a small centred disc never needs the full rectangle
	assert.Less(t, g.Vertices[0], float32(0.5))
	assert.Greater(t, g.Vertices[0], float32(-0.5))
}

func TestCreatePolygonUVs(t *testing.T) {
	geom := BuildConvexHull(image.NewGray(image.Rect(0, 0, 30, 40)), 8)
	r := pack.Rect{X: 10, Y: 20, Width: 30, Height: 40}

	out := CreatePolygonUVs(geom, r, 100, 100)
	require.Len(t, out.UVs, 8)

	// (-0.5,-0.5) is the bottom-left corner, (0.5,0.5) the top-right
	assert.InDelta(t, 0.10, out.UVs[0], uvDelta)
	assert.InDelta(t, 0.40, out.UVs[1], uvDelta)
	assert.InDelta(t, 0.40, out.UVs[4], uvDelta)
	assert.InDelta(t, 0.80, out.UVs[5], uvDelta)

	// input geometry keeps zero UVs
	assert.Equal(t, make([]float32, 8), geom.UVs)
}

func TestCreatePolygonUVs_Rotated(t *testing.T) {
	geom := BuildConvexHull(image.NewGray(image.Rect(0, 0, 30, 40)), 8)
	r := pack.Rect{X: 0, Y: 0, Width: 40, Height: 30, Rotated: true}

	out := CreatePolygonUVs(geom, r, 100, 100)
	for i := 0; i < len(out.UVs); i += 2 {
		u, v := out.UVs[i], out.UVs[i+1]
		assert.InDelta(t, 0.2, u, 0.2+uvDelta, "u of vertex %d inside the rect", i/2)
		assert.InDelta(t, 0.85, v, 0.15+uvDelta, "v of vertex %d inside the rect", i/2)
	}
}

func coloredImages(n, w, h int) []Image {
	images := make([]Image, n)
	for i := range images {
		c := color.NRGBA{R: uint8(40 * (i + 1)), G: uint8(255 - 30*i), B: 7, A: 255}
		images[i] = Image{ID: fmt.Sprintf("tile%d.png", i), Image: solid(w, h, c), HullVertexCount: 8}
	}
	return images
}

func TestGenerate(t *testing.T) {
	images := coloredImages(3, 10, 12)
	it := NewSliceIterator(
		Animation{Desc: AnimDesc{ID: "run", Playback: textureset.PlaybackLoopPingPong, FPS: 8}, Frames: []int{2, 0, 1, 0}},
	)
	opts := Options{Name: "hero", Margin: 1, InnerPadding: 1, ExtrudeBorders: 1, MaxPageWidth: 256, MaxPageHeight: 256}

	res, err := Generate(context.Background(), images, it, opts)
	require.NoError(t, err)
	require.NoError(t, res.TextureSet.Validate())

	ts := res.TextureSet
	assert.Equal(t, "hero", ts.Texture)
	assert.Equal(t, uint32(3), ts.TileCount)
	assert.Equal(t, 7, ts.QuadCount())
	assert.Equal(t, uint32(1), ts.UseGeometries)
	assert.Len(t, ts.Geometries, 3)
	assert.Len(t, res.UVTransforms, 7)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, uint32(1), ts.PageCount)

	run, ok := ts.Animation("run")
	require.True(t, ok)
	assert.Equal(t, 4, run.FrameCount())
	assert.Equal(t, uint32(12), run.Width)
	assert.Equal(t, uint32(14), run.Height)

	// sample every sprite's top-left pixel through its quad
	w, h := res.Layout.PageSize()
	page := res.Pages[0]
	for i := 0; i < 3; i++ {
		q, err := ts.Quad(i)
		require.NoError(t, err)
		x := int(q[2]*float32(w) + 0.5)
		y := int((1-q[3])*float32(h) + 0.5)
		// the quad covers the padding ring; the image starts one pixel in
		assert.Equal(t, images[i].Image.(*image.NRGBA).NRGBAAt(0, 0), page.NRGBAAt(x+1, y+1), "sprite %d", i)
		assert.Equal(t, color.NRGBA{}, page.NRGBAAt(x, y), "padding of sprite %d", i)
	}
}

func TestGenerate_MultiPage(t *testing.T) {
	images := coloredImages(6, 40, 40)
	opts := Options{Name: "pages", ExtrudeBorders: 2, MaxPageWidth: 64, MaxPageHeight: 64}

	res, err := Generate(context.Background(), images, nil, opts)
	require.NoError(t, err)

	require.Len(t, res.Pages, 6)
	assert.Equal(t, uint32(6), res.TextureSet.PageCount)
	seen := map[uint32]bool{}
	for _, p := range res.TextureSet.PageIndices {
		seen[p] = true
	}
	assert.Len(t, seen, 6)
	for _, page := range res.Pages {
		assert.LessOrEqual(t, page.Bounds().Dx(), 64)
		assert.LessOrEqual(t, page.Bounds().Dy(), 64)
	}
}

func TestGenerate_PageIndicesMatchPlacement(t *testing.T) {
	images := coloredImages(5, 200, 200)
	opts := Options{Name: "big", Margin: 2, ExtrudeBorders: 1, MaxPageWidth: 512, MaxPageHeight: 512}

	res, err := Generate(context.Background(), images, nil, opts)
	require.NoError(t, err)
	require.Len(t, res.Pages, 2)
	require.Len(t, res.TextureSet.PageIndices, len(images))

	placedOn := map[int]int{}
	for p, l := range res.Layout.Layouts {
		for _, r := range l.Rects {
			placedOn[r.Index] = p
		}
	}
	require.Len(t, placedOn, len(images))

	w, h := res.Layout.PageSize()
	assert.Equal(t, 512, w)
	assert.Equal(t, 512, h)
	for i, page := range res.TextureSet.PageIndices {
		assert.Contains(t, []uint32{0, 1}, page, "quad %d", i)
		assert.Equal(t, uint32(placedOn[i]), page, "quad %d", i)

		// the centre of the quad shows the image on the page it claims
		q, err := res.TextureSet.Quad(i)
		require.NoError(t, err)
		var u, v float32
		for c := 0; c < 4; c++ {
			u += q[2*c] / 4
			v += q[2*c+1] / 4
		}
		x, y := int(u*float32(w)), int((1-v)*float32(h))
		want := images[i].Image.(*image.NRGBA).NRGBAAt(100, 100)
		assert.Equal(t, want, res.Pages[page].NRGBAAt(x, y), "quad %d", i)
	}
}

func TestGenerate_Grid(t *testing.T) {
	images := coloredImages(4, 16, 16)
	opts := Options{Name: "tiles", UseTileGrid: true, Grid: pack.Grid{Columns: 2, Rows: 2}}

	res, err := Generate(context.Background(), images, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), res.TextureSet.TileWidth)
	assert.Equal(t, uint32(16), res.TextureSet.TileHeight)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, image.Rect(0, 0, 32, 32), res.Pages[0].Bounds())
	assert.Equal(t, images[3].Image.(*image.NRGBA).NRGBAAt(0, 0), res.Pages[0].NRGBAAt(31, 31))
}

func TestGenerate_Empty(t *testing.T) {
	res, err := Generate(context.Background(), nil, nil, Options{MaxPageWidth: 64, MaxPageHeight: 64})
	require.NoError(t, err)
	assert.Empty(t, res.Pages)
	assert.Zero(t, res.TextureSet.QuadCount())
	require.NoError(t, res.TextureSet.Validate())
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("no raster", func(t *testing.T) {
		_, err := Generate(context.Background(), []Image{{ID: "ghost.png"}}, nil, Options{})
		assert.ErrorIs(t, err, ErrNoRaster)
		assert.Contains(t, err.Error(), "ghost.png")
	})

	t.Run("empty raster", func(t *testing.T) {
		images := []Image{
			{ID: "ok.png", Image: solid(4, 4, color.NRGBA{R: 255, A: 255})},
			{ID: "z.png", Image: image.NewNRGBA(image.Rect(0, 0, 0, 0))},
		}
		_, err := Generate(context.Background(), images, nil, Options{ExtrudeBorders: 1})
		assert.ErrorIs(t, err, ErrNoRaster)
		assert.Contains(t, err.Error(), "z.png")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Generate(ctx, coloredImages(2, 8, 8), nil, Options{})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("bad frame", func(t *testing.T) {
		it := NewSliceIterator(Animation{Desc: AnimDesc{ID: "x"}, Frames: []int{5}})
		_, err := Generate(context.Background(), coloredImages(2, 8, 8), it, Options{})
		var frameErr *FrameIndexError
		assert.True(t, errors.As(err, &frameErr), "got %v", err)
	})
}
