package atlas

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/atlasbuild/internal/logger"
	"github.com/Faultbox/atlasbuild/internal/pack"
	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

// Generate runs a full build: hulls, layout, vertex data and page images.
//
// Pages are composed concurrently; ctx cancels the build between stages and between pages.
func Generate(ctx context.Context, images []Image, it AnimIterator, opts Options) (*Result, error) {
	start := time.Now()

	rects := make([]pack.Rect, len(images))
	hulls := make([]*textureset.SpriteGeometry, len(images))
	useGeometries := false
	for i, img := range images {
		if img.Image == nil || img.Image.Bounds().Empty() {
			return nil, fmt.Errorf("%w: %q", ErrNoRaster, img.ID)
		}
		b := img.Image.Bounds()
		rects[i] = pack.NewRect(img.ID, i, b.Dx(), b.Dy())
		hulls[i] = BuildConvexHull(img.Image, img.HullVertexCount)
		if img.HullVertexCount > 0 {
			useGeometries = true
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layout, placed, err := CalculateLayout(rects, opts)
	if err != nil {
		return nil, err
	}
	width, height := layout.PageSize()

	vd, err := EmitVertexData(width, height, placed, it)
	if err != nil {
		return nil, err
	}

	ts := &textureset.TextureSet{
		Texture:      opts.Name,
		PageCount:    uint32(len(layout.Layouts)),
		TileCount:    uint32(vd.TileCount),
		FrameIndices: vd.FrameIndices,
		PageIndices:  vd.PageIndices,
		TexCoords:    textureset.PutFloat32s(vd.TexCoords),
		TexDims:      textureset.PutFloat32s(vd.TexDims),
		Animations:   vd.Animations,
	}
	if useGeometries {
		ts.UseGeometries = 1
	}
	if opts.UseTileGrid {
		for _, r := range rects {
			ts.TileWidth = max(ts.TileWidth, uint32(r.Width))
			ts.TileHeight = max(ts.TileHeight, uint32(r.Height))
		}
	}
	ts.Geometries = make([]textureset.SpriteGeometry, len(placed))
	for i, r := range placed {
		// vertices scale by the source size, not the padded rect
		ts.Geometries[i] = *CreatePolygonUVs(hulls[r.Index], r, width, height)
	}

	pages, err := composePages(ctx, layout, images)
	if err != nil {
		return nil, err
	}

	logger.Named("atlas").Info("atlas generated",
		zap.String("texture", opts.Name),
		zap.Int("images", len(images)),
		zap.Int("animations", len(vd.Animations)),
		zap.Int("quads", vd.QuadCount()),
		zap.Int("pages", len(pages)),
		zap.Int("pageWidth", width),
		zap.Int("pageHeight", height),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		TextureSet:   ts,
		Pages:        pages,
		UVTransforms: vd.UVTransforms,
		Layout:       layout,
	}, nil
}

func composePages(ctx context.Context, layout LayoutResult, images []Image) ([]*image.NRGBA, error) {
	pages := make([]*image.NRGBA, len(layout.Layouts))
	g, ctx := errgroup.WithContext(ctx)
	for i, l := range layout.Layouts {
		i, l := i, l
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			page, err := composePage(l, layout.InnerPadding, layout.ExtrudeBorders, func(r pack.Rect) image.Image {
				return images[r.Index].Image
			})
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}
