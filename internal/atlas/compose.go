package atlas

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/Faultbox/atlasbuild/internal/pack"
)

// ComposePage renders one page, looking source images up by rect ID.
func ComposePage(layout pack.Layout, pad, extrude int, images map[string]image.Image) (*image.NRGBA, error) {
	return composePage(layout, pad, extrude, func(r pack.Rect) image.Image {
		return images[r.ID]
	})
}

// composePage blits every rect of layout onto a transparent page. Rects carry the packed
// footprint, which matches the padded, extruded and rotated image exactly.
func composePage(layout pack.Layout, pad, extrude int, source func(pack.Rect) image.Image) (*image.NRGBA, error) {
	page := image.NewNRGBA(image.Rect(0, 0, layout.Width, layout.Height))
	for _, r := range layout.Rects {
		img := source(r)
		if img == nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingImage, r.ID)
		}
		src := prepare(img, pad, extrude, r.Rotated)
		if src.Rect.Dx() != r.Width || src.Rect.Dy() != r.Height {
			return nil, fmt.Errorf("image %q is %dx%d after preparation, layout expects %dx%d",
				r.ID, src.Rect.Dx(), src.Rect.Dy(), r.Width, r.Height)
		}
		draw.Draw(page, image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height), src, image.Point{}, draw.Src)
	}
	return page, nil
}
