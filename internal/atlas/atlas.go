// Package atlas assembles sprite images and animations into texture-set pages.
//
// A build runs in four stages: hull extraction per sprite, layout (padding, extrusion,
// packing, border clipping), vertex/UV emission into the binary texture-set record, and page
// composition. Everything except page composition runs once per build; pages are composed
// independently of each other.
package atlas

import (
	"errors"
	"fmt"
	"image"

	"github.com/Faultbox/atlasbuild/internal/pack"
	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

// Build errors.
var (
	ErrNoRaster     = errors.New("image has no raster data")
	ErrMissingImage = errors.New("no source image for rectangle")
)

// Packer places padded rectangles on pages.
type Packer interface {
	Pack(rects []pack.Rect, margin int, allowRotate bool, mode pack.Mode) ([]pack.Layout, error)
}

// Options configures one atlas build.
type Options struct {
	Name           string // texture name recorded in the texture set
	Margin         int    // space between packed rectangles
	InnerPadding   int    // transparent border added around each image
	ExtrudeBorders int    // edge pixels replicated outward around each image
	AllowRotate    bool
	UseTileGrid    bool
	Grid           pack.Grid
	MaxPageWidth   int
	MaxPageHeight  int
	Packer         Packer // nil selects pack.Default
}

func (o Options) mode() pack.Mode {
	if o.UseTileGrid {
		return pack.GridMode(o.Grid)
	}
	return pack.BinMode(o.MaxPageWidth, o.MaxPageHeight)
}

func (o Options) packer() Packer {
	if o.Packer == nil {
		return pack.Default{}
	}
	return o.Packer
}

// Image is one source sprite.
type Image struct {
	ID              string
	Image           image.Image
	HullVertexCount int // 0 disables hull extraction
}

// LayoutResult holds the packed pages before border clipping.
type LayoutResult struct {
	Layouts        []pack.Layout
	InnerPadding   int
	ExtrudeBorders int
}

// PageSize returns the size shared by all pages, or 1x1 when there are none.
func (lr LayoutResult) PageSize() (int, int) {
	if len(lr.Layouts) == 0 {
		return 1, 1
	}
	return lr.Layouts[0].Width, lr.Layouts[0].Height
}

// Result is the output of Generate.
type Result struct {
	TextureSet   *textureset.TextureSet
	Pages        []*image.NRGBA
	UVTransforms []UVTransform // one per quad, index-aligned with the static rects first
	Layout       LayoutResult
}

// IndexSetError reports a packer result whose rectangle indices do not match the input.
type IndexSetError struct {
	ID     string
	Index  int
	Reason string
}

func (e *IndexSetError) Error() string {
	return fmt.Sprintf("packer returned inconsistent index set: rectangle %q (index %d) %s", e.ID, e.Index, e.Reason)
}

// FrameIndexError reports an animation frame referencing a sprite that does not exist.
type FrameIndexError struct {
	Animation string
	Frame     int
	Index     int
	Count     int
}

func (e *FrameIndexError) Error() string {
	return fmt.Sprintf("animation %q frame %d references image %d, only %d images", e.Animation, e.Frame, e.Index, e.Count)
}
