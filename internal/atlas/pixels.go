package atlas

import (
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// toNRGBA returns img as an NRGBA image anchored at the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Pad surrounds img with n transparent pixels.
func Pad(img image.Image, n int) *image.NRGBA {
	src := toNRGBA(img)
	if n <= 0 {
		return src
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w+2*n, h+2*n))
	draw.Draw(dst, image.Rect(n, n, n+w, n+h), src, image.Point{}, draw.Src)
	return dst
}

// Extrude surrounds img with n pixels replicating its outermost row or column.
func Extrude(img image.Image, n int) *image.NRGBA {
	src := toNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if n <= 0 {
		return src
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w+2*n, h+2*n))
	if w == 0 || h == 0 {
		// nothing to replicate
		return dst
	}
	for y := 0; y < h+2*n; y++ {
		sy := min(max(y-n, 0), h-1)
		srow := src.Pix[sy*src.Stride:]
		drow := dst.Pix[y*dst.Stride:]
		for x := 0; x < w+2*n; x++ {
			sx := min(max(x-n, 0), w-1)
			copy(drow[x*4:x*4+4], srow[sx*4:sx*4+4])
		}
	}
	return dst
}

// Rotate90 turns img a quarter clockwise.
func Rotate90(img image.Image) *image.NRGBA {
	return imaging.Rotate270(img)
}

// prepare applies padding, extrusion and rotation in packing order.
func prepare(img image.Image, pad, extrude int, rotated bool) *image.NRGBA {
	out := toNRGBA(img)
	if pad > 0 {
		out = Pad(out, pad)
	}
	if extrude > 0 {
		out = Extrude(out, extrude)
	}
	if rotated {
		out = Rotate90(out)
	}
	return out
}
