package source

import (
	"bytes"
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// DecodeImage decodes an image file, choosing the decoder by extension. BMP images get the
// magenta colour key applied since they carry no alpha.
func DecodeImage(name string, data []byte) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".tga":
		img, err = DecodeTGA(data)
	case ".bmp":
		var raw image.Image
		if raw, err = bmp.Decode(bytes.NewReader(data)); err == nil {
			img = ApplyMagentaKey(raw)
		}
	case ".tif", ".tiff":
		img, err = tiff.Decode(bytes.NewReader(data))
	case ".webp":
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return img, nil
}

// IsMagentaKey reports whether an RGB colour is the transparency key. The tolerance absorbs
// rounding in 16-bit BMP palettes.
func IsMagentaKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}

// ApplyMagentaKey returns an NRGBA copy of img with key-coloured pixels made transparent
// black.
func ApplyMagentaKey(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	for i := 0; i+3 < len(out.Pix); i += 4 {
		if IsMagentaKey(out.Pix[i], out.Pix[i+1], out.Pix[i+2]) {
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = 0, 0, 0, 0
		}
	}
	return out
}
