package source

import (
	"errors"
	"fmt"
	"image"
)

// ErrTGA is returned for TGA files the decoder cannot read.
var ErrTGA = errors.New("unsupported or corrupt TGA")

const tgaHeaderSize = 18

// TGA image types.
const (
	tgaTrueColor    = 2
	tgaGray         = 3
	tgaTrueColorRLE = 10
	tgaGrayRLE      = 11
)

// DecodeTGA decodes uncompressed and RLE true-colour (24/32 bpp) and grayscale (8 bpp) TGA
// images. Colour-mapped files are rejected.
func DecodeTGA(data []byte) (*image.NRGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("%w: header truncated", ErrTGA)
	}
	idLength := int(data[0])
	if data[1] != 0 {
		return nil, fmt.Errorf("%w: colour-mapped images", ErrTGA)
	}
	kind := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topDown := data[17]&0x20 != 0

	gray := kind == tgaGray || kind == tgaGrayRLE
	switch {
	case kind != tgaTrueColor && kind != tgaTrueColorRLE && !gray:
		return nil, fmt.Errorf("%w: image type %d", ErrTGA, kind)
	case gray && bpp != 8, !gray && bpp != 24 && bpp != 32:
		return nil, fmt.Errorf("%w: %d bpp for type %d", ErrTGA, bpp, kind)
	case width == 0 || height == 0:
		return nil, fmt.Errorf("%w: empty image", ErrTGA)
	}

	body := data[min(tgaHeaderSize+idLength, len(data)):]
	size := bpp / 8
	count := width * height

	var pixels []byte
	if kind == tgaTrueColorRLE || kind == tgaGrayRLE {
		pixels = expandTGARLE(body, count, size)
	} else {
		pixels = body
	}
	if len(pixels) < count*size {
		return nil, fmt.Errorf("%w: pixel data truncated", ErrTGA)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < count; i++ {
		x, y := i%width, i/width
		if !topDown {
			y = height - 1 - y
		}
		px := pixels[i*size : i*size+size]
		dst := img.Pix[img.PixOffset(x, y):]
		switch size {
		case 1:
			dst[0], dst[1], dst[2], dst[3] = px[0], px[0], px[0], 255
		case 3:
			dst[0], dst[1], dst[2], dst[3] = px[2], px[1], px[0], 255
		case 4:
			dst[0], dst[1], dst[2], dst[3] = px[2], px[1], px[0], px[3]
		}
	}
	return img, nil
}

// expandTGARLE unpacks run-length packets into count raw pixels of size bytes each.
// A truncated stream yields fewer pixels.
func expandTGARLE(data []byte, count, size int) []byte {
	out := make([]byte, 0, count*size)
	for i := 0; i < len(data) && len(out) < count*size; {
		packet := data[i]
		i++
		n := int(packet&0x7F) + 1
		if packet&0x80 != 0 {
			if i+size > len(data) {
				break
			}
			for j := 0; j < n && len(out) < count*size; j++ {
				out = append(out, data[i:i+size]...)
			}
			i += size
			continue
		}
		raw := min(n*size, len(data)-i, count*size-len(out))
		out = append(out, data[i:i+raw]...)
		i += n * size
	}
	return out
}
