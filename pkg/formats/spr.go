package formats

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
)

// SPR format errors.
var (
	ErrInvalidSPRMagic       = errors.New("invalid SPR magic: expected 'SP'")
	ErrUnsupportedSPRVersion = errors.New("unsupported SPR version")
	ErrTruncatedSPRData      = errors.New("truncated SPR data")
)

const sprPaletteSize = 256 * 4

// SPRVersion is the sprite file version.
type SPRVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v SPRVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// SPR is a decoded sprite sheet.
//
// Frames holds the palette frames first and the true-colour frames after them, so ACT layers
// address true-colour frames at IndexedCount + id.
type SPR struct {
	Version      SPRVersion
	IndexedCount int
	Frames       []*image.NRGBA
	Palette      color.Palette
}

// ParseSPR decodes a sprite sheet. Versions 1.1 through 2.1 are supported.
func ParseSPR(data []byte) (*SPR, error) {
	if len(data) < 4 {
		return nil, ErrTruncatedSPRData
	}
	if data[0] != 'S' || data[1] != 'P' {
		return nil, ErrInvalidSPRMagic
	}

	v := SPRVersion{Major: data[3], Minor: data[2]}
	if v.Major < 1 || v.Major > 2 || (v.Major == 1 && v.Minor < 1) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSPRVersion, v)
	}
	if len(data) < 4+sprPaletteSize {
		return nil, fmt.Errorf("%w: no room for palette", ErrTruncatedSPRData)
	}

	body := newBinReader(data[4 : len(data)-sprPaletteSize])
	indexed := int(body.u16())
	trueColor := 0
	if v.Major >= 2 {
		trueColor = int(body.u16())
	}
	if body.err != nil {
		return nil, fmt.Errorf("%w: reading frame counts", ErrTruncatedSPRData)
	}

	spr := &SPR{
		Version:      v,
		IndexedCount: indexed,
		Frames:       make([]*image.NRGBA, 0, indexed+trueColor),
		Palette:      decodePalette(data[len(data)-sprPaletteSize:]),
	}

	rle := v.Major == 2 && v.Minor >= 1
	for i := 0; i < indexed; i++ {
		img, err := decodeIndexedFrame(body, spr.Palette, rle)
		if err != nil {
			return nil, fmt.Errorf("indexed frame %d: %w", i, err)
		}
		spr.Frames = append(spr.Frames, img)
	}
	for i := 0; i < trueColor && body.remaining() > 0; i++ {
		img, err := decodeTrueColorFrame(body)
		if err != nil {
			return nil, fmt.Errorf("true-colour frame %d: %w", i, err)
		}
		spr.Frames = append(spr.Frames, img)
	}
	return spr, nil
}

// ReadSPR decodes the sprite sheet name from fsys.
func ReadSPR(fsys fs.FS, name string) (*SPR, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading SPR file: %w", err)
	}
	return ParseSPR(data)
}

// RGBAImages returns every frame in address order.
func (s *SPR) RGBAImages() []*image.NRGBA {
	return s.Frames
}

// decodePalette reads 256 RGBA entries. Entry 0 is the transparent key.
func decodePalette(data []byte) color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		c := data[i*4 : i*4+4]
		p[i] = color.NRGBA{R: c[0], G: c[1], B: c[2], A: 255}
	}
	p[0] = color.NRGBA{}
	return p
}

// readFrameSize reads a frame header. Blank frames decode as a single transparent pixel.
func readFrameSize(b *binReader) (w, h int, blank bool, err error) {
	fw, fh := b.u16(), b.u16()
	if b.err != nil {
		return 0, 0, false, fmt.Errorf("%w: reading frame size", ErrTruncatedSPRData)
	}
	if fw == 0 || fh == 0 || fw == 0xFFFF || fh == 0xFFFF {
		return 1, 1, true, nil
	}
	return int(fw), int(fh), false, nil
}

func decodeIndexedFrame(b *binReader, palette color.Palette, rle bool) (*image.NRGBA, error) {
	w, h, blank, err := readFrameSize(b)
	if err != nil {
		return nil, err
	}
	if blank {
		return image.NewNRGBA(image.Rect(0, 0, w, h)), nil
	}

	var indices []byte
	if rle {
		packed := b.bytes(int(b.u16()))
		indices = expandZeroRuns(packed, w*h)
	} else {
		indices = b.bytes(w * h)
	}
	if b.err != nil {
		return nil, fmt.Errorf("%w: reading %dx%d pixels", ErrTruncatedSPRData, w, h)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, idx := range indices {
		if idx == 0 {
			continue
		}
		c := palette[idx].(color.NRGBA)
		copy(img.Pix[i*4:i*4+4], []byte{c.R, c.G, c.B, c.A})
	}
	return img, nil
}

// expandZeroRuns decodes the v2.1 scheme where 0x00 N stands for N zero bytes.
// The output is truncated or zero-filled to size.
func expandZeroRuns(packed []byte, size int) []byte {
	out := make([]byte, 0, size)
	for i := 0; i < len(packed) && len(out) < size; i++ {
		if packed[i] != 0 {
			out = append(out, packed[i])
			continue
		}
		if i+1 >= len(packed) {
			break
		}
		i++
		run := max(int(packed[i]), 1)
		for j := 0; j < run && len(out) < size; j++ {
			out = append(out, 0)
		}
	}
	return append(out, make([]byte, size-len(out))...)
}

// decodeTrueColorFrame reads ABGR pixels stored bottom row first.
func decodeTrueColorFrame(b *binReader) (*image.NRGBA, error) {
	w, h, blank, err := readFrameSize(b)
	if err != nil {
		return nil, err
	}
	if blank {
		return image.NewNRGBA(image.Rect(0, 0, w, h)), nil
	}

	abgr := b.bytes(w * h * 4)
	if b.err != nil {
		return nil, fmt.Errorf("%w: reading %dx%d ABGR pixels", ErrTruncatedSPRData, w, h)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := abgr[(h-1-y)*w*4:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			s := src[x*4 : x*4+4]
			dst[x*4+0] = s[3]
			dst[x*4+1] = s[2]
			dst[x*4+2] = s[1]
			dst[x*4+3] = s[0]
		}
	}
	return img, nil
}
