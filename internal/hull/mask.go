// Package hull computes bounded-vertex convex hulls of sprite alpha masks.
package hull

import (
	"image"
	"image/color"
)

// Mask is a binary coverage map of a sprite, one cell per pixel.
type Mask struct {
	Width  int
	Height int
	bits   []bool
}

// NewMask returns an empty mask.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{Width: width, Height: height, bits: make([]bool, width*height)}
}

// MaskFromImage marks every pixel whose alpha is above threshold.
func MaskFromImage(img image.Image, threshold uint8) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < m.Height; y++ {
			row := nrgba.Pix[(y)*nrgba.Stride:]
			for x := 0; x < m.Width; x++ {
				m.bits[y*m.Width+x] = row[x*4+3] > threshold
			}
		}
		return m
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			a := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA).A
			m.bits[y*m.Width+x] = a > threshold
		}
	}
	return m
}

// Set marks pixel (x, y). Out of range coordinates are ignored.
func (m *Mask) Set(x, y int) {
	if x >= 0 && y >= 0 && x < m.Width && y < m.Height {
		m.bits[y*m.Width+x] = true
	}
}

// At reports whether pixel (x, y) is covered.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Empty reports whether no pixel is covered.
func (m *Mask) Empty() bool {
	for _, b := range m.bits {
		if b {
			return false
		}
	}
	return true
}

// Bounds returns the inclusive pixel bounds of the covered area.
func (m *Mask) Bounds() (minX, minY, maxX, maxY int, ok bool) {
	minX, minY = m.Width, m.Height
	maxX, maxY = -1, -1
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.bits[y*m.Width+x] {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}
	return minX, minY, maxX, maxY, maxX >= 0
}

// Dilate grows the covered area by n pixels in every direction (square kernel).
// The result is clamped to the mask size.
func (m *Mask) Dilate(n int) *Mask {
	if n <= 0 {
		out := NewMask(m.Width, m.Height)
		copy(out.bits, m.bits)
		return out
	}

	// Separable: horizontal pass then vertical pass.
	horiz := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.bits[y*m.Width+x] {
				continue
			}
			for dx := -n; dx <= n; dx++ {
				horiz.Set(x+dx, y)
			}
		}
	}

	out := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !horiz.bits[y*m.Width+x] {
				continue
			}
			for dy := -n; dy <= n; dy++ {
				out.Set(x, y+dy)
			}
		}
	}
	return out
}
