// Package formatstest builds synthetic SPR and ACT files for tests.
package formatstest

import (
	"bytes"
	"encoding/binary"
)

// Frame is one sprite frame. Pixels holds palette indices for indexed frames and ABGR
// quadruplets, bottom row first, for true-colour frames.
type Frame struct {
	Width  uint16
	Height uint16
	Pixels []byte
}

// SPRFile describes a sprite sheet.
type SPRFile struct {
	Major, Minor uint8
	Palette      [256][4]byte
	Indexed      []Frame
	TrueColor    []Frame
}

// Bytes encodes the sheet. Version 2.1 and later compress indexed frames.
func (s SPRFile) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("SP")
	buf.WriteByte(s.Minor)
	buf.WriteByte(s.Major)

	put(&buf, uint16(len(s.Indexed)))
	if s.Major >= 2 {
		put(&buf, uint16(len(s.TrueColor)))
	}

	rle := s.Major == 2 && s.Minor >= 1
	for _, f := range s.Indexed {
		put(&buf, f.Width)
		put(&buf, f.Height)
		if rle {
			packed := ZeroRuns(f.Pixels)
			put(&buf, uint16(len(packed)))
			buf.Write(packed)
		} else {
			buf.Write(f.Pixels)
		}
	}
	for _, f := range s.TrueColor {
		put(&buf, f.Width)
		put(&buf, f.Height)
		buf.Write(f.Pixels)
	}
	for _, c := range s.Palette {
		buf.Write(c[:])
	}
	return buf.Bytes()
}

// ZeroRuns compresses runs of zero bytes as 0x00 N.
func ZeroRuns(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); {
		if data[i] != 0 {
			out = append(out, data[i])
			i++
			continue
		}
		n := 0
		for i < len(data) && data[i] == 0 && n < 255 {
			n++
			i++
		}
		out = append(out, 0, byte(n))
	}
	return out
}

// Layer is one ACT layer.
type Layer struct {
	X, Y       int32
	SpriteID   int32
	SpriteType int32
	Flags      uint32
}

// ACTFile describes an animation table. Actions holds, per action, the layers of each frame.
type ACTFile struct {
	Version   uint16
	Actions   [][][]Layer
	Events    []string
	Intervals []float32
}

// Bytes encodes the table.
func (a ACTFile) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("AC")
	buf.WriteByte(byte(a.Version))
	buf.WriteByte(byte(a.Version >> 8))
	put(&buf, uint16(len(a.Actions)))
	buf.Write(make([]byte, 10))

	for _, frames := range a.Actions {
		put(&buf, uint32(len(frames)))
		for _, layers := range frames {
			buf.Write(make([]byte, 32))
			put(&buf, uint32(len(layers)))
			for _, l := range layers {
				put(&buf, l.X)
				put(&buf, l.Y)
				put(&buf, l.SpriteID)
				put(&buf, l.Flags)
				buf.Write([]byte{255, 255, 255, 255})
				put(&buf, float32(1))
				if a.Version >= 0x204 {
					put(&buf, float32(1))
				}
				put(&buf, float32(0))
				put(&buf, l.SpriteType)
				if a.Version >= 0x205 {
					put(&buf, int32(0))
					put(&buf, int32(0))
				}
			}
			put(&buf, int32(-1))
			if a.Version >= 0x203 {
				put(&buf, uint32(1))
				buf.Write(make([]byte, 16))
			}
		}
	}

	if a.Version >= 0x201 {
		put(&buf, int32(len(a.Events)))
		for _, e := range a.Events {
			name := make([]byte, 40)
			copy(name, e)
			buf.Write(name)
		}
	}
	if a.Version >= 0x202 {
		for _, iv := range a.Intervals {
			put(&buf, iv)
		}
	}
	return buf.Bytes()
}

func put(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}

// Surface is one GND surface.
type Surface struct {
	TextureID  int16
	LightmapID int16
}

// Lightmap is one GND lightmap: Brightness has w*h bytes, ColorRGB 3*w*h.
type Lightmap struct {
	Brightness []byte
	ColorRGB   []byte
}

// GNDFile describes a ground file. Version is 1.Minor.
type GNDFile struct {
	Minor          uint8
	Width, Height  uint32
	Textures       []string
	LightmapWidth  uint32
	LightmapHeight uint32
	Lightmaps      []Lightmap
	Surfaces       []Surface
}

// Bytes encodes the file, followed by a flat height grid.
func (g GNDFile) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("GRGN")
	buf.WriteByte(1)
	buf.WriteByte(g.Minor)
	put(&buf, g.Width)
	put(&buf, g.Height)
	put(&buf, float32(10))

	put(&buf, uint32(len(g.Textures)))
	put(&buf, uint32(80))
	for _, tex := range g.Textures {
		name := make([]byte, 80)
		copy(name, tex)
		buf.Write(name)
	}

	put(&buf, uint32(len(g.Lightmaps)))
	put(&buf, g.LightmapWidth)
	put(&buf, g.LightmapHeight)
	put(&buf, uint32(1))
	for _, lm := range g.Lightmaps {
		buf.Write(lm.Brightness)
		buf.Write(lm.ColorRGB)
	}

	put(&buf, uint32(len(g.Surfaces)))
	for _, s := range g.Surfaces {
		put(&buf, [8]float32{0, 1, 0, 1, 0, 0, 1, 1})
		put(&buf, s.TextureID)
		put(&buf, s.LightmapID)
		buf.Write([]byte{255, 255, 255, 255})
	}

	for i := uint32(0); i < g.Width*g.Height; i++ {
		put(&buf, [4]float32{})
		put(&buf, [3]int32{-1, -1, -1})
	}
	return buf.Bytes()
}
