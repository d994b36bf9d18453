package formats

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"sort"

	"github.com/Faultbox/atlasbuild/pkg/encoding"
)

// GND format errors.
var (
	ErrInvalidGNDMagic       = errors.New("invalid GND magic: expected 'GRGN'")
	ErrUnsupportedGNDVersion = errors.New("unsupported GND version")
	ErrTruncatedGNDData      = errors.New("truncated GND data")
)

// GNDVersion is the ground file version.
type GNDVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GNDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GNDSurface is a textured, lightmapped face of the ground mesh.
type GNDSurface struct {
	U          [4]float32
	V          [4]float32
	TextureID  int16 // -1 = no texture
	LightmapID int16
	Color      [4]uint8 // BGRA
}

// GNDLightmap is one lightmap tile: a shadow intensity and an RGB tint per texel.
type GNDLightmap struct {
	Brightness []uint8
	ColorRGB   []uint8
}

// GND is the part of a ground file that carries textures: the texture table, the
// lightmap tiles and the surfaces referencing them. The height grid is not decoded.
type GND struct {
	Version        GNDVersion
	Width          uint32
	Height         uint32
	Zoom           float32
	Textures       []string
	Lightmaps      []GNDLightmap
	LightmapWidth  uint32
	LightmapHeight uint32
	LightmapCells  uint32
	Surfaces       []GNDSurface
}

// ParseGND decodes a ground file. Versions 1.5 through 1.9 are supported.
func ParseGND(data []byte) (*GND, error) {
	if len(data) < 18 {
		return nil, ErrTruncatedGNDData
	}
	if string(data[0:4]) != "GRGN" {
		return nil, ErrInvalidGNDMagic
	}
	v := GNDVersion{Major: data[4], Minor: data[5]}
	if v.Major != 1 || v.Minor < 5 || v.Minor > 9 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, v)
	}

	b := newBinReader(data[6:])
	g := &GND{Version: v, Width: b.u32(), Height: b.u32(), Zoom: b.f32()}
	if b.err == nil && (g.Width == 0 || g.Height == 0 || g.Width > 1024 || g.Height > 1024) {
		return nil, fmt.Errorf("invalid GND dimensions: %dx%d", g.Width, g.Height)
	}

	textures, nameLen := int(b.u32()), int(b.u32())
	if b.err != nil || textures*nameLen > b.remaining() {
		return nil, fmt.Errorf("%w: texture table", ErrTruncatedGNDData)
	}
	for i := 0; i < textures; i++ {
		g.Textures = append(g.Textures, encoding.DecodeName(b.bytes(nameLen)))
	}

	count := int(b.u32())
	g.LightmapWidth, g.LightmapHeight, g.LightmapCells = b.u32(), b.u32(), b.u32()
	texels := int(g.LightmapWidth * g.LightmapHeight * g.LightmapCells)
	if b.err != nil || count*texels*4 > b.remaining() {
		return nil, fmt.Errorf("%w: lightmaps", ErrTruncatedGNDData)
	}
	g.Lightmaps = make([]GNDLightmap, count)
	for i := range g.Lightmaps {
		g.Lightmaps[i] = GNDLightmap{Brightness: b.bytes(texels), ColorRGB: b.bytes(texels * 3)}
	}

	surfaces := int(b.u32())
	if b.err != nil || surfaces*40 > b.remaining() {
		return nil, fmt.Errorf("%w: surfaces", ErrTruncatedGNDData)
	}
	g.Surfaces = make([]GNDSurface, surfaces)
	for i := range g.Surfaces {
		s := &g.Surfaces[i]
		for c := range s.U {
			s.U[c] = b.f32()
		}
		for c := range s.V {
			s.V[c] = b.f32()
		}
		s.TextureID = int16(b.u16())
		s.LightmapID = int16(b.u16())
		copy(s.Color[:], b.bytes(4))
	}
	if b.err != nil {
		return nil, fmt.Errorf("%w: surfaces", ErrTruncatedGNDData)
	}
	return g, nil
}

// ReadGND decodes the ground file name from fsys.
func ReadGND(fsys fs.FS, name string) (*GND, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading GND file: %w", err)
	}
	return ParseGND(data)
}

// LightmapImage returns lightmap i as an image: RGB is the tint, alpha the shadow
// intensity. Cells stack vertically.
func (g *GND) LightmapImage(i int) *image.NRGBA {
	w, h := int(g.LightmapWidth), int(g.LightmapHeight*max(g.LightmapCells, 1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if i < 0 || i >= len(g.Lightmaps) {
		return img
	}
	lm := g.Lightmaps[i]
	for p := 0; p < w*h && p < len(lm.Brightness); p++ {
		px := img.Pix[p*4 : p*4+4]
		if p*3+2 < len(lm.ColorRGB) {
			px[0], px[1], px[2] = lm.ColorRGB[p*3], lm.ColorRGB[p*3+1], lm.ColorRGB[p*3+2]
		}
		px[3] = lm.Brightness[p]
	}
	return img
}

// UsedLightmaps returns the distinct lightmap ids referenced by surfaces, ascending.
func (g *GND) UsedLightmaps() []int {
	seen := map[int]bool{}
	var ids []int
	for _, s := range g.Surfaces {
		id := int(s.LightmapID)
		if id < 0 || id >= len(g.Lightmaps) || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
