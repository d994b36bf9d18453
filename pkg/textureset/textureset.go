// Package textureset defines the binary texture-set record consumed by the runtime.
//
// A texture set maps every sprite (tile) and every animation frame to a quad on one of the
// atlas pages. Quads are stored as little-endian float32 blobs so the runtime can upload them
// without conversion; the field layout is part of the runtime compatibility surface.
package textureset

import (
	"fmt"
	"strings"
)

// Floats per quad in the TexCoords and TexDims blobs.
const (
	TexCoordsPerQuad = 8
	TexDimsPerQuad   = 2
)

// Playback is the animation loop behaviour.
type Playback uint32

// Playback modes, in runtime enum order.
const (
	PlaybackNone Playback = iota
	PlaybackOnceForward
	PlaybackOnceBackward
	PlaybackOncePingPong
	PlaybackLoopForward
	PlaybackLoopBackward
	PlaybackLoopPingPong
)

var playbackNames = []string{
	"none",
	"once_forward",
	"once_backward",
	"once_pingpong",
	"loop_forward",
	"loop_backward",
	"loop_pingpong",
}

// String returns the lower-case descriptor name of the mode.
func (p Playback) String() string {
	if int(p) < len(playbackNames) {
		return playbackNames[p]
	}
	return fmt.Sprintf("playback(%d)", uint32(p))
}

// ParsePlayback parses a descriptor name such as "loop_forward".
// Names are case-insensitive and accept the "PLAYBACK_" prefix.
func ParsePlayback(s string) (Playback, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "playback_")
	for i, n := range playbackNames {
		if n == name {
			return Playback(i), nil
		}
	}
	return PlaybackNone, fmt.Errorf("unknown playback mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Playback) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Playback) UnmarshalText(text []byte) error {
	v, err := ParsePlayback(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Animation is one named frame range of a texture set.
type Animation struct {
	ID             string   `codec:"id"`
	Start          uint32   `codec:"start"`
	End            uint32   `codec:"end"`
	Playback       Playback `codec:"playback"`
	FPS            uint32   `codec:"fps"`
	FlipHorizontal uint32   `codec:"flip_horizontal"`
	FlipVertical   uint32   `codec:"flip_vertical"`
	Width          uint32   `codec:"width"`
	Height         uint32   `codec:"height"`
}

// FrameCount returns the number of quads in the animation.
func (a Animation) FrameCount() int {
	return int(a.End) - int(a.Start)
}

// SpriteGeometry is the trimmed polygon of one sprite.
//
// Vertices are flattened (x, y) pairs in object space [-0.5, 0.5] with Y up and CCW winding.
// UVs has the same length as Vertices. Indices is a triangle fan from vertex 0.
type SpriteGeometry struct {
	Width    uint32    `codec:"width"`
	Height   uint32    `codec:"height"`
	Vertices []float32 `codec:"vertices"`
	UVs      []float32 `codec:"uvs"`
	Indices  []uint32  `codec:"indices"`
}

// VertexCount returns the number of polygon vertices.
func (g *SpriteGeometry) VertexCount() int {
	return len(g.Vertices) / 2
}

// Clone returns a deep copy of the geometry.
func (g *SpriteGeometry) Clone() *SpriteGeometry {
	if g == nil {
		return nil
	}
	return &SpriteGeometry{
		Width:    g.Width,
		Height:   g.Height,
		Vertices: append([]float32(nil), g.Vertices...),
		UVs:      append([]float32(nil), g.UVs...),
		Indices:  append([]uint32(nil), g.Indices...),
	}
}

// TextureSet is the serialized atlas record.
type TextureSet struct {
	Texture       string           `codec:"texture"`
	PageCount     uint32           `codec:"page_count"`
	TileCount     uint32           `codec:"tile_count"`
	TileWidth     uint32           `codec:"tile_width"`
	TileHeight    uint32           `codec:"tile_height"`
	FrameIndices  []uint32         `codec:"frame_indices"`
	PageIndices   []uint32         `codec:"page_indices"`
	TexCoords     []byte           `codec:"tex_coords"`
	TexDims       []byte           `codec:"tex_dims"`
	Animations    []Animation      `codec:"animations"`
	UseGeometries uint32           `codec:"use_geometries"`
	Geometries    []SpriteGeometry `codec:"geometries"`
}

// QuadCount returns the number of quads encoded in TexCoords.
func (ts *TextureSet) QuadCount() int {
	return len(ts.TexCoords) / (TexCoordsPerQuad * 4)
}

// Animation looks up an animation by id.
func (ts *TextureSet) Animation(id string) (Animation, bool) {
	for _, a := range ts.Animations {
		if a.ID == id {
			return a, true
		}
	}
	return Animation{}, false
}

// Quad returns the 8 texture coordinates of quad i.
func (ts *TextureSet) Quad(i int) ([TexCoordsPerQuad]float32, error) {
	var q [TexCoordsPerQuad]float32
	if i < 0 || i >= ts.QuadCount() {
		return q, fmt.Errorf("quad %d out of range [0,%d)", i, ts.QuadCount())
	}
	off := i * TexCoordsPerQuad * 4
	copy(q[:], Float32s(ts.TexCoords[off:off+TexCoordsPerQuad*4]))
	return q, nil
}

// Validate checks the structural invariants of the record.
func (ts *TextureSet) Validate() error {
	quads := ts.QuadCount()
	if len(ts.TexCoords)%(TexCoordsPerQuad*4) != 0 {
		return fmt.Errorf("%w: tex coords blob is %d bytes", ErrMalformed, len(ts.TexCoords))
	}
	if len(ts.TexDims) != quads*TexDimsPerQuad*4 {
		return fmt.Errorf("%w: tex dims blob holds %d bytes for %d quads", ErrMalformed, len(ts.TexDims), quads)
	}
	if len(ts.FrameIndices) != quads || len(ts.PageIndices) != quads {
		return fmt.Errorf("%w: %d frame indices and %d page indices for %d quads",
			ErrMalformed, len(ts.FrameIndices), len(ts.PageIndices), quads)
	}
	if int(ts.TileCount) > quads {
		return fmt.Errorf("%w: tile count %d exceeds quad count %d", ErrMalformed, ts.TileCount, quads)
	}
	for _, a := range ts.Animations {
		if a.Start > a.End || int(a.End) > quads {
			return fmt.Errorf("%w: animation %q range [%d,%d) outside %d quads", ErrMalformed, a.ID, a.Start, a.End, quads)
		}
	}
	for i, p := range ts.PageIndices {
		if ts.PageCount > 0 && p >= ts.PageCount {
			return fmt.Errorf("%w: quad %d on page %d of %d", ErrMalformed, i, p, ts.PageCount)
		}
	}
	for i := range ts.Geometries {
		g := &ts.Geometries[i]
		if len(g.Vertices) != len(g.UVs) {
			return fmt.Errorf("%w: geometry %d has %d vertices and %d uvs", ErrMalformed, i, len(g.Vertices), len(g.UVs))
		}
		if n := g.VertexCount(); n >= 3 && len(g.Indices) != 3*(n-2) {
			return fmt.Errorf("%w: geometry %d has %d indices for %d vertices", ErrMalformed, i, len(g.Indices), n)
		}
	}
	return nil
}
