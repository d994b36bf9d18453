package formats

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
)

// ACT format errors.
var (
	ErrInvalidACTMagic       = errors.New("invalid ACT magic: expected 'AC'")
	ErrUnsupportedACTVersion = errors.New("unsupported ACT version")
	ErrTruncatedACTData      = errors.New("truncated ACT data")
)

// Interval ticks are 25 ms; 4 ticks (10 fps) is the client default.
const (
	actTick            = 25.0
	actDefaultInterval = 4.0
)

// ACTVersion is the animation table version, e.g. 0x205.
type ACTVersion uint16

// String returns the version as "Major.Minor".
func (v ACTVersion) String() string {
	return fmt.Sprintf("%d.%d", v>>8, v&0xFF)
}

// ACT is a decoded animation table.
type ACT struct {
	Version   ACTVersion
	Actions   []Action
	Events    []string
	Intervals []float32 // per action, in 25 ms ticks
}

// Action is one animation: a frame list.
type Action struct {
	Frames []Frame
}

// Frame is one animation step composed of sprite layers.
type Frame struct {
	Layers  []Layer
	EventID int32 // -1 when the frame has no event
}

// Layer draws one sprite frame.
type Layer struct {
	X, Y       int32
	SpriteID   int32 // -1 for an empty layer
	Flags      uint32
	SpriteType int32 // 0 palette frame, 1 true-colour frame
}

// Mirrored reports whether the layer is drawn flipped horizontally.
func (l Layer) Mirrored() bool {
	return l.Flags&1 != 0
}

// Sequence is an action reduced to the sprite frames it shows.
type Sequence struct {
	Name     string
	Frames   []int // indexes into SPR.Frames
	FPS      int
	Mirrored bool // the first layer of the first frame is mirrored
}

// ParseACT decodes an animation table. Versions 0x200 through 0x205 are supported.
func ParseACT(data []byte) (*ACT, error) {
	if len(data) < 16 {
		return nil, ErrTruncatedACTData
	}
	if data[0] != 'A' || data[1] != 'C' {
		return nil, ErrInvalidACTMagic
	}

	v := ACTVersion(uint16(data[3])<<8 | uint16(data[2]))
	if v < 0x200 || v > 0x205 {
		return nil, fmt.Errorf("%w: 0x%X", ErrUnsupportedACTVersion, uint16(v))
	}

	head := newBinReader(data[4:6])
	count := int(head.u16())
	// 10 reserved bytes follow the action count
	b := newBinReader(data[16:])

	act := &ACT{Version: v, Actions: make([]Action, 0, count)}
	for i := 0; i < count; i++ {
		a, err := decodeAction(b, v)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		act.Actions = append(act.Actions, a)
	}

	// Trailing sections are optional in files written by older tools.
	if v >= 0x201 && b.remaining() >= 4 {
		events := int(b.i32())
		for i := 0; i < events; i++ {
			name := b.cstring(40)
			if b.err != nil {
				return nil, fmt.Errorf("%w: event %d", ErrTruncatedACTData, i)
			}
			act.Events = append(act.Events, name)
		}
	}
	if v >= 0x202 {
		act.Intervals = make([]float32, count)
		for i := 0; i < count && b.remaining() >= 4; i++ {
			act.Intervals[i] = b.f32()
		}
	}
	return act, nil
}

// ReadACT decodes the animation table name from fsys.
func ReadACT(fsys fs.FS, name string) (*ACT, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading ACT file: %w", err)
	}
	return ParseACT(data)
}

func decodeAction(b *binReader, v ACTVersion) (Action, error) {
	n := int(b.u32())
	if b.err != nil {
		return Action{}, fmt.Errorf("%w: frame count", ErrTruncatedACTData)
	}
	if n > b.remaining() {
		return Action{}, fmt.Errorf("%w: %d frames declared", ErrTruncatedACTData, n)
	}

	a := Action{Frames: make([]Frame, 0, n)}
	for i := 0; i < n; i++ {
		f, err := decodeFrame(b, v)
		if err != nil {
			return Action{}, fmt.Errorf("frame %d: %w", i, err)
		}
		a.Frames = append(a.Frames, f)
	}
	return a, nil
}

func decodeFrame(b *binReader, v ACTVersion) (Frame, error) {
	b.skip(32) // two unused clip rectangles
	n := int(b.u32())
	if b.err != nil {
		return Frame{}, fmt.Errorf("%w: layer count", ErrTruncatedACTData)
	}
	if n > b.remaining() {
		return Frame{}, fmt.Errorf("%w: %d layers declared", ErrTruncatedACTData, n)
	}

	f := Frame{Layers: make([]Layer, 0, n)}
	for i := 0; i < n; i++ {
		l := Layer{X: b.i32(), Y: b.i32(), SpriteID: b.i32(), Flags: b.u32()}
		b.skip(4) // tint
		b.f32()   // x scale
		if v >= 0x204 {
			b.f32() // y scale
		}
		b.f32() // rotation
		l.SpriteType = b.i32()
		if v >= 0x205 {
			b.skip(8) // explicit width and height
		}
		if b.err != nil {
			return Frame{}, fmt.Errorf("%w: layer %d", ErrTruncatedACTData, i)
		}
		f.Layers = append(f.Layers, l)
	}

	f.EventID = b.i32()
	if v >= 0x203 {
		anchors := int(b.u32())
		if b.err == nil && anchors*16 > b.remaining() {
			return Frame{}, fmt.Errorf("%w: %d anchors declared", ErrTruncatedACTData, anchors)
		}
		b.skip(anchors * 16)
	}
	if b.err != nil {
		return Frame{}, fmt.Errorf("%w: frame trailer", ErrTruncatedACTData)
	}
	return f, nil
}

// FPS converts the interval of action i to frames per second.
func (a *ACT) FPS(i int) int {
	interval := float64(actDefaultInterval)
	if i >= 0 && i < len(a.Intervals) {
		if iv := float64(a.Intervals[i]); iv > 0 && !math.IsNaN(iv) && !math.IsInf(iv, 0) {
			interval = iv
		}
	}
	return max(int(math.Round(1000/(interval*actTick))), 1)
}

// Sequences reduces every action to the sprite frames it displays, taking the first
// non-empty layer of each frame. indexed is the palette frame count of the paired SPR.
// Frames without a visible layer are dropped.
func (a *ACT) Sequences(indexed int) []Sequence {
	seqs := make([]Sequence, 0, len(a.Actions))
	for i, action := range a.Actions {
		s := Sequence{Name: GetActionName(i, len(a.Actions)), FPS: a.FPS(i)}
		for _, f := range action.Frames {
			for _, l := range f.Layers {
				if l.SpriteID < 0 {
					continue
				}
				idx := int(l.SpriteID)
				if l.SpriteType == 1 {
					idx += indexed
				}
				if len(s.Frames) == 0 {
					s.Mirrored = l.Mirrored()
				}
				s.Frames = append(s.Frames, idx)
				break
			}
		}
		seqs = append(seqs, s)
	}
	return seqs
}
