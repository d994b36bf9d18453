package atlas

import "github.com/Faultbox/atlasbuild/pkg/textureset"

// AnimDesc describes one animation. It is immutable once constructed.
type AnimDesc struct {
	ID             string
	Playback       textureset.Playback
	FPS            int
	FlipHorizontal bool
	FlipVertical   bool
}

// AnimIterator walks animations and, per animation, its frame image indices.
//
// NextAnim moves to the next animation; NextFrameIndex yields the current animation's frames.
// Both return false when exhausted. Rewind restarts from the first animation and must make
// the sequence replay exactly.
type AnimIterator interface {
	NextAnim() (AnimDesc, bool)
	NextFrameIndex() (int, bool)
	Rewind()
}

// Animation pairs a description with its frame image indices.
type Animation struct {
	Desc   AnimDesc
	Frames []int
}

// SliceIterator is an AnimIterator over a fixed animation list.
type SliceIterator struct {
	anims []Animation
	anim  int
	frame int
}

// NewSliceIterator returns an iterator positioned before the first animation.
func NewSliceIterator(anims ...Animation) *SliceIterator {
	return &SliceIterator{anims: anims, anim: -1}
}

// NextAnim implements AnimIterator.
func (it *SliceIterator) NextAnim() (AnimDesc, bool) {
	if it.anim+1 >= len(it.anims) {
		it.anim = len(it.anims)
		return AnimDesc{}, false
	}
	it.anim++
	it.frame = 0
	return it.anims[it.anim].Desc, true
}

// NextFrameIndex implements AnimIterator.
func (it *SliceIterator) NextFrameIndex() (int, bool) {
	if it.anim < 0 || it.anim >= len(it.anims) {
		return 0, false
	}
	frames := it.anims[it.anim].Frames
	if it.frame >= len(frames) {
		return 0, false
	}
	idx := frames[it.frame]
	it.frame++
	return idx, true
}

// Rewind implements AnimIterator.
func (it *SliceIterator) Rewind() {
	it.anim = -1
	it.frame = 0
}

// Len returns the number of animations.
func (it *SliceIterator) Len() int {
	return len(it.anims)
}

// collectAnimations drains it once into memory and rewinds it.
func collectAnimations(it AnimIterator) []Animation {
	if it == nil {
		return nil
	}
	var anims []Animation
	for {
		desc, ok := it.NextAnim()
		if !ok {
			break
		}
		a := Animation{Desc: desc}
		for {
			idx, ok := it.NextFrameIndex()
			if !ok {
				break
			}
			a.Frames = append(a.Frames, idx)
		}
		anims = append(anims, a)
	}
	it.Rewind()
	return anims
}
