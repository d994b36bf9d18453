package source

import (
	"fmt"
	"image"
	"io/fs"

	"github.com/Faultbox/atlasbuild/internal/atlas"
	"github.com/Faultbox/atlasbuild/pkg/formats"
	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

// spriteSheet is a decoded SPR sheet and the animations of its ACT table. Animation frames
// index Frames.
type spriteSheet struct {
	Frames     []*image.NRGBA
	Animations []atlas.Animation
}

func loadSprite(fsys fs.FS, s SpriteDesc) (*spriteSheet, error) {
	spr, err := formats.ReadSPR(fsys, s.SPR)
	if err != nil {
		return nil, fmt.Errorf("sprite %s: %w", s.SPR, err)
	}
	sheet := &spriteSheet{Frames: spr.RGBAImages()}
	if s.ACT == "" {
		return sheet, nil
	}

	act, err := formats.ReadACT(fsys, s.ACT)
	if err != nil {
		return nil, fmt.Errorf("sprite %s: %w", s.ACT, err)
	}

	playback := textureset.PlaybackLoopForward
	if s.Playback != nil {
		playback = *s.Playback
	}
	for _, seq := range act.Sequences(spr.IndexedCount) {
		if len(seq.Frames) == 0 {
			continue
		}
		for _, f := range seq.Frames {
			if f >= len(sheet.Frames) {
				return nil, fmt.Errorf("sprite %s: action %q shows frame %d of %d", s.ACT, seq.Name, f, len(sheet.Frames))
			}
		}
		sheet.Animations = append(sheet.Animations, atlas.Animation{
			Desc: atlas.AnimDesc{
				ID:             s.prefix() + "/" + seq.Name,
				Playback:       playback,
				FPS:            seq.FPS,
				FlipHorizontal: seq.Mirrored,
			},
			Frames: seq.Frames,
		})
	}
	return sheet, nil
}
