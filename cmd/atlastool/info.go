package main

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"

	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: atlastool info <file.texturesetc>")
	}

	ts, err := textureset.ReadFile(args[0])
	if err != nil {
		return err
	}

	pterm.Info.Printf("Texture set %s\n", args[0])
	pterm.Printf("Texture:    %s\n", ts.Texture)
	pterm.Printf("Pages:      %d\n", ts.PageCount)
	pterm.Printf("Tiles:      %d\n", ts.TileCount)
	pterm.Printf("Quads:      %d\n", ts.QuadCount())
	if ts.TileWidth > 0 {
		pterm.Printf("Tile grid:  %dx%d\n", ts.TileWidth, ts.TileHeight)
	}
	pterm.Printf("Geometries: %d\n", len(ts.Geometries))

	if len(ts.Animations) == 0 {
		return nil
	}
	pterm.Println()
	data := [][]string{{"Animation", "Frames", "Playback", "FPS", "Size", "Flip"}}
	for _, a := range ts.Animations {
		flip := ""
		if a.FlipHorizontal != 0 {
			flip += "H"
		}
		if a.FlipVertical != 0 {
			flip += "V"
		}
		data = append(data, []string{
			a.ID,
			fmt.Sprintf("%d-%d", a.Start, a.End),
			a.Playback.String(),
			fmt.Sprintf("%d", a.FPS),
			fmt.Sprintf("%dx%d", a.Width, a.Height),
			flip,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
