package source

import (
	"fmt"
	"image"
	"io/fs"

	"github.com/Faultbox/atlasbuild/internal/pack"
	"github.com/Faultbox/atlasbuild/pkg/formats"
)

// lightmapSet is the lightmap tiles of a ground file in id order.
type lightmapSet struct {
	IDs   []int
	Tiles []image.Image
	Grid  pack.Grid
}

func loadLightmaps(fsys fs.FS, src LightmapSourceDesc) (*lightmapSet, error) {
	g, err := formats.ReadGND(fsys, src.GND)
	if err != nil {
		return nil, fmt.Errorf("lightmaps %s: %w", src.GND, err)
	}

	set := &lightmapSet{}
	if src.UsedOnly {
		set.IDs = g.UsedLightmaps()
	} else {
		set.IDs = make([]int, len(g.Lightmaps))
		for i := range set.IDs {
			set.IDs[i] = i
		}
	}
	for _, id := range set.IDs {
		set.Tiles = append(set.Tiles, g.LightmapImage(id))
	}

	// square power-of-two tile rows
	perRow := 1
	for perRow*perRow < len(set.Tiles) {
		perRow *= 2
	}
	set.Grid = pack.Grid{Columns: perRow, Rows: (len(set.Tiles) + perRow - 1) / perRow}
	return set, nil
}
