package source

import (
	"fmt"
	"image"
	"io/fs"
	"math"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/lafriks/go-tiled"

	"github.com/Faultbox/atlasbuild/internal/atlas"
	"github.com/Faultbox/atlasbuild/internal/pack"
	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

// tileSet is one Tiled tileset cut into tiles. Animation frames index Tiles.
type tileSet struct {
	Name       string
	Tiles      []image.Image
	Grid       pack.Grid
	Animations []atlas.Animation
}

func loadTileSource(fsys fs.FS, src TileSourceDesc) (*tileSet, error) {
	m, err := tiled.LoadFile(src.Map, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", src.Map, err)
	}

	var ts *tiled.Tileset
	for _, t := range m.Tilesets {
		if src.Tileset == "" || t.Name == src.Tileset {
			ts = t
			break
		}
	}
	if ts == nil {
		return nil, fmt.Errorf("%w: map %s has no tileset %q", ErrInvalidDescriptor, src.Map, src.Tileset)
	}

	set := &tileSet{Name: ts.Name}
	var index map[uint32]int
	if ts.Image != nil {
		index, err = set.cutSheet(fsys, ts)
	} else {
		index, err = set.loadCollection(fsys, ts)
	}
	if err != nil {
		return nil, fmt.Errorf("tileset %s: %w", ts.Name, err)
	}

	cols := ts.Columns
	if cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(len(set.Tiles)))))
	}
	set.Grid = pack.Grid{Columns: cols, Rows: (len(set.Tiles) + cols - 1) / max(cols, 1)}

	playback := textureset.PlaybackLoopForward
	if src.Playback != nil {
		playback = *src.Playback
	}
	for _, tile := range ts.Tiles {
		if len(tile.Animation) == 0 {
			continue
		}
		a := atlas.Animation{Desc: atlas.AnimDesc{
			ID:       tile.Properties.GetString("name"),
			Playback: playback,
		}}
		if a.Desc.ID == "" {
			a.Desc.ID = fmt.Sprintf("%s/%d", ts.Name, tile.ID)
		}
		var total uint32
		for _, f := range tile.Animation {
			i, ok := index[f.TileID]
			if !ok {
				return nil, fmt.Errorf("tileset %s: tile %d animates unknown tile %d", ts.Name, tile.ID, f.TileID)
			}
			a.Frames = append(a.Frames, i)
			total += f.Duration
		}
		a.Desc.FPS = tileFPS(len(a.Frames), total)
		set.Animations = append(set.Animations, a)
	}
	sort.Slice(set.Animations, func(i, j int) bool { return set.Animations[i].Desc.ID < set.Animations[j].Desc.ID })
	return set, nil
}

// cutSheet slices a single-image tileset into TileCount tiles in id order.
func (s *tileSet) cutSheet(fsys fs.FS, ts *tiled.Tileset) (map[uint32]int, error) {
	sheet, err := readImage(fsys, tilesetPath(ts, ts.Image.Source))
	if err != nil {
		return nil, err
	}
	if ts.TileWidth <= 0 || ts.TileHeight <= 0 {
		return nil, fmt.Errorf("%w: tile size %dx%d", ErrInvalidDescriptor, ts.TileWidth, ts.TileHeight)
	}

	bounds := sheet.Bounds()
	cols := ts.Columns
	if cols <= 0 {
		cols = (bounds.Dx() - 2*ts.Margin + ts.Spacing) / (ts.TileWidth + ts.Spacing)
	}
	if cols <= 0 {
		return nil, fmt.Errorf("%w: sheet %v narrower than a %dx%d tile", ErrInvalidDescriptor, bounds, ts.TileWidth, ts.TileHeight)
	}
	count := ts.TileCount
	if count <= 0 {
		rows := (bounds.Dy() - 2*ts.Margin + ts.Spacing) / (ts.TileHeight + ts.Spacing)
		count = cols * rows
	}

	index := make(map[uint32]int, count)
	for id := 0; id < count; id++ {
		x := ts.Margin + (id%cols)*(ts.TileWidth+ts.Spacing)
		y := ts.Margin + (id/cols)*(ts.TileHeight+ts.Spacing)
		r := image.Rect(x, y, x+ts.TileWidth, y+ts.TileHeight).Add(bounds.Min)
		if !r.In(bounds) {
			return nil, fmt.Errorf("tile %d at %v outside the %v sheet", id, r, bounds)
		}
		index[uint32(id)] = len(s.Tiles)
		s.Tiles = append(s.Tiles, imaging.Crop(sheet, r))
	}
	return index, nil
}

// loadCollection reads an image-collection tileset, one image per tile in id order.
func (s *tileSet) loadCollection(fsys fs.FS, ts *tiled.Tileset) (map[uint32]int, error) {
	tiles := make([]*tiled.TilesetTile, 0, len(ts.Tiles))
	for _, t := range ts.Tiles {
		if t.Image != nil {
			tiles = append(tiles, t)
		}
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].ID < tiles[j].ID })

	index := make(map[uint32]int, len(tiles))
	for _, t := range tiles {
		img, err := readImage(fsys, tilesetPath(ts, t.Image.Source))
		if err != nil {
			return nil, err
		}
		index[t.ID] = len(s.Tiles)
		s.Tiles = append(s.Tiles, img)
	}
	return index, nil
}

func tilesetPath(ts *tiled.Tileset, name string) string {
	return filepath.ToSlash(filepath.Clean(ts.GetFileFullPath(name)))
}

// tileFPS converts a frame count and total duration in milliseconds to frames per second.
func tileFPS(frames int, totalMS uint32) int {
	if frames == 0 || totalMS == 0 {
		return 0
	}
	return max(int(math.Round(1000*float64(frames)/float64(totalMS))), 1)
}

func readImage(fsys fs.FS, name string) (image.Image, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return DecodeImage(name, data)
}
