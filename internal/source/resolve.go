package source

import (
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/atlasbuild/internal/atlas"
	"github.com/Faultbox/atlasbuild/internal/config"
	"github.com/Faultbox/atlasbuild/internal/logger"
	"github.com/Faultbox/atlasbuild/pkg/grf"
)

// Build is a resolved descriptor, ready for atlas.Generate.
type Build struct {
	ID         string
	Images     []atlas.Image
	Animations *atlas.SliceIterator
	Options    atlas.Options
}

// Open loads the descriptor at name and resolves it against the directory holding it, or
// against the GRF archive it names (relative to that directory).
func Open(name string, defaults config.BuildConfig) (*Build, error) {
	desc, err := LoadDescriptor(name)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(name)
	if desc.Archive == "" {
		return Resolve(desc, os.DirFS(dir), defaults)
	}

	archive, err := grf.Open(filepath.Join(dir, desc.Archive))
	if err != nil {
		return nil, fmt.Errorf("atlas %s: %w", desc.ID, err)
	}
	defer archive.Close()
	return Resolve(desc, archive, defaults)
}

// pending is an image slot filled by the decode pass.
type pending struct {
	path  string
	image image.Image // set for sources decoded while resolving
}

// resolver collects images, de-duplicating file paths.
type resolver struct {
	images  []atlas.Image
	pending []pending
	byPath  map[string]int
}

func (r *resolver) addFile(p string, hull int) int {
	key := path.Clean(filepath.ToSlash(p))
	if i, ok := r.byPath[key]; ok {
		return i
	}
	r.byPath[key] = len(r.images)
	r.images = append(r.images, atlas.Image{ID: key, HullVertexCount: hull})
	r.pending = append(r.pending, pending{path: key})
	return len(r.images) - 1
}

func (r *resolver) addDecoded(id string, img image.Image, hull int) int {
	r.images = append(r.images, atlas.Image{ID: id, HullVertexCount: hull})
	r.pending = append(r.pending, pending{image: img})
	return len(r.images) - 1
}

// Resolve reads every source the descriptor names from fsys. Unset descriptor fields take
// their value from defaults.
func Resolve(desc *Descriptor, fsys fs.FS, defaults config.BuildConfig) (*Build, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	opts := atlas.Options{
		Name:           desc.ID,
		Margin:         intOr(desc.Margin, defaults.Margin),
		InnerPadding:   intOr(desc.InnerPadding, defaults.InnerPadding),
		ExtrudeBorders: intOr(desc.ExtrudeBorders, defaults.ExtrudeBorders),
		AllowRotate:    defaults.AllowRotate,
		MaxPageWidth:   intOr(desc.MaxPageWidth, defaults.MaxPageWidth),
		MaxPageHeight:  intOr(desc.MaxPageHeight, defaults.MaxPageHeight),
	}
	if desc.Rotate != nil {
		opts.AllowRotate = *desc.Rotate
	}
	hull := intOr(desc.HullVertexCount, defaults.HullVertexCount)

	r := &resolver{byPath: map[string]int{}}
	var anims []atlas.Animation

	for _, img := range desc.Images {
		r.addFile(img.Path, intOr(img.HullVertexCount, hull))
	}
	for _, a := range desc.Animations {
		frames := make([]int, len(a.Images))
		for i, p := range a.Images {
			frames[i] = r.addFile(p, hull)
		}
		anims = append(anims, atlas.Animation{
			Desc: atlas.AnimDesc{
				ID:             a.ID,
				Playback:       a.Playback,
				FPS:            a.FPS,
				FlipHorizontal: a.FlipHorizontal,
				FlipVertical:   a.FlipVertical,
			},
			Frames: frames,
		})
	}

	for _, s := range desc.Sprites {
		sheet, err := loadSprite(fsys, s)
		if err != nil {
			return nil, fmt.Errorf("atlas %s: %w", desc.ID, err)
		}
		base := make([]int, len(sheet.Frames))
		for i, f := range sheet.Frames {
			base[i] = r.addDecoded(fmt.Sprintf("%s#%d", s.SPR, i), f, intOr(s.HullVertexCount, hull))
		}
		for _, a := range sheet.Animations {
			a.Frames = remap(a.Frames, base)
			anims = append(anims, a)
		}
	}

	if desc.TileSource != nil {
		set, err := loadTileSource(fsys, *desc.TileSource)
		if err != nil {
			return nil, fmt.Errorf("atlas %s: %w", desc.ID, err)
		}
		base := make([]int, len(set.Tiles))
		for i, t := range set.Tiles {
			base[i] = r.addDecoded(fmt.Sprintf("%s#%d", set.Name, i), t, hull)
		}
		for _, a := range set.Animations {
			a.Frames = remap(a.Frames, base)
			anims = append(anims, a)
		}
		opts.UseTileGrid = true
		opts.Grid = set.Grid
	}

	if desc.Lightmaps != nil {
		set, err := loadLightmaps(fsys, *desc.Lightmaps)
		if err != nil {
			return nil, fmt.Errorf("atlas %s: %w", desc.ID, err)
		}
		for i, t := range set.Tiles {
			r.addDecoded(fmt.Sprintf("%s#%d", desc.Lightmaps.GND, set.IDs[i]), t, 0)
		}
		opts.UseTileGrid = true
		opts.Grid = set.Grid
	}

	if err := r.decode(fsys); err != nil {
		return nil, fmt.Errorf("atlas %s: %w", desc.ID, err)
	}

	logger.Named("source").Debug("descriptor resolved",
		zap.String("atlas", desc.ID),
		zap.Int("images", len(r.images)),
		zap.Int("animations", len(anims)),
		zap.Bool("grid", opts.UseTileGrid))

	return &Build{
		ID:         desc.ID,
		Images:     r.images,
		Animations: atlas.NewSliceIterator(anims...),
		Options:    opts,
	}, nil
}

// decode reads and decodes the file-backed images in parallel.
func (r *resolver) decode(fsys fs.FS) error {
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, p := range r.pending {
		i, p := i, p
		if p.image != nil {
			r.images[i].Image = p.image
			continue
		}
		g.Go(func() error {
			img, err := readImage(fsys, p.path)
			if err != nil {
				return err
			}
			r.images[i].Image = img
			return nil
		})
	}
	return g.Wait()
}

func remap(frames, base []int) []int {
	out := make([]int, len(frames))
	for i, f := range frames {
		out[i] = base[f]
	}
	return out
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}
