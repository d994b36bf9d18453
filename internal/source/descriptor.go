// Package source turns atlas descriptors into the images, animations and options of a build.
//
// Sources are plain images (PNG, JPEG, GIF, BMP, TIFF, WebP, TGA), SPR/ACT sprite pairs,
// Tiled tilesets and GND lightmaps. Paths resolve against the descriptor's directory, or inside a GRF archive
// when the descriptor names one.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

// ErrInvalidDescriptor is returned for descriptors that cannot describe a build.
var ErrInvalidDescriptor = errors.New("invalid atlas descriptor")

// Descriptor is one atlas build as written in YAML. Unset numeric fields take the
// configured defaults.
type Descriptor struct {
	ID              string `yaml:"id"`
	Margin          *int   `yaml:"margin"`
	InnerPadding    *int   `yaml:"inner_padding"`
	ExtrudeBorders  *int   `yaml:"extrude_borders"`
	Rotate          *bool  `yaml:"rotate"`
	MaxPageWidth    *int   `yaml:"max_page_width"`
	MaxPageHeight   *int   `yaml:"max_page_height"`
	HullVertexCount *int   `yaml:"hull_vertex_count"`
	Archive         string `yaml:"archive"`

	Images     []ImageDesc         `yaml:"images"`
	Animations []AnimationDesc     `yaml:"animations"`
	Sprites    []SpriteDesc        `yaml:"sprites"`
	TileSource *TileSourceDesc     `yaml:"tile_source"`
	Lightmaps  *LightmapSourceDesc `yaml:"lightmap_source"`
}

// ImageDesc is a standalone sprite image. A bare string is accepted as the path.
type ImageDesc struct {
	Path            string `yaml:"path"`
	HullVertexCount *int   `yaml:"hull_vertex_count"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *ImageDesc) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		d.Path = n.Value
		return nil
	}
	type plain ImageDesc
	return n.Decode((*plain)(d))
}

// AnimationDesc is an animation over image paths. Paths already listed under images share
// their entry.
type AnimationDesc struct {
	ID             string              `yaml:"id"`
	Playback       textureset.Playback `yaml:"playback"`
	FPS            int                 `yaml:"fps"`
	FlipHorizontal bool                `yaml:"flip_horizontal"`
	FlipVertical   bool                `yaml:"flip_vertical"`
	Images         []string            `yaml:"images"`
}

// SpriteDesc is an SPR sheet with an optional ACT table. Every sheet frame becomes an image;
// every non-empty action becomes an animation named "<prefix>/<action name>".
type SpriteDesc struct {
	SPR             string               `yaml:"spr"`
	ACT             string               `yaml:"act"`
	Prefix          string               `yaml:"prefix"` // defaults to the SPR base name
	Playback        *textureset.Playback `yaml:"playback"`
	HullVertexCount *int                 `yaml:"hull_vertex_count"`
}

// TileSourceDesc selects a tileset of a Tiled map. It switches the build to grid mode.
type TileSourceDesc struct {
	Map      string               `yaml:"map"`
	Tileset  string               `yaml:"tileset"` // defaults to the first tileset
	Playback *textureset.Playback `yaml:"playback"`
}

// LightmapSourceDesc packs the lightmap tiles of a GND ground file. It switches the build to
// grid mode.
type LightmapSourceDesc struct {
	GND      string `yaml:"gnd"`
	UsedOnly bool   `yaml:"used_only"` // skip lightmaps no surface references
}

// LoadDescriptor reads and validates the descriptor at path.
func LoadDescriptor(name string) (*Descriptor, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// ParseDescriptor decodes and validates a YAML descriptor. Unknown keys are rejected.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the fields a build cannot do without.
func (d *Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDescriptor)
	}
	for _, v := range []*int{d.Margin, d.InnerPadding, d.ExtrudeBorders, d.MaxPageWidth, d.MaxPageHeight, d.HullVertexCount} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: negative value %d", ErrInvalidDescriptor, *v)
		}
	}
	if d.TileSource != nil && d.TileSource.Map == "" {
		return fmt.Errorf("%w: tile_source needs a map", ErrInvalidDescriptor)
	}
	if d.Lightmaps != nil && d.Lightmaps.GND == "" {
		return fmt.Errorf("%w: lightmap_source needs a gnd", ErrInvalidDescriptor)
	}
	if d.TileSource != nil || d.Lightmaps != nil {
		if len(d.Images)+len(d.Animations)+len(d.Sprites) > 0 || (d.TileSource != nil && d.Lightmaps != nil) {
			return fmt.Errorf("%w: a grid source cannot be combined with other sources", ErrInvalidDescriptor)
		}
	}

	for i, img := range d.Images {
		if img.Path == "" {
			return fmt.Errorf("%w: image %d has no path", ErrInvalidDescriptor, i)
		}
	}
	seen := map[string]bool{}
	for i, a := range d.Animations {
		if a.ID == "" {
			return fmt.Errorf("%w: animation %d has no id", ErrInvalidDescriptor, i)
		}
		if seen[a.ID] {
			return fmt.Errorf("%w: duplicate animation id %q", ErrInvalidDescriptor, a.ID)
		}
		if a.FPS < 0 {
			return fmt.Errorf("%w: animation %q has negative fps", ErrInvalidDescriptor, a.ID)
		}
		seen[a.ID] = true
	}
	for i, s := range d.Sprites {
		if s.SPR == "" {
			return fmt.Errorf("%w: sprite %d has no spr", ErrInvalidDescriptor, i)
		}
	}
	return nil
}

// prefix returns the animation id prefix of a sprite sheet.
func (s SpriteDesc) prefix() string {
	if s.Prefix != "" {
		return s.Prefix
	}
	base := path.Base(s.SPR)
	return base[:len(base)-len(path.Ext(base))]
}
