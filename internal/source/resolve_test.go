package source

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/lafriks/go-tiled"

	"github.com/Faultbox/atlasbuild/internal/atlas"
	"github.com/Faultbox/atlasbuild/internal/config"
	"github.com/Faultbox/atlasbuild/pkg/formats/formatstest"
	"github.com/Faultbox/atlasbuild/pkg/grf/grftest"
	"github.com/Faultbox/atlasbuild/pkg/textureset"
)

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func npcFiles() (spr, act []byte) {
	s := formatstest.SPRFile{
		Major: 2,
		Indexed: []formatstest.Frame{
			{Width: 2, Height: 2, Pixels: []byte{1, 1, 1, 1}},
			{Width: 3, Height: 1, Pixels: []byte{0, 1, 0}},
		},
	}
	s.Palette[1] = [4]byte{200, 10, 10, 0}

	a := formatstest.ACTFile{
		Version: 0x205,
		Actions: [][][]formatstest.Layer{
			{{{SpriteID: 1, Flags: 1}}, {{SpriteID: 0}}},
			{{{SpriteID: -1}}},
		},
		Intervals: []float32{2, 4},
	}
	return s.Bytes(), a.Bytes()
}

func collect(it atlas.AnimIterator) map[string][]int {
	out := map[string][]int{}
	for {
		desc, ok := it.NextAnim()
		if !ok {
			return out
		}
		var frames []int
		for {
			f, ok := it.NextFrameIndex()
			if !ok {
				break
			}
			frames = append(frames, f)
		}
		out[desc.ID] = frames
	}
}

func TestResolve(t *testing.T) {
	spr, act := npcFiles()
	fsys := fstest.MapFS{
		"a.png":          {Data: pngBytes(t, 4, 4, color.NRGBA{R: 255, A: 255})},
		"b.png":          {Data: pngBytes(t, 5, 3, color.NRGBA{G: 255, A: 255})},
		"anim/c.png":     {Data: pngBytes(t, 2, 6, color.NRGBA{B: 255, A: 255})},
		"sprite/npc.spr": {Data: spr},
		"sprite/npc.act": {Data: act},
	}
	desc, err := ParseDescriptor([]byte(`
id: mix
margin: 3
rotate: true
images: [a.png, {path: b.png, hull_vertex_count: 6}]
animations:
  - {id: blink, playback: loop_forward, fps: 4, images: [./b.png, anim/c.png]}
sprites:
  - {spr: sprite/npc.spr, act: sprite/npc.act}
`))
	if err != nil {
		t.Fatal(err)
	}

	defaults := config.Default().Build
	defaults.HullVertexCount = 8
	b, err := Resolve(desc, fsys, defaults)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	wantIDs := []string{"a.png", "b.png", "anim/c.png", "sprite/npc.spr#0", "sprite/npc.spr#1"}
	if len(b.Images) != len(wantIDs) {
		t.Fatalf("got %d images, want %d", len(b.Images), len(wantIDs))
	}
	for i, id := range wantIDs {
		if b.Images[i].ID != id {
			t.Errorf("image %d id = %q, want %q", i, b.Images[i].ID, id)
		}
		if b.Images[i].Image == nil {
			t.Errorf("image %d not decoded", i)
		}
	}
	if got := b.Images[1].Image.Bounds().Size(); got != image.Pt(5, 3) {
		t.Errorf("b.png size = %v", got)
	}
	if b.Images[0].HullVertexCount != 8 || b.Images[1].HullVertexCount != 6 {
		t.Errorf("hull counts = %d, %d", b.Images[0].HullVertexCount, b.Images[1].HullVertexCount)
	}

	anims := collect(b.Animations)
	if len(anims) != 2 {
		t.Fatalf("animations = %v", anims)
	}
	if got := anims["blink"]; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("blink frames = %v, want [1 2]", got)
	}
	if got := anims["npc/Action 0"]; len(got) != 2 || got[0] != 4 || got[1] != 3 {
		t.Errorf("npc frames = %v, want [4 3]", got)
	}

	b.Animations.Rewind()
	desc0, _ := b.Animations.NextAnim()
	desc1, _ := b.Animations.NextAnim()
	if desc0.Playback != textureset.PlaybackLoopForward || desc0.FPS != 4 {
		t.Errorf("blink desc = %+v", desc0)
	}
	if desc1.Playback != textureset.PlaybackLoopForward || desc1.FPS != 20 || !desc1.FlipHorizontal {
		t.Errorf("npc desc = %+v", desc1)
	}

	opts := b.Options
	if opts.Name != "mix" || opts.Margin != 3 || !opts.AllowRotate || opts.UseTileGrid {
		t.Errorf("options = %+v", opts)
	}
	if opts.ExtrudeBorders != defaults.ExtrudeBorders || opts.MaxPageWidth != defaults.MaxPageWidth {
		t.Errorf("defaults not applied: %+v", opts)
	}
}

func TestResolve_Errors(t *testing.T) {
	spr, _ := npcFiles()
	badAct := formatstest.ACTFile{Version: 0x205, Actions: [][][]formatstest.Layer{{{{SpriteID: 9}}}}}
	fsys := fstest.MapFS{
		"a.png":   {Data: pngBytes(t, 2, 2, color.NRGBA{A: 255})},
		"bad.png": {Data: []byte("garbage")},
		"npc.spr": {Data: spr},
		"bad.act": {Data: badAct.Bytes()},
	}

	tests := []struct {
		name string
		yaml string
	}{
		{"missing image", "id: x\nimages: [nope.png]"},
		{"undecodable image", "id: x\nimages: [a.png, bad.png]"},
		{"missing spr", "id: x\nsprites: [{spr: nope.spr}]"},
		{"frame out of range", "id: x\nsprites: [{spr: npc.spr, act: bad.act}]"},
		{"missing map", "id: x\ntile_source: {map: nope.tmx}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := ParseDescriptor([]byte(tt.yaml))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := Resolve(desc, fsys, config.Default().Build); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Resolve(&Descriptor{}, fsys, config.Default().Build); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("unvalidated descriptor: got %v", err)
	}
}

const levelTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="2" height="1" tilewidth="8" tileheight="8" infinite="0" nextlayerid="2" nextobjectid="1">
 <tileset firstgid="1" name="terrain" tilewidth="8" tileheight="8" tilecount="4" columns="2">
  <image source="terrain.png" width="16" height="16"/>
  <tile id="1">
   <properties>
    <property name="name" value="water"/>
   </properties>
   <animation>
    <frame tileid="1" duration="100"/>
    <frame tileid="3" duration="100"/>
   </animation>
  </tile>
 </tileset>
 <layer id="1" name="ground" width="2" height="1">
  <data encoding="csv">1,2</data>
 </layer>
</map>
`

var tileColors = []color.NRGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
}

func terrainSheet(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, tileColors[(y/8)*2+x/8])
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestResolve_TileSource(t *testing.T) {
	fsys := fstest.MapFS{
		"maps/level.tmx":   {Data: []byte(levelTMX)},
		"maps/terrain.png": {Data: terrainSheet(t)},
	}
	desc, err := ParseDescriptor([]byte("id: terrain\ntile_source: {map: maps/level.tmx}\n"))
	if err != nil {
		t.Fatal(err)
	}

	b, err := Resolve(desc, fsys, config.Default().Build)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !b.Options.UseTileGrid || b.Options.Grid.Columns != 2 || b.Options.Grid.Rows != 2 {
		t.Errorf("grid options = %+v", b.Options)
	}
	if len(b.Images) != 4 {
		t.Fatalf("got %d tiles", len(b.Images))
	}
	for i, img := range b.Images {
		if img.ID == "" || img.Image.Bounds().Size() != image.Pt(8, 8) {
			t.Errorf("tile %d: id %q size %v", i, img.ID, img.Image.Bounds().Size())
		}
		r, g, bb, _ := img.Image.At(4, 4).RGBA()
		want := tileColors[i]
		if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(bb>>8) != want.B {
			t.Errorf("tile %d colour = %d %d %d, want %v", i, r>>8, g>>8, bb>>8, want)
		}
	}

	b.Animations.Rewind()
	d, ok := b.Animations.NextAnim()
	if !ok || d.ID != "water" || d.FPS != 10 || d.Playback != textureset.PlaybackLoopForward {
		t.Fatalf("animation = %+v, %v", d, ok)
	}
	f0, _ := b.Animations.NextFrameIndex()
	f1, _ := b.Animations.NextFrameIndex()
	if f0 != 1 || f1 != 3 {
		t.Errorf("frames = %d %d, want 1 3", f0, f1)
	}
}

func TestCutSheet_NarrowSheet(t *testing.T) {
	fsys := fstest.MapFS{"small.png": {Data: pngBytes(t, 8, 8, color.NRGBA{A: 255})}}
	tests := []struct {
		name string
		ts   tiled.Tileset
	}{
		{"derived columns", tiled.Tileset{Name: "small", TileWidth: 16, TileHeight: 16, TileCount: 1}},
		{"derived columns and count", tiled.Tileset{Name: "small", TileWidth: 16, TileHeight: 16}},
		{"margin eats the sheet", tiled.Tileset{Name: "small", TileWidth: 4, TileHeight: 4, Margin: 3, TileCount: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := tt.ts
			ts.Image = &tiled.Image{Source: "small.png"}
			var set tileSet
			if _, err := set.cutSheet(fsys, &ts); !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("expected ErrInvalidDescriptor, got %v", err)
			}
			if len(set.Tiles) != 0 {
				t.Errorf("cut %d tiles from an undersized sheet", len(set.Tiles))
			}
		})
	}
}

func TestTileFPS(t *testing.T) {
	tests := []struct {
		frames int
		total  uint32
		want   int
	}{
		{2, 200, 10},
		{3, 250, 12},
		{1, 5000, 1},
		{0, 100, 0},
		{4, 0, 0},
	}
	for _, tt := range tests {
		if got := tileFPS(tt.frames, tt.total); got != tt.want {
			t.Errorf("tileFPS(%d, %d) = %d, want %d", tt.frames, tt.total, got, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	spr, act := npcFiles()
	write("data.grf", grftest.Build(grftest.Files(map[string][]byte{
		"data/sprite/npc.spr": spr,
		"data/sprite/npc.act": act,
		"data/texture/a.png":  pngBytes(t, 3, 3, color.NRGBA{R: 9, A: 255}),
	})...))
	write("npc.yaml", []byte(`
id: npc
archive: data.grf
images: ['DATA\texture\A.png']
sprites: [{spr: data/sprite/npc.spr, act: data/sprite/npc.act, prefix: npc}]
`))
	write("plain.yaml", []byte("id: plain\nimages: [img/a.png]\n"))
	write("img/a.png", pngBytes(t, 2, 2, color.NRGBA{G: 9, A: 255}))

	b, err := Open(filepath.Join(dir, "npc.yaml"), config.Default().Build)
	if err != nil {
		t.Fatalf("Open archive descriptor: %v", err)
	}
	if len(b.Images) != 3 || b.Animations.Len() != 1 {
		t.Errorf("got %d images, %d animations", len(b.Images), b.Animations.Len())
	}

	b, err = Open(filepath.Join(dir, "plain.yaml"), config.Default().Build)
	if err != nil {
		t.Fatalf("Open plain descriptor: %v", err)
	}
	if len(b.Images) != 1 || b.Images[0].Image.Bounds().Dx() != 2 {
		t.Errorf("unexpected images: %+v", b.Images)
	}

	write("broken.yaml", []byte("id: broken\narchive: missing.grf\nimages: [a.png]\n"))
	if _, err := Open(filepath.Join(dir, "broken.yaml"), config.Default().Build); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestResolve_Lightmaps(t *testing.T) {
	lm := func(v byte) formatstest.Lightmap {
		return formatstest.Lightmap{Brightness: bytes.Repeat([]byte{v}, 64), ColorRGB: bytes.Repeat([]byte{v, 0, 0}, 64)}
	}
	gnd := formatstest.GNDFile{
		Minor: 7, Width: 1, Height: 1,
		LightmapWidth: 8, LightmapHeight: 8,
		Lightmaps: []formatstest.Lightmap{lm(10), lm(20), lm(30), lm(40), lm(50)},
		Surfaces:  []formatstest.Surface{{LightmapID: 4}, {LightmapID: 1}, {LightmapID: 4}},
	}
	fsys := fstest.MapFS{"data/prontera.gnd": {Data: gnd.Bytes()}}

	tests := []struct {
		yaml    string
		ids     []string
		columns int
		rows    int
	}{
		{
			yaml:    "id: lm\nlightmap_source: {gnd: data/prontera.gnd}\n",
			ids:     []string{"data/prontera.gnd#0", "data/prontera.gnd#1", "data/prontera.gnd#2", "data/prontera.gnd#3", "data/prontera.gnd#4"},
			columns: 4,
			rows:    2,
		},
		{
			yaml:    "id: lm\nlightmap_source: {gnd: data/prontera.gnd, used_only: true}\n",
			ids:     []string{"data/prontera.gnd#1", "data/prontera.gnd#4"},
			columns: 2,
			rows:    1,
		},
	}
	for _, tt := range tests {
		desc, err := ParseDescriptor([]byte(tt.yaml))
		if err != nil {
			t.Fatal(err)
		}
		b, err := Resolve(desc, fsys, config.Default().Build)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if !b.Options.UseTileGrid || b.Options.Grid.Columns != tt.columns || b.Options.Grid.Rows != tt.rows {
			t.Errorf("grid = %+v, want %dx%d", b.Options.Grid, tt.columns, tt.rows)
		}
		if len(b.Images) != len(tt.ids) {
			t.Fatalf("got %d images, want %d", len(b.Images), len(tt.ids))
		}
		for i, id := range tt.ids {
			if b.Images[i].ID != id || b.Images[i].HullVertexCount != 0 {
				t.Errorf("image %d = %q (hull %d), want %q", i, b.Images[i].ID, b.Images[i].HullVertexCount, id)
			}
		}
	}
}
