// Package grf reads Ragnarok Online GRF 0x200 archives and exposes them as an fs.FS.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Faultbox/atlasbuild/pkg/encoding"
)

// Magic opens every archive header.
const Magic = "Master of Magic"

// HeaderSize is the size of the fixed header; table and data offsets are relative to its end.
const HeaderSize = 46

// Version is the only supported archive version.
const Version = 0x200

// Entry flags.
const (
	FlagFile        = 0x01
	FlagMixCrypt    = 0x02
	FlagHeaderCrypt = 0x04
)

const entryTrailerSize = 17

// Archive errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrEncrypted          = errors.New("encrypted GRF entries are not supported")
	ErrCorruptTable       = errors.New("corrupt GRF file table")
)

// Header is the fixed archive header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry is one stored file.
type Entry struct {
	Name             string // normalized UTF-8 path
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Archive is an opened GRF archive. It is safe for concurrent reads.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	header  Header
	entries map[string]*Entry
	dirs    map[string][]string // directory -> sorted child names
}

var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)

// Open opens the archive at path.
func Open(name string) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	a, err := NewArchive(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// NewArchive reads the header and file table from r.
func NewArchive(r io.ReaderAt) (*Archive, error) {
	a := &Archive{r: r, entries: make(map[string]*Entry)}

	if err := binary.Read(io.NewSectionReader(r, 0, HeaderSize), binary.LittleEndian, &a.header); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if string(a.header.Magic[:]) != Magic {
		return nil, ErrInvalidMagic
	}
	if a.header.Version != Version {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}

	table, err := a.readTable()
	if err != nil {
		return nil, err
	}
	if err := a.indexTable(table); err != nil {
		return nil, err
	}
	return a, nil
}

// Close closes the underlying file when the archive was opened by path.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readTable() ([]byte, error) {
	base := int64(a.header.TableOffset) + HeaderSize
	var sizes [2]uint32
	if err := binary.Read(io.NewSectionReader(a.r, base, 8), binary.LittleEndian, &sizes); err != nil {
		return nil, fmt.Errorf("%w: reading table sizes: %v", ErrCorruptTable, err)
	}

	zr, err := zlib.NewReader(io.NewSectionReader(a.r, base+8, int64(sizes[0])))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	defer zr.Close()

	table := make([]byte, sizes[1])
	if _, err := io.ReadFull(zr, table); err != nil {
		return nil, fmt.Errorf("%w: inflating table: %v", ErrCorruptTable, err)
	}
	return table, nil
}

func (a *Archive) indexTable(table []byte) error {
	count := int(a.header.FileCount) - int(a.header.Seed) - 7
	children := map[string]map[string]bool{}

	for i, off := 0, 0; i < count; i++ {
		end := bytes.IndexByte(table[off:], 0)
		if end < 0 || off+end+1+entryTrailerSize > len(table) {
			return fmt.Errorf("%w: entry %d of %d", ErrCorruptTable, i, count)
		}
		raw := table[off : off+end]
		t := table[off+end+1:]
		off += end + 1 + entryTrailerSize

		e := &Entry{
			Name:             encoding.NormalizePath(encoding.DecodeName(raw)),
			CompressedSize:   binary.LittleEndian.Uint32(t[0:]),
			AlignedSize:      binary.LittleEndian.Uint32(t[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(t[8:]),
			Flags:            t[12],
			Offset:           binary.LittleEndian.Uint32(t[13:]),
		}
		if e.Flags&FlagFile == 0 || !fs.ValidPath(e.Name) {
			continue
		}
		a.entries[e.Name] = e

		for p := e.Name; p != "."; {
			dir := path.Dir(p)
			if children[dir] == nil {
				children[dir] = map[string]bool{}
			}
			children[dir][path.Base(p)] = true
			p = dir
		}
	}

	a.dirs = make(map[string][]string, len(children))
	for dir, set := range children {
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		a.dirs[dir] = names
	}
	return nil
}

// List returns every file path in lexical order.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.entries))
	for n := range a.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of files.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Entry looks a file up by any spelling of its path.
func (a *Archive) Entry(name string) (*Entry, bool) {
	e, ok := a.entries[encoding.NormalizePath(name)]
	return e, ok
}

// ReadFile implements fs.ReadFileFS. Lookups are case-insensitive and accept backslashes.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	e, ok := a.Entry(name)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	data, err := a.read(e)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

func (a *Archive) read(e *Entry) ([]byte, error) {
	if e.Flags&(FlagMixCrypt|FlagHeaderCrypt) != 0 {
		return nil, ErrEncrypted
	}

	stored := make([]byte, e.CompressedSize)
	if _, err := a.r.ReadAt(stored, int64(e.Offset)+HeaderSize); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if e.CompressedSize == e.UncompressedSize {
		return stored, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(stored))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, e.UncompressedSize)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Open implements fs.FS.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	key := encoding.NormalizePath(name)
	if e, ok := a.entries[key]; ok {
		data, err := a.read(e)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &file{info: fileInfo{name: path.Base(key), size: int64(len(data))}, r: bytes.NewReader(data)}, nil
	}
	if key == "" {
		key = "."
	}
	if children, ok := a.dirs[key]; ok || key == "." {
		return &dir{archive: a, path: key, info: fileInfo{name: path.Base(key), dir: true}, names: children}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// ReadDir implements fs.ReadDirFS.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	f, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, ok := f.(*dir)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: errors.New("not a directory")}
	}
	return d.ReadDir(-1)
}

func (a *Archive) stat(p string) fileInfo {
	if e, ok := a.entries[p]; ok {
		return fileInfo{name: path.Base(p), size: int64(e.UncompressedSize)}
	}
	return fileInfo{name: path.Base(p), dir: true}
}

type fileInfo struct {
	name string
	size int64
	dir  bool
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) ModTime() time.Time { return time.Time{} }
func (fi fileInfo) IsDir() bool        { return fi.dir }
func (fi fileInfo) Sys() any           { return nil }

func (fi fileInfo) Mode() fs.FileMode {
	if fi.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

type file struct {
	info fileInfo
	r    *bytes.Reader
}

func (f *file) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *file) Read(p []byte) (int, error) { return f.r.Read(p) }
func (f *file) Close() error               { return nil }

type dir struct {
	archive *Archive
	path    string
	info    fileInfo
	names   []string
	pos     int
}

func (d *dir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *dir) Close() error               { return nil }

func (d *dir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.path, Err: errors.New("is a directory")}
}

// ReadDir implements fs.ReadDirFile.
func (d *dir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.names[d.pos:]
	if n > 0 && len(rest) == 0 {
		return nil, io.EOF
	}
	if n > 0 && n < len(rest) {
		rest = rest[:n]
	}
	out := make([]fs.DirEntry, len(rest))
	for i, name := range rest {
		out[i] = fs.FileInfoToDirEntry(d.archive.stat(strings.TrimPrefix(path.Join(d.path, name), "./")))
	}
	d.pos += len(rest)
	return out, nil
}
