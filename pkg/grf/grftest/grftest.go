// Package grftest builds in-memory GRF archives for tests.
package grftest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"sort"
	"strings"

	"github.com/Faultbox/atlasbuild/pkg/encoding"
)

// File is one archive member.
type File struct {
	Name    string
	Data    []byte
	Flags   uint8 // 0 means a plain file (0x01)
	Deflate bool
}

// Build returns a GRF 0x200 archive holding files. Names are stored with backslashes and
// EUC-KR encoded, as the original client tools write them.
func Build(files ...File) []byte {
	var data bytes.Buffer
	var table bytes.Buffer

	for _, f := range files {
		stored := f.Data
		if f.Deflate {
			var z bytes.Buffer
			w := zlib.NewWriter(&z)
			_, _ = w.Write(f.Data)
			_ = w.Close()
			stored = z.Bytes()
		}
		aligned := (len(stored) + 7) &^ 7
		flags := f.Flags
		if flags == 0 {
			flags = 0x01
		}

		table.Write(encoding.EncodeName(strings.ReplaceAll(f.Name, "/", "\\")))
		table.WriteByte(0)
		put(&table, uint32(len(stored)))
		put(&table, uint32(aligned))
		put(&table, uint32(len(f.Data)))
		table.WriteByte(flags)
		put(&table, uint32(data.Len()))

		data.Write(stored)
		data.Write(make([]byte, aligned-len(stored)))
	}

	var ztable bytes.Buffer
	w := zlib.NewWriter(&ztable)
	_, _ = w.Write(table.Bytes())
	_ = w.Close()

	var out bytes.Buffer
	header := make([]byte, 46)
	copy(header, "Master of Magic")
	binary.LittleEndian.PutUint32(header[30:], uint32(data.Len()))
	binary.LittleEndian.PutUint32(header[34:], 0)
	binary.LittleEndian.PutUint32(header[38:], uint32(len(files)+7))
	binary.LittleEndian.PutUint32(header[42:], 0x200)
	out.Write(header)
	out.Write(data.Bytes())
	put(&out, uint32(ztable.Len()))
	put(&out, uint32(table.Len()))
	out.Write(ztable.Bytes())
	return out.Bytes()
}

// Files converts a name -> content map into deflated archive members in name order.
func Files(m map[string][]byte) []File {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	files := make([]File, len(names))
	for i, n := range names {
		files[i] = File{Name: n, Data: m[n], Deflate: true}
	}
	return files
}

func put(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}
