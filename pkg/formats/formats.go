// Package formats decodes Ragnarok Online sprite sheets (SPR), their animation tables (ACT)
// and the lightmap tiles of ground files (GND) into images and sequences the atlas builder
// can pack.
package formats

import (
	"bytes"
	"encoding/binary"
	"io"
)

// binReader reads little-endian values and remembers the first failure.
type binReader struct {
	r   *bytes.Reader
	err error
}

func newBinReader(data []byte) *binReader {
	return &binReader{r: bytes.NewReader(data)}
}

func (b *binReader) read(v any) {
	if b.err == nil {
		b.err = binary.Read(b.r, binary.LittleEndian, v)
	}
}

func (b *binReader) u16() uint16 {
	var v uint16
	b.read(&v)
	return v
}

func (b *binReader) u32() uint32 {
	var v uint32
	b.read(&v)
	return v
}

func (b *binReader) i32() int32 {
	var v int32
	b.read(&v)
	return v
}

func (b *binReader) f32() float32 {
	var v float32
	b.read(&v)
	return v
}

func (b *binReader) bytes(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || n > b.r.Len() {
		b.err = io.ErrUnexpectedEOF
		return nil
	}
	buf := make([]byte, n)
	_, b.err = io.ReadFull(b.r, buf)
	return buf
}

func (b *binReader) skip(n int) {
	b.bytes(n)
}

// cstring reads a fixed-size NUL-padded string field.
func (b *binReader) cstring(n int) string {
	buf := b.bytes(n)
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

func (b *binReader) remaining() int {
	return b.r.Len()
}
