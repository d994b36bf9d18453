package textureset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// Container errors.
var (
	ErrInvalidMagic       = errors.New("invalid texture set magic: expected 'TSET'")
	ErrUnsupportedVersion = errors.New("unsupported texture set version")
	ErrMalformed          = errors.New("malformed texture set")
)

// Version is the container version written by Write.
const Version uint16 = 1

var magic = [4]byte{'T', 'S', 'E', 'T'}

func msgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	return h
}

// Write encodes ts as magic, little-endian version and a msgpack body.
func Write(w io.Writer, ts *TextureSet) error {
	if _, err := w.Write(magic[:]); err != nil {
		return fmt.Errorf("writing magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, Version); err != nil {
		return fmt.Errorf("writing version: %w", err)
	}
	if err := codec.NewEncoder(w, msgpackHandle()).Encode(ts); err != nil {
		return fmt.Errorf("encoding body: %w", err)
	}
	return nil
}

// WriteFile writes ts to path.
func WriteFile(path string, ts *TextureSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating texture set file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, ts); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a texture set written by Write and validates it.
func Read(r io.Reader) (*TextureSet, error) {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrMalformed)
	}
	if [4]byte(header[:4]) != magic {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(header[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	ts := &TextureSet{}
	if err := codec.NewDecoder(r, msgpackHandle()).Decode(ts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	return ts, nil
}

// ReadFile reads a texture set from disk.
func ReadFile(path string) (*TextureSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening texture set file: %w", err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// PutFloat32s encodes values as a little-endian float32 blob.
func PutFloat32s(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Float32s decodes a little-endian float32 blob. Trailing bytes are ignored.
func Float32s(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}
