package source

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func tgaHeader(kind, bpp, descriptor byte, w, h int) []byte {
	hdr := make([]byte, tgaHeaderSize)
	hdr[2] = kind
	hdr[12], hdr[13] = byte(w), byte(w>>8)
	hdr[14], hdr[15] = byte(h), byte(h>>8)
	hdr[16] = bpp
	hdr[17] = descriptor
	return hdr
}

func TestDecodeTGA(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}
	halfGreen := color.NRGBA{G: 255, A: 128}

	tests := []struct {
		name string
		data []byte
		want [4]color.NRGBA // (0,0) (1,0) (0,1) (1,1)
	}{
		{
			name: "24 bpp bottom-up",
			data: append(tgaHeader(tgaTrueColor, 24, 0, 2, 2),
				// bottom row first, BGR
				0, 0, 255, 0, 0, 255,
				255, 0, 0, 255, 0, 0),
			want: [4]color.NRGBA{blue, blue, red, red},
		},
		{
			name: "32 bpp top-down",
			data: append(tgaHeader(tgaTrueColor, 32, 0x20, 2, 2),
				0, 0, 255, 255, 0, 255, 0, 128,
				255, 0, 0, 255, 0, 0, 255, 255),
			want: [4]color.NRGBA{red, halfGreen, blue, red},
		},
		{
			name: "RLE top-down",
			data: append(tgaHeader(tgaTrueColorRLE, 24, 0x20, 2, 2),
				0x81, 0, 0, 255, // run of two red
				0x01, 255, 0, 0, 255, 0, 0), // two raw blue
			want: [4]color.NRGBA{red, red, blue, blue},
		},
		{
			name: "grayscale",
			data: append(tgaHeader(tgaGray, 8, 0x20, 2, 2), 0, 255, 255, 0),
			want: [4]color.NRGBA{{A: 255}, {R: 255, G: 255, B: 255, A: 255}, {R: 255, G: 255, B: 255, A: 255}, {A: 255}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeTGA(tt.data)
			if err != nil {
				t.Fatalf("DecodeTGA: %v", err)
			}
			got := [4]color.NRGBA{img.NRGBAAt(0, 0), img.NRGBAAt(1, 0), img.NRGBAAt(0, 1), img.NRGBAAt(1, 1)}
			if got != tt.want {
				t.Errorf("pixels = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeTGA_Errors(t *testing.T) {
	mapped := tgaHeader(1, 8, 0, 1, 1)
	mapped[1] = 1

	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte{0, 0, 2}},
		{"colour mapped", mapped},
		{"type", tgaHeader(9, 8, 0, 1, 1)},
		{"depth", tgaHeader(tgaTrueColor, 16, 0, 1, 1)},
		{"empty", tgaHeader(tgaTrueColor, 24, 0, 0, 4)},
		{"truncated", append(tgaHeader(tgaTrueColor, 24, 0, 2, 2), 1, 2, 3)},
		{"truncated RLE", append(tgaHeader(tgaTrueColorRLE, 32, 0, 2, 2), 0x83, 1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTGA(tt.data); !errors.Is(err, ErrTGA) {
				t.Errorf("expected ErrTGA, got %v", err)
			}
		})
	}
}

func checker() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, B: 255, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
			}
		}
	}
	return img
}

func TestDecodeImage(t *testing.T) {
	src := checker()

	var pngBuf, bmpBuf, tiffBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, src); err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(&tiffBuf, src, nil); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"a.png", "b.TIFF"} {
		data := pngBuf.Bytes()
		if name == "b.TIFF" {
			data = tiffBuf.Bytes()
		}
		img, err := DecodeImage(name, data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		r, g, b, a := img.At(0, 0).RGBA()
		if r>>8 != 255 || g != 0 || b>>8 != 255 || a>>8 != 255 {
			t.Errorf("%s: magenta kept opaque, got %d %d %d %d", name, r>>8, g>>8, b>>8, a>>8)
		}
	}

	img, err := DecodeImage("npc.bmp", bmpBuf.Bytes())
	if err != nil {
		t.Fatalf("bmp: %v", err)
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("bmp decoded to %T", img)
	}
	if got := nrgba.NRGBAAt(0, 0); got != (color.NRGBA{}) {
		t.Errorf("magenta pixel = %v, want transparent", got)
	}
	if got := nrgba.NRGBAAt(1, 0); got != (color.NRGBA{R: 10, G: 200, B: 30, A: 255}) {
		t.Errorf("opaque pixel = %v", got)
	}

	if _, err := DecodeImage("broken.png", []byte("not an image")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestIsMagentaKey(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    bool
	}{
		{255, 0, 255, true},
		{250, 10, 250, true},
		{249, 0, 255, false},
		{255, 11, 255, false},
		{0, 0, 0, false},
	}
	for _, tt := range tests {
		if got := IsMagentaKey(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("IsMagentaKey(%d,%d,%d) = %v", tt.r, tt.g, tt.b, got)
		}
	}
}
