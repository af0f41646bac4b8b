// Package palette turns 8-bit indexed bitmaps into RGBA buffers.
package palette

import (
	"errors"
	"fmt"
	"image/color"
)

const (
	// Size is the number of entries in a palette.
	Size = 256

	rawSize = Size * 3
	// colHeader is the length of the header some palette files carry.
	colHeader = 8
)

var (
	// ErrInvalidPalette is returned for palette data of the wrong size.
	ErrInvalidPalette = errors.New("palette: invalid palette data")
	// ErrInvalidPixelFormat is returned for bitmaps that are not 8-bit indexed.
	ErrInvalidPixelFormat = errors.New("palette: invalid pixel format")
)

// Palette is a 256-entry RGB color table.
type Palette [Size]color.RGBA

// Parse reads a raw 768-byte RGB table, optionally preceded by an 8-byte header.
func Parse(data []byte) (Palette, error) {
	var p Palette
	switch len(data) {
	case rawSize:
	case rawSize + colHeader:
		data = data[colHeader:]
	default:
		return p, fmt.Errorf("%w: %d bytes", ErrInvalidPalette, len(data))
	}

	for i := range p {
		p[i] = color.RGBA{R: data[i*3], G: data[i*3+1], B: data[i*3+2], A: 0xFF}
	}
	return p, nil
}

// FromColorPalette copies up to 256 entries of an image palette. Missing
// entries are black.
func FromColorPalette(cp color.Palette) Palette {
	var p Palette
	for i := range p {
		p[i] = color.RGBA{A: 0xFF}
		if i < len(cp) {
			c := color.NRGBAModel.Convert(cp[i]).(color.NRGBA)
			p[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
		}
	}
	return p
}

// Bytes encodes the palette as a raw 768-byte RGB table.
func (p Palette) Bytes() []byte {
	out := make([]byte, rawSize)
	for i, c := range p {
		out[i*3], out[i*3+1], out[i*3+2] = c.R, c.G, c.B
	}
	return out
}

// ColorPalette returns p as an image/color palette.
func (p Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, Size)
	for i, c := range p {
		cp[i] = c
	}
	return cp
}

// Bitmap is an 8-bit indexed image.
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// Validate checks that Pix holds exactly one index per pixel.
func (b *Bitmap) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil bitmap", ErrInvalidPixelFormat)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: empty %dx%d bitmap", ErrInvalidPixelFormat, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height {
		return fmt.Errorf("%w: %d bytes for %dx%d bitmap", ErrInvalidPixelFormat, len(b.Pix), b.Width, b.Height)
	}
	return nil
}
