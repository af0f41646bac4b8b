// Package imaging implements the pixel operations applied to decoded textures.
// Every operation returns a new Buffer and leaves its input untouched.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ErrInvalidFormat is returned when a buffer's layout is not tightly packed RGBA8.
var ErrInvalidFormat = errors.New("imaging: buffer is not RGBA8")

// Buffer is an RGBA8 image with straight (non-premultiplied) alpha until
// PremultiplyAlpha has run.
type Buffer struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// New allocates a transparent buffer.
func New(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Stride: width * 4,
		Pix:    make([]byte, width*height*4),
	}
}

// FromImage copies img into a new buffer.
func FromImage(img image.Image) *Buffer {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return fromNRGBA(n).Clone()
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return fromNRGBA(dst)
}

func fromNRGBA(img *image.NRGBA) *Buffer {
	return &Buffer{
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
		Stride: img.Stride,
		Pix:    img.Pix,
	}
}

// NRGBA returns an image view sharing the buffer's pixels.
func (b *Buffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Stride,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Validate checks that the buffer is tightly packed RGBA8.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidFormat)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: empty %dx%d", ErrInvalidFormat, b.Width, b.Height)
	}
	if b.Stride != b.Width*4 {
		return fmt.Errorf("%w: stride %d for width %d", ErrInvalidFormat, b.Stride, b.Width)
	}
	if len(b.Pix) != b.Stride*b.Height {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidFormat, len(b.Pix), b.Width, b.Height)
	}
	return nil
}

// At returns the pixel at (x, y).
func (b *Buffer) At(x, y int) color.NRGBA {
	i := y*b.Stride + x*4
	p := b.Pix[i : i+4 : i+4]
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Set writes the pixel at (x, y).
func (b *Buffer) Set(x, y int, c color.NRGBA) {
	i := y*b.Stride + x*4
	p := b.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
}

// Clone returns a tightly packed copy.
func (b *Buffer) Clone() *Buffer {
	dst := New(b.Width, b.Height)
	rowLen := b.Width * 4
	for y := 0; y < b.Height; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowLen], b.Pix[y*b.Stride:y*b.Stride+rowLen])
	}
	return dst
}

// sub returns a view of the rectangle (x, y, w, h) sharing b's pixels and stride.
func (b *Buffer) sub(x, y, w, h int) *Buffer {
	off := y*b.Stride + x*4
	end := (y+h-1)*b.Stride + (x+w)*4
	return &Buffer{Width: w, Height: h, Stride: b.Stride, Pix: b.Pix[off:end]}
}

func clampU8(x int) uint8 {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
