package imaging

import (
	"image"

	"github.com/disintegration/gift"
	"golang.org/x/image/draw"
)

// applyFilters runs a gift filter chain over src on the calling goroutine.
func applyFilters(src *Buffer, filters ...gift.Filter) *Buffer {
	g := gift.New(filters...)
	g.SetParallelization(false)

	in := src.NRGBA()
	dst := image.NewNRGBA(g.Bounds(in.Bounds()))
	g.Draw(dst, in)
	return fromNRGBA(dst)
}

// Grayscale replaces color with luminance. Alpha is kept.
func Grayscale(src *Buffer) *Buffer {
	return applyFilters(src, gift.Grayscale())
}

// Rotate90 rotates the buffer 90 degrees counter-clockwise.
func Rotate90(src *Buffer) *Buffer {
	return applyFilters(src, gift.Rotate90())
}

// Flip mirrors the buffer horizontally and vertically.
func Flip(src *Buffer) *Buffer {
	return applyFilters(src, gift.FlipHorizontal(), gift.FlipVertical())
}

// Dilate bleeds opaque pixels into their transparent 8-neighbourhood so that
// filtering at alpha edges does not pull in the colour of transparent texels.
// The first opaque pixel to reach a transparent neighbour wins. The result has
// the same size as src.
func Dilate(src *Buffer) *Buffer {
	pw, ph := src.Width+2, src.Height+2

	padded := New(pw, ph)
	inner := padded.sub(1, 1, src.Width, src.Height)
	rowLen := src.Width * 4
	for y := 0; y < src.Height; y++ {
		copy(inner.Pix[y*inner.Stride:y*inner.Stride+rowLen], src.Pix[y*src.Stride:y*src.Stride+rowLen])
	}

	out := padded.Clone()
	for y := 1; y <= src.Height; y++ {
		for x := 1; x <= src.Width; x++ {
			i := y*padded.Stride + x*4
			if padded.Pix[i+3] == 0 {
				continue
			}
			px := padded.Pix[i : i+4]

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					j := (y+dy)*out.Stride + (x+dx)*4
					if out.Pix[j+3] == 0 {
						copy(out.Pix[j:j+4], px)
					}
				}
			}
			copy(out.Pix[i:i+4], px)
		}
	}

	return out.sub(1, 1, src.Width, src.Height).Clone()
}

// PremultiplyAlpha scales colour channels by alpha/256, truncating. Fully
// opaque pixels are left as they are.
func PremultiplyAlpha(src *Buffer) *Buffer {
	dst := src.Clone()
	p := dst.Pix
	for i := 0; i+3 < len(p); i += 4 {
		a := uint16(p[i+3])
		if a == 255 {
			continue
		}
		p[i] = uint8(uint16(p[i]) * a / 256)
		p[i+1] = uint8(uint16(p[i+1]) * a / 256)
		p[i+2] = uint8(uint16(p[i+2]) * a / 256)
	}
	return dst
}

// PowerOfTwo rescales src to the next power-of-two size on each axis.
func PowerOfTwo(src *Buffer) *Buffer {
	w, h := nextPowerOfTwo(src.Width), nextPowerOfTwo(src.Height)
	if w == src.Width && h == src.Height {
		return src.Clone()
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	in := src.NRGBA()
	draw.CatmullRom.Scale(dst, dst.Bounds(), in, in.Bounds(), draw.Src, nil)
	return fromNRGBA(dst)
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
