package palette

import (
	"image/color"

	"github.com/MeKo-Tech/climatetex/internal/imaging"
)

// Window glass colors for backlit windows.
var (
	DayWindow   = color.NRGBA{R: 89, G: 154, B: 178, A: 0xFF}
	NightWindow = color.NRGBA{R: 255, G: 182, B: 56, A: 0xFF}
)

const (
	DefaultChromaIndex = 0
	DefaultWindowIndex = 255

	emissiveBit = 0x80
)

// Options controls index substitution during decoding.
type Options struct {
	ChromaIndex int
	WindowIndex int
	Night       bool
	// ExtendedAlpha packs lighting data into alpha: 0x00-0x7F is specular
	// intensity, 0x80-0xFF is emissive intensity.
	ExtendedAlpha bool
	// EmissiveIndices lists the palette indices that glow under ExtendedAlpha.
	EmissiveIndices []uint8
}

// DefaultOptions returns the standard reserved indices.
func DefaultOptions() Options {
	return Options{
		ChromaIndex: DefaultChromaIndex,
		WindowIndex: DefaultWindowIndex,
	}
}

// Decode expands bm through pal into an RGBA buffer.
func Decode(bm *Bitmap, pal Palette, opts Options) (*imaging.Buffer, error) {
	if err := bm.Validate(); err != nil {
		return nil, err
	}

	var emissive [Size]bool
	for _, i := range opts.EmissiveIndices {
		emissive[i] = true
	}

	window := DayWindow
	if opts.Night {
		window = NightWindow
	}

	dst := imaging.New(bm.Width, bm.Height)
	for i, idx := range bm.Pix {
		o := i * 4
		px := dst.Pix[o : o+4 : o+4]

		switch int(idx) {
		case opts.ChromaIndex:
			c := pal[idx]
			px[0], px[1], px[2], px[3] = c.R, c.G, c.B, 0
		case opts.WindowIndex:
			px[0], px[1], px[2], px[3] = window.R, window.G, window.B, window.A
		default:
			c := pal[idx]
			px[0], px[1], px[2], px[3] = c.R, c.G, c.B, 0xFF
			if opts.ExtendedAlpha {
				px[3] = packAlpha(c, emissive[idx])
			}
		}
	}
	return dst, nil
}

// packAlpha stores half the pixel's luma in the low seven bits and flags
// emissive texels with the high bit.
func packAlpha(c color.RGBA, emissive bool) uint8 {
	luma := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000
	a := uint8(luma >> 1)
	if emissive {
		a |= emissiveBit
	}
	return a
}
