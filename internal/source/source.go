// Package source provides the archives textures are decoded from.
package source

import (
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/climatetex/internal/palette"
)

// DefaultPalette is the palette textures are decoded with unless configured otherwise.
const DefaultPalette = "ART_PAL.COL"

var (
	// ErrNotFound is returned when an archive, record, frame or palette does not exist.
	ErrNotFound = errors.New("source: not found")
	// ErrInvalidPixelFormat is returned when stored image data is not 8-bit indexed.
	ErrInvalidPixelFormat = palette.ErrInvalidPixelFormat
)

// Source reads indexed texture bitmaps and palettes.
type Source interface {
	IndexedBitmap(archive, record, frame int) (*palette.Bitmap, error)
	Palette(name string) (palette.Palette, error)
	FrameCount(archive, record int) (int, error)
	QuickSize(archive, record int) (width, height int, err error)
}

func notFound(archive, record, frame int) error {
	return fmt.Errorf("%w: archive %d record %d frame %d", ErrNotFound, archive, record, frame)
}

// bitmapFromImage copies the indices of a paletted image.
func bitmapFromImage(img image.Image) (*palette.Bitmap, error) {
	p, ok := img.(*image.Paletted)
	if !ok {
		return nil, fmt.Errorf("%w: got %T, want paletted image", ErrInvalidPixelFormat, img)
	}

	b := p.Bounds()
	bm := &palette.Bitmap{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]byte, b.Dx()*b.Dy()),
	}
	for y := 0; y < bm.Height; y++ {
		off := p.PixOffset(b.Min.X, b.Min.Y+y)
		copy(bm.Pix[y*bm.Width:(y+1)*bm.Width], p.Pix[off:off+bm.Width])
	}
	return bm, nil
}
