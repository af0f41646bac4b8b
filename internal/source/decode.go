package source

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"

	"github.com/MeKo-Tech/climatetex/internal/palette"
)

// The tga package registers itself with an empty magic string, so
// image.Decode would hand every stream to it. Frames are decoded by
// extension instead.

// DecodeFile decodes an image using the decoder for path's extension.
func DecodeFile(r io.Reader, path string) (image.Image, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return png.Decode(r)
	case ".bmp":
		return bmp.Decode(r)
	case ".tga":
		return tga.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported image extension %q", ext)
	}
}

// DecodeFileConfig reads the dimensions of an image using the decoder for
// path's extension.
func DecodeFileConfig(r io.Reader, path string) (image.Config, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return png.DecodeConfig(r)
	case ".bmp":
		return bmp.DecodeConfig(r)
	case ".tga":
		return tga.DecodeConfig(r)
	default:
		return image.Config{}, fmt.Errorf("unsupported image extension %q", ext)
	}
}

// bitmapFromGray reads indices stored as gray levels, as in 8-bit monochrome
// TGA frames. The tga decoder expands them to opaque RGBA.
func bitmapFromGray(img image.Image) (*palette.Bitmap, error) {
	b := img.Bounds()
	bm := &palette.Bitmap{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]byte, b.Dx()*b.Dy()),
	}
	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			if c.R != c.G || c.G != c.B || c.A != 0xff {
				return nil, fmt.Errorf("%w: pixel (%d,%d) is not an opaque gray index", ErrInvalidPixelFormat, x, y)
			}
			bm.Pix[y*bm.Width+x] = c.R
		}
	}
	return bm, nil
}
