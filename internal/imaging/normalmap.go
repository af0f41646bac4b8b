package imaging

import (
	"math"

	"github.com/disintegration/gift"
)

// DefaultBumpSize scales height differences when building normal maps.
const DefaultBumpSize = 0.1

var embossKernel = []float32{
	1, 2, 1,
	0, 0, 0,
	-1, -2, -1,
}

// Emboss runs the sobel emboss kernel over src and converts the result to
// grayscale. Alpha is taken from src.
func Emboss(src *Buffer) *Buffer {
	return applyFilters(src,
		gift.Convolution(embossKernel, true, false, false, 0),
		gift.Grayscale(),
	)
}

// NormalMap derives a tangent-space normal map from src. RGB holds the
// normal, alpha holds the embossed height it was derived from.
func NormalMap(src *Buffer, bumpSize float64) *Buffer {
	bump := Emboss(src)
	w, h := bump.Width, bump.Height

	// Luminance becomes the height channel.
	for y := 0; y < h; y++ {
		row := bump.Pix[y*bump.Stride : y*bump.Stride+w*4]
		for x := 0; x < w; x++ {
			row[x*4+3] = row[x*4]
		}
	}

	height := func(x, y int) float64 {
		x = clamp(x, 0, w-1)
		y = clamp(y, 0, h-1)
		return float64(bump.Pix[y*bump.Stride+x*4+3]) / 255
	}

	dst := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := vec3{1, 0, (height(x+1, y) - height(x-1, y)) * bumpSize}
			b := vec3{0, 1, (height(x, y+1) - height(x, y-1)) * bumpSize}
			n := a.cross(b).normalize()

			o := y*dst.Stride + x*4
			dst.Pix[o] = unitToByte(n.x)
			dst.Pix[o+1] = unitToByte(n.y)
			dst.Pix[o+2] = unitToByte(n.z)
			dst.Pix[o+3] = bump.Pix[y*bump.Stride+x*4+3]
		}
	}
	return dst
}

type vec3 struct{ x, y, z float64 }

func (a vec3) cross(b vec3) vec3 {
	return vec3{
		a.y*b.z - a.z*b.y,
		a.z*b.x - a.x*b.z,
		a.x*b.y - a.y*b.x,
	}
}

func (a vec3) normalize() vec3 {
	l := math.Sqrt(a.x*a.x + a.y*a.y + a.z*a.z)
	if l == 0 {
		return a
	}
	return vec3{a.x / l, a.y / l, a.z / l}
}

func unitToByte(v float64) uint8 {
	return uint8(math.Round(255 * math.Max(0, math.Min(1, v))))
}
