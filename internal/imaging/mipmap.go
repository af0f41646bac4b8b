package imaging

import "math"

// MipLevelSize returns the size of mip level L for a base size.
func MipLevelSize(width, height, level int) (int, int) {
	return max(1, width>>level), max(1, height>>level)
}

// MipChain returns src followed by every smaller level down to 1x1. Each level
// is resampled from src independently.
func MipChain(src *Buffer) []*Buffer {
	chain := []*Buffer{src}
	for level := 1; ; level++ {
		prevW, prevH := chain[len(chain)-1].Width, chain[len(chain)-1].Height
		if prevW == 1 && prevH == 1 {
			break
		}
		w, h := MipLevelSize(src.Width, src.Height, level)
		chain = append(chain, ResizeBicubic(src, w, h))
	}
	return chain
}

// ResizeBicubic resamples src to width x height with a 4x4 cubic B-spline
// kernel. Samples outside src are clamped to the nearest edge pixel.
func ResizeBicubic(src *Buffer, width, height int) *Buffer {
	dst := New(width, height)
	sx := float64(src.Width) / float64(width)
	sy := float64(src.Height) / float64(height)

	var wx, wy [4]float64
	for j := 0; j < height; j++ {
		fy := float64(j) * sy
		iy := int(math.Floor(fy))
		dy := fy - float64(iy)
		for n := -1; n <= 2; n++ {
			wy[n+1] = cubicWeight(dy - float64(n))
		}

		for i := 0; i < width; i++ {
			fx := float64(i) * sx
			ix := int(math.Floor(fx))
			dx := fx - float64(ix)
			for m := -1; m <= 2; m++ {
				wx[m+1] = cubicWeight(float64(m) - dx)
			}

			var acc [4]float64
			for n := -1; n <= 2; n++ {
				row := clamp(iy+n, 0, src.Height-1) * src.Stride
				for m := -1; m <= 2; m++ {
					k := row + clamp(ix+m, 0, src.Width-1)*4
					w := wx[m+1] * wy[n+1]
					acc[0] += float64(src.Pix[k]) * w
					acc[1] += float64(src.Pix[k+1]) * w
					acc[2] += float64(src.Pix[k+2]) * w
					acc[3] += float64(src.Pix[k+3]) * w
				}
			}

			o := j*dst.Stride + i*4
			for c := 0; c < 4; c++ {
				dst.Pix[o+c] = clampU8(int(math.Round(acc[c])))
			}
		}
	}
	return dst
}

// cubicWeight is the cubic B-spline
// w(x) = (P(x+2)^3 - 4P(x+1)^3 + 6P(x)^3 - 4P(x-1)^3) / 6 with P(x) = max(x, 0).
func cubicWeight(x float64) float64 {
	if x <= -2 || x >= 2 {
		return 0
	}
	p := func(v float64) float64 {
		if v <= 0 {
			return 0
		}
		return v * v * v
	}
	return (p(x+2) - 4*p(x+1) + 6*p(x) - 4*p(x-1)) / 6
}
