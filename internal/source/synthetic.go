package source

import (
	"fmt"
	"image/color"
	"math"

	"github.com/aquilax/go-perlin"

	"github.com/MeKo-Tech/climatetex/internal/palette"
)

// SyntheticConfig controls the procedural archives.
type SyntheticConfig struct {
	Seed     int64
	Size     int
	Records  int
	Frames   int     // frames of animated records
	Scale    float64 // noise feature size in pixels
	HoleRate float64 // fraction of texels left transparent
}

// DefaultSyntheticConfig returns settings that produce small, varied textures.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Seed:     1337,
		Size:     64,
		Records:  8,
		Frames:   4,
		Scale:    16,
		HoleRate: 0.1,
	}
}

// Synthetic generates deterministic perlin-noise textures for every archive.
// Records whose number ends in 3 or 7 are animated; everything else has a
// single frame. It needs no game data, which makes it useful for demos.
type Synthetic struct {
	cfg SyntheticConfig
	pal palette.Palette
}

// NewSynthetic creates a synthetic source. Zero fields take their defaults.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	def := DefaultSyntheticConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Records <= 0 {
		cfg.Records = def.Records
	}
	if cfg.Frames <= 0 {
		cfg.Frames = def.Frames
	}
	if cfg.Scale <= 0 {
		cfg.Scale = def.Scale
	}
	if cfg.HoleRate < 0 || cfg.HoleRate >= 1 {
		cfg.HoleRate = def.HoleRate
	}
	return &Synthetic{cfg: cfg, pal: gradientPalette()}
}

func (s *Synthetic) check(archive, record int) error {
	if archive < 0 || archive >= 1000 || record < 0 || record >= s.cfg.Records {
		return notFound(archive, record, 0)
	}
	return nil
}

// IndexedBitmap renders one frame. Indices avoid the reserved chroma and
// window slots except for the transparent holes.
func (s *Synthetic) IndexedBitmap(archive, record, frame int) (*palette.Bitmap, error) {
	n, err := s.FrameCount(archive, record)
	if err != nil {
		return nil, err
	}
	if frame < 0 || frame >= n {
		return nil, notFound(archive, record, frame)
	}

	seed := s.cfg.Seed + int64(archive)*1_000 + int64(record)
	p := perlin.NewPerlin(2.0, 2.0, 3, seed)

	size := s.cfg.Size
	bm := &palette.Bitmap{Width: size, Height: size, Pix: make([]byte, size*size)}
	// Frames scroll through the noise field.
	shift := float64(frame) * s.cfg.Scale / 4
	hole := s.cfg.HoleRate*2 - 1

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := p.Noise2D((float64(x)+shift)/s.cfg.Scale, float64(y)/s.cfg.Scale)
			if v < hole {
				bm.Pix[y*size+x] = palette.DefaultChromaIndex
				continue
			}
			normalized := math.Max(0, math.Min(1, (v+1)/2))
			bm.Pix[y*size+x] = uint8(1 + normalized*253)
		}
	}
	return bm, nil
}

// Palette returns the generated gradient palette for every name.
func (s *Synthetic) Palette(name string) (palette.Palette, error) {
	return s.pal, nil
}

// FrameCount returns the number of frames of a record.
func (s *Synthetic) FrameCount(archive, record int) (int, error) {
	if err := s.check(archive, record); err != nil {
		return 0, err
	}
	if record%10 == 3 || record%10 == 7 {
		return s.cfg.Frames, nil
	}
	return 1, nil
}

// QuickSize returns the configured texture size.
func (s *Synthetic) QuickSize(archive, record int) (int, int, error) {
	if err := s.check(archive, record); err != nil {
		return 0, 0, err
	}
	return s.cfg.Size, s.cfg.Size, nil
}

// Records lists the records of an archive.
func (s *Synthetic) Records(archive int) ([]int, error) {
	if archive < 0 || archive >= 1000 {
		return nil, fmt.Errorf("%w: archive %d", ErrNotFound, archive)
	}
	out := make([]int, s.cfg.Records)
	for i := range out {
		out[i] = i
	}
	return out, nil
}

// gradientPalette ramps through earthy tones so archives look distinct
// when tinted by climate offsets.
func gradientPalette() palette.Palette {
	var p palette.Palette
	for i := range p {
		t := float64(i) / 255
		p[i] = color.RGBA{
			R: uint8(math.Round(60 + 150*t)),
			G: uint8(math.Round(50 + 120*math.Sin(t*math.Pi))),
			B: uint8(math.Round(40 + 80*(1-t))),
			A: 0xFF,
		}
	}
	return p
}
