package resolver

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/climatetex/internal/imaging"
)

// Flags selects optional processing for a request.
type Flags uint16

const (
	ApplyClimate Flags = 1 << iota
	PowerOfTwo
	Dilate
	PremultiplyAlpha
	MipMaps
	Grayscale
	Rotate
	Flip
	ExtendedAlpha
	NormalMap
)

// PixelFlags are the flags that change the albedo pixels of a texture.
const PixelFlags = Grayscale | Rotate | Flip | Dilate | PowerOfTwo | PremultiplyAlpha | ExtendedAlpha

var flagNames = []struct {
	flag Flags
	name string
}{
	{ApplyClimate, "climate"},
	{PowerOfTwo, "pow2"},
	{Dilate, "dilate"},
	{PremultiplyAlpha, "premultiply"},
	{MipMaps, "mipmaps"},
	{Grayscale, "grayscale"},
	{Rotate, "rotate"},
	{Flip, "flip"},
	{ExtendedAlpha, "extended-alpha"},
	{NormalMap, "normal"},
}

// pipelineSteps maps the flags that are image transforms onto their steps.
var pipelineSteps = map[Flags]imaging.Step{
	Grayscale:        imaging.StepGrayscale,
	Rotate:           imaging.StepRotate,
	Flip:             imaging.StepFlip,
	Dilate:           imaging.StepDilate,
	PowerOfTwo:       imaging.StepPowerOfTwo,
	PremultiplyAlpha: imaging.StepPremultiply,
}

// Has reports whether every flag in x is set.
func (f Flags) Has(x Flags) bool {
	return f&x == x
}

// SamePixels reports whether f and g produce identical albedo pixels.
func (f Flags) SamePixels(g Flags) bool {
	return f&PixelFlags == g&PixelFlags
}

// Pipeline returns the image transforms f enables, in execution order.
func (f Flags) Pipeline() imaging.Pipeline {
	var steps []imaging.Step
	for flag, step := range pipelineSteps {
		if f.Has(flag) {
			steps = append(steps, step)
		}
	}
	return imaging.NewPipeline(steps...)
}

func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseFlags parses a comma separated list of flag names as printed by String.
func ParseFlags(s string) (Flags, error) {
	var f Flags
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		found := false
		for _, fn := range flagNames {
			if fn.name == part {
				f |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown flag %q", part)
		}
	}
	return f, nil
}
