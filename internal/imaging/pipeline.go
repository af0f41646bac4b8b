package imaging

import (
	"slices"
	"strings"
)

// Step is one transform in a Pipeline. Steps run in ascending order.
type Step int

const (
	StepGrayscale Step = iota
	StepRotate
	StepFlip
	StepDilate
	StepPowerOfTwo
	StepPremultiply
)

var stepNames = map[Step]string{
	StepGrayscale:   "grayscale",
	StepRotate:      "rotate",
	StepFlip:        "flip",
	StepDilate:      "dilate",
	StepPowerOfTwo:  "pow2",
	StepPremultiply: "premultiply",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "unknown"
}

var stepFuncs = map[Step]func(*Buffer) *Buffer{
	StepGrayscale:   Grayscale,
	StepRotate:      Rotate90,
	StepFlip:        Flip,
	StepDilate:      Dilate,
	StepPowerOfTwo:  PowerOfTwo,
	StepPremultiply: PremultiplyAlpha,
}

// Pipeline is an ordered, duplicate-free list of steps.
type Pipeline []Step

// NewPipeline puts steps into their fixed execution order.
func NewPipeline(steps ...Step) Pipeline {
	p := slices.Clone(steps)
	slices.Sort(p)
	return slices.Compact(p)
}

// Apply runs every step over src. An empty pipeline returns a copy of src.
func (p Pipeline) Apply(src *Buffer) *Buffer {
	out := src
	for _, s := range p {
		out = stepFuncs[s](out)
	}
	if out == src {
		out = src.Clone()
	}
	return out
}

func (p Pipeline) String() string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.String()
	}
	return strings.Join(names, ">")
}
