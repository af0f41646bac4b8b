// Package texkey derives the stable integer keys textures are cached under.
//
// Two schemes exist. Direct keys address an archive/record/frame triple and are
// always negative. Climate keys address a climate/set/record triple and are
// never negative, so the two can not collide.
package texkey

import (
	"errors"
	"fmt"
)

const (
	archiveMul = -1_000_000
	recordMul  = 100

	climateMul = 1_000_000
	setMul     = 1_000

	// MaxArchive, MaxRecord and MaxFrame are exclusive upper bounds.
	MaxArchive = 1000
	MaxRecord  = 1000
	MaxFrame   = 100
	MaxSet     = 100
)

// ErrOutOfRange is returned when a key component is outside its legal range.
var ErrOutOfRange = errors.New("texkey: component out of range")

// Key identifies one cached texture.
type Key int64

// Direct encodes an archive/record/frame triple.
func Direct(archive, record, frame int) (Key, error) {
	if archive < 0 || archive >= MaxArchive {
		return 0, fmt.Errorf("%w: archive %d", ErrOutOfRange, archive)
	}
	if record < 0 || record >= MaxRecord {
		return 0, fmt.Errorf("%w: record %d", ErrOutOfRange, record)
	}
	if frame < 0 || frame >= MaxFrame {
		return 0, fmt.Errorf("%w: frame %d", ErrOutOfRange, frame)
	}
	return Key(archive*archiveMul - record*recordMul - frame - 1), nil
}

// Climate encodes a climate base, climate set and record. climateBase is the
// numeric climate base (0, 100, 300, 400), not an ordinal.
func Climate(climateBase, set, record int) (Key, error) {
	if climateBase < 0 || climateBase >= MaxArchive {
		return 0, fmt.Errorf("%w: climate %d", ErrOutOfRange, climateBase)
	}
	if set <= 0 || set >= MaxSet {
		return 0, fmt.Errorf("%w: climate set %d", ErrOutOfRange, set)
	}
	if record < 0 || record >= MaxRecord {
		return 0, fmt.Errorf("%w: record %d", ErrOutOfRange, record)
	}
	return Key(climateBase*climateMul + set*setMul + record), nil
}

// MustDirect is like Direct but panics on invalid input.
func MustDirect(archive, record, frame int) Key {
	k, err := Direct(archive, record, frame)
	if err != nil {
		panic(err)
	}
	return k
}

// IsClimate reports whether k belongs to the climate scheme.
func (k Key) IsClimate() bool {
	return k >= 0
}

// Components decodes a direct key back into archive, record and frame.
// ok is false for climate keys.
func (k Key) Components() (archive, record, frame int, ok bool) {
	if k.IsClimate() {
		return 0, 0, 0, false
	}
	v := int64(-k) - 1
	archive = int(v / -archiveMul)
	v %= -archiveMul
	return archive, int(v / recordMul), int(v % recordMul), true
}

func (k Key) String() string {
	if k.IsClimate() {
		v := int64(k)
		return fmt.Sprintf("climate(%d/%d/%d)", v/climateMul, (v%climateMul)/setMul, v%setMul)
	}
	a, r, f, _ := k.Components()
	return fmt.Sprintf("direct(%d/%d/%d)", a, r, f)
}
