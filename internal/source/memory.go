package source

import (
	"fmt"

	"github.com/MeKo-Tech/climatetex/internal/palette"
)

type recordKey struct {
	archive int
	record  int
}

// Memory is a Source backed by maps. It is meant for tests and embedding.
type Memory struct {
	records  map[recordKey][]*palette.Bitmap
	palettes map[string]palette.Palette
	// Reads counts IndexedBitmap calls.
	Reads int
}

// NewMemory creates an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[recordKey][]*palette.Bitmap),
		palettes: make(map[string]palette.Palette),
	}
}

// AddRecord stores the frames of a record, replacing earlier ones. Passing no
// frames registers a record without any decodable frame.
func (m *Memory) AddRecord(archive, record int, frames ...*palette.Bitmap) {
	m.records[recordKey{archive, record}] = frames
}

// AddPalette stores a palette under name.
func (m *Memory) AddPalette(name string, p palette.Palette) {
	m.palettes[name] = p
}

func (m *Memory) IndexedBitmap(archive, record, frame int) (*palette.Bitmap, error) {
	m.Reads++
	frames, ok := m.records[recordKey{archive, record}]
	if !ok || frame < 0 || frame >= len(frames) {
		return nil, notFound(archive, record, frame)
	}
	return frames[frame], nil
}

func (m *Memory) Palette(name string) (palette.Palette, error) {
	p, ok := m.palettes[name]
	if !ok {
		return palette.Palette{}, fmt.Errorf("%w: palette %s", ErrNotFound, name)
	}
	return p, nil
}

func (m *Memory) FrameCount(archive, record int) (int, error) {
	frames, ok := m.records[recordKey{archive, record}]
	if !ok {
		return 0, notFound(archive, record, 0)
	}
	return len(frames), nil
}

func (m *Memory) QuickSize(archive, record int) (int, int, error) {
	frames, ok := m.records[recordKey{archive, record}]
	if !ok || len(frames) == 0 || frames[0] == nil {
		return 0, 0, notFound(archive, record, 0)
	}
	return frames[0].Width, frames[0].Height, nil
}
