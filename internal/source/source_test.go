package source

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/MeKo-Tech/climatetex/internal/palette"
)

func paletted(w, h int, fill uint8) *image.Paletted {
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.RGBA{uint8(i), uint8(i), uint8(i), 255}
	}
	img := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	for i := range img.Pix {
		img.Pix[i] = fill + uint8(i)
	}
	return img
}

func writeImage(t *testing.T, path string, img image.Image, useBMP bool) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	var buf bytes.Buffer
	if useBMP {
		require.NoError(t, bmp.Encode(&buf, img))
	} else {
		require.NoError(t, png.Encode(&buf, img))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func newTestDir(t *testing.T) *Dir {
	t.Helper()
	root := t.TempDir()

	arch := filepath.Join(root, ArchiveDir(112))
	writeImage(t, filepath.Join(arch, FrameFile(3, 0)+".png"), paletted(4, 2, 10), false)
	writeImage(t, filepath.Join(arch, FrameFile(5, 0)+".png"), paletted(2, 2, 20), false)
	writeImage(t, filepath.Join(arch, FrameFile(5, 1)+".bmp"), paletted(2, 2, 30), true)
	writeImage(t, filepath.Join(arch, FrameFile(9, 0)+".png"), image.NewNRGBA(image.Rect(0, 0, 2, 2)), false)
	// Record 7 exists but has no frame 0 image.
	writeImage(t, filepath.Join(arch, FrameFile(7, 1)+".png"), paletted(2, 2, 40), false)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ArchiveDir(200)), 0o755))

	var pal palette.Palette
	for i := range pal {
		pal[i] = color.RGBA{R: uint8(i), A: 255}
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultPalette), pal.Bytes(), 0o644))

	d, err := NewDir(root)
	require.NoError(t, err)
	return d
}

func TestDir_IndexedBitmap(t *testing.T) {
	d := newTestDir(t)

	bm, err := d.IndexedBitmap(112, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, bm.Width)
	assert.Equal(t, 2, bm.Height)
	assert.Equal(t, []byte{10, 11, 12, 13, 14, 15, 16, 17}, bm.Pix)

	bm, err = d.IndexedBitmap(112, 5, 1)
	require.NoError(t, err, "BMP frames should decode")
	assert.Equal(t, []byte{30, 31, 32, 33}, bm.Pix)
}

func TestDir_Errors(t *testing.T) {
	d := newTestDir(t)

	_, err := d.IndexedBitmap(112, 4, 0)
	assert.True(t, errors.Is(err, ErrNotFound), "missing record: %v", err)

	_, err = d.IndexedBitmap(112, 9, 0)
	assert.True(t, errors.Is(err, ErrInvalidPixelFormat), "rgba frame: %v", err)

	_, err = d.Palette("MISSING.COL")
	assert.True(t, errors.Is(err, ErrNotFound), "missing palette: %v", err)

	_, err = d.FrameCount(300, 0)
	assert.True(t, errors.Is(err, ErrNotFound), "missing archive: %v", err)

	_, err = d.FrameCount(112, 999)
	assert.True(t, errors.Is(err, ErrNotFound), "missing record: %v", err)

	_, err = d.FrameCount(200, 0)
	assert.True(t, errors.Is(err, ErrNotFound), "empty archive: %v", err)
}

func TestDir_DecodesByExtension(t *testing.T) {
	d := newTestDir(t)
	arch := filepath.Join(d.Root(), ArchiveDir(112))

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(gray.Pix, []byte{50, 51, 52, 53})
	var buf bytes.Buffer
	require.NoError(t, tga.Encode(&buf, gray))
	require.NoError(t, os.WriteFile(filepath.Join(arch, FrameFile(11, 0)+".tga"), buf.Bytes(), 0o644))

	// PNG frames still decode with the tga decoder linked in.
	bm, err := d.IndexedBitmap(112, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 11, 12, 13, 14, 15, 16, 17}, bm.Pix)

	w, h, err := d.QuickSize(112, 5)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 2}, [2]int{w, h})

	bm, err = d.IndexedBitmap(112, 11, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{50, 51, 52, 53}, bm.Pix)

	w, h, err = d.QuickSize(112, 11)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 2}, [2]int{w, h})

	_, err = DecodeFile(bytes.NewReader(nil), "frame.gif")
	assert.Error(t, err)
}

func TestDir_FrameCountAndSize(t *testing.T) {
	d := newTestDir(t)

	tests := []struct {
		archive, record, want int
	}{
		{112, 3, 1},
		{112, 5, 2},
		{112, 7, 0},
	}
	for _, tt := range tests {
		n, err := d.FrameCount(tt.archive, tt.record)
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, "FrameCount(%d,%d)", tt.archive, tt.record)
	}

	w, h, err := d.QuickSize(112, 3)
	require.NoError(t, err)
	assert.Equal(t, [2]int{4, 2}, [2]int{w, h})

	records, err := d.Records(112)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 9}, records)

	pal, err := d.Palette(DefaultPalette)
	require.NoError(t, err)
	assert.Equal(t, uint8(77), pal[77].R)
}

func TestSynthetic_Deterministic(t *testing.T) {
	s := NewSynthetic(SyntheticConfig{Seed: 7, Size: 16})

	a, err := s.IndexedBitmap(302, 1, 0)
	require.NoError(t, err)
	b, err := s.IndexedBitmap(302, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
	require.NoError(t, a.Validate())

	for _, idx := range a.Pix {
		assert.NotEqual(t, uint8(palette.DefaultWindowIndex), idx)
	}

	other, err := s.IndexedBitmap(303, 1, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a.Pix, other.Pix, "different archives should differ")
}

func TestSynthetic_Frames(t *testing.T) {
	s := NewSynthetic(DefaultSyntheticConfig())

	n, err := s.FrameCount(10, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = s.FrameCount(10, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.IndexedBitmap(10, 2, 1)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.FrameCount(10, 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	bm := &palette.Bitmap{Width: 1, Height: 1, Pix: []byte{4}}
	m.AddRecord(1, 2, bm)
	m.AddRecord(1, 3)

	got, err := m.IndexedBitmap(1, 2, 0)
	require.NoError(t, err)
	assert.Same(t, bm, got)
	assert.Equal(t, 1, m.Reads)

	n, err := m.FrameCount(1, 3)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = m.Palette(DefaultPalette)
	assert.True(t, errors.Is(err, ErrNotFound))
}
