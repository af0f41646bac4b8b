package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MeKo-Tech/climatetex/internal/palette"
)

// Extensions lists the image formats Dir reads, in lookup order.
var Extensions = []string{".png", ".bmp", ".tga"}

// Dir reads archives laid out on disk as
//
//	<root>/TEXTURE.NNN/RRR-FF.{png,bmp,tga}
//	<root>/<palette name>
//
// PNG and BMP images must be 8-bit paletted; their own palettes are ignored.
// TGA frames are 8-bit monochrome with the index as gray level.
type Dir struct {
	root string
}

// NewDir returns a source rooted at root.
func NewDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", root)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory the source reads from.
func (d *Dir) Root() string {
	return d.root
}

// ArchiveDir returns the directory name of an archive.
func ArchiveDir(archive int) string {
	return fmt.Sprintf("TEXTURE.%03d", archive)
}

// FrameFile returns the base name (without extension) of a frame image.
func FrameFile(record, frame int) string {
	return fmt.Sprintf("%03d-%02d", record, frame)
}

func (d *Dir) framePath(archive, record, frame int) (string, error) {
	base := filepath.Join(d.root, ArchiveDir(archive), FrameFile(record, frame))
	for _, ext := range Extensions {
		p := base + ext
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", notFound(archive, record, frame)
}

// IndexedBitmap decodes one frame.
func (d *Dir) IndexedBitmap(archive, record, frame int) (*palette.Bitmap, error) {
	path, err := d.framePath(archive, record, frame)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame %s: %w", path, err)
	}
	defer f.Close()

	img, err := DecodeFile(f, path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", path, err)
	}

	var bm *palette.Bitmap
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		bm, err = bitmapFromGray(img)
	} else {
		bm, err = bitmapFromImage(img)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bm, nil
}

// Palette reads a palette file from the source root.
func (d *Dir) Palette(name string) (palette.Palette, error) {
	data, err := os.ReadFile(filepath.Join(d.root, filepath.Base(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return palette.Palette{}, fmt.Errorf("%w: palette %s", ErrNotFound, name)
	}
	if err != nil {
		return palette.Palette{}, fmt.Errorf("failed to read palette %s: %w", name, err)
	}
	return palette.Parse(data)
}

// FrameCount counts consecutive frames starting at frame 0. A record is
// known when any RRR-* entry exists in its archive; a known record without a
// frame 0 image reports zero frames.
func (d *Dir) FrameCount(archive, record int) (int, error) {
	dir := filepath.Join(d.root, ArchiveDir(archive))
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("%w: archive %d", ErrNotFound, archive)
	}

	matches, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("%03d-*", record)))
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: archive %d record %d", ErrNotFound, archive, record)
	}

	n := 0
	for {
		if _, err := d.framePath(archive, record, n); err != nil {
			break
		}
		n++
	}
	return n, nil
}

// QuickSize reads the dimensions of frame 0 without decoding pixels.
func (d *Dir) QuickSize(archive, record int) (int, int, error) {
	path, err := d.framePath(archive, record, 0)
	if err != nil {
		return 0, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open frame %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := DecodeFileConfig(f, path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read size of %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Records lists the record numbers that have a frame 0 image in archive.
func (d *Dir) Records(archive int) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(d.root, ArchiveDir(archive)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: archive %d", ErrNotFound, archive)
		}
		return nil, err
	}

	seen := make(map[int]bool)
	for _, e := range entries {
		var record, frame int
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if _, err := fmt.Sscanf(name, "%d-%d", &record, &frame); err != nil || frame != 0 {
			continue
		}
		seen[record] = true
	}

	records := make([]int, 0, len(seen))
	for r := range seen {
		records = append(records, r)
	}
	sort.Ints(records)
	return records, nil
}
