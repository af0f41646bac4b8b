package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/palette"
	"github.com/MeKo-Tech/climatetex/internal/resolver"
	"github.com/MeKo-Tech/climatetex/internal/source"
	"github.com/MeKo-Tech/climatetex/internal/store"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
	"github.com/MeKo-Tech/climatetex/internal/worker"
)

func solid(index byte) *palette.Bitmap {
	return &palette.Bitmap{Width: 2, Height: 2, Pix: []byte{index, index, index, index}}
}

func newSource() *source.Memory {
	m := source.NewMemory()
	var pal palette.Palette
	for i := range pal {
		pal[i] = color.RGBA{R: uint8(i), G: 255 - uint8(i), B: 40, A: 255}
	}
	m.AddPalette(source.DefaultPalette, pal)

	m.AddRecord(112, 3, solid(1))
	m.AddRecord(12, 3, solid(12))
	m.AddRecord(13, 3, solid(13))
	m.AddRecord(210, 0, solid(20), solid(21), solid(22))
	return m
}

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"png", PNG, false},
		{".WEBP", WebP, false},
		{" bmp ", BMP, false},
		{"gif", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	img := testImage()

	t.Run("png", func(t *testing.T) {
		data, err := EncodeBytes(img, PNG)
		require.NoError(t, err)
		decoded, err := Decode(bytes.NewReader(data), PNG)
		require.NoError(t, err)
		assert.Equal(t, img.Bounds(), decoded.Bounds())
	})

	t.Run("bmp", func(t *testing.T) {
		data, err := EncodeBytes(img, BMP)
		require.NoError(t, err)
		decoded, err := bmp.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, img.Bounds(), decoded.Bounds())
	})

	t.Run("webp", func(t *testing.T) {
		data, err := EncodeBytes(img, WebP)
		require.NoError(t, err)
		require.Greater(t, len(data), 12)
		assert.Equal(t, "RIFF", string(data[:4]))
		assert.Equal(t, "WEBP", string(data[8:12]))
	})

	t.Run("unknown", func(t *testing.T) {
		err := Encode(&bytes.Buffer{}, img, Format("tiff"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestName(t *testing.T) {
	tests := []struct {
		name string
		in   Name
		want string
	}{
		{
			name: "direct",
			in:   Name{Archive: 210, Record: 0, Frame: 2, Climate: climate.Context{Type: climate.None}, Format: PNG},
			want: "a210_r0_f2.png",
		},
		{
			name: "climate",
			in:   Name{Archive: 112, Record: 3, Climate: climate.Context{Type: climate.Desert, Weather: climate.Winter}, Format: WebP},
			want: "a112_r3_f0_desert_winter.webp",
		},
		{
			name: "mip",
			in:   Name{Archive: 1, Record: 2, Climate: climate.Context{Type: climate.None}, Aux: "_mip3", Format: BMP},
			want: "a1_r2_f0_mip3.bmp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())

			parsed, err := ParseName(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.in, parsed)
		})
	}
}

func TestParseName_Invalid(t *testing.T) {
	for _, s := range []string{"readme.txt", "a1_r2.png", "a1_r2_f0_arctic_normal.png", "a1_r2_f0.gif"} {
		_, err := ParseName(s)
		assert.ErrorIs(t, err, ErrInvalidName, s)
	}
}

func TestNameKey(t *testing.T) {
	n := Name{Archive: 112, Record: 3, Climate: climate.Context{Type: climate.Desert, Weather: climate.Winter}}
	key, variant, err := n.Key()
	require.NoError(t, err)

	want, err := texkey.Climate(int(climate.Desert), int(climate.CityA), 3)
	require.NoError(t, err)
	assert.Equal(t, want, key)
	assert.Equal(t, climate.WinterVariant, variant)

	n = Name{Archive: 210, Record: 0, Frame: 1, Climate: climate.Context{Type: climate.None}}
	key, variant, err = n.Key()
	require.NoError(t, err)
	assert.Equal(t, texkey.MustDirect(210, 0, 1), key)
	assert.Equal(t, climate.General, variant)
}

func TestExporter_Files(t *testing.T) {
	dir := t.TempDir()
	e := New(newSource(), Config{OutputDir: dir, Format: PNG})

	task := worker.Task{
		Archive: 112,
		Record:  3,
		Climate: climate.Context{Type: climate.Desert, Weather: climate.Winter},
		Flags:   resolver.ApplyClimate | resolver.MipMaps | resolver.NormalMap,
	}
	paths, err := e.Export(context.Background(), task)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "a112_r3_f0_desert_winter.png"),
		filepath.Join(dir, "a112_r3_f0_desert_winter_mip1.png"),
		filepath.Join(dir, "a112_r3_f0_desert_winter_normal.png"),
	}
	assert.Equal(t, want, paths)
	for _, p := range want {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}

	assert.Zero(t, e.Resolver().Stats().Entries, "exported textures are evicted")
}

func TestExporter_Animated(t *testing.T) {
	dir := t.TempDir()
	e := New(newSource(), Config{OutputDir: dir, Format: BMP})

	paths, err := e.Export(context.Background(), worker.Task{
		Archive:  210,
		Record:   0,
		Climate:  climate.Context{Type: climate.Temperate, Weather: climate.Normal},
		Flags:    resolver.ApplyClimate,
		Animated: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a210_r0_f0.bmp"),
		filepath.Join(dir, "a210_r0_f1.bmp"),
		filepath.Join(dir, "a210_r0_f2.bmp"),
	}, paths)
}

func TestExporter_Store(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "textures.db")
	w, err := store.New(dbPath, store.Metadata{Name: "test", Format: "png"})
	require.NoError(t, err)

	e := New(newSource(), Config{Format: PNG, Store: w})
	task := worker.Task{
		Archive: 112,
		Record:  3,
		Climate: climate.Context{Type: climate.Desert, Weather: climate.Winter},
		Flags:   resolver.ApplyClimate,
	}
	paths, err := e.Export(context.Background(), task)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.NoError(t, w.Close())

	r, err := store.OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()

	key, _, err := Name{Archive: 112, Record: 3, Climate: task.Climate}.Key()
	require.NoError(t, err)

	entry, err := r.Lookup(key, climate.Winter)
	require.NoError(t, err)
	assert.Equal(t, 13, entry.Archive)
	assert.Equal(t, climate.WinterVariant, entry.Variant)
	assert.Equal(t, "png", entry.Format)

	img, err := Decode(bytes.NewReader(entry.Data), PNG)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
}

func TestExporter_Errors(t *testing.T) {
	e := New(newSource(), Config{OutputDir: t.TempDir()})

	_, err := e.Export(context.Background(), worker.Task{Archive: 999, Record: 1})
	assert.True(t, errors.Is(err, source.ErrNotFound))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Export(ctx, worker.Task{Archive: 112, Record: 3})
	assert.ErrorIs(t, err, context.Canceled)
}
