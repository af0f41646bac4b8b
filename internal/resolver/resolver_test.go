package resolver

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/climatetex/internal/cache"
	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/imaging"
	"github.com/MeKo-Tech/climatetex/internal/palette"
	"github.com/MeKo-Tech/climatetex/internal/source"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
)

func solid(index byte) *palette.Bitmap {
	return &palette.Bitmap{Width: 2, Height: 2, Pix: []byte{index, index, index, index}}
}

func newSource() *source.Memory {
	m := source.NewMemory()
	var pal palette.Palette
	for i := range pal {
		pal[i] = color.RGBA{R: uint8(i), G: uint8(i / 2), B: uint8(255 - i), A: 255}
	}
	m.AddPalette(source.DefaultPalette, pal)

	m.AddRecord(112, 3, solid(1))
	m.AddRecord(12, 3, solid(12))
	m.AddRecord(13, 3, solid(13))
	m.AddRecord(210, 0, solid(20), solid(21), solid(22))
	m.AddRecord(210, 1)
	m.AddRecord(301, 0, &palette.Bitmap{Width: 2, Height: 2, Pix: make([]byte, 12)})
	return m
}

func TestResolve_Direct(t *testing.T) {
	r := New(newSource())

	k, err := r.Resolve(Request{Archive: 112, Record: 3})
	require.NoError(t, err)
	assert.Equal(t, texkey.MustDirect(112, 3, 0), k)

	tex, ok := r.Fetch(k)
	require.True(t, ok)
	assert.Equal(t, 112, tex.Archive)
	assert.Equal(t, color.NRGBA{R: 1, G: 0, B: 254, A: 255}, tex.Albedo.At(0, 0))
}

func TestResolve_Idempotent(t *testing.T) {
	src := newSource()
	r := New(src)
	r.SetClimate(climate.Desert, climate.Winter)
	req := Request{Archive: 112, Record: 3, Flags: ApplyClimate | Dilate | MipMaps}

	k1, err := r.Resolve(req)
	require.NoError(t, err)
	reads := src.Reads
	k2, err := r.Resolve(req)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Equal(t, reads, src.Reads, "second resolve must hit the cache")

	t1, _ := r.Fetch(k1)
	t2, _ := r.Fetch(k2)
	assert.Equal(t, t1.Albedo.Pix, t2.Albedo.Pix)

	s := r.Stats()
	assert.Equal(t, 1, s.Hits)
	assert.Equal(t, 1, s.Misses)
	assert.Equal(t, 1, s.Entries)
}

func TestResolve_WinterScenario(t *testing.T) {
	r := New(newSource())
	req := Request{Archive: 112, Record: 3, Flags: ApplyClimate}

	r.SetClimate(climate.Desert, climate.Winter)
	kWinter, err := r.Resolve(req)
	require.NoError(t, err)

	want, err := texkey.Climate(int(climate.Desert), int(climate.CityA), 3)
	require.NoError(t, err)
	assert.Equal(t, want, kWinter)

	tex, ok := r.Fetch(kWinter)
	require.True(t, ok)
	assert.Equal(t, 13, tex.Archive, "winter variant decodes climate+set+1")
	assert.Equal(t, climate.WinterVariant, tex.Variant)

	// Only the winter dictionary was filled.
	_, ok = r.FetchWeather(kWinter, climate.Normal)
	assert.False(t, ok)

	r.SetClimate(climate.Desert, climate.Normal)
	kNormal, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, kWinter, kNormal, "weather must not change key identity")

	normal, ok := r.Fetch(kNormal)
	require.True(t, ok)
	assert.Equal(t, 12, normal.Archive)

	winter, ok := r.FetchWeather(kNormal, climate.Winter)
	require.True(t, ok)
	assert.NotEqual(t, normal.Albedo.Pix, winter.Albedo.Pix)
}

func TestResolve_ClimateIgnoredWithoutFlag(t *testing.T) {
	r := New(newSource())
	r.SetClimate(climate.Desert, climate.Winter)

	k, err := r.Resolve(Request{Archive: 112, Record: 3})
	require.NoError(t, err)
	assert.False(t, k.IsClimate())
}

func TestResolveFrames(t *testing.T) {
	r := New(newSource())

	keys, err := r.ResolveFrames(Request{Archive: 210, Record: 0, Flags: ApplyClimate})
	require.NoError(t, err)
	require.Len(t, keys, 3)
	for i, k := range keys {
		assert.Equal(t, texkey.MustDirect(210, 0, i), k)
		tex, ok := r.Fetch(k)
		require.True(t, ok)
		assert.Equal(t, uint8(20+i), tex.Albedo.At(0, 0).R)
	}

	r.SetClimate(climate.Desert, climate.Winter)
	keys, err = r.ResolveFrames(Request{Archive: 112, Record: 3, Flags: ApplyClimate})
	require.NoError(t, err)
	assert.Len(t, keys, 1, "climate textures never animate")
	assert.True(t, keys[0].IsClimate())
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no frames", Request{Archive: 210, Record: 1}, ErrNoFramesAvailable},
		{"missing record", Request{Archive: 210, Record: 9}, source.ErrNotFound},
		{"missing frame", Request{Archive: 210, Record: 0, Frame: 5}, source.ErrNotFound},
		{"bad bitmap", Request{Archive: 301, Record: 0}, ErrInvalidPixelFormat},
		{"out of range", Request{Archive: 1200, Record: 0}, texkey.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(newSource())
			_, err := r.Resolve(tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			assert.Zero(t, r.Stats().Entries, "failed resolve must not cache anything")
		})
	}

	r := New(newSource())
	_, err := r.ResolveFrames(Request{Archive: 210, Record: 1})
	assert.True(t, errors.Is(err, ErrNoFramesAvailable))
	assert.False(t, errors.Is(err, source.ErrNotFound))
}

func TestRemoveAndClear(t *testing.T) {
	r := New(newSource())
	k, err := r.Resolve(Request{Archive: 112, Record: 3})
	require.NoError(t, err)

	removed := r.Remove(k)
	require.Len(t, removed, 1)
	_, ok := r.Fetch(k)
	assert.False(t, ok)
	assert.Empty(t, r.Remove(k))

	_, err = r.Resolve(Request{Archive: 112, Record: 3})
	require.NoError(t, err)
	r.ClearAll()
	assert.Equal(t, Stats{}, r.Stats())
	_, ok = r.Fetch(k)
	assert.False(t, ok)
}

func TestResolve_Processing(t *testing.T) {
	r := New(newSource())
	k, err := r.Resolve(Request{Archive: 112, Record: 3, Flags: MipMaps | NormalMap | PremultiplyAlpha})
	require.NoError(t, err)

	tex, ok := r.Fetch(k)
	require.True(t, ok)
	require.Len(t, tex.Mips, 2)
	assert.Same(t, tex.Albedo, tex.Mips[0])
	require.NotNil(t, tex.Normal)
	assert.Equal(t, color.NRGBA{0, 0, 255, 0}, tex.Normal.At(1, 1))
}

func TestResolve_CapacityBound(t *testing.T) {
	r := New(newSource(), WithCapacity(1))
	_, err := r.Resolve(Request{Archive: 112, Record: 3})
	require.NoError(t, err)
	_, err = r.Resolve(Request{Archive: 12, Record: 3})
	assert.True(t, errors.Is(err, cache.ErrCacheFull))
}

func TestResolvers_Independent(t *testing.T) {
	a := New(newSource())
	b := New(newSource())
	a.SetClimate(climate.Swamp, climate.Winter)

	assert.Equal(t, climate.None, b.Climate().Type)
}

func TestFlags(t *testing.T) {
	f, err := ParseFlags("climate, dilate,premultiply")
	require.NoError(t, err)
	assert.True(t, f.Has(ApplyClimate|Dilate|PremultiplyAlpha))
	assert.Equal(t, "climate,dilate,premultiply", f.String())
	assert.Equal(t, "dilate>premultiply", f.Pipeline().String())

	_, err = ParseFlags("sparkle")
	assert.Error(t, err)
}

func TestFlags_SamePixels(t *testing.T) {
	assert.True(t, Dilate.SamePixels(Dilate|MipMaps|NormalMap|ApplyClimate))
	assert.False(t, Dilate.SamePixels(Dilate|Grayscale))
	assert.False(t, Flags(0).SamePixels(ExtendedAlpha))
}

func TestBumpSize(t *testing.T) {
	assert.Equal(t, imaging.DefaultBumpSize, New(newSource()).BumpSize())
	assert.Equal(t, 3.5, New(newSource(), WithBumpSize(3.5)).BumpSize())
}
