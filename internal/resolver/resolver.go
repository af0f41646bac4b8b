// Package resolver is the entry point for turning texture requests into
// cached, processed RGBA textures.
//
// A Resolver is not safe for concurrent use. Give each goroutine its own
// Resolver or serialize calls.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/climatetex/internal/cache"
	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/imaging"
	"github.com/MeKo-Tech/climatetex/internal/palette"
	"github.com/MeKo-Tech/climatetex/internal/source"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
)

var (
	// ErrNoFramesAvailable is returned when a record exists but has no frames.
	ErrNoFramesAvailable = errors.New("resolver: no frames available")
	// ErrInvalidPixelFormat is returned when decoded data is not RGBA8.
	ErrInvalidPixelFormat = palette.ErrInvalidPixelFormat
)

// Request identifies a texture and the processing it needs.
type Request struct {
	Archive int
	Record  int
	Frame   int
	Flags   Flags
}

// Texture is a resolved, processed texture.
type Texture struct {
	Key texkey.Key
	// Archive, Record and Frame name the data actually decoded, after
	// climate substitution.
	Archive int
	Record  int
	Frame   int
	Variant climate.Variant
	Flags   Flags

	Albedo *imaging.Buffer
	// Mips holds the mip chain when MipMaps was requested; Mips[0] is Albedo.
	Mips []*imaging.Buffer
	// Normal is set when NormalMap was requested.
	Normal *imaging.Buffer
}

// Stats counts cache activity since creation or the last ClearAll.
type Stats struct {
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Decodes int `json:"decodes"`
	Entries int `json:"entries"`
}

// Resolver resolves requests against a source and caches the results.
type Resolver struct {
	src      source.Source
	cache    *cache.Cache[*Texture]
	logger   *slog.Logger
	ctx      climate.Context
	palName  string
	pal      *palette.Palette
	bumpSize float64
	night    bool
	emissive []uint8
	capacity int
	stats    Stats
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPalette sets the palette textures are decoded with.
func WithPalette(name string) Option {
	return func(r *Resolver) { r.palName = name }
}

// WithBumpSize sets the normal map strength.
func WithBumpSize(bump float64) Option {
	return func(r *Resolver) { r.bumpSize = bump }
}

// WithNight selects night window colors.
func WithNight(night bool) Option {
	return func(r *Resolver) { r.night = night }
}

// WithEmissiveIndices sets the palette indices treated as emissive under ExtendedAlpha.
func WithEmissiveIndices(indices ...uint8) Option {
	return func(r *Resolver) { r.emissive = indices }
}

// WithLogger sets the logger. Nil uses slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithCapacity bounds the number of cached keys.
func WithCapacity(n int) Option {
	return func(r *Resolver) { r.capacity = n }
}

// WithClimate sets the initial climate.
func WithClimate(ctx climate.Context) Option {
	return func(r *Resolver) { r.ctx = ctx }
}

// New creates a resolver reading from src. The climate starts as None.
func New(src source.Source, opts ...Option) *Resolver {
	r := &Resolver{
		src:      src,
		ctx:      climate.Context{Type: climate.None, Weather: climate.Normal},
		palName:  source.DefaultPalette,
		bumpSize: imaging.DefaultBumpSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.cache = cache.New[*Texture](cache.WithCapacity(r.capacity))
	r.cache.OnClear(func() {
		r.stats = Stats{}
		r.pal = nil
	})
	return r
}

func (r *Resolver) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// SetClimate changes the climate used by later calls. Cached textures are
// kept.
func (r *Resolver) SetClimate(t climate.Type, w climate.Weather) {
	r.ctx = climate.Context{Type: t, Weather: w}
}

// Climate returns the current climate.
func (r *Resolver) Climate() climate.Context {
	return r.ctx
}

// BumpSize returns the normal map strength the resolver was built with.
func (r *Resolver) BumpSize() float64 {
	return r.bumpSize
}

// Resolve returns the key for req, decoding and caching it on a miss.
func (r *Resolver) Resolve(req Request) (texkey.Key, error) {
	if sub, ok := r.substitution(req); ok {
		return r.resolveClimate(req, sub)
	}
	return r.resolveDirect(req, req.Frame)
}

// ResolveFrames resolves every frame of an animated record and returns their
// keys in frame order. Climate-substituted textures never animate and
// yield a single key.
func (r *Resolver) ResolveFrames(req Request) ([]texkey.Key, error) {
	if sub, ok := r.substitution(req); ok {
		k, err := r.resolveClimate(req, sub)
		if err != nil {
			return nil, err
		}
		return []texkey.Key{k}, nil
	}

	n, err := r.frameCount(req.Archive, req.Record)
	if err != nil {
		return nil, err
	}

	keys := make([]texkey.Key, 0, n)
	for frame := 0; frame < n; frame++ {
		k, err := r.resolveDirect(req, frame)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Fetch returns the texture stored under key for the current weather.
func (r *Resolver) Fetch(key texkey.Key) (*Texture, bool) {
	return r.FetchWeather(key, r.ctx.Weather)
}

// FetchWeather returns the texture stored under key for weather, preferring
// the weather's variant and falling back to the general one.
func (r *Resolver) FetchWeather(key texkey.Key, weather climate.Weather) (*Texture, bool) {
	return r.cache.Get(key, weather)
}

// Remove evicts key from every variant and returns the evicted textures.
func (r *Resolver) Remove(key texkey.Key) []*Texture {
	return r.cache.Remove(key)
}

// ClearAll evicts every texture and resets the statistics.
func (r *Resolver) ClearAll() {
	r.cache.Clear()
	r.log().Debug("texture cache cleared")
}

// Stats returns the cache counters.
func (r *Resolver) Stats() Stats {
	s := r.stats
	s.Entries = r.cache.Len()
	return s
}

// QuickSize returns the size of a record without decoding it.
func (r *Resolver) QuickSize(archive, record int) (int, int, error) {
	return r.src.QuickSize(archive, record)
}

func (r *Resolver) substitution(req Request) (climate.Substitution, bool) {
	if !req.Flags.Has(ApplyClimate) || r.ctx.Type == climate.None {
		return climate.Substitution{}, false
	}
	sub := climate.Resolve(req.Archive, r.ctx)
	if sub.PassThrough {
		return climate.Substitution{}, false
	}
	return sub, true
}

func (r *Resolver) resolveClimate(req Request, sub climate.Substitution) (texkey.Key, error) {
	key, err := texkey.Climate(int(r.ctx.Type), int(sub.Set), req.Record)
	if err != nil {
		return 0, err
	}
	return key, r.load(key, sub.Variant, sub.Archive, req.Record, 0, req.Flags)
}

func (r *Resolver) resolveDirect(req Request, frame int) (texkey.Key, error) {
	key, err := texkey.Direct(req.Archive, req.Record, frame)
	if err != nil {
		return 0, err
	}
	return key, r.load(key, climate.General, req.Archive, req.Record, frame, req.Flags)
}

func (r *Resolver) load(key texkey.Key, variant climate.Variant, archive, record, frame int, flags Flags) error {
	miss := false
	_, err := r.cache.GetOrCreate(key, variant, func() (*Texture, error) {
		miss = true
		return r.produce(key, variant, archive, record, frame, flags)
	})
	if err != nil {
		return err
	}

	if miss {
		r.stats.Misses++
	} else {
		r.stats.Hits++
	}
	return nil
}

func (r *Resolver) frameCount(archive, record int) (int, error) {
	n, err := r.src.FrameCount(archive, record)
	if err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: archive %d record %d", ErrNoFramesAvailable, archive, record)
	}
	return n, nil
}

func (r *Resolver) loadPalette() (palette.Palette, error) {
	if r.pal != nil {
		return *r.pal, nil
	}
	p, err := r.src.Palette(r.palName)
	if err != nil {
		return palette.Palette{}, fmt.Errorf("failed to load palette: %w", err)
	}
	r.pal = &p
	return p, nil
}

// produce decodes and processes one texture. It has no effect on the cache.
func (r *Resolver) produce(key texkey.Key, variant climate.Variant, archive, record, frame int, flags Flags) (*Texture, error) {
	n, err := r.frameCount(archive, record)
	if err != nil {
		return nil, err
	}
	if frame >= n {
		return nil, fmt.Errorf("%w: archive %d record %d frame %d of %d", source.ErrNotFound, archive, record, frame, n)
	}

	bm, err := r.src.IndexedBitmap(archive, record, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to read bitmap: %w", err)
	}
	pal, err := r.loadPalette()
	if err != nil {
		return nil, err
	}

	opts := palette.DefaultOptions()
	opts.Night = r.night
	opts.ExtendedAlpha = flags.Has(ExtendedAlpha)
	opts.EmissiveIndices = r.emissive

	decoded, err := palette.Decode(bm, pal, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode archive %d record %d frame %d: %w", archive, record, frame, err)
	}
	if err := decoded.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPixelFormat, err)
	}

	tex := &Texture{
		Key:     key,
		Archive: archive,
		Record:  record,
		Frame:   frame,
		Variant: variant,
		Flags:   flags,
		Albedo:  flags.Pipeline().Apply(decoded),
	}
	if flags.Has(MipMaps) {
		tex.Mips = imaging.MipChain(tex.Albedo)
	}
	if flags.Has(NormalMap) {
		tex.Normal = imaging.NormalMap(tex.Albedo, r.bumpSize)
	}

	r.stats.Decodes++
	r.log().Debug("texture decoded",
		"key", key,
		"archive", archive,
		"record", record,
		"frame", frame,
		"variant", variant,
		"flags", flags,
		"size", fmt.Sprintf("%dx%d", tex.Albedo.Width, tex.Albedo.Height),
	)
	return tex, nil
}
