// Package server serves resolved textures over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/export"
	"github.com/MeKo-Tech/climatetex/internal/imaging"
	"github.com/MeKo-Tech/climatetex/internal/resolver"
	"github.com/MeKo-Tech/climatetex/internal/source"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
)

var (
	errBadRequest = errors.New("bad request")
	errMipLevel   = errors.New("mip level out of range")
)

type TexturesConfig struct {
	// Climate applies when a request has no climate parameter.
	Climate climate.Context
	// Flags apply when a request has no flags parameter.
	Flags        resolver.Flags
	CacheControl string
}

// Textures resolves textures on demand. A single resolver is shared by all
// requests; identical concurrent requests are coalesced.
type Textures struct {
	res    *resolver.Resolver
	mu     sync.Mutex
	group  singleflight.Group
	cfg    TexturesConfig
	logger *slog.Logger

	totalServed atomic.Int64
	totalFailed atomic.Int64
	coalesced   atomic.Int64
}

// Status is the JSON body of the status endpoint.
type Status struct {
	Resolver    resolver.Stats `json:"resolver"`
	Climate     string         `json:"climate"`
	Weather     string         `json:"weather"`
	TotalServed int64          `json:"total_served"`
	TotalFailed int64          `json:"total_failed"`
	Coalesced   int64          `json:"coalesced"`
}

// textureQuery is a parsed texture request.
type textureQuery struct {
	req     resolver.Request
	climate climate.Context
	format  export.Format
	mip     int
	normal  bool
}

func (q textureQuery) String() string {
	return fmt.Sprintf("%d/%d/%d|%s|%s|%s|%d|%t|%s",
		q.req.Archive, q.req.Record, q.req.Frame, q.climate.Type, q.climate.Weather,
		q.req.Flags, q.mip, q.normal, q.format)
}

func NewTextures(res *resolver.Resolver, cfg TexturesConfig, logger *slog.Logger) *Textures {
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	return &Textures{
		res:    res,
		cfg:    cfg,
		logger: logger,
	}
}

func (t *Textures) Handler() http.Handler {
	return http.HandlerFunc(t.serveTexture)
}

// ClearAll drops every cached texture.
func (t *Textures) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.res.ClearAll()
}

// Status returns resolver and request counters.
func (t *Textures) Status() Status {
	t.mu.Lock()
	stats := t.res.Stats()
	t.mu.Unlock()

	return Status{
		Resolver:    stats,
		Climate:     t.cfg.Climate.Type.String(),
		Weather:     t.cfg.Climate.Weather.String(),
		TotalServed: t.totalServed.Load(),
		TotalFailed: t.totalFailed.Load(),
		Coalesced:   t.coalesced.Load(),
	}
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (t *Textures) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "no-store")

		if err := json.NewEncoder(w).Encode(t.Status()); err != nil {
			t.log().Error("failed to encode status", "error", err)
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
			return
		}
	})
}

func (t *Textures) serveTexture(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	q, err := t.parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err, shared := t.group.Do(q.String(), func() (any, error) {
		return t.render(q)
	})
	if shared {
		t.coalesced.Add(1)
	}
	if err != nil {
		t.totalFailed.Add(1)
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			t.log().Error("failed to resolve texture", "query", q.String(), "error", err)
		}
		http.Error(w, err.Error(), status)
		return
	}

	data := v.([]byte)
	w.Header().Set("Cache-Control", t.cfg.CacheControl)
	w.Header().Set("Content-Type", q.format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		t.log().Error("failed to write response", "error", err)
		return
	}
	t.totalServed.Add(1)
}

// render resolves q under the resolver lock and encodes the result. Cached
// buffers are never mutated, so encoding happens after the lock is released.
func (t *Textures) render(q textureQuery) ([]byte, error) {
	buf, err := t.resolve(q)
	if err != nil {
		return nil, err
	}
	return export.EncodeBytes(buf.NRGBA(), q.format)
}

func (t *Textures) resolve(q textureQuery) (*imaging.Buffer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.res.SetClimate(q.climate.Type, q.climate.Weather)
	key, err := t.res.Resolve(q.req)
	if err != nil {
		return nil, err
	}
	tex, ok := t.res.FetchWeather(key, q.climate.Weather)
	if !ok {
		return nil, fmt.Errorf("texture %s missing after resolve", key)
	}

	// The cache is keyed without flags. A texture built with other pixel
	// flags is decoded again; missing mips or normal maps are derived here.
	if !tex.Flags.SamePixels(q.req.Flags) {
		t.log().Debug("re-resolving texture for new flags", "key", key, "cached", tex.Flags, "requested", q.req.Flags)
		t.res.Remove(key)
		if key, err = t.res.Resolve(q.req); err != nil {
			return nil, err
		}
		if tex, ok = t.res.FetchWeather(key, q.climate.Weather); !ok {
			return nil, fmt.Errorf("texture %s missing after resolve", key)
		}
	}

	if q.normal {
		if tex.Normal != nil {
			return tex.Normal, nil
		}
		return imaging.NormalMap(tex.Albedo, t.res.BumpSize()), nil
	}
	if q.mip > 0 {
		mips := tex.Mips
		if mips == nil {
			mips = imaging.MipChain(tex.Albedo)
		}
		if q.mip >= len(mips) {
			return nil, fmt.Errorf("%w: level %d of %d", errMipLevel, q.mip, len(mips))
		}
		return mips[q.mip], nil
	}
	return tex.Albedo, nil
}

func (t *Textures) parseQuery(r *http.Request) (textureQuery, error) {
	archive, record, frame, format, ok := parseTexturePath(r.URL.Path)
	if !ok {
		return textureQuery{}, fmt.Errorf("%w: path %s", errBadRequest, r.URL.Path)
	}

	q := textureQuery{
		req:     resolver.Request{Archive: archive, Record: record, Frame: frame, Flags: t.cfg.Flags},
		climate: t.cfg.Climate,
		format:  format,
	}

	values := r.URL.Query()
	if s := values.Get("climate"); s != "" {
		ct, err := climate.ParseType(s)
		if err != nil {
			return textureQuery{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		q.climate.Type = ct
	}
	if s := values.Get("weather"); s != "" {
		w, err := climate.ParseWeather(s)
		if err != nil {
			return textureQuery{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		q.climate.Weather = w
	}
	if values.Has("flags") {
		f, err := resolver.ParseFlags(values.Get("flags"))
		if err != nil {
			return textureQuery{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		q.req.Flags = f
	}
	if s := values.Get("mip"); s != "" {
		mip, err := strconv.Atoi(s)
		if err != nil || mip < 0 {
			return textureQuery{}, fmt.Errorf("%w: mip %q", errBadRequest, s)
		}
		q.mip = mip
	}
	if s := values.Get("normal"); s != "" {
		normal, err := strconv.ParseBool(s)
		if err != nil {
			return textureQuery{}, fmt.Errorf("%w: normal %q", errBadRequest, s)
		}
		q.normal = normal
	}
	return q, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, source.ErrNotFound), errors.Is(err, resolver.ErrNoFramesAvailable):
		return http.StatusNotFound
	case errors.Is(err, texkey.ErrOutOfRange), errors.Is(err, errMipLevel):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (t *Textures) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}

// parseTexturePath parses /textures/{archive}/{record}/{frame}.{png|webp|bmp}.
func parseTexturePath(requestPath string) (archive, record, frame int, format export.Format, ok bool) {
	rest, found := strings.CutPrefix(requestPath, "/textures/")
	if !found {
		return 0, 0, 0, "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return 0, 0, 0, "", false
	}

	ext := path.Ext(parts[2])
	format, err := export.ParseFormat(ext)
	if err != nil {
		return 0, 0, 0, "", false
	}

	nums := [3]string{parts[0], parts[1], strings.TrimSuffix(parts[2], ext)}
	var vals [3]int
	for i, s := range nums {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return 0, 0, 0, "", false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], format, true
}
