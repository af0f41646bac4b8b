package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/export"
	"github.com/MeKo-Tech/climatetex/internal/store"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
)

// StoreHandler serves textures from a texture store.
type StoreHandler struct {
	reader       *store.Reader
	logger       *slog.Logger
	cacheControl string
}

// StoreConfig configures the store handler.
type StoreConfig struct {
	StorePath    string
	CacheControl string
}

// NewStoreHandler opens the store at cfg.StorePath.
func NewStoreHandler(cfg StoreConfig, logger *slog.Logger) (*StoreHandler, error) {
	reader, err := store.OpenReader(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &StoreHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cfg.CacheControl,
	}, nil
}

// Handler returns the HTTP handler function.
func (h *StoreHandler) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serveTexture(w, r)
	}
}

func (h *StoreHandler) serveTexture(w http.ResponseWriter, r *http.Request) {
	key, ext, ok := parseStorePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	weather := climate.Normal
	if s := r.URL.Query().Get("weather"); s != "" {
		wt, err := climate.ParseWeather(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		weather = wt
	}

	entry, err := h.reader.Lookup(key, weather)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log().Error("Failed to read texture", "key", key, "error", err)
		}
		http.Error(w, "Texture not found", http.StatusNotFound)
		return
	}

	format, err := export.ParseFormat(entry.Format)
	if err != nil || format != ext {
		http.Error(w, fmt.Sprintf("texture is stored as %q", entry.Format), http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	w.Header().Set("Content-Type", format.ContentType())

	if _, err := w.Write(entry.Data); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

// Close closes the store reader.
func (h *StoreHandler) Close() error {
	return h.reader.Close()
}

func (h *StoreHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseStorePath parses a path like /store/-112000301.png.
func parseStorePath(requestPath string) (texkey.Key, export.Format, bool) {
	if !strings.HasPrefix(requestPath, "/store/") {
		return 0, "", false
	}

	base := path.Base(requestPath)
	ext := path.Ext(base)
	format, err := export.ParseFormat(ext)
	if err != nil {
		return 0, "", false
	}

	v, err := strconv.ParseInt(strings.TrimSuffix(base, ext), 10, 64)
	if err != nil {
		return 0, "", false
	}
	return texkey.Key(v), format, true
}
