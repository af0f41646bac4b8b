// Package store persists resolved textures in a SQLite database.
package store

import (
	"errors"
	"strconv"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
)

// ErrNotFound is returned when a texture is not in the store.
var ErrNotFound = errors.New("store: texture not found")

// Metadata describes how the stored textures were produced.
type Metadata struct {
	Name        string // Human-readable identifier
	Description string
	Format      string // Image encoding of the payloads (png, webp, bmp)
	Palette     string // Palette the textures were decoded with
	Flags       string // Processing flags
	Version     string
	Count       int // Number of textures, filled in by the reader
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	fields := []struct {
		key, value string
	}{
		{"name", m.Name},
		{"description", m.Description},
		{"format", m.Format},
		{"palette", m.Palette},
		{"flags", m.Flags},
		{"version", m.Version},
	}
	for _, f := range fields {
		if f.value != "" {
			result[f.key] = f.value
		}
	}
	if m.Count > 0 {
		result["count"] = strconv.Itoa(m.Count)
	}
	return result
}

func metadataFromMap(values map[string]string) Metadata {
	m := Metadata{
		Name:        values["name"],
		Description: values["description"],
		Format:      values["format"],
		Palette:     values["palette"],
		Flags:       values["flags"],
		Version:     values["version"],
	}
	if v, err := strconv.Atoi(values["count"]); err == nil {
		m.Count = v
	}
	return m
}

// Entry is one stored texture.
type Entry struct {
	Key     texkey.Key
	Variant climate.Variant
	Archive int
	Record  int
	Frame   int
	Width   int
	Height  int
	Format  string // Image encoding of Data
	Data    []byte // Encoded image (gzip-compressed at rest)
}
