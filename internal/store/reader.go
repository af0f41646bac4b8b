package store

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
)

// Reader reads textures from a store database. It is safe for concurrent use.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens a store read-only.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='textures'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain textures table")
	}

	return &Reader{db: db, path: path}, nil
}

// ReadTexture returns the texture stored under key and variant with its
// payload decompressed.
func (r *Reader) ReadTexture(key texkey.Key, variant climate.Variant) (*Entry, error) {
	e := &Entry{Key: key, Variant: variant}

	var compressed []byte
	err := r.db.QueryRow(
		`SELECT archive, record, frame, width, height, format, texture_data
		 FROM textures WHERE texture_key=? AND variant=?`,
		int64(key), int(variant),
	).Scan(&e.Archive, &e.Record, &e.Frame, &e.Width, &e.Height, &e.Format, &compressed)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, key, variant)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query texture: %w", err)
	}

	e.Data, err = gzipDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress texture: %w", err)
	}
	return e, nil
}

// Lookup reads key for weather, preferring the weather's variant and falling
// back to the general one.
func (r *Reader) Lookup(key texkey.Key, weather climate.Weather) (*Entry, error) {
	if v := climate.VariantFor(weather); v != climate.General {
		e, err := r.ReadTexture(key, v)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return r.ReadTexture(key, climate.General)
}

// Keys lists the stored keys and variants in key order.
func (r *Reader) Keys() ([]Entry, error) {
	rows, err := r.db.Query(`SELECT texture_key, variant, archive, record, frame, width, height, format
		FROM textures ORDER BY texture_key, variant`)
	if err != nil {
		return nil, fmt.Errorf("failed to query textures: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var key int64
		var variant int
		if err := rows.Scan(&key, &variant, &e.Archive, &e.Record, &e.Frame, &e.Width, &e.Height, &e.Format); err != nil {
			return nil, fmt.Errorf("failed to scan texture row: %w", err)
		}
		e.Key = texkey.Key(key)
		e.Variant = climate.Variant(variant)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating textures: %w", err)
	}
	return out, nil
}

// Metadata reads the store's metadata and counts its textures.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	meta := metadataFromMap(values)
	if err := r.db.QueryRow("SELECT COUNT(*) FROM textures").Scan(&meta.Count); err != nil {
		return Metadata{}, fmt.Errorf("failed to count textures: %w", err)
	}
	return meta, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
