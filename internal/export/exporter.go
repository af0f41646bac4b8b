package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/imaging"
	"github.com/MeKo-Tech/climatetex/internal/resolver"
	"github.com/MeKo-Tech/climatetex/internal/source"
	"github.com/MeKo-Tech/climatetex/internal/store"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
	"github.com/MeKo-Tech/climatetex/internal/worker"
)

// Config configures an Exporter.
type Config struct {
	// OutputDir receives image files. Ignored when Store is set.
	OutputDir string
	Format    Format
	// Store receives albedo textures instead of OutputDir. Mips and normal
	// maps are only written to files.
	Store    *store.Writer
	Resolver []resolver.Option
	Logger   *slog.Logger
}

// Exporter resolves tasks with its own resolver and writes the results.
// It is not safe for concurrent use.
type Exporter struct {
	cfg Config
	res *resolver.Resolver
}

// New creates an exporter reading from src.
func New(src source.Source, cfg Config) *Exporter {
	if cfg.Format == "" {
		cfg.Format = PNG
	}
	opts := append([]resolver.Option{resolver.WithLogger(cfg.Logger)}, cfg.Resolver...)
	return &Exporter{
		cfg: cfg,
		res: resolver.New(src, opts...),
	}
}

// Resolver returns the exporter's resolver.
func (e *Exporter) Resolver() *resolver.Resolver {
	return e.res
}

func (e *Exporter) log() *slog.Logger {
	if e.cfg.Logger != nil {
		return e.cfg.Logger
	}
	return slog.Default()
}

// Export resolves task and writes every resulting texture. It returns the
// written paths, or "store:<key>" for store rows.
func (e *Exporter) Export(ctx context.Context, task worker.Task) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.res.SetClimate(task.Climate.Type, task.Climate.Weather)
	req := resolver.Request{Archive: task.Archive, Record: task.Record, Flags: task.Flags}

	var keys []texkey.Key
	if task.Animated {
		ks, err := e.res.ResolveFrames(req)
		if err != nil {
			return nil, err
		}
		keys = ks
	} else {
		k, err := e.res.Resolve(req)
		if err != nil {
			return nil, err
		}
		keys = []texkey.Key{k}
	}

	var paths []string
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		tex, ok := e.res.Fetch(key)
		if !ok {
			return paths, fmt.Errorf("texture %s missing after resolve", key)
		}

		name := Name{
			Archive: task.Archive,
			Record:  task.Record,
			Frame:   tex.Frame,
			Climate: climate.Context{Type: climate.None, Weather: climate.Normal},
			Format:  e.cfg.Format,
		}
		if key.IsClimate() {
			name.Climate = task.Climate
		}

		written, err := e.write(name, tex)
		paths = append(paths, written...)
		// Textures are not reused across tasks.
		e.res.Remove(key)
		if err != nil {
			return paths, err
		}
	}

	e.log().Debug("task exported", "archive", task.Archive, "record", task.Record,
		"climate", task.Climate.Type, "weather", task.Climate.Weather, "files", len(paths))
	return paths, nil
}

func (e *Exporter) write(name Name, tex *resolver.Texture) ([]string, error) {
	var paths []string

	if e.cfg.Store != nil {
		data, err := EncodeBytes(tex.Albedo.NRGBA(), e.cfg.Format)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", tex.Key, err)
		}
		err = e.cfg.Store.WriteTexture(store.Entry{
			Key:     tex.Key,
			Variant: tex.Variant,
			Archive: tex.Archive,
			Record:  tex.Record,
			Frame:   tex.Frame,
			Width:   tex.Albedo.Width,
			Height:  tex.Albedo.Height,
			Format:  string(e.cfg.Format),
			Data:    data,
		})
		if err != nil {
			return nil, err
		}
		return []string{"store:" + tex.Key.String()}, nil
	}

	p, err := e.writeFile(name, tex.Albedo)
	if err != nil {
		return nil, err
	}
	paths = append(paths, p)

	for level := 1; level < len(tex.Mips); level++ {
		mipName := name
		mipName.Aux = fmt.Sprintf("_mip%d", level)
		p, err := e.writeFile(mipName, tex.Mips[level])
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}

	if tex.Normal != nil {
		normalName := name
		normalName.Aux = "_normal"
		p, err := e.writeFile(normalName, tex.Normal)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (e *Exporter) writeFile(name Name, buf *imaging.Buffer) (string, error) {
	if err := os.MkdirAll(e.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(e.cfg.OutputDir, name.String())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := Encode(f, buf.NRGBA(), e.cfg.Format); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return path, nil
}
