package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/resolver"
	"github.com/MeKo-Tech/climatetex/internal/source"
)

// recordLister is implemented by sources that can enumerate their records.
type recordLister interface {
	Records(archive int) ([]int, error)
}

// openSource opens the configured source directory, or the synthetic
// source when none is set.
func openSource() (source.Source, error) {
	dir := viper.GetString("source.dir")
	if dir == "" {
		cfg := source.DefaultSyntheticConfig()
		cfg.Seed = viper.GetInt64("source.seed")
		logger.Info("Using synthetic source", "seed", cfg.Seed)
		return source.NewSynthetic(cfg), nil
	}

	src, err := source.NewDir(dir)
	if err != nil {
		return nil, err
	}
	logger.Info("Using source directory", "dir", dir)
	return src, nil
}

// resolverOptions builds resolver options from the decode settings.
func resolverOptions() ([]resolver.Option, error) {
	emissive, err := parseIndices(viper.GetString("decode.emissive"))
	if err != nil {
		return nil, fmt.Errorf("invalid --emissive: %w", err)
	}

	opts := []resolver.Option{
		resolver.WithPalette(viper.GetString("source.palette")),
		resolver.WithNight(viper.GetBool("decode.night")),
		resolver.WithBumpSize(viper.GetFloat64("decode.bump")),
		resolver.WithLogger(logger),
	}
	if len(emissive) > 0 {
		opts = append(opts, resolver.WithEmissiveIndices(emissive...))
	}
	return opts, nil
}

func parseClimate(climateStr, weatherStr string) (climate.Context, error) {
	t, err := climate.ParseType(climateStr)
	if err != nil {
		return climate.Context{}, err
	}
	w, err := climate.ParseWeather(weatherStr)
	if err != nil {
		return climate.Context{}, err
	}
	return climate.Context{Type: t, Weather: w}, nil
}

// parseIndices parses a comma-separated list of palette indices.
func parseIndices(s string) ([]uint8, error) {
	var out []uint8
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid palette index %q", part)
		}
		out = append(out, uint8(v))
	}
	return out, nil
}

// parseRanges parses "1,5-7,12" into a sorted, deduplicated list. Values
// must lie in [0, limit).
func parseRanges(s string, limit int) ([]int, error) {
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi := part, part
		if i := strings.Index(part, "-"); i > 0 {
			lo, hi = part[:i], part[i+1:]
		}
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", lo)
		}
		to, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", hi)
		}
		if from < 0 || to >= limit || from > to {
			return nil, fmt.Errorf("invalid range %q (must be within 0-%d)", part, limit-1)
		}
		for v := from; v <= to; v++ {
			seen[v] = true
		}
	}

	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

// parseClimates parses a comma-separated list of climate names.
func parseClimates(s string) ([]climate.Type, error) {
	var out []climate.Type
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := climate.ParseType(part)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		out = []climate.Type{climate.None}
	}
	return out, nil
}

// parseWeathers parses a comma-separated list of weather names.
func parseWeathers(s string) ([]climate.Weather, error) {
	var out []climate.Weather
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		w, err := climate.ParseWeather(part)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		out = []climate.Weather{climate.Normal}
	}
	return out, nil
}
