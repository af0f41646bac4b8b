package export

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
)

// ErrInvalidName is returned by ParseName for file names not written by an Exporter.
var ErrInvalidName = errors.New("export: invalid file name")

// namePattern matches a{archive}_r{record}_f{frame}[_{climate}_{weather}][_mipN|_normal].{ext}
var namePattern = regexp.MustCompile(`^a(\d+)_r(\d+)_f(\d+)(?:_([a-z]+)_([a-z]+))?(_mip\d+|_normal)?\.(png|webp|bmp)$`)

// Name identifies an exported file.
type Name struct {
	Archive int
	Record  int
	Frame   int
	// Climate is None for direct textures.
	Climate climate.Context
	// Aux is "" for the albedo, "_mipN" for a mip level or "_normal".
	Aux    string
	Format Format
}

// String returns the file name.
func (n Name) String() string {
	s := fmt.Sprintf("a%d_r%d_f%d", n.Archive, n.Record, n.Frame)
	if n.Climate.Type != climate.None {
		s += "_" + n.Climate.Type.String() + "_" + n.Climate.Weather.String()
	}
	return s + n.Aux + n.Format.Ext()
}

// ParseName parses a file name produced by Name.String.
func ParseName(s string) (Name, error) {
	m := namePattern.FindStringSubmatch(s)
	if m == nil {
		return Name{}, fmt.Errorf("%w: %q", ErrInvalidName, s)
	}

	n := Name{
		Climate: climate.Context{Type: climate.None, Weather: climate.Normal},
		Aux:     m[6],
		Format:  Format(m[7]),
	}
	n.Archive, _ = strconv.Atoi(m[1])
	n.Record, _ = strconv.Atoi(m[2])
	n.Frame, _ = strconv.Atoi(m[3])

	if m[4] != "" {
		t, err := climate.ParseType(m[4])
		if err != nil {
			return Name{}, fmt.Errorf("%w: %v", ErrInvalidName, err)
		}
		w, err := climate.ParseWeather(m[5])
		if err != nil {
			return Name{}, fmt.Errorf("%w: %v", ErrInvalidName, err)
		}
		n.Climate = climate.Context{Type: t, Weather: w}
	}
	return n, nil
}

// Key returns the cache key and variant the named texture was resolved under.
func (n Name) Key() (texkey.Key, climate.Variant, error) {
	if n.Climate.Type != climate.None {
		sub := climate.Resolve(n.Archive, n.Climate)
		if !sub.PassThrough {
			k, err := texkey.Climate(int(n.Climate.Type), int(sub.Set), n.Record)
			return k, sub.Variant, err
		}
	}
	k, err := texkey.Direct(n.Archive, n.Record, n.Frame)
	return k, climate.General, err
}

// SourceArchive returns the archive the named texture was decoded from.
func (n Name) SourceArchive() int {
	if n.Climate.Type == climate.None {
		return n.Archive
	}
	return climate.Resolve(n.Archive, n.Climate).Archive
}
