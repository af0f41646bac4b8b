package cmd

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/export"
	"github.com/MeKo-Tech/climatetex/internal/resolver"
	"github.com/MeKo-Tech/climatetex/internal/source"
	"github.com/MeKo-Tech/climatetex/internal/worker"
)

func TestParseRanges(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{name: "single", input: "7", want: []int{7}},
		{name: "list and range", input: "12, 3-5,4", want: []int{3, 4, 5, 12}},
		{name: "empty", input: "", want: []int{}},
		{name: "upper bound", input: "998-999", want: []int{998, 999}},
		{name: "out of range", input: "1000", wantErr: true},
		{name: "reversed", input: "5-3", wantErr: true},
		{name: "negative", input: "-3", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRanges(tt.input, 1000)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseRanges(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("parseRanges(%q) unexpected error: %v", tt.input, err)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseRanges(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseIndices(t *testing.T) {
	got, err := parseIndices("1, 200,255")
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 200, 255}, got)

	got, err = parseIndices("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseIndices("256")
	assert.Error(t, err)
}

func TestParseClimatesAndWeathers(t *testing.T) {
	climates, err := parseClimates("temperate, swamp")
	require.NoError(t, err)
	assert.Equal(t, []climate.Type{climate.Temperate, climate.Swamp}, climates)

	climates, err = parseClimates("")
	require.NoError(t, err)
	assert.Equal(t, []climate.Type{climate.None}, climates)

	_, err = parseClimates("arctic")
	assert.Error(t, err)

	weathers, err := parseWeathers("normal,winter,rain")
	require.NoError(t, err)
	assert.Equal(t, []climate.Weather{climate.Normal, climate.Winter, climate.Rain}, weathers)
}

func TestBuildTasks(t *testing.T) {
	initLogging()
	src := source.NewSynthetic(source.SyntheticConfig{Records: 3})

	tasks, err := buildTasks(src, []int{2, 302}, nil,
		[]climate.Type{climate.Temperate}, []climate.Weather{climate.Normal, climate.Winter},
		resolver.ApplyClimate, true)
	require.NoError(t, err)
	assert.Len(t, tasks, 2*3*2)
	assert.Equal(t, worker.Task{
		Archive:  2,
		Record:   0,
		Climate:  climate.Context{Type: climate.Temperate, Weather: climate.Normal},
		Flags:    resolver.ApplyClimate,
		Animated: true,
	}, tasks[0])

	tasks, err = buildTasks(src, []int{2}, []int{1}, []climate.Type{climate.None}, []climate.Weather{climate.Normal}, 0, false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, tasks[0].Record)

	_, err = buildTasks(source.NewMemory(), []int{2}, nil, []climate.Type{climate.None}, []climate.Weather{climate.Normal}, 0, false)
	assert.Error(t, err, "memory sources can not list records")
}

func TestPackScan(t *testing.T) {
	initLogging()
	dir := t.TempDir()
	src := source.NewSynthetic(source.SyntheticConfig{Size: 16, Records: 2})

	exp := export.New(src, export.Config{OutputDir: dir, Format: export.PNG})
	_, err := exp.Export(context.Background(), worker.Task{
		Archive: 302,
		Record:  1,
		Climate: climate.Context{Type: climate.Desert, Weather: climate.Winter},
		Flags:   resolver.ApplyClimate | resolver.MipMaps,
	})
	require.NoError(t, err)

	files, err := scanTextureDirectory(dir)
	require.NoError(t, err)
	require.Len(t, files, 1, "mip levels are skipped")
	assert.Equal(t, "png", storeFormat(files))

	entry, err := readTextureFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Archive, "desert winter terrain is archive 3")
	assert.Equal(t, climate.WinterVariant, entry.Variant)
	assert.Equal(t, 16, entry.Width)
	assert.True(t, entry.Key.IsClimate())
}
