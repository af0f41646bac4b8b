package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/climatetex/internal/export"
	"github.com/MeKo-Tech/climatetex/internal/store"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Pack exported texture files into a texture store",
	Long:  `Convert a directory written by "export" into a texture store database.`,
	RunE:  runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)

	packCmd.Flags().String("input-dir", "./textures", "Input directory containing exported textures")
	packCmd.Flags().StringP("output", "o", "", "Output store file path (required)")
	packCmd.Flags().String("name", "climatetex", "Store name")
	packCmd.Flags().String("description", "Resolved climate textures", "Store description")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"pack.input_dir", "input-dir"},
		{"pack.output", "output"},
		{"pack.name", "name"},
		{"pack.description", "description"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, packCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runPack(cmd *cobra.Command, args []string) error {
	inputDir := viper.GetString("pack.input_dir")
	outputFile := viper.GetString("pack.output")
	name := viper.GetString("pack.name")
	description := viper.GetString("pack.description")

	if logger == nil {
		initLogging()
	}

	if outputFile == "" {
		return fmt.Errorf("--output is required")
	}
	if _, err := os.Stat(inputDir); os.IsNotExist(err) {
		return fmt.Errorf("input directory does not exist: %s", inputDir)
	}

	logger.Info("Packing textures into store",
		"input_dir", inputDir,
		"output", outputFile,
		"name", name,
	)

	files, err := scanTextureDirectory(inputDir)
	if err != nil {
		return fmt.Errorf("failed to scan texture directory: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no textures found in %s", inputDir)
	}

	logger.Info("Found textures", "count", len(files))

	writer, err := store.New(outputFile, store.Metadata{
		Name:        name,
		Description: description,
		Format:      storeFormat(files),
		Version:     "1.0",
	})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer writer.Close()

	for i, f := range files {
		entry, err := readTextureFile(f)
		if err != nil {
			logger.Error("Failed to read texture", "path", f.path, "error", err)
			continue
		}
		if err := writer.WriteTexture(entry); err != nil {
			logger.Error("Failed to write texture", "path", f.path, "error", err)
			continue
		}

		if (i+1)%100 == 0 {
			logger.Info("Progress", "packed", i+1, "total", len(files))
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush textures: %w", err)
	}

	logger.Info("Pack complete", "output", outputFile, "textures", writer.Written())
	return nil
}

type textureFile struct {
	name export.Name
	path string
}

// scanTextureDirectory finds albedo textures written by an Exporter. Mip
// levels and normal maps are skipped.
func scanTextureDirectory(dir string) ([]textureFile, error) {
	var files []textureFile

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		n, err := export.ParseName(filepath.Base(path))
		if err != nil || n.Aux != "" {
			return nil
		}

		files = append(files, textureFile{name: n, path: path})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func readTextureFile(f textureFile) (store.Entry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return store.Entry{}, err
	}

	cfg, err := export.DecodeConfig(bytes.NewReader(data), f.name.Format)
	if err != nil {
		return store.Entry{}, fmt.Errorf("failed to read image size: %w", err)
	}

	key, variant, err := f.name.Key()
	if err != nil {
		return store.Entry{}, err
	}

	return store.Entry{
		Key:     key,
		Variant: variant,
		Archive: f.name.SourceArchive(),
		Record:  f.name.Record,
		Frame:   f.name.Frame,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Format:  string(f.name.Format),
		Data:    data,
	}, nil
}

// storeFormat returns the shared format of files, or "mixed".
func storeFormat(files []textureFile) string {
	format := files[0].name.Format
	for _, f := range files[1:] {
		if f.name.Format != format {
			return "mixed"
		}
	}
	return string(format)
}
