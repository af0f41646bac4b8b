package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/climatetex/internal/export"
	"github.com/MeKo-Tech/climatetex/internal/resolver"
	"github.com/MeKo-Tech/climatetex/internal/worker"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a single texture",
	Long:  `Resolve one archive/record under a climate and write the texture (and optional mips and normal map) to disk.`,
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().IntP("archive", "a", 0, "Texture archive number")
	resolveCmd.Flags().IntP("record", "r", 0, "Record within the archive")
	resolveCmd.Flags().String("climate", "none", "Climate (none, desert, mountain, temperate, swamp)")
	resolveCmd.Flags().String("weather", "normal", "Weather (normal, winter, rain)")
	resolveCmd.Flags().String("flags", "climate", "Comma-separated processing flags")
	resolveCmd.Flags().Bool("all-frames", false, "Write every frame of an animated record")
	resolveCmd.Flags().String("format", "png", "Output format (png, webp, bmp)")
	resolveCmd.Flags().StringP("output-dir", "o", ".", "Output directory")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"resolve.archive", "archive"},
		{"resolve.record", "record"},
		{"resolve.climate", "climate"},
		{"resolve.weather", "weather"},
		{"resolve.flags", "flags"},
		{"resolve.all_frames", "all-frames"},
		{"resolve.format", "format"},
		{"resolve.output_dir", "output-dir"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, resolveCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	archive := viper.GetInt("resolve.archive")
	record := viper.GetInt("resolve.record")
	outputDir := viper.GetString("resolve.output_dir")

	ctx, err := parseClimate(viper.GetString("resolve.climate"), viper.GetString("resolve.weather"))
	if err != nil {
		return err
	}
	flags, err := resolver.ParseFlags(viper.GetString("resolve.flags"))
	if err != nil {
		return fmt.Errorf("invalid --flags: %w", err)
	}
	format, err := export.ParseFormat(viper.GetString("resolve.format"))
	if err != nil {
		return err
	}

	src, err := openSource()
	if err != nil {
		return err
	}
	opts, err := resolverOptions()
	if err != nil {
		return err
	}

	if w, h, err := src.QuickSize(archive, record); err == nil {
		logger.Debug("Source size", "archive", archive, "record", record, "width", w, "height", h)
	}

	logger.Info("Resolving texture",
		"archive", archive,
		"record", record,
		"climate", ctx.Type,
		"weather", ctx.Weather,
		"flags", flags,
		"format", format,
	)

	exp := export.New(src, export.Config{
		OutputDir: outputDir,
		Format:    format,
		Resolver:  opts,
		Logger:    logger,
	})

	paths, err := exp.Export(context.Background(), worker.Task{
		Archive:  archive,
		Record:   record,
		Climate:  ctx,
		Flags:    flags,
		Animated: viper.GetBool("resolve.all_frames"),
	})
	if err != nil {
		return fmt.Errorf("failed to resolve texture: %w", err)
	}

	for _, p := range paths {
		logger.Info("Texture written", "path", p)
	}
	return nil
}
