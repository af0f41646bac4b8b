package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/export"
	"github.com/MeKo-Tech/climatetex/internal/resolver"
	"github.com/MeKo-Tech/climatetex/internal/source"
	"github.com/MeKo-Tech/climatetex/internal/store"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
	"github.com/MeKo-Tech/climatetex/internal/worker"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export textures in batch",
	Long:  `Resolve every record of the given archives under each climate and weather, writing files or a texture store.`,
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("archives", "", "Archives to export, e.g. \"2,102,300-310\" (required)")
	exportCmd.Flags().String("records", "", "Records to export (default: every record the source lists)")
	exportCmd.Flags().String("climates", "none", "Comma-separated climates")
	exportCmd.Flags().String("weathers", "normal", "Comma-separated weathers")
	exportCmd.Flags().String("flags", "climate,pow2,dilate", "Comma-separated processing flags")
	exportCmd.Flags().Bool("all-frames", true, "Export every frame of animated records")
	exportCmd.Flags().String("format", "png", "Output format (png, webp, bmp)")
	exportCmd.Flags().StringP("output-dir", "o", "./textures", "Output directory")
	exportCmd.Flags().String("store", "", "Write a texture store database instead of files")
	exportCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	exportCmd.Flags().Bool("progress", true, "Show progress bar")
	exportCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some textures fail")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"export.archives", "archives"},
		{"export.records", "records"},
		{"export.climates", "climates"},
		{"export.weathers", "weathers"},
		{"export.flags", "flags"},
		{"export.all_frames", "all-frames"},
		{"export.format", "format"},
		{"export.output_dir", "output-dir"},
		{"export.store", "store"},
		{"export.workers", "workers"},
		{"export.progress", "progress"},
		{"export.allow_failures", "allow-failures"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, exportCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	archivesStr := viper.GetString("export.archives")
	recordsStr := viper.GetString("export.records")
	workers := viper.GetInt("export.workers")
	showProgress := viper.GetBool("export.progress")
	allowFailures := viper.GetBool("export.allow_failures")
	outputDir := viper.GetString("export.output_dir")
	storePath := viper.GetString("export.store")

	if archivesStr == "" {
		return fmt.Errorf("--archives is required")
	}
	archives, err := parseRanges(archivesStr, texkey.MaxArchive)
	if err != nil {
		return fmt.Errorf("invalid --archives: %w", err)
	}
	var records []int
	if recordsStr != "" {
		records, err = parseRanges(recordsStr, texkey.MaxRecord)
		if err != nil {
			return fmt.Errorf("invalid --records: %w", err)
		}
	}
	climates, err := parseClimates(viper.GetString("export.climates"))
	if err != nil {
		return err
	}
	weathers, err := parseWeathers(viper.GetString("export.weathers"))
	if err != nil {
		return err
	}
	flags, err := resolver.ParseFlags(viper.GetString("export.flags"))
	if err != nil {
		return fmt.Errorf("invalid --flags: %w", err)
	}
	format, err := export.ParseFormat(viper.GetString("export.format"))
	if err != nil {
		return err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	src, err := openSource()
	if err != nil {
		return err
	}
	opts, err := resolverOptions()
	if err != nil {
		return err
	}

	tasks, err := buildTasks(src, archives, records, climates, weathers, flags, viper.GetBool("export.all_frames"))
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no textures to export")
	}

	var storeWriter *store.Writer
	if storePath != "" {
		storeWriter, err = store.New(storePath, store.Metadata{
			Name:        "climatetex",
			Description: "Resolved climate textures",
			Format:      string(format),
			Palette:     viper.GetString("source.palette"),
			Flags:       flags.String(),
			Version:     "1.0",
		})
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		defer storeWriter.Close()
	}

	logger.Info("Starting texture export",
		"archives", len(archives),
		"tasks", len(tasks),
		"workers", workers,
		"flags", flags,
		"format", format,
		"output_dir", outputDir,
		"store", storePath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received interrupt signal, cancelling...")
		cancel()
	}()

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers: workers,
		NewExporter: func() worker.Exporter {
			return export.New(src, export.Config{
				OutputDir: outputDir,
				Format:    format,
				Store:     storeWriter,
				Resolver:  opts,
				Logger:    logger,
			})
		},
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount, written int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Texture export failed",
				"archive", r.Task.Archive,
				"record", r.Task.Record,
				"climate", r.Task.Climate.Type,
				"weather", r.Task.Climate.Weather,
				"error", r.Err,
			)
			continue
		}
		written += len(r.Paths)
	}

	logger.Info(progress.Summary(), "files", written)

	if storeWriter != nil {
		if err := storeWriter.Flush(); err != nil {
			return fmt.Errorf("failed to flush store: %w", err)
		}
		logger.Info("Texture store written", "path", storePath, "textures", storeWriter.Written())
	}

	if failedCount > 0 {
		if !allowFailures {
			return fmt.Errorf("%d textures failed to export", failedCount)
		}
		logger.Warn("Some textures failed to export, but continuing due to --allow-failures flag", "failed_count", failedCount)
	}
	return nil
}

// buildTasks expands archives, records, climates and weathers into export
// tasks. With no explicit records, each archive's records are listed by the
// source.
func buildTasks(src source.Source, archives, records []int, climates []climate.Type, weathers []climate.Weather, flags resolver.Flags, animated bool) ([]worker.Task, error) {
	lister, canList := src.(recordLister)
	if records == nil && !canList {
		return nil, fmt.Errorf("--records is required for this source")
	}

	var tasks []worker.Task
	for _, archive := range archives {
		recs := records
		if recs == nil {
			var err error
			recs, err = lister.Records(archive)
			if errors.Is(err, source.ErrNotFound) {
				logger.Warn("Skipping missing archive", "archive", archive)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to list records of archive %d: %w", archive, err)
			}
		}

		for _, record := range recs {
			for _, ct := range climates {
				for _, wt := range weathers {
					tasks = append(tasks, worker.Task{
						Archive:  archive,
						Record:   record,
						Climate:  climate.Context{Type: ct, Weather: wt},
						Flags:    flags,
						Animated: animated,
					})
				}
			}
		}
	}
	return tasks, nil
}
