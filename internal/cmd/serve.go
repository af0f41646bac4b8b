package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/climatetex/internal/resolver"
	"github.com/MeKo-Tech/climatetex/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve textures over HTTP",
	Long:  `Serve resolved textures on demand, and optionally textures from a store.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("climate", "none", "Default climate for requests without one")
	serveCmd.Flags().String("weather", "normal", "Default weather for requests without one")
	serveCmd.Flags().String("flags", "climate", "Default processing flags for requests without any")
	serveCmd.Flags().Int("capacity", 0, "Maximum number of cached textures (0 = unbounded)")
	serveCmd.Flags().String("store", "", "Texture store to serve under /store/")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for served textures")
	serveCmd.Flags().Bool("watch", false, "Clear the texture cache when the source directory changes")
	serveCmd.Flags().Duration("watch-delay", server.DefaultWatchDelay, "Delay before reacting to source changes")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.climate", "climate")
	mustBind("serve.weather", "weather")
	mustBind("serve.flags", "flags")
	mustBind("serve.capacity", "capacity")
	mustBind("serve.store", "store")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.watch", "watch")
	mustBind("serve.watch_delay", "watch-delay")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	storePath := viper.GetString("serve.store")
	cacheControl := viper.GetString("serve.cache_control")
	watch := viper.GetBool("serve.watch")
	sourceDir := viper.GetString("source.dir")

	ctxDefault, err := parseClimate(viper.GetString("serve.climate"), viper.GetString("serve.weather"))
	if err != nil {
		return err
	}
	flags, err := resolver.ParseFlags(viper.GetString("serve.flags"))
	if err != nil {
		return fmt.Errorf("invalid --flags: %w", err)
	}
	if watch && sourceDir == "" {
		return fmt.Errorf("--watch requires --source-dir")
	}

	src, err := openSource()
	if err != nil {
		return err
	}
	opts, err := resolverOptions()
	if err != nil {
		return err
	}
	opts = append(opts, resolver.WithCapacity(viper.GetInt("serve.capacity")))

	textures := server.NewTextures(resolver.New(src, opts...), server.TexturesConfig{
		Climate:      ctxDefault,
		Flags:        flags,
		CacheControl: cacheControl,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/status", textures.StatusHandler())
	mux.Handle("/textures/", textures.Handler())

	if storePath != "" {
		sh, err := server.NewStoreHandler(server.StoreConfig{StorePath: storePath, CacheControl: cacheControl}, logger)
		if err != nil {
			return err
		}
		defer sh.Close()
		mux.Handle("/store/", withCORS(sh.Handler()))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if watch {
		go func() {
			err := server.Watch(ctx, sourceDir, viper.GetDuration("serve.watch_delay"), func() {
				textures.ClearAll()
				logger.Info("Source changed, texture cache cleared", "dir", sourceDir)
			}, logger)
			if err != nil {
				logger.Error("Source watcher stopped", "error", err)
			}
		}()
	}

	logger.Info("texture server listening",
		"addr", addr,
		"climate", ctxDefault.Type,
		"weather", ctxDefault.Weather,
		"flags", flags,
		"store", storePath,
		"watch", watch,
	)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
