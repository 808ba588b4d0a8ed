package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hummingbird/internal/app"
	"hummingbird/internal/capture"
	"hummingbird/internal/config"
	"hummingbird/internal/server"
	"hummingbird/pkg/logger"
)

func main() {
	var dataDir string

	root := &cobra.Command{
		Use:           "hummingbird",
		Short:         "Hummingbird feeder monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", ".", "data directory (holds config.yaml, index, database)")

	root.AddCommand(serveCommand(&dataDir))
	root.AddCommand(reindexCommand(&dataDir))
	root.AddCommand(statsCommand(&dataDir))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openApp(ctx context.Context, dataDir string) (*app.App, *config.Config, error) {
	conf, err := config.NewConfig(dataDir)
	if err != nil {
		return nil, nil, err
	}
	logger.InitLogger(conf.LogLevel, conf.LogFile)

	a, err := app.Open(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	return a, conf, nil
}

func serveCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the capture watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, conf, err := openApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:    conf.ListenAddr,
				Handler: server.New(a).Handler(),
			}

			group, groupCtx := errgroup.WithContext(ctx)

			group.Go(func() error {
				logger.Info("http server listening", "addr", conf.ListenAddr)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			if conf.CaptureDir != "" {
				if err := os.MkdirAll(conf.CaptureDir, 0755); err != nil {
					return err
				}
				watcher := capture.NewWatcher(conf.CaptureDir, a.Ingestor)
				group.Go(func() error {
					err := watcher.Run(groupCtx)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				})
			}

			group.Go(func() error {
				<-groupCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			return group.Wait()
		},
	}
}

func reindexCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the similarity index from its side table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := openApp(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Index.Rebuild(); err != nil {
				return err
			}
			return printJSON(a.Index.Stats())
		},
	}
}

func statsCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print similarity index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := openApp(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(a.Index.Stats())
		},
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
