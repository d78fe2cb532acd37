package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/config"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/executor"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/observability"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/server"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/docs"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/logger"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/metrics"
)

var (
	Version   = "dev"
	Revision  = ""
	BuildDate = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "spatial-api",
		Short:         "Serve bikeshare and sidewalk-priorities queries as GeoJSON and JSON",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), envFile)
		},
	})

	openapiCmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document (JSON by default, --yaml for YAML)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			doc, err := docs.Load(cfg.URLRoot)
			if err != nil {
				return err
			}
			useYAML, _ := cmd.Flags().GetBool("yaml")
			var out []byte
			if useYAML {
				out, err = doc.YAML()
			} else {
				out, err = doc.JSON()
			}
			if err != nil {
				return fmt.Errorf("marshal openapi: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	openapiCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	root.AddCommand(openapiCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spatial-api %s (revision %q, built %q)\n", Version, Revision, BuildDate)
		},
	})
	return root
}

func serve(parent context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "spatial-api",
		Component: "api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting spatial-api",
		"addr", cfg.Addr,
		"version", Version,
		"url_root", cfg.URLRoot,
		"bikeshare_configured", cfg.BikeshareDBURL != "",
		"sidewalk_configured", cfg.SidewalkDBURL != "",
		"metrics", cfg.MetricsEnabled)

	deps := server.Deps{Executor: executor.New(appLog)}
	if cfg.MetricsEnabled {
		p := metrics.Init(metrics.Config{
			Build:      metrics.BuildInfo{Version: Version, Revision: Revision, BuildDate: BuildDate},
			Collectors: observability.Collectors(),
		})
		deps.Metrics = p.Handler()
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, appLog, deps); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("server exited with error", "err", err)
		return err
	}
	appLog.Info("server stopped")
	return nil
}
