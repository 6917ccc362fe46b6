package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sternrassler/planet-client-go/pkg/client"
	"github.com/Sternrassler/planet-client-go/pkg/config"
	"github.com/Sternrassler/planet-client-go/pkg/logging"
	"github.com/Sternrassler/planet-client-go/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once the root command has run.
type app struct {
	configFile  string
	envFile     string
	logLevel    string
	metricsAddr string

	settings *config.Settings
	redis    *redis.Client
	client   *client.Client
	metrics  *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "planet",
		Short:         "Query the Planet imagery catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML config file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file with PLANET_* variables")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(
		newItemsCommand(a),
		newItemTypesCommand(a),
		newScenesCommand(a),
		newCacheCommand(a),
		newVersionCommand(),
	)

	return rootCmd
}

func (a *app) setup(ctx context.Context) error {
	settings, err := config.Load(config.LoaderOptions{
		ConfigFile: a.configFile,
		EnvFile:    a.envFile,
	})
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		settings.LogLevel = a.logLevel
	}
	a.settings = settings

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(settings.LogLevel),
		Pretty: settings.LogPretty,
	})

	a.redis, err = settings.RedisClient()
	if err != nil {
		return err
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		log.Debug().Str("redis", settings.RedisURL).Msg("Connected to Redis")
	}

	a.client, err = client.New(settings.ClientConfig(a.redis))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	if a.metricsAddr != "" {
		a.metrics = &http.Server{
			Addr:              a.metricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", a.metricsAddr).Msg("Metrics server failed")
			}
		}()
		log.Info().Str("addr", a.metricsAddr).Msg("Serving metrics")
	}

	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(shutdownCtx)
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		// No config is needed to print the version.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "planet-client-go", client.Version)
		},
	}
}

// printJSON writes one JSON document per line.
func printJSON(w io.Writer, values ...any) error {
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
