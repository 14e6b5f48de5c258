package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bavix/avwatch/internal/adminhttp"
	"github.com/bavix/avwatch/internal/auth"
	"github.com/bavix/avwatch/internal/devices"
	"github.com/bavix/avwatch/internal/logging"
	"github.com/bavix/avwatch/internal/metrics"
	"github.com/bavix/avwatch/internal/permissions"
	"github.com/bavix/avwatch/internal/version"
)

var dryRun bool //nolint:gochecknoglobals // cobra command flag

func newRunCmd() *cobra.Command { //nolint:cyclop,funlen
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the device manager and its admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := zerolog.Ctx(ctx)

			log.Info().
				Str("version", version.GetVersion()).
				Str("build_time", version.GetBuildTime()).
				Msg("avwatch starting")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("log-level") && cfg.Log.Level != "" {
				logger := log.Level(logging.ParseLevel(cfg.Log.Level))
				log = &logger
				ctx = log.WithContext(ctx)
			}

			enumerator, err := buildEnumerator(&cfg.Source)
			if err != nil {
				return err
			}

			watcher, err := buildWatcher(&cfg.Source)
			if err != nil {
				return err
			}

			var authSvc *auth.Service
			if cfg.HTTP.AuthSecret != "" {
				if authSvc, err = auth.NewService(cfg.HTTP.AuthSecret); err != nil {
					return err
				}
			}

			log.Info().
				Str("config", cfg.Path).
				Str("source", cfg.Source.Type).
				Str("enumerator", enumerator.Name()).
				Bool("watch", watcher != nil).
				Bool("auth", authSvc != nil).
				Msg("configuration loaded")

			if dryRun {
				log.Info().
					Bool("available", enumerator.IsAvailable(ctx)).
					Msg("dry-run complete")

				return nil
			}

			metrics.RegisterCollectors()
			metrics.SetService(cfg.AppName)

			opts := []devices.Option{devices.WithEnumerationTimeout(cfg.Source.Timeout)}
			if cfg.Source.RedactLabels {
				opts = append(opts, devices.WithDecorators(devices.NewLabelRedactor()))
			}

			g, gctx := errgroup.WithContext(ctx)

			if watcher != nil {
				opts = append(opts, devices.WithTopologyNotifier(watcher))

				if err := watcher.Start(gctx); err != nil {
					return err
				}

				g.Go(func() error {
					<-watcher.Done()

					return nil
				})
			}

			manager := devices.New(gctx, enumerator, opts...)
			requests := permissions.NewRegistry(cfg.Permissions.MaxPending, cfg.Permissions.RequestTTL)

			if cfg.HTTP.IsEnabled() {
				admin := adminhttp.NewServer(cfg, manager, requests, authSvc)
				if err := admin.Start(gctx); err != nil {
					_ = manager.Close()

					return err
				}
			}

			metrics.SetReady(true)

			g.Go(func() error {
				<-gctx.Done()
				metrics.SetReady(false)

				return manager.Close()
			})

			err = g.Wait()

			log.Info().Msg("avwatch stopped")

			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate config and device source, then exit")

	return cmd
}
