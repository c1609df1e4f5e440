package cli

import (
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"vantage/internal/config"
	"vantage/internal/server"
	"vantage/internal/store"
)

// newServeCmd starts the HTTP API.
func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Serve starts the workspace API. Without a MongoDB URI in the config the
workspaces live in memory and vanish on shutdown; without a Redis address
verdicts are recomputed on every evaluation request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			var st store.Store = store.NewMemory()
			if cfg.Mongo.URI != "" {
				mongoStore, err := store.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
				if err != nil {
					return err
				}
				defer func() { _ = mongoStore.Close(ctx) }()
				st = mongoStore
				logger.Info("using mongodb store", "database", cfg.Mongo.Database)
			} else {
				logger.Warn("no mongodb uri configured, workspaces are in-memory only")
			}

			var cache *store.VerdictCache
			if cfg.Redis.Addr != "" {
				cache, err = store.NewVerdictCache(ctx, &redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				}, cfg.Redis.VerdictTTL.Std())
				if err != nil {
					return err
				}
				defer func() { _ = cache.Close() }()
				logger.Info("verdict cache enabled", "addr", cfg.Redis.Addr)
			}

			srv := server.New(cfg.Server, st, cache, logger)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to vantage.toml")
	return cmd
}
