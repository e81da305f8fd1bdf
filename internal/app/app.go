package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"staking-sync/internal/alerting"
	"staking-sync/internal/cache"
	"staking-sync/internal/config"
	"staking-sync/internal/fetcher"
	"staking-sync/internal/reconciler"
	"staking-sync/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer

	// reader replaces the Ethereum client when set.
	reader fetcher.StakingReader
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
	}
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled || !a.Config.Alerting.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
}

// openStore opens the configured backend, runs migrations when enabled and
// layers the Redis cache on top when configured.
func (a *App) openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if a.Config.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}

	if !a.Config.Redis.Enabled {
		return store, nil
	}

	rdb, err := cache.Dial(ctx, a.Config.Redis.URL, a.Config.Redis.Password)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.Logger.Info().Dur("ttl", a.Config.Redis.TTL).Msg("redis cache enabled")
	return cache.New(store, rdb, a.Logger, cache.Options{
		TTL:    a.Config.Redis.TTL,
		Prefix: a.Config.Redis.Prefix,
	}), nil
}

// newReconciler builds the registry and chain reader. The returned closer
// releases the RPC connection.
func (a *App) newReconciler(store storage.RecordWriter) (*reconciler.Reconciler, func(), error) {
	reg, err := a.Config.BuildRegistry()
	if err != nil {
		return nil, nil, err
	}

	reader, closer := a.reader, func() {}
	if reader == nil {
		eth := fetcher.NewEthereum(fetcher.EthereumOptions{
			RPCURL:  a.Config.Ethereum.RPCURL,
			Timeout: a.Config.Ethereum.RequestTimeout,
		}, a.Logger)
		reader, closer = eth, eth.Close
	}

	a.Logger.Info().Int("tokens", reg.Len()).Msg("registry loaded")

	rec := reconciler.New(reg, reader, store, a.Logger, reconciler.Options{
		EntryTimeout: a.Config.Reconciler.EntryTimeout,
		Notifier:     a.newNotifier(),
		Environment:  a.Config.App.Environment,
	})
	return rec, closer, nil
}
