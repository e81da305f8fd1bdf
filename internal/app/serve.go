package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"staking-sync/internal/handler"
	"staking-sync/internal/scheduler"
)

// Serve runs the HTTP API, and the scheduler when enabled, until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, closeReader, err := a.newReconciler(store)
	if err != nil {
		return err
	}
	defer closeReader()

	if a.Config.Scheduler.Enabled {
		sched, err := scheduler.New(scheduler.Options{
			Interval:      a.Config.Scheduler.Interval,
			AlignToBucket: a.Config.Scheduler.AlignToBucket,
			StartupDelay:  a.Config.Scheduler.StartupDelay,
		}, a.Logger)
		if err != nil {
			return err
		}
		go func() {
			_ = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
				rec.ReconcileAll(ctx)
				return nil
			})
		}()
		a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("scheduler enabled")
	}

	srv := &http.Server{
		Addr:         a.Config.HTTP.Addr,
		Handler:      handler.NewRouter(store, rec, a.Config.HTTP.CORSOrigin, a.Logger),
		ReadTimeout:  a.Config.HTTP.ReadTimeout,
		WriteTimeout: a.Config.HTTP.WriteTimeout,
		IdleTimeout:  a.Config.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.Logger.Error().Err(err).Msg("server failed")
			return err
		}
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("shutting down gracefully")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.Logger.Info().Msg("server stopped")
	return nil
}
