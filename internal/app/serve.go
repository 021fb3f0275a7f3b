package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Serve runs the sync engine and the connectivity monitor until ctx is
// cancelled.
func (a *App) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Monitor.Run(ctx)
	})
	g.Go(func() error {
		return a.Engine.Run(ctx)
	})

	a.Logger.Info("pointake serving",
		"endpoint", a.Client.Config().Endpoint,
		"sync_enabled", a.Resilient.Enabled(),
		"interval", a.Config.Sync.Interval,
	)
	return g.Wait()
}
