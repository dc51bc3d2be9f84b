package todo

import (
	"context"

	"github.com/bjaus/routekit"
)

// Provide registers a fresh MemoryRepository in app. Use it as a
// routekit.Builder when each epoch should start empty.
func Provide(ctx context.Context, app *routekit.AppContext) error {
	return Builder(NewMemoryRepository())(ctx, app)
}

// Builder returns a routekit.Builder that registers repo in every epoch, so
// stored items survive a restart.
func Builder(repo Repository) routekit.Builder {
	return func(_ context.Context, app *routekit.AppContext) error {
		routekit.Provide[Repository](app, repo)
		app.Logger.Debug("todo repository registered", "epoch", app.Epoch)
		return nil
	}
}
