package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bjaus/routekit/internal/config"
)

// ServeCmd runs the API server until the context is cancelled.
type ServeCmd struct {
	Port  int  `short:"p" help:"Override the listen port (0 picks a free one)." default:"-1"`
	Watch bool `help:"Restart when the configuration file changes." default:"true" negatable:""`
}

// Run executes the serve command.
//
// The server, the shutdown wait and the config watcher run in one errgroup;
// the first to fail cancels the others.
func (c *ServeCmd) Run(ctx context.Context, root *Root) error {
	cfg, path, err := root.load()
	if err != nil {
		return err
	}
	if c.Port >= 0 {
		cfg.Server.Port = c.Port
	}

	var level slog.LevelVar
	level.Set(cfg.Log.SlogLevel())
	logger := slog.New(cfg.Log.Handler(os.Stderr, &level))
	slog.SetDefault(logger)

	svc, err := NewService(cfg, logger)
	if err != nil {
		return err
	}
	srv := svc.Server

	g, gctx := errgroup.WithContext(ctx)

	if err := srv.Start(gctx); err != nil {
		return err
	}
	logger.Info("todos is running", "url", srv.URL(), "config", path)

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.DrainTimeout+time.Second)
		defer cancel()
		return srv.Stop(stopCtx)
	})

	if c.Watch && path != "" {
		g.Go(func() error {
			return config.Watch(gctx, path, logger, func(next config.File) {
				if gctx.Err() != nil {
					return
				}
				level.Set(next.Log.SlogLevel())
				srv.Reconfigure(next.Server)
				if err := srv.Restart(gctx); err != nil {
					logger.Error("restart after config change failed", "err", err)
				}
			})
		})
	}

	return g.Wait()
}
