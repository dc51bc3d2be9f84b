package cli

import (
	"context"
	"io"

	"github.com/alecthomas/kong"

	"github.com/bjaus/routekit/internal/config"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "(local)"

// Root is the top-level command.
type Root struct {
	Config string `short:"c" help:"Path to the configuration file." placeholder:"PATH" type:"path"`

	Serve   ServeCmd   `cmd:"" help:"Run the API server."`
	Spec    SpecCmd    `cmd:"" help:"Print the OpenAPI document."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Execute parses args and runs the selected command. Output meant for the
// user goes to out; logs go to the default slog logger.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	var root Root
	parser, err := kong.New(&root,
		kong.Name(config.AppName),
		kong.Description("A todo list API with validated routes and a live OpenAPI document."),
		kong.UsageOnError(),
		kong.Writers(out, out),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.Bind(&root),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run()
}

// load resolves the config path and loads it.
func (r *Root) load() (config.File, string, error) {
	path := r.Config
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}
