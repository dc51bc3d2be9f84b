package cli

import (
	"io"
	"log/slog"
)

// SpecCmd prints the OpenAPI document without starting the server.
type SpecCmd struct {
	Format string `short:"f" help:"Output format." enum:"json,yaml" default:"json"`
}

// Run executes the spec command.
func (c *SpecCmd) Run(root *Root, out io.Writer) error {
	cfg, _, err := root.load()
	if err != nil {
		return err
	}

	svc, err := NewService(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}

	router := svc.Server.Router()
	if c.Format == "yaml" {
		return router.WriteSpecYAML(out)
	}
	return router.WriteSpec(out)
}
