package cli

import (
	"fmt"
	"io"
)

// VersionCmd prints the build version.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run(out io.Writer) error {
	_, err := fmt.Fprintln(out, Version)
	return err
}
