// Package cli implements the todos command line.
//
//	todos [flags] serve      Run the API server until interrupted.
//	todos [flags] spec       Print the OpenAPI document.
//	todos version            Print the build version.
//
// The configuration file defaults to todos/config.yaml in the xdg config
// directories. TODOS_* environment variables override file values.
package cli
