package routekit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Spec synthesizes the OpenAPI document for the router's table.
func (r *Router) Spec(serverURL string) Document {
	return Synthesize(r.table, Info{Title: r.title, Version: r.version}, serverURL)
}

// WriteSpec writes the OpenAPI spec as indented JSON to w.
func (r *Router) WriteSpec(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Spec(""))
}

// WriteSpecYAML writes the OpenAPI spec as YAML to w.
func (r *Router) WriteSpecYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.Spec("")); err != nil {
		return err
	}
	return enc.Close()
}

// SpecRoute declares an exempt GET route serving the OpenAPI document as
// JSON. The server URL is derived from the request's Host header.
func SpecRoute(pattern string) Route {
	return Get(pattern, serveSpecJSON,
		WithExempt(),
		WithSummary("OpenAPI document"),
		WithTags("meta"),
		WithResponse(http.StatusOK, "OpenAPI 3.1 document (JSON)", Object()),
	)
}

// SpecYAMLRoute declares an exempt GET route serving the OpenAPI document
// as YAML.
func SpecYAMLRoute(pattern string) Route {
	return Get(pattern, serveSpecYAML,
		WithExempt(),
		WithSummary("OpenAPI document (YAML)"),
		WithTags("meta"),
		WithResponse(http.StatusOK, "OpenAPI 3.1 document (YAML)", nil),
	)
}

func serveSpecJSON(_ context.Context, req *Request) (*Response, error) {
	return OK(req.Router().Spec(requestBaseURL(req.HTTP()))), nil
}

func serveSpecYAML(_ context.Context, req *Request) (*Response, error) {
	out, err := yaml.Marshal(req.Router().Spec(requestBaseURL(req.HTTP())))
	if err != nil {
		return nil, Internal(err)
	}
	return Raw(http.StatusOK, "application/yaml", out), nil
}

func requestBaseURL(r *http.Request) string {
	if r.Host == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
