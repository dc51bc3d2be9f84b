package routekit

import (
	"strconv"
	"strings"
	"unicode"
)

// Document is the top-level OpenAPI 3.1 document.
type Document struct {
	OpenAPI    string              `json:"openapi" yaml:"openapi"`
	Info       Info                `json:"info" yaml:"info"`
	Servers    []ServerObj         `json:"servers,omitempty" yaml:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths" yaml:"paths"`
	Components Components          `json:"components" yaml:"components"`
}

// Info holds API metadata.
type Info struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

// ServerObj is an entry of the OpenAPI servers array.
type ServerObj struct {
	URL string `json:"url" yaml:"url"`
}

// Components holds reusable schemas.
type Components struct {
	Schemas map[string]JSONSchema `json:"schemas,omitempty" yaml:"schemas,omitempty"`
}

// PathItem maps lower-cased HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	OperationID string        `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody  `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   OperationResp `json:"responses" yaml:"responses"`
	Deprecated  bool          `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name" yaml:"name"`
	In          string     `json:"in" yaml:"in"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      JSONSchema `json:"schema" yaml:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required" yaml:"required"`
	Content  map[string]MediaObj `json:"content" yaml:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// OperationResp maps HTTP status codes to response objects.
type OperationResp map[string]ResponseObj

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description" yaml:"description"`
	Content     map[string]MediaObj `json:"content,omitempty" yaml:"content,omitempty"`
}

// errorSchemaName is the components key of the failure envelope.
const errorSchemaName = "Error"

// ErrorEnvelopeSchema describes the failure envelope. Use it as the content
// of documented error responses.
func ErrorEnvelopeSchema() *Schema {
	return Object(
		Field("error", String().Describe("Human readable message")),
		Field("code", String().Describe("Machine readable failure code")),
		Field("details", Optional(Object().Describe("Failure specific payload"))),
	)
}

// Synthesize builds the OpenAPI document for table. It walks the table on
// every call, so the document always matches the schemas the router
// enforces. serverURL may be empty.
func Synthesize(table *Table, info Info, serverURL string) Document {
	doc := Document{
		OpenAPI: "3.1.0",
		Info:    info,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: map[string]JSONSchema{
				errorSchemaName: ErrorEnvelopeSchema().JSONSchema(),
			},
		},
	}
	if serverURL != "" {
		doc.Servers = []ServerObj{{URL: serverURL}}
	}

	for i := range table.routes {
		cr := &table.routes[i]
		method := strings.ToLower(cr.Method)

		item := doc.Paths[cr.Pattern]
		if item == nil {
			item = make(PathItem)
			doc.Paths[cr.Pattern] = item
		}
		if _, dup := item[method]; dup {
			continue
		}
		item[method] = buildOperation(cr)
	}

	return doc
}

// buildOperation creates an Operation from a compiled route.
func buildOperation(cr *compiledRoute) Operation {
	op := Operation{
		Summary:     cr.Summary,
		Description: cr.Description,
		Tags:        cr.Tags,
		OperationID: cr.OperationID,
		Deprecated:  cr.Deprecated,
		Parameters:  extractParameters(cr),
		Responses:   make(OperationResp),
	}
	if op.OperationID == "" {
		op.OperationID = generateOperationID(cr.Method, cr.Pattern)
	}

	if body := cr.Schema.Body; body != nil {
		ct := cr.Schema.BodyContentType
		if ct == "" {
			ct = defaultBodyContentType
		}
		schema := body.JSONSchema()
		op.RequestBody = &RequestBody{
			Required: !body.IsOptional(),
			Content:  map[string]MediaObj{ct: {Schema: &schema}},
		}
	}

	for status, rd := range cr.Schema.Responses {
		obj := ResponseObj{Description: rd.Description}
		if rd.Content != nil {
			schema := rd.Content.JSONSchema()
			obj.Content = map[string]MediaObj{"application/json": {Schema: &schema}}
		}
		op.Responses[strconv.Itoa(status)] = obj
	}
	if len(op.Responses) == 0 {
		op.Responses["default"] = ResponseObj{Description: "Unspecified"}
	}

	return op
}

// extractParameters emits path parameters in pattern order followed by
// query parameters in field order.
func extractParameters(cr *compiledRoute) []Parameter {
	var params []Parameter

	for _, name := range cr.pattern.params {
		p := Parameter{Name: name, In: "path", Required: true, Schema: JSONSchema{Type: "string"}}
		if s := cr.Schema.Params; s != nil {
			for _, f := range s.fields {
				if f.Name == name {
					p.Schema = f.Schema.JSONSchema()
					p.Description = p.Schema.Description
					p.Required = !f.Schema.IsOptional()
				}
			}
		}
		params = append(params, p)
	}

	if s := cr.Schema.Query; s != nil {
		for _, f := range s.fields {
			js := f.Schema.JSONSchema()
			params = append(params, Parameter{
				Name:        f.Name,
				In:          "query",
				Description: js.Description,
				Required:    !f.Schema.IsOptional(),
				Schema:      js,
			})
		}
	}

	return params
}

// generateOperationID derives an id such as getTodosByTodoId from a method
// and pattern.
func generateOperationID(method, pattern string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, part := range strings.Split(pattern, "/") {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "{") {
			b.WriteString("By")
			part = strings.Trim(part, "{}")
		}
		b.WriteString(upperFirst(part))
	}
	return b.String()
}

func upperFirst(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '-' || r == '_' || r == '.' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
