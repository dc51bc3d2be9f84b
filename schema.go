package routekit

import "slices"

// Kind tags the shape a Schema describes.
type Kind int

// Schema kinds. The set is closed; the validator and the OpenAPI
// synthesizer switch over it exhaustively.
const (
	KindObject Kind = iota + 1
	KindArray
	KindString
	KindNumber
	KindInteger
	KindBoolean
	KindOptional
)

// String returns the JSON-schema type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindOptional:
		return "optional"
	default:
		return "unknown"
	}
}

// Schema is a declarative description of an expected value. It is used for
// both input validation and documentation. Schemas are immutable: every
// constraint method returns a modified copy.
type Schema struct {
	kind        Kind
	description string
	format      string
	def         any

	// object
	fields []FieldSchema
	strict bool

	// array
	items    *Schema
	minItems *int
	maxItems *int

	// optional
	inner *Schema

	// string
	minLength *int
	maxLength *int
	pattern   string
	enum      []string

	// number, integer
	minimum *float64
	maximum *float64
}

// FieldSchema is a named property of an object schema.
type FieldSchema struct {
	Name   string
	Schema *Schema
}

// Object describes a JSON object with the given fields, in declaration order.
// Unknown properties are dropped during validation unless Strict is applied.
func Object(fields ...FieldSchema) *Schema {
	return &Schema{kind: KindObject, fields: fields}
}

// Field declares a property of an object schema.
func Field(name string, s *Schema) FieldSchema {
	return FieldSchema{Name: name, Schema: s}
}

// Array describes a JSON array whose elements match items.
func Array(items *Schema) *Schema {
	return &Schema{kind: KindArray, items: items}
}

// String describes a JSON string.
func String() *Schema { return &Schema{kind: KindString} }

// Number describes any JSON number.
func Number() *Schema { return &Schema{kind: KindNumber} }

// Integer describes a JSON number without a fractional part.
func Integer() *Schema { return &Schema{kind: KindInteger} }

// Boolean describes a JSON boolean.
func Boolean() *Schema { return &Schema{kind: KindBoolean} }

// Optional marks s as not required. Optional values may be absent or null.
func Optional(s *Schema) *Schema {
	if s.kind == KindOptional {
		return s
	}
	return &Schema{kind: KindOptional, inner: s}
}

// Kind returns the schema kind.
func (s *Schema) Kind() Kind { return s.kind }

// Fields returns a copy of the object fields.
func (s *Schema) Fields() []FieldSchema { return slices.Clone(s.fields) }

// Items returns the element schema of an array.
func (s *Schema) Items() *Schema { return s.items }

// Unwrap returns the wrapped schema of an Optional, or s itself.
func (s *Schema) Unwrap() *Schema {
	if s.kind == KindOptional {
		return s.inner
	}
	return s
}

// IsOptional reports whether the schema carries the optionality marker.
func (s *Schema) IsOptional() bool { return s.kind == KindOptional }

func (s *Schema) clone() *Schema {
	cp := *s
	return &cp
}

// Describe attaches a human readable description.
func (s *Schema) Describe(d string) *Schema {
	cp := s.clone()
	cp.description = d
	return cp
}

// Format sets the JSON-schema format hint (e.g. "date-time", "uuid").
func (s *Schema) Format(f string) *Schema {
	cp := s.clone()
	cp.format = f
	return cp
}

// Default sets the value used when an optional field is absent.
func (s *Schema) Default(v any) *Schema {
	cp := s.clone()
	cp.def = v
	return cp
}

// Strict makes an object schema reject unknown properties.
func (s *Schema) Strict() *Schema {
	cp := s.clone()
	cp.strict = true
	return cp
}

// MinLength sets the minimum string length in runes.
func (s *Schema) MinLength(n int) *Schema {
	cp := s.clone()
	cp.minLength = &n
	return cp
}

// MaxLength sets the maximum string length in runes.
func (s *Schema) MaxLength(n int) *Schema {
	cp := s.clone()
	cp.maxLength = &n
	return cp
}

// Pattern sets a regular expression the string must match.
func (s *Schema) Pattern(expr string) *Schema {
	cp := s.clone()
	cp.pattern = expr
	return cp
}

// Enum restricts a string to the given values.
func (s *Schema) Enum(values ...string) *Schema {
	cp := s.clone()
	cp.enum = slices.Clone(values)
	return cp
}

// Minimum sets the inclusive lower bound of a number.
func (s *Schema) Minimum(v float64) *Schema {
	cp := s.clone()
	cp.minimum = &v
	return cp
}

// Maximum sets the inclusive upper bound of a number.
func (s *Schema) Maximum(v float64) *Schema {
	cp := s.clone()
	cp.maximum = &v
	return cp
}

// MinItems sets the minimum array length.
func (s *Schema) MinItems(n int) *Schema {
	cp := s.clone()
	cp.minItems = &n
	return cp
}

// MaxItems sets the maximum array length.
func (s *Schema) MaxItems(n int) *Schema {
	cp := s.clone()
	cp.maxItems = &n
	return cp
}

// JSONSchema represents a JSON Schema object (subset for OpenAPI 3.1).
type JSONSchema struct {
	Type        string                `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string                `json:"format,omitempty" yaml:"format,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty" yaml:"items,omitempty"`
	Required    []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default     any                   `json:"default,omitempty" yaml:"default,omitempty"`
	Ref         string                `json:"$ref,omitempty" yaml:"$ref,omitempty"`

	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinItems  *int     `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems  *int     `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`

	// AdditionalProperties is false for strict objects.
	AdditionalProperties *bool `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// JSONSchema converts the schema into its generic JSON-schema representation.
// Optional wrappers disappear; optionality is expressed through the parent's
// required list.
func (s *Schema) JSONSchema() JSONSchema {
	if s == nil {
		return JSONSchema{}
	}
	if s.kind == KindOptional {
		js := s.inner.JSONSchema()
		if s.description != "" {
			js.Description = s.description
		}
		if s.def != nil {
			js.Default = s.def
		}
		return js
	}

	js := JSONSchema{
		Type:        s.kind.String(),
		Format:      s.format,
		Description: s.description,
		Default:     s.def,
		Enum:        s.enum,
		MinLength:   s.minLength,
		MaxLength:   s.maxLength,
		Pattern:     s.pattern,
		Minimum:     s.minimum,
		Maximum:     s.maximum,
		MinItems:    s.minItems,
		MaxItems:    s.maxItems,
	}

	//exhaustive:ignore
	switch s.kind {
	case KindObject:
		js.Properties = make(map[string]JSONSchema, len(s.fields))
		for _, f := range s.fields {
			js.Properties[f.Name] = f.Schema.JSONSchema()
			if !f.Schema.IsOptional() {
				js.Required = append(js.Required, f.Name)
			}
		}
		if s.strict {
			no := false
			js.AdditionalProperties = &no
		}
	case KindArray:
		items := s.items.JSONSchema()
		js.Items = &items
	}

	return js
}
