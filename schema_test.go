package routekit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/routekit"
)

func TestSchema_JSONSchema(t *testing.T) {
	t.Parallel()

	s := routekit.Object(
		routekit.Field("title", routekit.String().MinLength(1).MaxLength(200).Describe("Title")),
		routekit.Field("done", routekit.Optional(routekit.Boolean()).Default(false)),
		routekit.Field("tags", routekit.Optional(routekit.Array(routekit.String().Enum("a", "b")).MaxItems(3))),
		routekit.Field("score", routekit.Number().Minimum(0).Maximum(1)),
		routekit.Field("count", routekit.Integer()),
	).Strict()

	js := s.JSONSchema()

	assert.Equal(t, "object", js.Type)
	assert.Equal(t, []string{"title", "score", "count"}, js.Required)
	require.NotNil(t, js.AdditionalProperties)
	assert.False(t, *js.AdditionalProperties)

	title := js.Properties["title"]
	assert.Equal(t, "string", title.Type)
	assert.Equal(t, "Title", title.Description)
	assert.Equal(t, 1, *title.MinLength)
	assert.Equal(t, 200, *title.MaxLength)

	done := js.Properties["done"]
	assert.Equal(t, "boolean", done.Type)
	assert.Equal(t, false, done.Default)

	tags := js.Properties["tags"]
	assert.Equal(t, "array", tags.Type)
	assert.Equal(t, 3, *tags.MaxItems)
	require.NotNil(t, tags.Items)
	assert.Equal(t, []string{"a", "b"}, tags.Items.Enum)

	assert.Equal(t, "number", js.Properties["score"].Type)
	assert.InDelta(t, 1.0, *js.Properties["score"].Maximum, 0)
	assert.Equal(t, "integer", js.Properties["count"].Type)
}

func TestSchema_immutable(t *testing.T) {
	t.Parallel()

	base := routekit.String()
	limited := base.MaxLength(3)

	assert.Nil(t, base.JSONSchema().MaxLength)
	assert.Equal(t, 3, *limited.JSONSchema().MaxLength)
}

func TestSchema_optional(t *testing.T) {
	t.Parallel()

	inner := routekit.Integer()
	opt := routekit.Optional(inner)

	assert.True(t, opt.IsOptional())
	assert.False(t, inner.IsOptional())
	assert.Same(t, inner, opt.Unwrap())
	assert.Same(t, inner, inner.Unwrap())
	assert.Same(t, opt, routekit.Optional(opt), "optional is idempotent")
	assert.Equal(t, routekit.KindOptional, opt.Kind())
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	tests := map[routekit.Kind]string{
		routekit.KindObject:   "object",
		routekit.KindArray:    "array",
		routekit.KindString:   "string",
		routekit.KindNumber:   "number",
		routekit.KindInteger:  "integer",
		routekit.KindBoolean:  "boolean",
		routekit.KindOptional: "optional",
		routekit.Kind(0):      "unknown",
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.String())
	}
}
