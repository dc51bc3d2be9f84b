package routekit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/routekit"
)

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		pattern  string
		path     string
		wantOK   bool
		captures map[string]string
	}{
		"root":                   {pattern: "/", path: "/", wantOK: true, captures: map[string]string{}},
		"literal":                {pattern: "/todos", path: "/todos", wantOK: true, captures: map[string]string{}},
		"trailing slash differs": {pattern: "/todos", path: "/todos/", wantOK: false},
		"case sensitive":         {pattern: "/todos", path: "/Todos", wantOK: false},
		"single param": {
			pattern: "/todos/{todoId}", path: "/todos/42",
			wantOK: true, captures: map[string]string{"todoId": "42"},
		},
		"two params": {
			pattern: "/users/{userId}/todos/{todoId}", path: "/users/u1/todos/t9",
			wantOK: true, captures: map[string]string{"userId": "u1", "todoId": "t9"},
		},
		"param is decoded": {
			pattern: "/files/{name}", path: "/files/a%20b",
			wantOK: true, captures: map[string]string{"name": "a b"},
		},
		"encoded slash stays in segment": {
			pattern: "/files/{name}", path: "/files/a%2Fb",
			wantOK: true, captures: map[string]string{"name": "a/b"},
		},
		"encoded literal": {pattern: "/todos", path: "/tod%6Fs", wantOK: true, captures: map[string]string{}},
		"empty param":     {pattern: "/todos/{todoId}", path: "/todos/", wantOK: false},
		"too many segments": {
			pattern: "/todos/{todoId}", path: "/todos/1/extra", wantOK: false,
		},
		"too few segments": {pattern: "/todos/{todoId}", path: "/todos", wantOK: false},
		"bad escape":       {pattern: "/files/{name}", path: "/files/%zz", wantOK: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			captures, ok, err := routekit.MatchPattern(tc.pattern, tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.captures, captures)
			}
		})
	}
}

func TestMatchPattern_invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"no leading slash":  "todos",
		"empty segment":     "/todos//{id}",
		"mixed segment":     "/todos/item-{id}",
		"wildcard":          "/files/{path...}",
		"bad name":          "/todos/{1id}",
		"empty name":        "/todos/{}",
		"duplicate name":    "/a/{id}/b/{id}",
		"unbalanced braces": "/todos/{id",
	}

	for name, pattern := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, _, err := routekit.MatchPattern(pattern, "/")
			require.ErrorIs(t, err, routekit.ErrInvalidPattern)
		})
	}
}
