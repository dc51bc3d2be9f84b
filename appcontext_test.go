package routekit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/routekit"
)

type store interface {
	Name() string
}

type memStore struct{ name string }

func (m *memStore) Name() string { return m.name }

func TestAppContext_collaborators(t *testing.T) {
	t.Parallel()

	app := routekit.NewAppContext(routekit.DefaultConfig(), nil, 3)
	assert.NotNil(t, app.Logger)
	assert.Equal(t, uint64(3), app.Epoch)

	_, ok := routekit.Lookup[store](app)
	assert.False(t, ok)

	routekit.Provide[store](app, &memStore{name: "first"})
	got, ok := routekit.Lookup[store](app)
	require.True(t, ok)
	assert.Equal(t, "first", got.Name())

	routekit.Provide[store](app, &memStore{name: "second"})
	assert.Equal(t, "second", routekit.MustLookup[store](app).Name())

	_, ok = routekit.Lookup[*memStore](app)
	assert.False(t, ok, "collaborators are keyed by the provided type")

	assert.PanicsWithValue(t, "routekit: no int provided in AppContext", func() {
		routekit.MustLookup[int](app)
	})

	_, ok = routekit.Lookup[store](nil)
	assert.False(t, ok)
}

func TestAppContext_Close(t *testing.T) {
	t.Parallel()

	app := routekit.NewAppContext(routekit.DefaultConfig(), quietLogger(), 1)

	var order []string
	app.OnClose(func(context.Context) error {
		order = append(order, "first")
		return errors.New("first failed")
	})
	app.OnClose(func(context.Context) error {
		order = append(order, "second")
		return nil
	})
	app.OnClose(func(context.Context) error {
		order = append(order, "third")
		return errors.New("third failed")
	})

	err := app.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Contains(t, err.Error(), "third failed")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	require.NoError(t, app.Close(context.Background()), "closers run once")
	assert.Len(t, order, 3)
}

func TestAppFromContext(t *testing.T) {
	t.Parallel()

	_, ok := routekit.AppFromContext(context.Background())
	assert.False(t, ok)

	_, ok = routekit.AppFromContext(routekit.WithAppContext(context.Background(), nil))
	assert.False(t, ok)

	app := routekit.NewAppContext(routekit.DefaultConfig(), quietLogger(), 1)
	got, ok := routekit.AppFromContext(routekit.WithAppContext(context.Background(), app))
	require.True(t, ok)
	assert.Same(t, app, got)
}
