package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	a := mem.Namespace("visitor-a")
	b := mem.Namespace("visitor-b")

	require.NoError(t, a.SetItem(ctx, "cart", `[{"id":"1"}]`))

	v, ok, err := a.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	_, ok, err = b.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.False(t, ok)

	// a second handle on the same namespace sees the same data
	v, ok, _ = mem.Namespace("visitor-a").GetItem(ctx, "cart")
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, a.RemoveItem(ctx, "cart"))
	_, ok, _ = a.GetItem(ctx, "cart")
	assert.False(t, ok)
}

func TestListeners(t *testing.T) {
	var l Listeners
	calls := 0
	remove := l.Add(func() { calls++ })

	l.Notify()
	l.Notify()
	remove()
	l.Notify()

	assert.Equal(t, 2, calls)
}
