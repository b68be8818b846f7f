package server

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConn(t *testing.T) *Conn {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return newConn(server, 0)
}

func TestRegistryBindAndLookup(t *testing.T) {
	registry := NewRegistry()
	conn := pipeConn(t)

	evicted := registry.Bind(1, "alice", conn)
	assert.Nil(t, evicted)

	found, ok := registry.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, conn, found)
	assert.True(t, registry.IsOnline(1))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryBindEvictsPrior(t *testing.T) {
	registry := NewRegistry()
	first := pipeConn(t)
	second := pipeConn(t)

	require.Nil(t, registry.Bind(1, "alice", first))
	evicted := registry.Bind(1, "alice", second)
	assert.Same(t, first, evicted)

	found, _ := registry.Lookup("alice")
	assert.Same(t, second, found)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryRebindSameConn(t *testing.T) {
	registry := NewRegistry()
	conn := pipeConn(t)

	require.Nil(t, registry.Bind(1, "alice", conn))
	assert.Nil(t, registry.Bind(1, "alice", conn))
}

// A connection that lost a duplicate-login race must not be able to tear
// down the newer binding.
func TestRegistryUnbindLostRace(t *testing.T) {
	registry := NewRegistry()
	first := pipeConn(t)
	second := pipeConn(t)

	registry.Bind(1, "alice", first)
	registry.Bind(1, "alice", second)

	assert.False(t, registry.Unbind(1, "alice", first))
	assert.True(t, registry.IsOnline(1))

	assert.True(t, registry.Unbind(1, "alice", second))
	assert.False(t, registry.IsOnline(1))
	assert.Equal(t, 0, registry.Count())
}

func TestRegistrySnapshot(t *testing.T) {
	registry := NewRegistry()
	a := pipeConn(t)
	b := pipeConn(t)

	registry.Bind(1, "alice", a)
	registry.Bind(2, "bob", b)

	snapshot := registry.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Same(t, a, snapshot["alice"])
	assert.Same(t, b, snapshot["bob"])

	// Mutating the registry afterwards does not change the snapshot.
	registry.Unbind(1, "alice", a)
	assert.Len(t, snapshot, 2)
}
