//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jsp-lqk/metapipe-redis/internal/dispatcher"
	"github.com/jsp-lqk/metapipe-redis/internal/parser"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
	"github.com/jsp-lqk/metapipe-redis/pipeline"
)

// setup brings up a real redis:latest container and returns its host:port
// endpoint.
func setup(t *testing.T) (context.Context, testcontainers.Container, string) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort(nat.Port("6379/tcp")),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("6379/tcp"))
	require.NoError(t, err)

	return ctx, container, host + ":" + port.Port()
}

func TestIntegrationRoundTrip(t *testing.T) {
	ctx, container, endpoint := setup(t)
	defer container.Terminate(ctx)

	c, err := New(WithServer(endpoint))
	require.NoError(t, err)

	_, err = c.Set("greeting", []byte("hello"))
	require.NoError(t, err)

	v, err := c.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), v.Str)

	n, err := c.Incr("counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sections, err := c.Info()
	require.NoError(t, err)
	assert.Contains(t, sections, "Server")
}

func TestIntegrationClusterSlotsAgainstSingleNode(t *testing.T) {
	ctx, container, endpoint := setup(t)
	defer container.Terminate(ctx)

	c, err := New(WithServer(endpoint), WithVersion("3.2"))
	require.NoError(t, err)

	// A non-cluster redis:latest node replies with an empty CLUSTER SLOTS
	// array, or a CLUSTERDOWN error when cluster mode is compiled out but
	// the endpoint still understands the subcommand; either is a valid
	// response shape to exercise the parser end-to-end.
	_, err = c.ClusterSlots()
	if err != nil {
		assert.ErrorIs(t, err, dispatcher.ErrClusterDown)
	}
}

func TestIntegrationPipelineOrderingAgainstRealServer(t *testing.T) {
	ctx, container, endpoint := setup(t)
	defer container.Terminate(ctx)

	c, err := New(WithServer(endpoint))
	require.NoError(t, err)

	results, err := c.Pipeline(func(p *pipeline.Pipeline) {
		p.Append(dispatcher.Command{Tokens: [][]byte{[]byte("SET")}, Keys: [][]byte{[]byte("pk")}, Params: []any{[]byte("1")}})
		p.Append(dispatcher.Command{Tokens: [][]byte{[]byte("INCR")}, Keys: [][]byte{[]byte("pk")}, ParserID: parser.IntegerID})
		p.Append(dispatcher.Command{Tokens: [][]byte{[]byte("LPUSH")}, Keys: [][]byte{[]byte("pk")}, Params: []any{[]byte("x")}})
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []byte("OK"), results[0].(resp.Value).Str)
	assert.Equal(t, int64(2), results[1])
	assert.ErrorIs(t, results[2].(error), dispatcher.ErrWrongType)
}
