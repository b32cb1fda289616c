package pipeline

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsp-lqk/metapipe-redis/internal/conn"
	"github.com/jsp-lqk/metapipe-redis/internal/dispatcher"
	"github.com/jsp-lqk/metapipe-redis/internal/parser"
	"github.com/jsp-lqk/metapipe-redis/internal/protocol"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

// scriptedServer accepts one connection, discards whatever it reads, and
// writes back raw bytes once, ignoring request boundaries.
func scriptedServer(t *testing.T, reply string) net.Listener {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4096)
		c.Read(buf)
		c.Write([]byte(reply))
	}()
	return l
}

// deadServer accepts a connection and immediately closes it, forcing any
// write/read against it to fail at the transport level.
func deadServer(t *testing.T) net.Listener {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		c.Close()
	}()
	return l
}

func TestPipelineAlignsMixedResults(t *testing.T) {
	l := scriptedServer(t, "+OK\r\n:1\r\n-WRONGTYPE bad type\r\n")
	defer l.Close()

	c := conn.New(conn.Endpoint(l.Addr().String()), time.Second, nil)
	p := protocol.New(c, nil)

	pl := New()
	pl.Append(dispatcher.Command{Tokens: [][]byte{[]byte("SET")}, Keys: [][]byte{[]byte("a")}, Params: []any{[]byte("1")}})
	pl.Append(dispatcher.Command{Tokens: [][]byte{[]byte("INCR")}, Keys: [][]byte{[]byte("a")}, ParserID: parser.IntegerID})
	pl.Append(dispatcher.Command{Tokens: [][]byte{[]byte("LPUSH")}, Keys: [][]byte{[]byte("a")}, Params: []any{[]byte("x")}})

	results, err := pl.Execute(p)
	require.NoError(t, err)
	require.Len(t, results, pl.Len())

	assert.Equal(t, []byte("OK"), results[0].(resp.Value).Str)
	assert.Equal(t, int64(1), results[1])
	assert.ErrorIs(t, results[2].(error), dispatcher.ErrWrongType)
}

func TestPipelineKeysCollectsFirstKeysInOrder(t *testing.T) {
	pl := New()
	pl.Append(dispatcher.Command{Tokens: [][]byte{[]byte("GET")}, Keys: [][]byte{[]byte("a")}})
	pl.Append(dispatcher.Command{Tokens: [][]byte{[]byte("PING")}})
	pl.Append(dispatcher.Command{Tokens: [][]byte{[]byte("GET")}, Keys: [][]byte{[]byte("b")}})

	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, pl.Keys())
}

func TestPipelineEmptyExecuteIsNoop(t *testing.T) {
	pl := New()
	results, err := pl.Execute(nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestPipelineTransportFailureNamesEachPosition(t *testing.T) {
	l := deadServer(t)
	defer l.Close()

	c := conn.New(conn.Endpoint(l.Addr().String()), 50*time.Millisecond, nil)
	p := protocol.New(c, nil)

	pl := New()
	pl.Append(dispatcher.Command{Tokens: [][]byte{[]byte("SET")}, Keys: [][]byte{[]byte("a")}})
	pl.Append(dispatcher.Command{Tokens: [][]byte{[]byte("GET")}, Keys: [][]byte{[]byte("a")}})

	results, err := pl.Execute(p)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "position 0")
	assert.Contains(t, err.Error(), "position 1")
}
