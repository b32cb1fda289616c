package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsp-lqk/metapipe-redis/internal/conn"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

func TestIntegerFromIntegerReply(t *testing.T) {
	n, err := Integer(resp.Integer(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestBoolFromNonZeroInteger(t *testing.T) {
	b, err := Bool(resp.Integer(1))
	require.NoError(t, err)
	assert.True(t, b)

	b, err = Bool(resp.Integer(0))
	require.NoError(t, err)
	assert.False(t, b)
}

func TestKVPairsFoldsFlatArray(t *testing.T) {
	v := resp.Array([]resp.Value{
		resp.BulkString([]byte("a")), resp.BulkString([]byte("1")),
		resp.BulkString([]byte("b")), resp.BulkString([]byte("2")),
	})
	m, err := KVPairs(v)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, m)
}

func TestKVPairsRejectsOddLength(t *testing.T) {
	v := resp.Array([]resp.Value{resp.BulkString([]byte("a"))})
	_, err := KVPairs(v)
	assert.Error(t, err)
}

func TestClusterSlotsParsesEntries(t *testing.T) {
	v := resp.Array([]resp.Value{
		resp.Array([]resp.Value{
			resp.Integer(0), resp.Integer(5460),
			resp.Array([]resp.Value{resp.BulkString([]byte("10.0.0.1")), resp.Integer(6379)}),
		}),
		resp.Array([]resp.Value{
			resp.Integer(5461), resp.Integer(10922),
			resp.Array([]resp.Value{resp.BulkString([]byte("10.0.0.2")), resp.Integer(6380)}),
		}),
	})
	ranges, err := ClusterSlots(v)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, SlotRange{Start: 0, End: 5460, Endpoint: conn.Endpoint("10.0.0.1:6379")}, ranges[0])
	assert.Equal(t, SlotRange{Start: 5461, End: 10922, Endpoint: conn.Endpoint("10.0.0.2:6380")}, ranges[1])
}

func TestInfoSplitsSectionsAndPairs(t *testing.T) {
	body := "# Server\r\nredis_version:7.0.0\r\n\r\n# Clients\r\nconnected_clients:1\r\n"
	v := resp.BulkString([]byte(body))
	sections, err := Info(v)
	require.NoError(t, err)
	assert.Equal(t, "7.0.0", sections["Server"]["redis_version"])
	assert.Equal(t, "1", sections["Clients"]["connected_clients"])
}

func TestApplyDispatchesById(t *testing.T) {
	v, err := Apply(IntegerID, resp.Integer(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}
