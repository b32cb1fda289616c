package resp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMultiBulk(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, [][]byte{[]byte("GET"), []byte("foo")}))
	assert.Equal(t, "*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n", buf.String())
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil))
	assert.Equal(t, "*0\r\n", buf.String())
}

func TestEncodeManyIsContiguous(t *testing.T) {
	var buf bytes.Buffer
	cmds := [][][]byte{
		{[]byte("SET"), []byte("a"), []byte("1")},
		{[]byte("GET"), []byte("a")},
	}
	require.NoError(t, EncodeMany(&buf, cmds))
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\n1\r\n*2\r\n$3\r\nGET\r\n$1\r\na\r\n", buf.String())
}
