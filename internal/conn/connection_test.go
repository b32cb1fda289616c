package conn

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startEchoServer returns a listener that echoes back whatever it reads.
func startEchoServer(t *testing.T) net.Listener {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					if _, err := c.Write(buf[:n]); err != nil {
						return
					}
				}
			}(c)
		}
	}()
	return l
}

func TestConnectionLazyConnectAndWriteRead(t *testing.T) {
	l := startEchoServer(t)
	defer l.Close()

	c := New(Endpoint(l.Addr().String()), time.Second, nil)
	assert.Equal(t, Fresh, c.State())

	require.NoError(t, c.WriteAll([]byte("ping")))
	assert.Equal(t, Open, c.State())

	var got []byte
	for len(got) < 4 {
		b, err := c.ReadSome()
		require.NoError(t, err)
		got = append(got, b...)
	}
	assert.Equal(t, "ping", string(got))
}

func TestConnectionFailedDialStaysFresh(t *testing.T) {
	// Dial to a port nothing listens on; this should fail to connect.
	c := New(Endpoint("127.0.0.1:1"), 50*time.Millisecond, nil)
	_, err := c.ReadSome()
	assert.Error(t, err)
	assert.Equal(t, Fresh, c.State(), "a failed dial never transitions to Open or Broken")
}

func TestConnectionReopensTransparentlyAfterClose(t *testing.T) {
	l := startEchoServer(t)
	defer l.Close()

	c := New(Endpoint(l.Addr().String()), time.Second, nil)
	require.NoError(t, c.WriteAll([]byte("a")))
	require.NoError(t, c.Close())
	assert.Equal(t, Fresh, c.State())

	require.NoError(t, c.WriteAll([]byte("b")))
	assert.Equal(t, Open, c.State())
}

func TestConnectionTimeoutMarksBroken(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		// Accept but never write a reply: forces the reader to time out.
		time.Sleep(500 * time.Millisecond)
	}()

	c := New(Endpoint(l.Addr().String()), 20*time.Millisecond, nil)
	require.NoError(t, c.WriteAll([]byte("x")))

	_, err = c.ReadSome()
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, Broken, c.State())
}
