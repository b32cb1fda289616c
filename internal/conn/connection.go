// Package conn owns the byte-oriented transport to a single Redis
// endpoint: dialing, per-syscall read/write deadlines, and lazy
// reconnection after an I/O failure.
package conn

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// State is the lifecycle of a Connection.
type State int

const (
	// Fresh means no socket has been opened yet.
	Fresh State = iota
	// Open means a socket is live and usable.
	Open
	// Broken means an I/O error occurred; the next use must reconnect.
	Broken
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Open:
		return "open"
	case Broken:
		return "broken"
	default:
		return "unknown"
	}
}

// ErrTimeout wraps a deadline exceeded during reply assembly, per the
// requirement that a timeout marks the connection Broken rather than
// leaving it usable in an unknown state.
var ErrTimeout = errors.New("conn: timeout")

const readBufSize = 16 * 1024

// Connection exclusively owns a socket to one Endpoint. It holds no
// decode buffer of its own; streaming RESP reassembly is the codec's
// job, not the transport's.
type Connection struct {
	endpoint Endpoint
	timeout  time.Duration
	logger   hclog.Logger

	mu    sync.Mutex
	state State
	sock  net.Conn
}

// New returns a Connection in the Fresh state; no socket is opened until
// first use.
func New(endpoint Endpoint, timeout time.Duration, logger hclog.Logger) *Connection {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Connection{
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger.Named("conn").With("endpoint", string(endpoint)),
	}
}

// Endpoint returns the address this Connection is bound to.
func (c *Connection) Endpoint() Endpoint {
	return c.endpoint
}

// State reports the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ensureOpen dials if the connection is Fresh or Broken. Must be called
// with c.mu held.
func (c *Connection) ensureOpen() error {
	if c.state == Open {
		return nil
	}
	network, address := c.endpoint.Split()
	sock, err := net.DialTimeout(network, address, c.timeout)
	if err != nil {
		c.logger.Warn("dial failed", "error", err)
		return fmt.Errorf("conn: dial %s: %w", c.endpoint, err)
	}
	c.sock = sock
	c.state = Open
	c.logger.Debug("connected")
	return nil
}

// WriteAll writes b to the socket in full, opening the connection first if
// necessary. The write deadline covers this one syscall sequence, not any
// logical reply that may follow.
func (c *Connection) WriteAll(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if err := c.sock.SetWriteDeadline(c.deadline()); err != nil {
		return c.breakLocked(fmt.Errorf("conn: set write deadline: %w", err))
	}
	for len(b) > 0 {
		n, err := c.sock.Write(b)
		if err != nil {
			return c.breakLocked(c.classify(err))
		}
		b = b[n:]
	}
	return nil
}

// ReadSome performs a single bounded read and returns whatever bytes
// arrived. It never blocks past the configured timeout; a deadline
// expiry marks the connection Broken and returns ErrTimeout.
func (c *Connection) ReadSome() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	if err := c.sock.SetReadDeadline(c.deadline()); err != nil {
		return nil, c.breakLocked(fmt.Errorf("conn: set read deadline: %w", err))
	}
	buf := make([]byte, readBufSize)
	n, err := c.sock.Read(buf)
	if err != nil {
		return nil, c.breakLocked(c.classify(err))
	}
	return buf[:n], nil
}

// Close releases the underlying socket and returns the Connection to the
// Fresh state.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	c.state = Fresh
	return err
}

func (c *Connection) deadline() time.Time {
	if c.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.timeout)
}

// breakLocked marks the connection Broken, logs, and returns the
// classified error. Must be called with c.mu held.
func (c *Connection) breakLocked(err error) error {
	c.state = Broken
	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
	c.logger.Warn("connection broken", "error", err)
	return err
}

func (c *Connection) classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, c.endpoint)
	}
	return fmt.Errorf("conn: %s: %w", c.endpoint, err)
}
