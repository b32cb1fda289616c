// Package protocol pairs the RESP codec with a Connection, exposing the
// send/send_many/subscribe operations the Command Dispatcher and Pipeline
// build on.
package protocol

import (
	"bytes"

	"github.com/hashicorp/go-hclog"

	"github.com/jsp-lqk/metapipe-redis/internal/conn"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

// Protocol owns a Connection and a Decoder, and drives the read-some /
// decode loop until it has as many complete Values as were requested.
type Protocol struct {
	c      *conn.Connection
	dec    *resp.Decoder
	logger hclog.Logger
}

// New returns a Protocol bound to c.
func New(c *conn.Connection, logger hclog.Logger) *Protocol {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Protocol{c: c, dec: resp.NewDecoder(), logger: logger.Named("protocol")}
}

// Connection returns the Connection currently in use.
func (p *Protocol) Connection() *conn.Connection {
	return p.c
}

// SetConnection hot-swaps the underlying Connection, used by the
// Dispatcher to redirect after a MOVED/ASK reply. The decode buffer is
// reset since it is scoped to a single Connection's byte stream.
func (p *Protocol) SetConnection(c *conn.Connection) {
	p.c = c
	p.dec = resp.NewDecoder()
}

// Send encodes one command, writes it, and reads until exactly one RESP
// Value has been decoded.
func (p *Protocol) Send(tokens [][]byte) (resp.Value, error) {
	if err := p.write(tokens); err != nil {
		return resp.Value{}, err
	}
	return p.decodeOne()
}

// SendMany encodes and writes every command in cmds as one contiguous
// buffer, then decodes exactly len(cmds) values from the reply stream in
// order. Redis's in-order pipelining guarantees response order matches
// request order.
func (p *Protocol) SendMany(cmds [][][]byte) ([]resp.Value, error) {
	var buf bytes.Buffer
	if err := resp.EncodeMany(&buf, cmds); err != nil {
		return nil, err
	}
	if err := p.c.WriteAll(buf.Bytes()); err != nil {
		return nil, err
	}
	out := make([]resp.Value, 0, len(cmds))
	for i := 0; i < len(cmds); i++ {
		v, err := p.decodeOne()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Subscribe sends command once and returns a Subscription that yields one
// decoded reply per Next call. The Protocol is unusable for any other
// command for the lifetime of the Subscription: Pub/Sub takes over the
// Connection until Close sends unsubscribe and consumes its reply.
func (p *Protocol) Subscribe(command [][]byte) (*Subscription, error) {
	if err := p.write(command); err != nil {
		return nil, err
	}
	return &Subscription{p: p}, nil
}

// Subscription is a blocking iterator over a Pub/Sub reply stream: callers
// opt into the loop and out of ordinary command dispatch on the underlying
// Protocol for as long as the Subscription is open.
type Subscription struct {
	p      *Protocol
	closed bool
}

// Next blocks until the next message arrives and returns it. It must not
// be called after Close.
func (s *Subscription) Next() (resp.Value, error) {
	return s.p.decodeOne()
}

// Close sends unsubscribe, consumes its reply, and returns the Protocol to
// ordinary command dispatch.
func (s *Subscription) Close(unsubscribe [][]byte) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.p.write(unsubscribe); err != nil {
		return err
	}
	_, err := s.p.decodeOne()
	return err
}

func (p *Protocol) write(tokens [][]byte) error {
	var buf bytes.Buffer
	if err := resp.Encode(&buf, tokens); err != nil {
		return err
	}
	return p.c.WriteAll(buf.Bytes())
}

func (p *Protocol) decodeOne() (resp.Value, error) {
	for {
		v, err := p.dec.Decode()
		if err == nil {
			return v, nil
		}
		if err != resp.ErrNeedMore {
			return resp.Value{}, err
		}
		b, rerr := p.c.ReadSome()
		if rerr != nil {
			return resp.Value{}, rerr
		}
		p.dec.Feed(b)
	}
}
