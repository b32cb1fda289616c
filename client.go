// Package redis is the Client Facade: configuration, the AUTH/SELECT/
// CLUSTER SLOTS handshake, raw and typed command execution, and pipelining.
package redis

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jsp-lqk/metapipe-redis/config"
	"github.com/jsp-lqk/metapipe-redis/internal/cluster"
	"github.com/jsp-lqk/metapipe-redis/internal/conn"
	"github.com/jsp-lqk/metapipe-redis/internal/dispatcher"
	"github.com/jsp-lqk/metapipe-redis/internal/protocol"
	"github.com/jsp-lqk/metapipe-redis/internal/rawcmd"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
	"github.com/jsp-lqk/metapipe-redis/pipeline"
)

// sessionState tracks a Protocol's handshake progress:
// Fresh -> Authenticated -> DbSelected -> Ready [-> ClusterPrimed]. Any
// transport error drops the Protocol back to Fresh; the next call replays
// the handshake from scratch.
type sessionState int

const (
	stateFresh sessionState = iota
	stateAuthenticated
	stateDbSelected
	stateReady
	stateClusterPrimed
)

// Client is the library-public entry point. It owns exactly one default
// Protocol (single-threaded, blocking; not safe for concurrent use
// without external mutual exclusion) plus, in cluster mode, a Cluster
// Map of additional per-endpoint connections.
type Client struct {
	cfg    *config.Config
	logger hclog.Logger

	proto   *protocol.Protocol
	cluster *cluster.Map
	disp    *dispatcher.Dispatcher

	state sessionState
}

// clientOptions accumulates what Option funcs configure: the Config that
// New builds from defaults, plus a logger New otherwise defaults to a
// no-op one.
type clientOptions struct {
	cfg    *config.Config
	logger hclog.Logger
}

// Option configures a Client at construction.
type Option func(*clientOptions)

// WithServer sets the default endpoint.
func WithServer(endpoint string) Option {
	return func(o *clientOptions) { o.cfg.Server = endpoint }
}

// WithTimeout sets the socket deadline, in seconds.
func WithTimeout(seconds int) Option {
	return func(o *clientOptions) { o.cfg.Timeout = seconds }
}

// WithDatabase selects a database index to SELECT on handshake.
func WithDatabase(db int) Option {
	return func(o *clientOptions) { o.cfg.Database = db }
}

// WithPassword sets the AUTH password issued on handshake.
func WithPassword(password string) Option {
	return func(o *clientOptions) { o.cfg.Password = password }
}

// WithCluster enables cluster-mode routing.
func WithCluster(initOnStart, initOnError bool) Option {
	return func(o *clientOptions) {
		o.cfg.Cluster.Enabled = true
		o.cfg.Cluster.InitOnStart = initOnStart
		o.cfg.Cluster.InitOnError = initOnError
	}
}

// WithVersion selects the command surface exposed by the Facade.
func WithVersion(version string) Option {
	return func(o *clientOptions) { o.cfg.Version = version }
}

// WithLogger attaches a structured logger to every subsystem the Facade
// wires up (the Connection, Protocol, Dispatcher, and, in cluster mode,
// the Cluster Map). Absent this Option, New wires in hclog.NewNullLogger
// and every log call site is inert.
func WithLogger(logger hclog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// New builds a Client from compiled-in defaults plus opts.
func New(opts ...Option) (*Client, error) {
	o := &clientOptions{cfg: config.Default(), logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return newClient(o.cfg, o.logger)
}

// NewFromConfig builds a Client from an already-merged Config (e.g. one
// produced by config.Load), with no structured logging.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	return newClient(cfg, hclog.NewNullLogger())
}

func newClient(cfg *config.Config, logger hclog.Logger) (*Client, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second

	c := conn.New(conn.Endpoint(cfg.Server), timeout, logger)
	proto := protocol.New(c, logger)

	client := &Client{
		cfg:    cfg,
		logger: logger,
		proto:  proto,
		state:  stateFresh,
	}

	if cfg.Cluster.Enabled {
		client.cluster = cluster.New(conn.Endpoint(cfg.Server), timeout, logger)
		for _, sr := range cfg.Cluster.Clusters {
			for slot := sr.Start; slot <= sr.End; slot++ {
				client.cluster.AddCluster(uint16(slot), conn.Endpoint(sr.Endpoint))
			}
		}
		client.disp = dispatcher.New(proto, timeout, dispatcher.WithCluster(client.cluster, cfg.Cluster.InitOnError), dispatcher.WithLogger(logger))
	} else {
		client.disp = dispatcher.New(proto, timeout, dispatcher.WithLogger(logger))
	}

	return client, nil
}

// ensureReady runs the handshake if it has not yet completed on the
// current Protocol instance. Idempotent: a Client already at Ready (or
// ClusterPrimed) is a no-op, unless the Protocol's Connection is no longer
// Open (never opened, closed, or Broken by a transport error), in which
// case the state drops back to Fresh and the handshake runs again.
func (c *Client) ensureReady() error {
	if c.proto.Connection().State() != conn.Open {
		c.state = stateFresh
	}
	if c.cfg.Password != "" && c.state < stateAuthenticated {
		if _, err := c.disp.Execute(mustBuild("AUTH", [][]byte{[]byte(c.cfg.Password)})); err != nil {
			return fmt.Errorf("redis: handshake AUTH: %w", err)
		}
		c.state = stateAuthenticated
	} else if c.state < stateAuthenticated {
		c.state = stateAuthenticated
	}

	if c.cfg.Database > 0 && c.state < stateDbSelected {
		if _, err := c.disp.Execute(mustBuild("SELECT", [][]byte{[]byte(fmt.Sprintf("%d", c.cfg.Database))})); err != nil {
			return fmt.Errorf("redis: handshake SELECT: %w", err)
		}
		c.state = stateDbSelected
	} else if c.state < stateDbSelected {
		c.state = stateDbSelected
	}

	if c.state < stateReady {
		c.state = stateReady
	}

	if c.cfg.Cluster.Enabled && c.cfg.Cluster.InitOnStart && c.state < stateClusterPrimed {
		if err := c.disp.RefreshClusterSlots(); err != nil {
			return fmt.Errorf("redis: handshake CLUSTER SLOTS: %w", err)
		}
		c.state = stateClusterPrimed
	}

	return nil
}

func mustBuild(name string, args [][]byte) dispatcher.Command {
	entry := commandRegistry[name]
	cmd, err := entry.build(args)
	if err != nil {
		panic(err) // handshake arguments are constructed internally and always valid
	}
	return cmd
}

// ExecuteRaw sends tokens as a single command and returns the raw reply.
func (c *Client) ExecuteRaw(tokens ...[]byte) (resp.Value, error) {
	if err := c.ensureReady(); err != nil {
		return resp.Value{}, err
	}
	cmd := dispatcher.Command{Tokens: tokens}
	if len(tokens) > 1 {
		cmd.Keys = [][]byte{tokens[1]}
	}
	v, err := c.disp.Execute(cmd)
	if err != nil {
		return resp.Value{}, err
	}
	return v.(resp.Value), nil
}

// ExecuteRawString parses line with the raw-string tokenizer, then
// executes it exactly as ExecuteRaw would.
func (c *Client) ExecuteRawString(line string) (resp.Value, error) {
	tokens := rawcmd.Parse(line)
	if len(tokens) == 0 {
		return resp.Value{}, fmt.Errorf("redis: empty command line")
	}
	byteTokens := make([][]byte, len(tokens))
	for i, t := range tokens {
		byteTokens[i] = []byte(t)
	}
	return c.ExecuteRaw(byteTokens...)
}

// NewPipeline returns an empty Pipeline for caller assembly.
func (c *Client) NewPipeline() *pipeline.Pipeline {
	return pipeline.New()
}

// Pipeline runs fn (if non-nil) against a fresh Pipeline, routes it to
// the connection for its first recorded key, executes it as one batch,
// and returns the aligned results.
func (c *Client) Pipeline(fn func(*pipeline.Pipeline)) ([]any, error) {
	if err := c.ensureReady(); err != nil {
		return nil, err
	}
	pl := pipeline.New()
	if fn != nil {
		fn(pl)
	}

	proto := c.proto
	if c.cfg.Cluster.Enabled {
		if keys := pl.Keys(); len(keys) > 0 {
			proto.SetConnection(c.cluster.ConnectionForKey(keys[0]))
		}
	}
	return pl.Execute(proto)
}
