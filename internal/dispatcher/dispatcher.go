package dispatcher

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jsp-lqk/metapipe-redis/internal/cluster"
	"github.com/jsp-lqk/metapipe-redis/internal/conn"
	"github.com/jsp-lqk/metapipe-redis/internal/parser"
	"github.com/jsp-lqk/metapipe-redis/internal/protocol"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

// defaultRetryCap bounds the MOVED/ASK redirection loop so a flapping
// cluster can't spin a single command forever; 5 is a practical ceiling,
// not a protocol constant.
const defaultRetryCap = 5

// Dispatcher routes one Command through a Protocol, following MOVED/ASK
// redirection when cluster mode is enabled, and applies the Command's
// Response Parser to a successful reply.
type Dispatcher struct {
	proto       *protocol.Protocol
	cluster     *cluster.Map
	clusterMode bool
	initOnError bool
	retryCap    int
	timeout     time.Duration
	logger      hclog.Logger
}

// Option configures a Dispatcher at construction.
type Option func(*Dispatcher)

// WithCluster enables cluster-mode routing against m, refreshing the
// whole slot table on MOVED when initOnError is set (otherwise only the
// redirected slot is updated).
func WithCluster(m *cluster.Map, initOnError bool) Option {
	return func(d *Dispatcher) {
		d.cluster = m
		d.clusterMode = true
		d.initOnError = initOnError
	}
}

// WithRetryCap overrides the default MOVED/ASK redirection bound.
func WithRetryCap(n int) Option {
	return func(d *Dispatcher) { d.retryCap = n }
}

// WithLogger attaches a structured logger.
func WithLogger(l hclog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New returns a Dispatcher that issues commands through proto, with a
// connect/redirect timeout of timeout for any temporary ASK connections.
func New(proto *protocol.Protocol, timeout time.Duration, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		proto:    proto,
		retryCap: defaultRetryCap,
		timeout:  timeout,
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute routes cmd through the Protocol, handling redirection, and
// returns the parsed domain value (or the raw resp.Value if cmd has no
// ParserID).
func (d *Dispatcher) Execute(cmd Command) (any, error) {
	return d.execute(cmd, 0, false)
}

// execute sends cmd and follows redirection. pinned is true on a retry
// that already landed on an explicit MOVED endpoint (dispatcher.go's
// SetConnection call right before the recursive call below); it skips
// re-routing by the key's slot, since the key's slot and the MOVED slot
// are not guaranteed to be the same slot in refresh-off mode.
func (d *Dispatcher) execute(cmd Command, attempt int, pinned bool) (any, error) {
	if attempt > d.retryCap {
		return nil, ErrTooManyRedirections
	}

	if d.clusterMode && !pinned {
		if key, ok := cmd.FirstKey(); ok {
			d.proto.SetConnection(d.cluster.ConnectionForKey(key))
		}
	}

	v, err := d.proto.Send(cmd.Wire())
	if err != nil {
		return nil, err
	}

	e, isError := resp.ErrorOf(v)
	if !isError {
		if cmd.ParserID == parser.NoneID {
			return v, nil
		}
		return parser.Apply(cmd.ParserID, v)
	}

	switch e.Prefix() {
	case "MOVED":
		slot, endpoint, perr := parseRedirect(e.Rest())
		if perr != nil {
			return nil, perr
		}
		if !d.clusterMode {
			return nil, classify(e)
		}
		if d.initOnError {
			if err := d.RefreshClusterSlots(); err != nil {
				return nil, err
			}
		} else {
			d.cluster.AddCluster(slot, endpoint)
		}
		d.logger.Debug("moved redirect", "slot", slot, "endpoint", endpoint)
		d.proto.SetConnection(d.cluster.ConnectionForEndpoint(endpoint))
		return d.execute(cmd, attempt+1, true)

	case "ASK":
		if !d.clusterMode {
			return nil, classify(e)
		}
		_, endpoint, perr := parseRedirect(e.Rest())
		if perr != nil {
			return nil, perr
		}
		return d.executeAsk(cmd, endpoint)

	default:
		return nil, classify(e)
	}
}

// executeAsk opens a temporary Protocol to endpoint, issues ASKING, then
// resends cmd on that temporary Protocol and returns its result. The
// permanent slot map is never updated by ASK: the redirection is a
// one-shot migration hint for this key only.
func (d *Dispatcher) executeAsk(cmd Command, endpoint conn.Endpoint) (any, error) {
	tempConn := conn.New(endpoint, d.timeout, d.logger)
	defer tempConn.Close()
	tempProto := protocol.New(tempConn, d.logger)

	if _, err := tempProto.Send([][]byte{[]byte("ASKING")}); err != nil {
		return nil, fmt.Errorf("dispatcher: ASKING to %s: %w", endpoint, err)
	}

	v, err := tempProto.Send(cmd.Wire())
	if err != nil {
		return nil, err
	}
	if e, isError := resp.ErrorOf(v); isError {
		return nil, classify(e)
	}
	if cmd.ParserID == parser.NoneID {
		return v, nil
	}
	return parser.Apply(cmd.ParserID, v)
}

// RefreshClusterSlots issues CLUSTER SLOTS against the current default
// endpoint and replaces the whole slot table with the result.
func (d *Dispatcher) RefreshClusterSlots() error {
	refreshConn := d.cluster.ConnectionForEndpoint(d.cluster.DefaultEndpoint())
	refreshProto := protocol.New(refreshConn, d.logger)
	v, err := refreshProto.Send([][]byte{[]byte("CLUSTER"), []byte("SLOTS")})
	if err != nil {
		return fmt.Errorf("dispatcher: refresh cluster slots: %w", err)
	}
	if e, isError := resp.ErrorOf(v); isError {
		return classify(e)
	}
	ranges, err := parser.ClusterSlots(v)
	if err != nil {
		return fmt.Errorf("dispatcher: parse cluster slots: %w", err)
	}
	d.cluster.SetClusters(ranges)
	return nil
}

// parseRedirect parses the "<slot> <endpoint>" body of a MOVED/ASK error.
func parseRedirect(rest string) (uint16, conn.Endpoint, error) {
	i := strings.IndexByte(rest, ' ')
	if i < 0 {
		return 0, "", fmt.Errorf("dispatcher: malformed redirect %q", rest)
	}
	n, err := strconv.ParseUint(rest[:i], 10, 16)
	if err != nil {
		return 0, "", fmt.Errorf("dispatcher: malformed redirect slot %q: %w", rest[:i], err)
	}
	return uint16(n), conn.Endpoint(rest[i+1:]), nil
}
