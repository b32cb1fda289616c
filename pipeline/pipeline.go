// Package pipeline accumulates a sequence of Command Descriptions and
// runs them as one batch round-trip, aligning the reply stream back to
// enqueue order.
package pipeline

import (
	"fmt"

	"github.com/edwingeng/deque/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/jsp-lqk/metapipe-redis/internal/dispatcher"
	"github.com/jsp-lqk/metapipe-redis/internal/parser"
	"github.com/jsp-lqk/metapipe-redis/internal/protocol"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

// Pipeline is a recorded, ordered sequence of Commands awaiting a single
// batched round-trip.
type Pipeline struct {
	entries *deque.Deque[dispatcher.Command]
}

// New returns an empty Pipeline.
func New() *Pipeline {
	return &Pipeline{entries: deque.NewDeque[dispatcher.Command]()}
}

// Append records cmd at the end of the pipeline.
func (p *Pipeline) Append(cmd dispatcher.Command) {
	p.entries.PushBack(cmd)
}

// Len returns the number of recorded commands.
func (p *Pipeline) Len() int {
	return p.entries.Len()
}

// snapshot returns every recorded command in enqueue order without
// disturbing the deque: each entry is popped off the front and pushed
// back onto the back, which restores the original order once the whole
// queue has been cycled through once.
func (p *Pipeline) snapshot() []dispatcher.Command {
	n := p.entries.Len()
	out := make([]dispatcher.Command, n)
	for i := 0; i < n; i++ {
		out[i] = p.entries.PopFront()
	}
	for _, cmd := range out {
		p.entries.PushBack(cmd)
	}
	return out
}

// Keys returns the ordered list of first-keys across every recorded
// command that has one, for routing. Cross-slot pipelines are the
// caller's responsibility; Client.Pipeline routes on the first of these.
func (p *Pipeline) Keys() [][]byte {
	cmds := p.snapshot()
	keys := make([][]byte, 0, len(cmds))
	for _, cmd := range cmds {
		if key, ok := cmd.FirstKey(); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// Wire returns the wire form of every recorded command, in enqueue order.
func (p *Pipeline) Wire() [][][]byte {
	cmds := p.snapshot()
	wire := make([][][]byte, len(cmds))
	for i, cmd := range cmds {
		wire[i] = cmd.Wire()
	}
	return wire
}

// Execute sends every recorded command through proto as one batch and
// returns one result per position, in enqueue order. A position whose
// reply is an in-band RESP Error holds that error's classified Go error
// instead of a value; callers inspect positions rather than getting the
// whole call rejected. If the batch round-trip itself fails at the
// transport level, every position is folded into a single
// multierror.Error naming which command it belonged to, and that is
// returned as the sole error.
func (p *Pipeline) Execute(proto *protocol.Protocol) ([]any, error) {
	cmds := p.snapshot()
	n := len(cmds)
	if n == 0 {
		return nil, nil
	}

	wire := make([][][]byte, n)
	for i, cmd := range cmds {
		wire[i] = cmd.Wire()
	}

	values, err := proto.SendMany(wire)
	if err != nil {
		var result *multierror.Error
		for i, cmd := range cmds {
			name := "?"
			if len(cmd.Tokens) > 0 {
				name = string(cmd.Tokens[0])
			}
			result = multierror.Append(result, fmt.Errorf("pipeline: position %d (%s): %w", i, name, err))
		}
		return nil, result.ErrorOrNil()
	}

	out := make([]any, n)
	for i, cmd := range cmds {
		v := values[i]
		if e, isError := resp.ErrorOf(v); isError {
			out[i] = dispatcher.ClassifyError(e)
			continue
		}
		if cmd.ParserID == parser.NoneID {
			out[i] = v
			continue
		}
		parsed, perr := parser.Apply(cmd.ParserID, v)
		if perr != nil {
			out[i] = perr
			continue
		}
		out[i] = parsed
	}
	return out, nil
}
