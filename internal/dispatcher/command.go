// Package dispatcher routes a single Command through a Protocol, handling
// MOVED/ASK redirection and applying a Response Parser to the result.
package dispatcher

import (
	"github.com/jsp-lqk/metapipe-redis/internal/parser"
)

// Command is a single invocation: the wire tokens, the keys governing
// slot routing (first key wins), extra parameters to splice onto the
// tokens, and an optional post-processor. The wire form is Tokens
// followed by the flattened Params.
type Command struct {
	Tokens   [][]byte
	Keys     [][]byte
	Params   []any
	ParserID parser.ID
}

// Wire returns the flattened byte-string sequence to encode: Tokens
// followed by each Param, splicing any []byte element in directly and any
// [][]byte element in as a flat run, in order.
func (c Command) Wire() [][]byte {
	out := make([][]byte, 0, len(c.Tokens)+len(c.Params))
	out = append(out, c.Tokens...)
	for _, p := range c.Params {
		switch v := p.(type) {
		case []byte:
			out = append(out, v)
		case [][]byte:
			out = append(out, v...)
		case string:
			out = append(out, []byte(v))
		}
	}
	return out
}

// FirstKey returns the key that governs slot routing, if any.
func (c Command) FirstKey() ([]byte, bool) {
	if len(c.Keys) == 0 {
		return nil, false
	}
	return c.Keys[0], true
}
