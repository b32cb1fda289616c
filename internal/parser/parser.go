// Package parser post-processes decoded RESP values into domain shapes.
// Every parser here is a pure function of a resp.Value; selection happens
// by an opaque ID recorded on a Command Description.
package parser

import (
	"fmt"

	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

// ID selects a parser, recorded on a dispatcher Command.
type ID int

const (
	// NoneID means "return the raw decoded Value unchanged."
	NoneID ID = iota
	IdentityID
	IntegerID
	BoolID
	KVPairsID
	ClusterSlotsID
	InfoID
)

// Func is the shape every parser implements: a pure transform from a
// decoded Value to a domain value, or an error if the shape doesn't match.
type Func func(resp.Value) (any, error)

var registry = map[ID]Func{
	NoneID:         func(v resp.Value) (any, error) { return v, nil },
	IdentityID:     func(v resp.Value) (any, error) { return v, nil },
	IntegerID:      func(v resp.Value) (any, error) { return Integer(v) },
	BoolID:         func(v resp.Value) (any, error) { return Bool(v) },
	KVPairsID:      func(v resp.Value) (any, error) { return KVPairs(v) },
	ClusterSlotsID: func(v resp.Value) (any, error) { return ClusterSlots(v) },
	InfoID:         func(v resp.Value) (any, error) { return Info(v) },
}

// Apply runs the parser registered for id against v.
func Apply(id ID, v resp.Value) (any, error) {
	fn, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("parser: unknown parser id %d", id)
	}
	return fn(v)
}

// Integer extracts an int64 from an Integer reply (also accepting a
// BulkString of digits, as some commands reply with a bulk integer).
func Integer(v resp.Value) (int64, error) {
	switch v.Kind {
	case resp.KindInteger:
		return v.Int, nil
	case resp.KindBulkString:
		if v.Null {
			return 0, nil
		}
		var n int64
		neg := false
		for i, c := range v.Str {
			switch {
			case i == 0 && c == '-':
				neg = true
			case c >= '0' && c <= '9':
				n = n*10 + int64(c-'0')
			default:
				return 0, fmt.Errorf("parser: not an integer: %q", v.Str)
			}
		}
		if neg {
			n = -n
		}
		return n, nil
	default:
		return 0, fmt.Errorf("parser: not an integer reply: %v", v.Kind)
	}
}

// Bool interprets an Integer reply as a boolean: nonzero is true.
func Bool(v resp.Value) (bool, error) {
	n, err := Integer(v)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// KVPairs folds a flat array reply ([k1, v1, k2, v2, ...]) into a mapping,
// the shape used by HGETALL/CONFIG GET-style replies.
func KVPairs(v resp.Value) (map[string][]byte, error) {
	if v.Kind != resp.KindArray {
		return nil, fmt.Errorf("parser: kv pairs expects an array reply, got %v", v.Kind)
	}
	if len(v.Array)%2 != 0 {
		return nil, fmt.Errorf("parser: kv pairs array has odd length %d", len(v.Array))
	}
	out := make(map[string][]byte, len(v.Array)/2)
	for i := 0; i < len(v.Array); i += 2 {
		k := v.Array[i]
		val := v.Array[i+1]
		if k.Kind != resp.KindBulkString && k.Kind != resp.KindSimpleString {
			return nil, fmt.Errorf("parser: kv pairs key at index %d is not a string reply", i)
		}
		out[string(k.Str)] = val.Str
	}
	return out, nil
}
