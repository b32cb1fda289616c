package parser

import (
	"fmt"

	"github.com/jsp-lqk/metapipe-redis/internal/conn"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

// SlotRange is one entry of a CLUSTER SLOTS reply: the inclusive slot
// range owned by Endpoint.
type SlotRange struct {
	Start, End int
	Endpoint   conn.Endpoint
}

// ClusterSlots parses a CLUSTER SLOTS reply: an array of
// [start, end, [host, port, ...], [host, port, ...]*] entries. Only the
// master entry (the first node triple) is consulted; replica entries are
// ignored, per this module's read/write routing scope.
func ClusterSlots(v resp.Value) ([]SlotRange, error) {
	if v.Kind != resp.KindArray {
		return nil, fmt.Errorf("parser: cluster slots expects an array reply, got %v", v.Kind)
	}
	out := make([]SlotRange, 0, len(v.Array))
	for _, entry := range v.Array {
		if entry.Kind != resp.KindArray || len(entry.Array) < 3 {
			return nil, fmt.Errorf("parser: malformed cluster slots entry")
		}
		start, err := Integer(entry.Array[0])
		if err != nil {
			return nil, fmt.Errorf("parser: cluster slots start: %w", err)
		}
		end, err := Integer(entry.Array[1])
		if err != nil {
			return nil, fmt.Errorf("parser: cluster slots end: %w", err)
		}
		node := entry.Array[2]
		if node.Kind != resp.KindArray || len(node.Array) < 2 {
			return nil, fmt.Errorf("parser: malformed cluster slots node triple")
		}
		host := string(node.Array[0].Str)
		port, err := Integer(node.Array[1])
		if err != nil {
			return nil, fmt.Errorf("parser: cluster slots port: %w", err)
		}
		out = append(out, SlotRange{
			Start:    int(start),
			End:      int(end),
			Endpoint: conn.Endpoint(fmt.Sprintf("%s:%d", host, port)),
		})
	}
	return out, nil
}
