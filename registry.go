package redis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jsp-lqk/metapipe-redis/internal/dispatcher"
	"github.com/jsp-lqk/metapipe-redis/internal/parser"
)

// commandEntry is one row of the (version, name) -> Command Description
// registry: minVersion gates availability, build produces the wire-ready
// Command for a given call.
type commandEntry struct {
	minVersion string
	build      func(args [][]byte) (dispatcher.Command, error)
}

var commandRegistry = map[string]commandEntry{
	"PING": {minVersion: "2.6", build: func(args [][]byte) (dispatcher.Command, error) {
		tokens := [][]byte{[]byte("PING")}
		if len(args) > 0 {
			tokens = append(tokens, args[0])
		}
		return dispatcher.Command{Tokens: tokens, ParserID: parser.IdentityID}, nil
	}},
	"AUTH": {minVersion: "2.6", build: func(args [][]byte) (dispatcher.Command, error) {
		if len(args) != 1 {
			return dispatcher.Command{}, fmt.Errorf("redis: AUTH takes exactly one argument")
		}
		return dispatcher.Command{Tokens: [][]byte{[]byte("AUTH")}, Params: []any{args[0]}, ParserID: parser.IdentityID}, nil
	}},
	"SELECT": {minVersion: "2.6", build: func(args [][]byte) (dispatcher.Command, error) {
		if len(args) != 1 {
			return dispatcher.Command{}, fmt.Errorf("redis: SELECT takes exactly one argument")
		}
		return dispatcher.Command{Tokens: [][]byte{[]byte("SELECT")}, Params: []any{args[0]}, ParserID: parser.IdentityID}, nil
	}},
	"GET": {minVersion: "2.6", build: func(args [][]byte) (dispatcher.Command, error) {
		if len(args) != 1 {
			return dispatcher.Command{}, fmt.Errorf("redis: GET takes exactly one argument")
		}
		return dispatcher.Command{Tokens: [][]byte{[]byte("GET")}, Keys: [][]byte{args[0]}, ParserID: parser.IdentityID}, nil
	}},
	"SET": {minVersion: "2.6", build: func(args [][]byte) (dispatcher.Command, error) {
		if len(args) != 2 {
			return dispatcher.Command{}, fmt.Errorf("redis: SET takes exactly two arguments")
		}
		return dispatcher.Command{Tokens: [][]byte{[]byte("SET")}, Keys: [][]byte{args[0]}, Params: []any{args[1]}, ParserID: parser.IdentityID}, nil
	}},
	"DEL": {minVersion: "2.6", build: func(args [][]byte) (dispatcher.Command, error) {
		if len(args) == 0 {
			return dispatcher.Command{}, fmt.Errorf("redis: DEL takes at least one argument")
		}
		return dispatcher.Command{Tokens: [][]byte{[]byte("DEL")}, Keys: args, Params: []any{args}, ParserID: parser.IntegerID}, nil
	}},
	"INCR": {minVersion: "2.6", build: func(args [][]byte) (dispatcher.Command, error) {
		if len(args) != 1 {
			return dispatcher.Command{}, fmt.Errorf("redis: INCR takes exactly one argument")
		}
		return dispatcher.Command{Tokens: [][]byte{[]byte("INCR")}, Keys: [][]byte{args[0]}, ParserID: parser.IntegerID}, nil
	}},
	"HGETALL": {minVersion: "2.6", build: func(args [][]byte) (dispatcher.Command, error) {
		if len(args) != 1 {
			return dispatcher.Command{}, fmt.Errorf("redis: HGETALL takes exactly one argument")
		}
		return dispatcher.Command{Tokens: [][]byte{[]byte("HGETALL")}, Keys: [][]byte{args[0]}, ParserID: parser.KVPairsID}, nil
	}},
	"INFO": {minVersion: "2.6", build: func(args [][]byte) (dispatcher.Command, error) {
		tokens := [][]byte{[]byte("INFO")}
		tokens = append(tokens, args...)
		return dispatcher.Command{Tokens: tokens, ParserID: parser.InfoID}, nil
	}},
	"CLUSTER SLOTS": {minVersion: "3.0", build: func(args [][]byte) (dispatcher.Command, error) {
		return dispatcher.Command{Tokens: [][]byte{[]byte("CLUSTER"), []byte("SLOTS")}, ParserID: parser.ClusterSlotsID}, nil
	}},
}

// lookupCommand resolves name against the configured version, rejecting
// commands introduced after it.
func lookupCommand(version, name string) (commandEntry, error) {
	entry, ok := commandRegistry[strings.ToUpper(name)]
	if !ok {
		return commandEntry{}, fmt.Errorf("redis: unknown command %q", name)
	}
	if versionLess(version, entry.minVersion) {
		return commandEntry{}, fmt.Errorf("redis: command %q requires server version >= %s, client configured for %s", name, entry.minVersion, version)
	}
	return entry, nil
}

// versionLess reports whether a < b, comparing dotted version strings
// ("2.6", "2.8", "3.0", "3.2", ...) numerically component by component.
// "latest" (case-insensitive) never compares less than any dotted
// version: it stands for the newest command surface this client knows
// about, not a numbered release.
func versionLess(a, b string) bool {
	if strings.EqualFold(a, "latest") {
		return false
	}
	if strings.EqualFold(b, "latest") {
		return true
	}
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			return av < bv
		}
	}
	return false
}
