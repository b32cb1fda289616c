package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

// InfoSection is the flat key/value body of one INFO section.
type InfoSection map[string]string

// Info parses an INFO reply's bulk string body into a mapping from
// section name (the word following "# ") to its key/value pairs, split on
// the first ":" of each line. Lines before the first "#" header are
// folded into a "default" section.
func Info(v resp.Value) (map[string]InfoSection, error) {
	if v.Kind != resp.KindBulkString {
		return nil, fmt.Errorf("parser: info expects a bulk string reply, got %v", v.Kind)
	}
	out := map[string]InfoSection{}
	section := "default"
	out[section] = InfoSection{}

	for _, line := range bytes.Split(v.Str, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '#' {
			section = strings.TrimSpace(string(line[1:]))
			if _, ok := out[section]; !ok {
				out[section] = InfoSection{}
			}
			continue
		}
		i := bytes.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		key := string(line[:i])
		val := string(line[i+1:])
		out[section][key] = val
	}
	return out, nil
}
