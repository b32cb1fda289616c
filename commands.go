package redis

import (
	"fmt"

	"github.com/jsp-lqk/metapipe-redis/internal/parser"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

// call resolves name against the Client's configured version, builds its
// Command Description, and executes it through the Dispatcher.
func (c *Client) call(name string, args ...[]byte) (any, error) {
	if err := c.ensureReady(); err != nil {
		return nil, err
	}
	entry, err := lookupCommand(c.cfg.Version, name)
	if err != nil {
		return nil, err
	}
	cmd, err := entry.build(args)
	if err != nil {
		return nil, err
	}
	return c.disp.Execute(cmd)
}

// Ping issues PING, with an optional echoed message.
func (c *Client) Ping(message ...[]byte) (resp.Value, error) {
	v, err := c.call("PING", message...)
	if err != nil {
		return resp.Value{}, err
	}
	return v.(resp.Value), nil
}

// Auth issues AUTH against the configured server, outside the handshake
// (e.g. to re-authenticate on a long-lived Client after a password
// rotation).
func (c *Client) Auth(password string) error {
	_, err := c.call("AUTH", []byte(password))
	return err
}

// Select issues SELECT against the configured server, outside the
// handshake.
func (c *Client) Select(db int) error {
	_, err := c.call("SELECT", []byte(fmt.Sprintf("%d", db)))
	return err
}

// Get returns the value at key, or a Null BulkString Value if absent.
func (c *Client) Get(key string) (resp.Value, error) {
	v, err := c.call("GET", []byte(key))
	if err != nil {
		return resp.Value{}, err
	}
	return v.(resp.Value), nil
}

// Set stores value at key.
func (c *Client) Set(key string, value []byte) (resp.Value, error) {
	v, err := c.call("SET", []byte(key), value)
	if err != nil {
		return resp.Value{}, err
	}
	return v.(resp.Value), nil
}

// Del removes one or more keys and returns the count actually removed.
func (c *Client) Del(keys ...string) (int64, error) {
	byteKeys := make([][]byte, len(keys))
	for i, k := range keys {
		byteKeys[i] = []byte(k)
	}
	v, err := c.call("DEL", byteKeys...)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Incr increments the integer value at key by one and returns the result.
func (c *Client) Incr(key string) (int64, error) {
	v, err := c.call("INCR", []byte(key))
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// HGetAll returns every field/value pair of the hash at key.
func (c *Client) HGetAll(key string) (map[string][]byte, error) {
	v, err := c.call("HGETALL", []byte(key))
	if err != nil {
		return nil, err
	}
	return v.(map[string][]byte), nil
}

// Info returns the server's INFO reply, split into sections.
func (c *Client) Info(section ...string) (map[string]parser.InfoSection, error) {
	var args [][]byte
	if len(section) > 0 {
		args = [][]byte{[]byte(section[0])}
	}
	v, err := c.call("INFO", args...)
	if err != nil {
		return nil, err
	}
	return v.(map[string]parser.InfoSection), nil
}

// ClusterSlots issues CLUSTER SLOTS and returns the parsed slot ranges,
// without touching the Client's own Cluster Map.
func (c *Client) ClusterSlots() ([]parser.SlotRange, error) {
	v, err := c.call("CLUSTER SLOTS")
	if err != nil {
		return nil, err
	}
	return v.([]parser.SlotRange), nil
}

// Version reports the command surface this Client was configured for.
func (c *Client) Version() string {
	return c.cfg.Version
}
