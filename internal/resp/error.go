package resp

import "bytes"

// Error is the in-band RESP Error value, carried as data rather than
// raised, so a caller (the dispatcher) can inspect it before deciding
// whether it represents a redirection to handle internally or a fault to
// surface. It implements error so it can also be returned/wrapped once a
// caller decides to raise it.
type Error struct {
	Msg []byte
}

func (e Error) Error() string { return string(e.Msg) }

// Prefix returns the first whitespace-delimited word of the error message,
// the classification token RESP errors use ("ERR", "MOVED", "ASK",
// "CLUSTERDOWN", "LOADING", "NOAUTH", "WRONGTYPE", "BUSY", "OOM",
// "NOSCRIPT", "READONLY", "EXECABORT", ...).
func (e Error) Prefix() string {
	i := bytes.IndexByte(e.Msg, ' ')
	if i < 0 {
		return string(e.Msg)
	}
	return string(e.Msg[:i])
}

// Rest returns the error message with its leading classification word and
// one separating space stripped.
func (e Error) Rest() string {
	i := bytes.IndexByte(e.Msg, ' ')
	if i < 0 {
		return ""
	}
	return string(e.Msg[i+1:])
}

// AsValue wraps the error as a decoded RESP Value of kind KindError, the
// in-band representation used throughout decode/dispatch.
func (e Error) AsValue() Value {
	return Value{Kind: KindError, Str: e.Msg}
}

// ErrorOf extracts the Error carried by v, if v is a RESP Error value.
func ErrorOf(v Value) (Error, bool) {
	if v.Kind != KindError {
		return Error{}, false
	}
	return Error{Msg: v.Str}, true
}
