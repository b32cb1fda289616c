package resp

import (
	"io"
	"strconv"
)

// Encode writes tokens as a RESP multi-bulk array: "*n\r\n" followed by
// "$len\r\n<bytes>\r\n" for each token. Binary-safe; no escaping.
func Encode(w io.Writer, tokens [][]byte) error {
	if _, err := w.Write(header('*', int64(len(tokens)))); err != nil {
		return err
	}
	for _, t := range tokens {
		if _, err := w.Write(header('$', int64(len(t)))); err != nil {
			return err
		}
		if _, err := w.Write(t); err != nil {
			return err
		}
		if _, err := w.Write(crlf); err != nil {
			return err
		}
	}
	return nil
}

// EncodeMany writes each command in cmds as its own multi-bulk array, back
// to back into a single contiguous buffer, matching the "issue as one
// batch" requirement of a pipelined send.
func EncodeMany(w io.Writer, cmds [][][]byte) error {
	for _, c := range cmds {
		if err := Encode(w, c); err != nil {
			return err
		}
	}
	return nil
}

var crlf = []byte("\r\n")

func header(prefix byte, n int64) []byte {
	b := make([]byte, 0, 1+20+2)
	b = append(b, prefix)
	b = append(b, []byte(strconv.FormatInt(n, 10))...)
	b = append(b, crlf...)
	return b
}
