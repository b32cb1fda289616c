package dispatcher

import (
	"errors"
	"fmt"

	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

// Sentinels for the non-redirection error classifications a command reply
// can surface. MOVED and ASK are handled internally and never reach a
// caller as one of these.
var (
	ErrGeneric     = errors.New("redis: error")
	ErrClusterDown = errors.New("redis: CLUSTERDOWN")
	ErrLoading     = errors.New("redis: LOADING")
	ErrNoAuth      = errors.New("redis: NOAUTH")
	ErrWrongType   = errors.New("redis: WRONGTYPE")
	ErrBusy        = errors.New("redis: BUSY")
	ErrOom         = errors.New("redis: OOM")
	ErrNoScript    = errors.New("redis: NOSCRIPT")
	ErrReadOnly    = errors.New("redis: READONLY")
	ErrExecAbort   = errors.New("redis: EXECABORT")
)

// ErrTooManyRedirections is returned when MOVED/ASK handling exceeds the
// configured retry cap, guarding against pathological oscillation across
// a migrating cluster mid-resharding.
var ErrTooManyRedirections = errors.New("dispatcher: too many redirections")

// ClassifyError maps an in-band RESP Error to its sentinel-wrapped Go
// error. Exported for callers (like pipeline) that inspect a reply
// stream without routing it through Execute.
func ClassifyError(e resp.Error) error {
	return classify(e)
}

func classify(e resp.Error) error {
	var sentinel error
	switch e.Prefix() {
	case "CLUSTERDOWN":
		sentinel = ErrClusterDown
	case "LOADING":
		sentinel = ErrLoading
	case "NOAUTH":
		sentinel = ErrNoAuth
	case "WRONGTYPE":
		sentinel = ErrWrongType
	case "BUSY":
		sentinel = ErrBusy
	case "OOM":
		sentinel = ErrOom
	case "NOSCRIPT":
		sentinel = ErrNoScript
	case "READONLY":
		sentinel = ErrReadOnly
	case "EXECABORT":
		sentinel = ErrExecAbort
	default:
		sentinel = ErrGeneric
	}
	return fmt.Errorf("%w: %s", sentinel, e.Error())
}
