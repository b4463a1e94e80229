package feed

import "errors"

// Sentinel errors for the round feed.
var (
	ErrClosed      = errors.New("feed closed")
	ErrEncode      = errors.New("feed message encode failed")
	ErrUnknownType = errors.New("unknown feed message type")
)
