package service

import "errors"

var (
	// ErrInvalidParameters covers malformed credentials, destinations and
	// messages. No upstream call has been made when it is returned.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrUpstream wraps telephony failures on paths that must report them.
	ErrUpstream = errors.New("upstream request failed")
)
