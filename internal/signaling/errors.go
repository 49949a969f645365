package signaling

import "errors"

var (
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrRateLimited     = errors.New("rate limited")
	ErrNotJoined       = errors.New("not joined to a room")
	ErrUnknownEvent    = errors.New("unknown event")
	ErrTargetNotInRoom = errors.New("target user not in room")
)
