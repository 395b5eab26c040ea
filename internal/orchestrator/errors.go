package orchestrator

import "errors"

var (
	// ErrInvalidRoomName is returned by Join for names the server would drop.
	ErrInvalidRoomName = errors.New("invalid room name")

	// ErrCapacityExceeded is carried by the room-full notice.
	ErrCapacityExceeded = errors.New("room is full")

	// ErrChannelClosed is returned by Run when the server connection drops.
	ErrChannelClosed = errors.New("signaling channel closed")
)

// ErrNotInRoom is returned by room actions before a join was confirmed.
var ErrNotInRoom = errors.New("not in a room")
