package orchestrator

// NoticeKind tells the UI what happened in the room.
type NoticeKind int

const (
	NoticeRoomCreated NoticeKind = iota
	NoticeRoomJoined
	NoticeRoomFull
	NoticeMediaFailed
	NoticePeerReady
	NoticePeerLeft
	NoticeRemoteTrack
	NoticeConnected
	NoticeChat
	NoticeLeft
	NoticeDisconnected
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeRoomCreated:
		return "room-created"
	case NoticeRoomJoined:
		return "room-joined"
	case NoticeRoomFull:
		return "room-full"
	case NoticeMediaFailed:
		return "media-failed"
	case NoticePeerReady:
		return "peer-ready"
	case NoticePeerLeft:
		return "peer-left"
	case NoticeRemoteTrack:
		return "remote-track"
	case NoticeConnected:
		return "connected"
	case NoticeChat:
		return "chat"
	case NoticeLeft:
		return "left"
	case NoticeDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Notice is a user-facing room event.
type Notice struct {
	Kind   NoticeKind
	Room   string
	UserID string
	Text   string
	Err    error
}
