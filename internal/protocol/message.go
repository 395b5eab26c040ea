package protocol

import "encoding/json"

// Message is the envelope for every signaling frame exchanged between a
// client and the signaling server, in both directions.
type Message struct {
	Type    string          `json:"type" msgpack:"type"`
	Room    string          `json:"room,omitempty" msgpack:"room,omitempty"`
	UserID  string          `json:"userId,omitempty" msgpack:"userId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Client to server.
const (
	TypeJoinRoom  = "joinRoom"
	TypeLeaveRoom = "leaveRoom"
	TypeReady     = "ready"
	TypeChat      = "chat"
)

// Server to client.
const (
	TypeRoomCreated  = "roomCreated"
	TypeRoomJoined   = "roomJoined"
	TypeRoomIsFull   = "roomIsFull"
	TypeUserLeaved   = "userLeaved"
	TypeSomeoneReady = "someoneReady"
	TypeSendMessage  = "sendMessage"
)

// Relayed verbatim in both directions.
const (
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypeCandidate = "candidate"
)

// IsRelay reports whether messages of type t are passed through to the
// other members of a room without inspection.
func IsRelay(t string) bool {
	switch t {
	case TypeOffer, TypeAnswer, TypeCandidate:
		return true
	}
	return false
}

func JoinRoom(room string) *Message  { return &Message{Type: TypeJoinRoom, Room: room} }
func LeaveRoom(room string) *Message { return &Message{Type: TypeLeaveRoom, Room: room} }
func Ready(room string) *Message     { return &Message{Type: TypeReady, Room: room} }

func RoomCreated(room string) *Message { return &Message{Type: TypeRoomCreated, Room: room} }
func RoomIsFull(room string) *Message  { return &Message{Type: TypeRoomIsFull, Room: room} }

func RoomJoined(room, userID string) *Message {
	return &Message{Type: TypeRoomJoined, Room: room, UserID: userID}
}

func UserLeaved(userID string) *Message {
	return &Message{Type: TypeUserLeaved, UserID: userID}
}

func SomeoneReady(room, userID string) *Message {
	return &Message{Type: TypeSomeoneReady, Room: room, UserID: userID}
}

// Relay builds an offer, answer or candidate message carrying an already
// encoded payload.
func Relay(kind, room string, payload json.RawMessage) *Message {
	return &Message{Type: kind, Room: room, Payload: payload}
}

// NewRelay marshals v as the payload of a relay message.
func NewRelay(kind, room string, v any) (*Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Relay(kind, room, b), nil
}

// Chat builds a chat line for room.
func Chat(room, text string) (*Message, error) {
	b, err := json.Marshal(ChatPayload{Text: text})
	if err != nil {
		return nil, err
	}
	return &Message{Type: TypeChat, Room: room, Payload: b}, nil
}

// SendMessage is the server's fan-out of a chat line.
func SendMessage(room, userID string, payload json.RawMessage) *Message {
	return &Message{Type: TypeSendMessage, Room: room, UserID: userID, Payload: payload}
}

// ChatPayload is the body of chat and sendMessage frames.
type ChatPayload struct {
	Text string `json:"text"`
}

// DecodePayload unmarshals the message payload into v.
func (m *Message) DecodePayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}
