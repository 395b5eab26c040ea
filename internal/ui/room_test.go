package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jheehg/webrtc-learning/internal/media"
	"github.com/jheehg/webrtc-learning/internal/orchestrator"
	"github.com/jheehg/webrtc-learning/internal/signaling"
)

type fakeController struct {
	status orchestrator.Status
	chats  []string
	leaves int
}

func (f *fakeController) Status() orchestrator.Status { return f.status }

func (f *fakeController) ToggleMute() bool {
	f.status.AudioMuted = !f.status.AudioMuted
	return f.status.AudioMuted
}

func (f *fakeController) ToggleCamera() bool {
	f.status.VideoHidden = !f.status.VideoHidden
	return f.status.VideoHidden
}

func (f *fakeController) SendChat(text string) error {
	f.chats = append(f.chats, text)
	return nil
}

func (f *fakeController) Leave() error {
	f.leaves++
	return nil
}

type countingTrack struct{}

func (countingTrack) ID() string       { return "remote-video" }
func (countingTrack) Kind() media.Kind { return media.KindVideo }
func (countingTrack) StreamID() string { return "s" }
func (countingTrack) Packets() uint64  { return 42 }
func (countingTrack) Bytes() uint64    { return 4200 }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func newModel() (*RoomModel, *fakeController) {
	ctrl := &fakeController{status: orchestrator.Status{Room: "demo", Creator: true, Negotiation: "none"}}
	return NewRoomModel(ctrl, make(chan orchestrator.Notice)), ctrl
}

func TestRoomModelToggles(t *testing.T) {
	m, ctrl := newModel()

	m.Update(key("m"))
	m.Update(key("v"))

	assert.True(t, ctrl.status.AudioMuted)
	assert.True(t, ctrl.status.VideoHidden)
	assert.Contains(t, m.View(), "muted")
	assert.Contains(t, m.View(), "hidden")
}

func TestRoomModelLeaveQuits(t *testing.T) {
	m, ctrl := newModel()

	_, cmd := m.Update(key("l"))

	assert.Equal(t, 1, ctrl.leaves)
	assert.True(t, isQuit(cmd))
	assert.Empty(t, m.View())
}

func TestRoomModelChat(t *testing.T) {
	m, ctrl := newModel()

	m.Update(key("c"))
	require.True(t, m.chatting)
	for _, r := range "hi" {
		m.Update(key(string(r)))
	}
	m.Update(key("enter"))

	assert.Equal(t, []string{"hi"}, ctrl.chats)
	assert.False(t, m.chatting)

	// Keys typed while chatting do not toggle media.
	m.Update(key("c"))
	m.Update(key("m"))
	m.Update(key("esc"))
	assert.False(t, ctrl.status.AudioMuted)
	assert.Equal(t, []string{"hi"}, ctrl.chats)
}

func TestRoomModelNotices(t *testing.T) {
	m, ctrl := newModel()
	ctrl.status.Negotiation = "connected"
	ctrl.status.Remote = []media.RemoteTrack{countingTrack{}}

	_, cmd := m.Update(noticeMsg(orchestrator.Notice{Kind: orchestrator.NoticeConnected, Room: "demo"}))
	assert.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "peer connected")
	assert.Contains(t, view, "42 pkts")

	_, cmd = m.Update(noticeMsg(orchestrator.Notice{Kind: orchestrator.NoticeDisconnected}))
	assert.True(t, isQuit(cmd))
	assert.ErrorIs(t, m.Err(), orchestrator.ErrChannelClosed)
}

func TestRoomModelQuitsWhenFull(t *testing.T) {
	m, _ := newModel()

	_, cmd := m.Update(noticeMsg(orchestrator.Notice{Kind: orchestrator.NoticeRoomFull, Room: "demo", Err: orchestrator.ErrCapacityExceeded}))

	assert.True(t, isQuit(cmd))
	assert.ErrorIs(t, m.Err(), orchestrator.ErrCapacityExceeded)
}

func TestFormatNotice(t *testing.T) {
	assert.Contains(t, FormatNotice(orchestrator.Notice{Kind: orchestrator.NoticeRoomFull, Room: "full"}), "room full is full")
	assert.Contains(t, FormatNotice(orchestrator.Notice{Kind: orchestrator.NoticeMediaFailed, Err: errors.New("denied")}), "denied")
	assert.Contains(t, FormatNotice(orchestrator.Notice{Kind: orchestrator.NoticeChat, UserID: "0123456789", Text: "yo"}), "01234567:")
	assert.Contains(t, FormatNotice(orchestrator.Notice{Kind: orchestrator.NoticePeerLeft}), "someone left")
}

func TestRoomsTable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	out := RoomsTable([]signaling.RoomInfo{
		{Name: "demo", Members: 2, Capacity: 4, CreatedAt: now.Add(-90 * time.Second)},
		{Name: "busy", Members: 4, Capacity: 4, CreatedAt: now},
	}, now)

	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "2/4")
	assert.Contains(t, out, "4/4 full")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "2 rooms")

	assert.Contains(t, RoomsTable(nil, now), "No active rooms")
}

func TestICEServersView(t *testing.T) {
	out := ICEServersView([]string{"stun:stun.l.google.com:19302"}, []string{"turn:t:3478"}, true)
	assert.Contains(t, out, "stun:stun.l.google.com:19302")
	assert.Contains(t, out, "turn:t:3478")
	assert.Contains(t, out, "relay-only")

	assert.Contains(t, ICEServersView(nil, nil, false), "host candidates only")
}
