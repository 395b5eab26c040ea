package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jheehg/webrtc-learning/internal/media"
	"github.com/jheehg/webrtc-learning/internal/negotiation"
	"github.com/jheehg/webrtc-learning/internal/orchestrator"
)

const (
	maxLogLines    = 8
	statusInterval = 500 * time.Millisecond
)

// RoomController is the part of the orchestrator the room view drives.
type RoomController interface {
	Status() orchestrator.Status
	ToggleMute() bool
	ToggleCamera() bool
	SendChat(text string) error
	Leave() error
}

// packetCounter is implemented by remote tracks that count received RTP.
type packetCounter interface {
	Packets() uint64
	Bytes() uint64
}

type noticeMsg orchestrator.Notice

type noticesClosedMsg struct{}

type statusTickMsg time.Time

// RoomModel is the interactive in-room view.
type RoomModel struct {
	ctrl     RoomController
	notices  <-chan orchestrator.Notice
	spinner  spinner.Model
	input    textinput.Model
	status   orchestrator.Status
	log      []string
	chatting bool
	quitting bool
	err      error
}

// NewRoomModel creates the room view for ctrl, reading notices from notices.
func NewRoomModel(ctrl RoomController, notices <-chan orchestrator.Notice) *RoomModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle

	in := textinput.New()
	in.Placeholder = "say something"
	in.CharLimit = 500
	in.Prompt = IconChat + " "

	return &RoomModel{
		ctrl:    ctrl,
		notices: notices,
		spinner: s,
		input:   in,
		status:  ctrl.Status(),
	}
}

// Err returns the last action error, if any.
func (m *RoomModel) Err() error {
	return m.err
}

func (m *RoomModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitNotice(), statusTick())
}

func (m *RoomModel) waitNotice() tea.Cmd {
	return func() tea.Msg {
		n, ok := <-m.notices
		if !ok {
			return noticesClosedMsg{}
		}
		return noticeMsg(n)
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m *RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.chatting {
			return m.updateChat(msg)
		}
		return m.updateKeys(msg)

	case noticeMsg:
		n := orchestrator.Notice(msg)
		m.appendLog(FormatNotice(n))
		m.status = m.ctrl.Status()
		switch n.Kind {
		case orchestrator.NoticeRoomFull:
			m.err = n.Err
			m.quitting = true
			return m, tea.Quit
		case orchestrator.NoticeDisconnected:
			m.err = orchestrator.ErrChannelClosed
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.waitNotice()

	case noticesClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case statusTickMsg:
		m.status = m.ctrl.Status()
		return m, statusTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *RoomModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "m":
		if m.ctrl.ToggleMute() {
			m.appendLog(IconMuted + " microphone muted")
		} else {
			m.appendLog(IconMic + " microphone on")
		}
	case "v":
		if m.ctrl.ToggleCamera() {
			m.appendLog(IconHidden + " camera hidden")
		} else {
			m.appendLog(IconCamera + " camera on")
		}
	case "c", "enter":
		m.chatting = true
		return m, m.input.Focus()
	case "l", "q", "ctrl+c":
		m.err = m.ctrl.Leave()
		m.quitting = true
		return m, tea.Quit
	}
	m.status = m.ctrl.Status()
	return m, nil
}

func (m *RoomModel) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text != "" {
			if err := m.ctrl.SendChat(text); err != nil {
				m.appendLog(ErrorStyle.Render("chat failed: " + err.Error()))
			}
		}
		m.chatting = false
		m.input.Blur()
		return m, nil
	case "esc":
		m.input.Reset()
		m.chatting = false
		m.input.Blur()
		return m, nil
	case "ctrl+c":
		m.err = m.ctrl.Leave()
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *RoomModel) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *RoomModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	st := m.status

	room := st.Room
	if room == "" {
		room = "joining..."
	}
	role := "joiner"
	if st.Creator {
		role = "creator"
	}
	b.WriteString(fmt.Sprintf("%s %s  %s\n\n", IconRoom, TitleStyle.Render(room), StatusStyle.Render(role)))

	switch st.Negotiation {
	case negotiation.Connected.String():
		b.WriteString(fmt.Sprintf("%s %s\n", IconConnect, SuccessStyle.Render("connected")))
	case "none":
		b.WriteString(fmt.Sprintf("%s waiting for a peer\n", m.spinner.View()))
	default:
		b.WriteString(fmt.Sprintf("%s negotiating (%s)\n", m.spinner.View(), st.Negotiation))
	}

	mic, cam := IconMic+" on", IconCamera+" on"
	if st.AudioMuted {
		mic = IconMuted + " muted"
	}
	if st.VideoHidden {
		cam = IconHidden + " hidden"
	}
	b.WriteString(fmt.Sprintf("%s   %s\n", mic, cam))

	for _, t := range st.Remote {
		b.WriteString(remoteLine(t) + "\n")
	}

	if len(m.log) > 0 {
		b.WriteString("\n" + strings.Join(m.log, "\n") + "\n")
	}

	if m.chatting {
		b.WriteString("\n" + m.input.View() + "\n")
		b.WriteString(FooterStyle.Render("enter send • esc cancel"))
	} else {
		b.WriteString(FooterStyle.Render("m mute • v camera • c chat • l leave"))
	}
	return BoxStyle.Render(b.String()) + "\n"
}

func remoteLine(t media.RemoteTrack) string {
	line := fmt.Sprintf("%s remote %s %s", IconPeer, t.Kind(), MutedStyle.Render(t.ID()))
	if pc, ok := t.(packetCounter); ok {
		line += MutedStyle.Render(fmt.Sprintf("  %d pkts, %d bytes", pc.Packets(), pc.Bytes()))
	}
	return line
}

// FormatNotice renders a notice as one log line.
func FormatNotice(n orchestrator.Notice) string {
	switch n.Kind {
	case orchestrator.NoticeRoomCreated:
		return fmt.Sprintf("%s created room %s, waiting for peers", IconRoom, BoldStyle.Render(n.Room))
	case orchestrator.NoticeRoomJoined:
		return fmt.Sprintf("%s joined room %s", IconRoom, BoldStyle.Render(n.Room))
	case orchestrator.NoticeRoomFull:
		return ErrorStyle.Render(fmt.Sprintf("%s room %s is full", IconError, n.Room))
	case orchestrator.NoticeMediaFailed:
		return WarningStyle.Render(fmt.Sprintf("%s no local media: %v", IconWarning, n.Err))
	case orchestrator.NoticePeerReady:
		return fmt.Sprintf("%s %s is ready", IconPeer, shortID(n.UserID))
	case orchestrator.NoticePeerLeft:
		return fmt.Sprintf("%s %s left", IconPeer, shortID(n.UserID))
	case orchestrator.NoticeRemoteTrack:
		return fmt.Sprintf("%s receiving %s", IconPeer, n.Text)
	case orchestrator.NoticeConnected:
		return SuccessStyle.Render(IconConnect + " peer connected")
	case orchestrator.NoticeChat:
		return fmt.Sprintf("%s %s", ChatNameStyle.Render(shortID(n.UserID)+":"), n.Text)
	case orchestrator.NoticeLeft:
		return fmt.Sprintf("%s left room %s", IconRoom, n.Room)
	case orchestrator.NoticeDisconnected:
		return ErrorStyle.Render(IconError + " signaling server disconnected")
	default:
		return n.Kind.String()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "someone"
	}
	return id
}
