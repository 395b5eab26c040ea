package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jheehg/webrtc-learning/internal/signaling"
)

// RoomsTable renders the live rooms, or a muted line when there are none.
func RoomsTable(rooms []signaling.RoomInfo, now time.Time) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No active rooms")
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatUpper
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"#", "Room", "Members", "Open for"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignCenter},
		{Number: 4, Align: text.AlignRight},
	})

	for i, r := range rooms {
		members := fmt.Sprintf("%d/%d", r.Members, r.Capacity)
		if r.Members >= r.Capacity {
			members += " full"
		}
		t.AppendRow(table.Row{i + 1, r.Name, members, now.Sub(r.CreatedAt).Round(time.Second)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d rooms", len(rooms)), "", ""})

	return t.Render()
}

// RenderRoomsTable writes the rooms table to w.
func RenderRoomsTable(w io.Writer, rooms []signaling.RoomInfo) {
	fmt.Fprintln(w, RoomsTable(rooms, time.Now()))
}

// ICEServersView lists the discovery servers a call will use.
func ICEServersView(stun, turn []string, relayOnly bool) string {
	var rows [][]string
	for _, s := range stun {
		rows = append(rows, []string{"STUN", s})
	}
	for _, s := range turn {
		rows = append(rows, []string{"TURN", s})
	}
	if len(rows) == 0 {
		return MutedStyle.Render("No ICE servers, host candidates only")
	}

	tbl := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Kind", "URL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	out := tbl.Render()
	if relayOnly {
		out += "\n" + WarningStyle.Render("relay-only: traffic goes through TURN")
	}
	return strings.TrimRight(out, "\n")
}
