package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/satindergrewal/focusflow/internal/player"
	"github.com/satindergrewal/focusflow/internal/soundscape"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#B45309"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#DC2626"))

	timerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4)

	cellStyle = lipgloss.NewStyle().
			Width(14).
			Height(2).
			Align(lipgloss.Center).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))
)

func backdrop(p soundscape.Preset) lipgloss.Color {
	return lipgloss.Color(string(p.Backdrop))
}

// View renders the UI
func (m Model) View() string {
	s := m.Status
	if s.Playing() && !s.ControlsVisible {
		return renderMinimal(m)
	}

	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(renderGrid(m))
	b.WriteString("\n")
	b.WriteString(renderTransport(m))
	b.WriteString("\n\n")
	if err := m.errorText(); err != "" {
		b.WriteString(errorStyle.Render(err))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("←↑↓→ move · enter select · space play/pause · +/- volume · c controls · d drift · esc close · q quit"))
	return b.String()
}

func (m Model) errorText() string {
	if m.Err != nil {
		return "Error: " + m.Err.Error()
	}
	if m.Status.Err != nil {
		return "Audio unavailable: " + m.Status.Err.Error()
	}
	return ""
}

// renderMinimal is the distraction-free view while controls are hidden.
func renderMinimal(m Model) string {
	p, _ := soundscape.Lookup(m.Status.Preset)
	body := lipgloss.JoinVertical(lipgloss.Center,
		timerStyle.Background(backdrop(p)).Render(m.Status.ElapsedText()),
		mutedStyle.Render(p.Glyph+" "+p.Label),
	)
	if m.Width == 0 || m.Height == 0 {
		return body
	}
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, body)
}

func renderHeader(m Model) string {
	title := titleStyle.Render("FocusFlow ☾")
	var sub string
	switch m.Status.State {
	case player.Closed:
		sub = "Pick a soundscape"
	default:
		p, _ := soundscape.Lookup(m.Status.Preset)
		sub = fmt.Sprintf("%s · %s", p.Label, p.Description)
	}
	return title + "\n" + mutedStyle.Italic(true).Render(sub)
}

func renderGrid(m Model) string {
	var rows []string
	for start := 0; start < len(m.presets); start += Columns {
		var cells []string
		for i := start; i < start+Columns && i < len(m.presets); i++ {
			cells = append(cells, renderCell(m, i))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCell(m Model, i int) string {
	p := m.presets[i]
	style := cellStyle
	label := p.Label
	if m.Status.State != player.Closed && p.ID == m.Status.Preset {
		style = style.Background(backdrop(p))
		if m.Status.Playing() {
			label = "♪ " + label
		}
	}
	if i == m.Cursor {
		style = style.BorderForeground(lipgloss.Color(p.Color))
	}
	glyph := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Render(p.Glyph)
	return style.Render(glyph + "\n" + label)
}

func renderTransport(m Model) string {
	s := m.Status
	icon := "▶"
	if s.Playing() {
		icon = "❚❚"
	}
	line := fmt.Sprintf("%s  %s  %s %s",
		icon,
		lipgloss.NewStyle().Bold(true).Render(s.ElapsedText()),
		mutedStyle.Render("vol"),
		volumeBar(s.Volume, 20),
	)
	if m.drift != nil && m.drift.Enabled() {
		line += "  " + mutedStyle.Render("drift ⇄")
	}
	return line
}

// volumeBar draws v in [0, 1] as a bar width cells wide.
func volumeBar(v float64, width int) string {
	filled := int(v*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf(" %3d%%", int(v*100+0.5))
}
