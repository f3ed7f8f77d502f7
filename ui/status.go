package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/readalong/internal/ttypes"
)

// statusDisplay tracks the speech session for the status bar.
type statusDisplay struct {
	state        ttypes.SessionState
	sentence     int
	text         string
	started      time.Time
	errorMessage string
}

func newStatusDisplay() *statusDisplay {
	return &statusDisplay{
		state:    ttypes.StateIdle,
		sentence: -1,
	}
}

// UpdateFromMessage updates the display from a speech event.
func (s *statusDisplay) UpdateFromMessage(msg tea.Msg, now time.Time) {
	switch m := msg.(type) {
	case speechStateMsg:
		switch m.state {
		case ttypes.StateConnecting:
			s.started = time.Time{}
			s.sentence = -1
			s.text = ""
			s.errorMessage = ""
		case ttypes.StatePlaying:
			if s.started.IsZero() {
				s.started = now
			}
		case ttypes.StateIdle:
			s.sentence = -1
			s.text = ""
		}
		s.state = m.state

	case sentenceStartMsg:
		s.sentence = m.info.Index
		s.text = m.info.Text

	case sentenceEndMsg:
		if m.index == s.sentence {
			s.text = ""
		}

	case speechErrorMsg:
		s.errorMessage = m.message

	case speechDoneMsg:
		s.sentence = -1
		s.text = ""
	}
}

// CompactStatus returns the state summary for the status bar. spin is shown
// while connecting.
func (s *statusDisplay) CompactStatus(spin string, now time.Time) string {
	icon := s.getStateIcon()
	if s.state == ttypes.StateConnecting && spin != "" {
		icon = spin
	}

	status := lipgloss.NewStyle().
		Foreground(s.getStateColor()).
		Render(fmt.Sprintf("%s %s", icon, s.label()))

	if s.state == ttypes.StatePlaying {
		counter := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
		if s.sentence >= 0 {
			status += counter.Render(fmt.Sprintf(" #%d", s.sentence+1))
		}
		if !s.started.IsZero() {
			status += counter.Render(" " + formatDuration(now.Sub(s.started)))
		}
	}
	return status
}

func (s *statusDisplay) label() string {
	if s.state == ttypes.StateIdle && s.errorMessage != "" {
		return "error"
	}
	return s.state.String()
}

func (s *statusDisplay) getStateColor() lipgloss.Color {
	switch s.state {
	case ttypes.StatePlaying:
		return lipgloss.Color("#00FF00")
	case ttypes.StateConnecting:
		return lipgloss.Color("#00AAFF")
	case ttypes.StateStopping:
		return lipgloss.Color("#FF8800")
	}
	if s.errorMessage != "" {
		return lipgloss.Color("#FF0000")
	}
	return lipgloss.Color("#888888")
}

func (s *statusDisplay) getStateIcon() string {
	switch s.state {
	case ttypes.StatePlaying:
		return "▶"
	case ttypes.StateConnecting:
		return "⟳"
	case ttypes.StateStopping:
		return "◼"
	}
	if s.errorMessage != "" {
		return "✗"
	}
	return "■"
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// IsActive reports whether a session is connecting, playing or stopping.
func (s *statusDisplay) IsActive() bool {
	return s.state != ttypes.StateIdle
}
