// Package ui provides the read-along reader: a pager that speaks the
// document from the cursor and highlights each sentence as it is heard.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readalong/internal/stream"
	"github.com/dgnsrekt/readalong/internal/ttypes"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
)

const speedStep = 0.25

// Speaker is the playback engine driven by the reader. Offsets reported
// through its handlers are relative to the text passed to Start.
type Speaker interface {
	Start(ctx context.Context, text, voice string, speed float64) error
	Stop() error
}

// NewProgram returns the reader program for source. newSpeaker builds the
// playback engine around the handlers the reader listens on.
func NewProgram(cfg Config, source []byte, newSpeaker func(ttypes.Handlers) (Speaker, error)) (*tea.Program, error) {
	log.Debug("Starting reader", "path", cfg.Path, "voice", cfg.Voice, "speed", cfg.Speed)

	r := &relay{}
	speaker, err := newSpeaker(r.handlers())
	if err != nil {
		return nil, err
	}

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(newModel(cfg, source, speaker), opts...)
	r.attach(p.Send)
	return p, nil
}

type model struct {
	common  *commonModel
	pager   pagerModel
	speaker Speaker

	// reading is set while sentence offsets refer to the current document.
	reading bool
	// base is the offset of the text handed to the speaker.
	base int
	// highlighted is the index of the sentence owning the highlight.
	highlighted int
	ticking     bool
}

func newModel(cfg Config, source []byte, speaker Speaker) model {
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	common := &commonModel{cfg: cfg}

	m := model{
		common:  common,
		pager:   newPagerModel(common),
		speaker: speaker,
	}
	m.pager.setDocument(source)
	return m
}

func (m model) Init() tea.Cmd {
	if m.common.cfg.Path == "" {
		return nil
	}
	return m.pager.watchFile
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.pager.closeWatcher()
			return m, tea.Quit

		case "esc":
			if m.pager.showHelp {
				m.pager.toggleHelp()
			}
			return m, nil

		case " ":
			if m.pager.status.IsActive() {
				return m, stopCmd(m.speaker)
			}
			return m, m.readFromCursor()

		case "s":
			return m, stopCmd(m.speaker)

		case "+", "=":
			return m, m.changeSpeed(speedStep)

		case "-", "_":
			return m, m.changeSpeed(-speedStep)

		case "y":
			return m, m.copySentence()

		case "e":
			if m.common.cfg.Path == "" {
				return m, nil
			}
			log.Info("opening editor", "file", m.common.cfg.Path)
			return m, openEditor(m.common.cfg.Path)

		case "r":
			if m.common.cfg.Path == "" {
				return m, nil
			}
			return m, loadDocument(m.common.cfg.Path)
		}

	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.pager.setSize(msg.Width, msg.Height)
		m.pager.render()
		return m, nil

	case speechStateMsg:
		m.pager.status.UpdateFromMessage(msg, time.Now())
		switch msg.state {
		case ttypes.StateConnecting:
			cmds = append(cmds, m.pager.spinner.Tick)
		case ttypes.StatePlaying:
			if !m.ticking {
				m.ticking = true
				cmds = append(cmds, tick())
			}
		case ttypes.StateIdle:
			m.pager.clearHighlight()
		}
		return m, tea.Batch(cmds...)

	case sentenceStartMsg:
		m.pager.status.UpdateFromMessage(msg, time.Now())
		if m.reading {
			m.pager.highlightRange(m.base+msg.info.StartOffset, m.base+msg.info.EndOffset)
			m.highlighted = msg.info.Index
		}
		return m, nil

	case sentenceEndMsg:
		m.pager.status.UpdateFromMessage(msg, time.Now())
		if msg.index == m.highlighted {
			m.pager.releaseHighlight()
		}
		return m, nil

	case speechErrorMsg:
		m.pager.status.UpdateFromMessage(msg, time.Now())
		m.pager.clearHighlight()
		return m, m.pager.showStatusMessage(pagerStatusMessage{"Speech error: " + msg.message, true})

	case speechDoneMsg:
		m.pager.status.UpdateFromMessage(msg, time.Now())
		m.pager.clearHighlight()
		return m, m.pager.showStatusMessage(pagerStatusMessage{"Finished reading", false})

	case startDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, stream.ErrCanceled) {
			log.Error("unable to start speech", "error", msg.err)
			return m, m.pager.showStatusMessage(pagerStatusMessage{startErrorText(msg.err), true})
		}
		return m, nil

	case stopDoneMsg:
		if msg.err != nil {
			log.Error("unable to stop speech", "error", msg.err)
		}
		return m, nil

	case tickMsg:
		if m.pager.status.state != ttypes.StatePlaying {
			m.ticking = false
			return m, nil
		}
		return m, tick()

	case spinner.TickMsg:
		if m.pager.status.state != ttypes.StateConnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.pager.spinner, cmd = m.pager.spinner.Update(msg)
		return m, cmd

	case reloadMsg:
		// Each watchFile call handles one event.
		return m, tea.Batch(loadDocument(m.common.cfg.Path), m.pager.watchFile)

	case editorFinishedMsg:
		if msg.err != nil {
			return m, m.pager.showStatusMessage(pagerStatusMessage{"Editor failed: " + msg.err.Error(), true})
		}
		return m, loadDocument(m.common.cfg.Path)

	case documentLoadedMsg:
		// Offsets of a running session point into the old text.
		if m.pager.status.IsActive() {
			cmds = append(cmds, stopCmd(m.speaker))
		}
		m.reading = false
		m.pager.setDocument(msg.source)
		cmds = append(cmds, m.pager.showStatusMessage(pagerStatusMessage{
			"Reloaded, modified " + humanize.Time(msg.modTime), false,
		}))
		return m, tea.Batch(cmds...)

	case errMsg:
		log.Error("reader error", "error", msg.err)
		return m, m.pager.showStatusMessage(pagerStatusMessage{msg.Error(), true})
	}

	var cmd tea.Cmd
	m.pager, cmd = m.pager.update(msg)
	return m, cmd
}

func (m model) View() string {
	return m.pager.View()
}

// readFromCursor speaks the document from the start of the cursor block to
// the end.
func (m *model) readFromCursor() tea.Cmd {
	base := m.pager.doc.BlockStart(m.pager.cursor)
	if base < 0 {
		return m.pager.showStatusMessage(pagerStatusMessage{"Nothing to read", true})
	}

	text := m.pager.index.Slice(base, m.pager.index.Len())
	if strings.TrimSpace(text) == "" {
		return m.pager.showStatusMessage(pagerStatusMessage{"Nothing to read", true})
	}

	m.base = base
	m.reading = true
	log.Debug("Reading from cursor", "block", m.pager.cursor, "offset", base)
	return startCmd(m.speaker, text, m.common.cfg.Voice, m.pager.speed)
}

// changeSpeed adjusts the speed used by the next read.
func (m *model) changeSpeed(delta float64) tea.Cmd {
	speed := min(max(m.pager.speed+delta, stream.MinSpeed), stream.MaxSpeed)
	if speed == m.pager.speed {
		return nil
	}
	m.pager.speed = speed

	note := fmt.Sprintf("Speed %.2fx", speed)
	if m.pager.status.IsActive() {
		note += " from the next read"
	}
	return m.pager.showStatusMessage(pagerStatusMessage{note, false})
}

// copySentence copies the sentence being spoken, or the cursor block when
// nothing is.
func (m *model) copySentence() tea.Cmd {
	text := m.pager.status.text
	if text == "" && m.pager.doc != nil {
		if blocks := m.pager.doc.Blocks(); m.pager.cursor < len(blocks) {
			text = blocks[m.pager.cursor].Text()
		}
	}
	if text == "" {
		return nil
	}

	// Copy using OSC 52
	termenv.Copy(text)
	// Copy using native system clipboard
	if err := clipboard.WriteAll(text); err != nil {
		log.Debug("system clipboard unavailable", "error", err)
	}
	return m.pager.showStatusMessage(pagerStatusMessage{"Copied", false})
}

func startErrorText(err error) string {
	switch {
	case errors.Is(err, stream.ErrEmptyText):
		return "Nothing to read"
	case errors.Is(err, stream.ErrInvalidSpeed):
		return fmt.Sprintf("Speed must be between %.1fx and %.1fx", stream.MinSpeed, stream.MaxSpeed)
	}
	if stream.CodeOf(err) == stream.CodeConnection {
		return "Cannot reach the speech server"
	}
	return "Speech failed: " + err.Error()
}
