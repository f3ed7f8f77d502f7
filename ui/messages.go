package ui

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/editor"
	"github.com/dgnsrekt/readalong/internal/ttypes"
)

// Speech events posted by the speaker's handlers.
type (
	speechStateMsg struct {
		state ttypes.SessionState
	}

	sentenceStartMsg struct {
		info ttypes.SentenceInfo
	}

	sentenceEndMsg struct {
		index int
	}

	speechErrorMsg struct {
		message string
	}

	speechDoneMsg struct{}
)

// Results of speaker commands.
type (
	startDoneMsg struct {
		err error
	}

	stopDoneMsg struct {
		err error
	}
)

type (
	reloadMsg struct{}

	editorFinishedMsg struct {
		err error
	}

	documentLoadedMsg struct {
		source  []byte
		modTime time.Time
	}

	tickMsg time.Time

	statusMessageTimeoutMsg struct{}
)

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// relay forwards handler callbacks into the running program. Program.Send blocks
// until the event loop takes the message, which keeps events in the order
// the speaker reported them.
type relay struct {
	mu   sync.RWMutex
	post func(tea.Msg)
}

func (r *relay) attach(post func(tea.Msg)) {
	r.mu.Lock()
	r.post = post
	r.mu.Unlock()
}

func (r *relay) send(msg tea.Msg) {
	r.mu.RLock()
	post := r.post
	r.mu.RUnlock()

	if post == nil {
		log.Debug("Dropping speech event before program start", "msg", fmt.Sprintf("%T", msg))
		return
	}
	post(msg)
}

func (r *relay) handlers() ttypes.Handlers {
	return ttypes.Handlers{
		OnStateChange: func(state ttypes.SessionState) {
			r.send(speechStateMsg{state: state})
		},
		OnSentenceStart: func(index int, text string, start, end int) {
			r.send(sentenceStartMsg{info: ttypes.SentenceInfo{
				Index:       index,
				Text:        text,
				StartOffset: start,
				EndOffset:   end,
			}})
		},
		OnSentenceEnd: func(index int) {
			r.send(sentenceEndMsg{index: index})
		},
		OnError: func(message string) {
			r.send(speechErrorMsg{message: message})
		},
		OnDone: func() {
			r.send(speechDoneMsg{})
		},
	}
}

// Speaker commands run off the event loop: the speaker reports back through
// the handlers, which need the loop to be free.

func startCmd(s Speaker, text, voice string, speed float64) tea.Cmd {
	return func() tea.Msg {
		return startDoneMsg{err: s.Start(context.Background(), text, voice, speed)}
	}
}

func stopCmd(s Speaker) tea.Cmd {
	return func() tea.Msg {
		return stopDoneMsg{err: s.Stop()}
	}
}

func loadDocument(path string) tea.Cmd {
	return func() tea.Msg {
		info, err := os.Stat(path)
		if err != nil {
			return errMsg{fmt.Errorf("unable to stat file: %w", err)}
		}
		source, err := os.ReadFile(path)
		if err != nil {
			return errMsg{fmt.Errorf("unable to read file: %w", err)}
		}
		return documentLoadedMsg{source: source, modTime: info.ModTime()}
	}
}

func openEditor(path string) tea.Cmd {
	c, err := editor.Cmd("readalong", path)
	if err != nil {
		return func() tea.Msg {
			return errMsg{fmt.Errorf("unable to open editor: %w", err)}
		}
	}
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}
