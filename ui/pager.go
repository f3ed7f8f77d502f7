package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/highlight"
	"github.com/dgnsrekt/readalong/internal/textindex"
	"github.com/fsnotify/fsnotify"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

const (
	statusBarHeight      = 1
	statusMessageTimeout = time.Second * 3
	ellipsis             = "…"
)

var (
	pagerHelpHeight int

	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	darkRed   = lipgloss.AdaptiveColor{Light: "#A4292A", Dark: "#A4292A"}
	lightRed  = lipgloss.AdaptiveColor{Light: "#FFC7C7", Dark: "#FFC7C7"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(lipgloss.Color("#5A56E0")).
			Bold(true).
			Render

	statusBarSpeedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lightRed).
				Background(darkRed).
				Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render
)

type pagerState int

const (
	pagerStateBrowse pagerState = iota
	pagerStateStatusMessage
)

type pagerStatusMessage struct {
	message string
	isError bool
}

// Common stuff shared by the models.
type commonModel struct {
	cfg    Config
	width  int
	height int
}

type pagerModel struct {
	common   *commonModel
	viewport viewport.Model
	spinner  spinner.Model
	state    pagerState
	showHelp bool

	statusMessage      pagerStatusMessage
	statusMessageTimer *time.Timer

	doc        *document.Document
	index      *textindex.Map
	projector  *highlight.Projector
	release    highlight.Cleanup
	theme      document.Theme
	cursor     int
	blockLines []int

	status *statusDisplay
	speed  float64

	watcher *fsnotify.Watcher
}

func newPagerModel(common *commonModel) pagerModel {
	vp := viewport.New(0, 0)
	vp.YPosition = 0

	m := pagerModel{
		common:    common,
		state:     pagerStateBrowse,
		viewport:  vp,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		projector: highlight.New(),
		theme:     document.DefaultTheme(common.cfg.HighlightColor),
		status:    newStatusDisplay(),
		speed:     common.cfg.Speed,
	}
	if common.cfg.Path != "" {
		m.initWatcher()
	}
	return m
}

func (m *pagerModel) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h - statusBarHeight

	if m.showHelp {
		if pagerHelpHeight == 0 {
			pagerHelpHeight = strings.Count(m.helpView(), "\n")
		}
		m.viewport.Height -= (statusBarHeight + pagerHelpHeight)
	}
}

// setDocument replaces the document and rebuilds its index. Any highlight on
// the previous document is dropped with it.
func (m *pagerModel) setDocument(source []byte) {
	m.projector.Clear()
	m.release = nil

	m.doc = document.Parse(source)
	m.index = textindex.Build(m.doc)

	if n := len(m.doc.Blocks()); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
	m.render()
}

func (m pagerModel) wrapWidth() int {
	w := m.viewport.Width
	if c := m.common.cfg.Width; c > 0 && (w == 0 || c+gutterWidth < w) {
		w = c + gutterWidth
	}
	return w
}

func (m *pagerModel) render() {
	content, lines := renderDocument(m.doc, m.wrapWidth(), m.theme, m.cursor)
	m.blockLines = lines
	m.viewport.SetContent(content)
}

// scrollTo brings line into view, leaving some context above it.
func (m *pagerModel) scrollTo(line int) {
	if line < m.viewport.YOffset || line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(line - m.viewport.Height/3)
	}
}

func (m *pagerModel) scrollToBlock(i int) {
	if i >= 0 && i < len(m.blockLines) {
		m.scrollTo(m.blockLines[i])
	}
}

func (m *pagerModel) moveCursor(delta int) {
	if m.doc == nil {
		return
	}
	n := len(m.doc.Blocks())
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.render()
	m.scrollToBlock(m.cursor)
}

// highlightRange highlights [start, end) of the full text and follows it.
func (m *pagerModel) highlightRange(start, end int) {
	release := m.projector.Project(m.index, start, end)
	rng := m.projector.Active()
	if rng == nil || rng.Start != start || rng.End != end {
		log.Debug("Sentence range did not resolve", "start", start, "end", end)
		return
	}
	m.release = release
	m.render()
	m.scrollToBlock(blockFor(m.doc, start))
}

func (m *pagerModel) releaseHighlight() {
	if m.release == nil {
		return
	}
	m.release()
	m.release = nil
	m.render()
}

func (m *pagerModel) clearHighlight() {
	m.projector.Clear()
	m.release = nil
	m.render()
}

func (m *pagerModel) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize(m.common.width, m.common.height)
	if m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

func (m *pagerModel) showStatusMessage(msg pagerStatusMessage) tea.Cmd {
	m.state = pagerStateStatusMessage
	m.statusMessage = msg
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)

	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func (m pagerModel) update(msg tea.Msg) (pagerModel, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			m.moveCursor(1)
			return m, nil
		case "k", "up":
			m.moveCursor(-1)
			return m, nil
		case "home", "g":
			m.viewport.GotoTop()
		case "end", "G":
			m.viewport.GotoBottom()
		case "d":
			m.viewport.HalfViewDown()
		case "u":
			m.viewport.HalfViewUp()
		case "?":
			m.toggleHelp()
		}

	case statusMessageTimeoutMsg:
		m.state = pagerStateBrowse
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m pagerModel) View() string {
	var b strings.Builder
	fmt.Fprint(&b, m.viewport.View()+"\n")

	m.statusBarView(&b)

	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}

	return b.String()
}

func (m pagerModel) statusBarView(b *strings.Builder) {
	showStatusMessage := m.state == pagerStateStatusMessage
	noteStyle := statusBarNoteStyle
	if showStatusMessage {
		noteStyle = statusBarMessageStyle
		if m.statusMessage.isError {
			noteStyle = statusBarErrorStyle
		}
	}

	logo := logoStyle(" readalong ")
	speed := statusBarSpeedStyle(fmt.Sprintf(" %.2fx ", m.speed))
	helpNote := statusBarHelpStyle(" ? Help ")

	var note string
	if showStatusMessage {
		note = m.statusMessage.message
	} else {
		note = m.noteText()
	}

	avail := max(0,
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(speed)-
			ansi.PrintableRuneWidth(helpNote),
	)
	note = truncate.StringWithTail(" "+note+" ", uint(avail), ellipsis) //nolint:gosec
	note = noteStyle(note)

	padding := max(0,
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(speed)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := noteStyle(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		speed,
		helpNote,
	)
}

// noteText describes the session and the sentence being spoken.
func (m pagerModel) noteText() string {
	note := m.status.CompactStatus(m.spinner.View(), time.Now())
	if m.status.text != "" {
		room := max(0, m.common.width/2)
		note += "  " + runewidth.Truncate(strings.Join(strings.Fields(m.status.text), " "), room, ellipsis)
	} else if m.common.cfg.Path != "" && !m.status.IsActive() {
		note += "  " + filepath.Base(m.common.cfg.Path)
	}
	return note
}

func (m pagerModel) helpView() (s string) {
	col1 := []string{
		"space  read from cursor / stop",
		"s      stop",
		"+/-    change speed",
		"y      copy sentence",
		"e      edit this document",
		"r      reload this document",
		"q      quit",
	}

	s += "\n"
	s += "k/↑      previous block      " + col1[0] + "\n"
	s += "j/↓      next block          " + col1[1] + "\n"
	s += "b/pgup   page up             " + col1[2] + "\n"
	s += "f/pgdn   page down           " + col1[3] + "\n"
	s += "u        ½ page up           " + col1[4] + "\n"
	s += "d        ½ page down         " + col1[5] + "\n"
	s += "g/G      top / bottom        " + col1[6]

	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring
	if m.common.width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := runewidth.StringWidth(lines[i])
			n := max(m.common.width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}

		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}

func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m *pagerModel) initWatcher() {
	var err error
	m.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
	}
}

// watchFile blocks until the document changes on disk.
func (m pagerModel) watchFile() tea.Msg {
	if m.watcher == nil {
		return nil
	}
	path := m.common.cfg.Path
	dir := filepath.Dir(path)

	if err := m.watcher.Add(dir); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		return nil
	}

	log.Info("fsnotify watching dir", "dir", dir)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			return reloadMsg{}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}

func (m *pagerModel) closeWatcher() {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.Close(); err != nil {
		log.Error("fsnotify fail to close watcher", "error", err)
	}
}
