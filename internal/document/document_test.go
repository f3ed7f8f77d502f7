package document

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dgnsrekt/readalong/internal/textindex"
)

const sample = `# Title

Hello *world*. Goodbye.

- one
- two

> quoted
> text

    code
`

func TestParse_FullText(t *testing.T) {
	doc := Parse([]byte(sample))
	m := textindex.Build(doc)

	want := "Title\n\nHello world. Goodbye.\n\none\n\ntwo\n\nquoted text\n\ncode"
	if m.FullText != want {
		t.Errorf("FullText = %q, want %q", m.FullText, want)
	}
}

func TestParse_Blocks(t *testing.T) {
	doc := Parse([]byte(sample))
	blocks := doc.Blocks()

	want := []struct {
		kind Kind
		text string
	}{
		{KindHeading, "Title"},
		{KindParagraph, "Hello world. Goodbye."},
		{KindListItem, "one"},
		{KindListItem, "two"},
		{KindBlockquote, "quoted text"},
		{KindCodeBlock, "code"},
	}
	if len(blocks) != len(want) {
		t.Fatalf("Got %d blocks, want %d", len(blocks), len(want))
	}
	for i, w := range want {
		if blocks[i].Kind != w.kind {
			t.Errorf("Block %d kind = %v, want %v", i, blocks[i].Kind, w.kind)
		}
		if got := blocks[i].Text(); got != w.text {
			t.Errorf("Block %d text = %q, want %q", i, got, w.text)
		}
	}

	if blocks[0].Level != 1 {
		t.Errorf("Heading level = %d, want 1", blocks[0].Level)
	}
	if blocks[2].Marker != "•" {
		t.Errorf("Bullet marker = %q", blocks[2].Marker)
	}

	para := blocks[1].Nodes
	if len(para) != 3 || para[1].Text() != "world" || para[1].Inline() != InlineEmphasis {
		t.Errorf("Emphasis not kept as its own node: %+v", para)
	}
}

func TestParse_OrderedMarkers(t *testing.T) {
	doc := Parse([]byte("3. three\n4. four\n"))
	blocks := doc.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("Got %d blocks, want 2", len(blocks))
	}
	if blocks[0].Marker != "3." || blocks[1].Marker != "4." {
		t.Errorf("Markers = %q, %q", blocks[0].Marker, blocks[1].Marker)
	}
}

func TestParse_SkipsBreaksAndHTML(t *testing.T) {
	doc := Parse([]byte("one\n\n---\n\n<div>x</div>\n\ntwo\n"))
	m := textindex.Build(doc)
	if m.FullText != "one\n\ntwo" {
		t.Errorf("FullText = %q", m.FullText)
	}
}

func TestDocument_BlockOffsets(t *testing.T) {
	doc := Parse([]byte(sample))
	m := textindex.Build(doc)

	for i, b := range doc.Blocks() {
		start := doc.BlockStart(i)
		if got := m.Slice(start, start+len([]rune(b.Text()))); got != b.Text() {
			t.Errorf("Block %d at %d reads %q, want %q", i, start, got, b.Text())
		}
		if got := doc.BlockAt(start); got != i {
			t.Errorf("BlockAt(%d) = %d, want %d", start, got, i)
		}
	}

	if doc.BlockStart(-1) != -1 || doc.BlockStart(99) != -1 {
		t.Error("Out of range BlockStart should return -1")
	}
	// Offset 5 is inside the separator after the heading.
	if got := doc.BlockAt(5); got != -1 {
		t.Errorf("BlockAt(separator) = %d, want -1", got)
	}
}

func TestText_Marks(t *testing.T) {
	n := &Text{value: "Hello world"}

	a := n.AddMark(0, 5)
	b := n.AddMark(3, 8)
	n.AddMark(-4, 0)
	c := n.AddMark(10, 50)

	got := n.Marked()
	if len(got) != 2 || got[0] != [2]int{0, 8} || got[1] != [2]int{10, 11} {
		t.Errorf("Marked = %v", got)
	}

	n.RemoveMark(a)
	n.RemoveMark(b)
	n.RemoveMark(c)
	n.RemoveMark(MarkID(999))
	if got := n.Marked(); len(got) != 0 {
		t.Errorf("Marked after removal = %v", got)
	}
}

func TestDocument_ClearMarks(t *testing.T) {
	doc := Parse([]byte("one two"))
	doc.Blocks()[0].Nodes[0].AddMark(0, 3)
	doc.ClearMarks()
	if got := doc.Blocks()[0].Nodes[0].Marked(); got != nil {
		t.Errorf("Marks survived ClearMarks: %v", got)
	}
}

func testTheme() Theme {
	th := DefaultTheme("")
	th.Highlight = lipgloss.NewStyle().Transform(strings.ToUpper)
	return th
}

func TestRender_Highlight(t *testing.T) {
	doc := Parse([]byte("Hello *world*. Goodbye."))
	nodes := doc.Blocks()[0].Nodes
	nodes[0].AddMark(4, 6)
	nodes[1].AddMark(0, 2)

	got := ansi.Strip(doc.Render(0, testTheme()))
	if got != "HellO WOrld. Goodbye." {
		t.Errorf("Render = %q", got)
	}
}

func TestRender_Layout(t *testing.T) {
	doc := Parse([]byte(sample))
	got := ansi.Strip(doc.Render(0, testTheme()))

	for _, want := range []string{"# Title", "• one", "│ quoted text", "    code"} {
		if !strings.Contains(got, want) {
			t.Errorf("Render missing %q:\n%s", want, got)
		}
	}
}

func TestRender_Wraps(t *testing.T) {
	doc := Parse([]byte("the quick brown fox jumps over the lazy dog"))
	out := doc.RenderBlock(0, 12, testTheme())

	for _, line := range strings.Split(out, "\n") {
		if w := lipgloss.Width(line); w > 12 {
			t.Errorf("Line %q is %d wide", ansi.Strip(line), w)
		}
	}
	if doc.RenderBlock(5, 12, testTheme()) != "" {
		t.Error("Out of range block should render empty")
	}
}
