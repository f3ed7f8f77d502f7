package highlight

import (
	"testing"

	"github.com/dgnsrekt/readalong/internal/textindex"
)

// fakeNode records marks without a document.
type fakeNode struct {
	text  string
	next  MarkID
	marks map[MarkID][2]int
}

func newNode(s string) *fakeNode {
	return &fakeNode{text: s, marks: map[MarkID][2]int{}}
}

func (n *fakeNode) Text() string { return n.text }

func (n *fakeNode) AddMark(start, end int) MarkID {
	n.next++
	n.marks[n.next] = [2]int{start, end}
	return n.next
}

func (n *fakeNode) RemoveMark(id MarkID) { delete(n.marks, id) }

type tree []textindex.TextNode

func (t tree) WalkText(fn func(textindex.TextNode) bool) {
	for _, n := range t {
		if !fn(n) {
			return
		}
	}
}

func TestProjector_MarksAcrossNodes(t *testing.T) {
	a, b := newNode("Hello "), newNode("world.")
	m := textindex.Build(tree{a, b})
	p := New()

	cleanup := p.Project(m, 4, 9)

	if got := a.marks[1]; got != [2]int{4, 6} {
		t.Errorf("First node mark = %v, want [4 6]", got)
	}
	if got := b.marks[1]; got != [2]int{0, 3} {
		t.Errorf("Second node mark = %v, want [0 3]", got)
	}
	if r := p.Active(); r == nil || r.Text() != "o wor" {
		t.Errorf("Active range = %v", r)
	}

	cleanup()
	cleanup()
	if len(a.marks) != 0 || len(b.marks) != 0 {
		t.Errorf("Marks left after cleanup: %v %v", a.marks, b.marks)
	}
	if p.Active() != nil {
		t.Error("Active should be nil after cleanup")
	}
}

func TestProjector_SingleActiveHighlight(t *testing.T) {
	a := newNode("One. Two.")
	m := textindex.Build(tree{a})
	p := New()

	first := p.Project(m, 0, 4)
	p.Project(m, 5, 9)

	if len(a.marks) != 1 {
		t.Fatalf("Expected one mark, got %v", a.marks)
	}
	for _, span := range a.marks {
		if span != [2]int{5, 9} {
			t.Errorf("Active mark = %v, want [5 9]", span)
		}
	}

	// A stale cleanup must not remove the newer highlight.
	first()
	if len(a.marks) != 1 || p.Active() == nil {
		t.Error("Stale cleanup removed the active highlight")
	}

	p.Clear()
	if len(a.marks) != 0 {
		t.Errorf("Clear left marks: %v", a.marks)
	}
	p.Clear()
}

func TestProjector_UnresolvedRangeIsNoop(t *testing.T) {
	a := newNode("Hello world.")
	m := textindex.Build(tree{a})
	p := New()

	p.Project(m, 0, 5)
	cleanup := p.Project(m, 40, 50)
	cleanup()

	if len(a.marks) != 1 {
		t.Errorf("Unresolved projection changed marks: %v", a.marks)
	}
	if p.Project(nil, 0, 1) == nil {
		t.Error("Cleanup should never be nil")
	}
}
