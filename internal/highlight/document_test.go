package highlight_test

import (
	"testing"

	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/highlight"
	"github.com/dgnsrekt/readalong/internal/textindex"
)

// Document text nodes satisfy Markable.
var _ highlight.Markable = (*document.Text)(nil)

func TestProjector_Document(t *testing.T) {
	doc := document.Parse([]byte("Hello *world*. Goodbye."))
	m := textindex.Build(doc)
	p := highlight.New()

	p.Project(m, 4, 8)
	nodes := doc.Blocks()[0].Nodes
	if got := nodes[0].Marked(); len(got) != 1 || got[0] != [2]int{4, 6} {
		t.Errorf("First node marked = %v", got)
	}
	if got := nodes[1].Marked(); len(got) != 1 || got[0] != [2]int{0, 2} {
		t.Errorf("Second node marked = %v", got)
	}

	// Marks never restructure the tree, so the map still resolves.
	if r := textindex.OffsetToRange(m, 6, 11); r == nil || r.Text() != "world" {
		t.Errorf("Map went stale after marking: %v", r)
	}

	p.Clear()
	if nodes[0].Marked() != nil || nodes[1].Marked() != nil {
		t.Error("Marks survived Clear")
	}
}
