package document

import (
	"sort"

	"github.com/dgnsrekt/readalong/internal/highlight"
)

// MarkID identifies a mark added to a text node.
type MarkID = highlight.MarkID

type mark struct {
	id         MarkID
	start, end int
}

// Text is a leaf node holding a run of text with a single inline style.
type Text struct {
	value     string
	inline    Inline
	separator bool

	marks  []mark
	nextID MarkID
}

// Text returns the node's content.
func (t *Text) Text() string {
	return t.value
}

// Inline returns the node's inline style.
func (t *Text) Inline() Inline {
	return t.inline
}

// AddMark highlights the runes [start, end) of the node. The interval is
// clamped to the node's text.
func (t *Text) AddMark(start, end int) MarkID {
	n := runeLen(t.value)
	start = min(max(start, 0), n)
	end = min(max(end, start), n)

	t.nextID++
	t.marks = append(t.marks, mark{id: t.nextID, start: start, end: end})
	return t.nextID
}

// RemoveMark removes a mark. Unknown ids are ignored.
func (t *Text) RemoveMark(id MarkID) {
	for i, m := range t.marks {
		if m.id == id {
			t.marks = append(t.marks[:i], t.marks[i+1:]...)
			return
		}
	}
}

// Marked returns the merged, sorted rune intervals currently highlighted.
func (t *Text) Marked() [][2]int {
	if len(t.marks) == 0 {
		return nil
	}

	spans := make([][2]int, 0, len(t.marks))
	for _, m := range t.marks {
		if m.end > m.start {
			spans = append(spans, [2]int{m.start, m.end})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	var out [][2]int
	for _, s := range spans {
		if len(out) > 0 && s[0] <= out[len(out)-1][1] {
			out[len(out)-1][1] = max(out[len(out)-1][1], s[1])
			continue
		}
		out = append(out, s)
	}
	return out
}
