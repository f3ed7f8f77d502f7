// Package textindex maps character offsets in the linear text of a document
// back to the text nodes that hold them.
//
// A Map is a snapshot. It is never updated in place; callers rebuild it
// whenever the container's content changes.
package textindex

// TextNode is a leaf of a text-walkable tree.
type TextNode interface {
	Text() string
}

// Container walks its text nodes in document order. Walking stops when fn
// returns false.
type Container interface {
	WalkText(fn func(TextNode) bool)
}

// Position records where a node's text lives inside Map.FullText.
// Start and End are rune offsets forming a half-open interval.
type Position struct {
	Node  TextNode
	Start int
	End   int
}

// Map is the linear text snapshot of a container.
type Map struct {
	FullText  string
	Positions []Position

	runes []rune
}

// Len returns the length of FullText in runes.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.runes)
}

// Slice returns the runes of FullText in [start, end), clamped to the text.
func (m *Map) Slice(start, end int) string {
	if m == nil {
		return ""
	}
	start = clamp(start, 0, len(m.runes))
	end = clamp(end, start, len(m.runes))
	return string(m.runes[start:end])
}

// Build walks container and concatenates its text. Empty nodes are skipped.
func Build(container Container) *Map {
	m := &Map{}
	if container == nil {
		return m
	}

	var runes []rune
	container.WalkText(func(n TextNode) bool {
		text := []rune(n.Text())
		if len(text) == 0 {
			return true
		}
		start := len(runes)
		runes = append(runes, text...)
		m.Positions = append(m.Positions, Position{
			Node:  n,
			Start: start,
			End:   len(runes),
		})
		return true
	})

	m.runes = runes
	m.FullText = string(runes)
	return m
}

// Span is the part of one node covered by a Range, in node-local rune
// offsets.
type Span struct {
	Node  TextNode
	Start int
	End   int
}

// Text returns the covered part of the node.
func (s Span) Text() string {
	r := []rune(s.Node.Text())
	return string(r[clamp(s.Start, 0, len(r)):clamp(s.End, 0, len(r))])
}

// Range is a resolved offset range spanning one or more nodes.
type Range struct {
	Start int
	End   int
	Spans []Span
}

// Text returns the text covered by the range.
func (r *Range) Text() string {
	if r == nil {
		return ""
	}
	var out []rune
	for _, s := range r.Spans {
		out = append(out, []rune(s.Text())...)
	}
	return string(out)
}

// OffsetToRange resolves [start, end) against m. It returns nil when the
// offsets fall outside the mapped text or the map is empty.
//
// At a node boundary the start binds to the following node and the end to
// the preceding one, so a range never picks up a zero-width span.
func OffsetToRange(m *Map, start, end int) *Range {
	if m == nil || len(m.Positions) == 0 {
		return nil
	}
	if start < 0 || end > len(m.runes) || start > end {
		return nil
	}

	first := findStart(m.Positions, start)
	if first < 0 {
		return nil
	}
	last := findEnd(m.Positions, end)
	if last < first {
		// Collapsed range sitting on a boundary.
		last = first
	}

	r := &Range{Start: start, End: end}
	for i := first; i <= last; i++ {
		p := m.Positions[i]
		s := max(start, p.Start) - p.Start
		e := min(end, p.End) - p.Start
		if e < s {
			e = s
		}
		r.Spans = append(r.Spans, Span{Node: p.Node, Start: s, End: e})
	}
	return r
}

// findStart returns the node whose interval contains offset, preferring the
// following node at a boundary. An offset equal to the text length binds to
// the last node.
func findStart(ps []Position, offset int) int {
	lo, hi := 0, len(ps)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case offset < ps[mid].Start:
			hi = mid - 1
		case offset >= ps[mid].End:
			lo = mid + 1
		default:
			return mid
		}
	}
	if offset == ps[len(ps)-1].End {
		return len(ps) - 1
	}
	return -1
}

// findEnd returns the node whose interval contains offset, preferring the
// preceding node at a boundary.
func findEnd(ps []Position, offset int) int {
	lo, hi := 0, len(ps)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case offset <= ps[mid].Start:
			hi = mid - 1
		case offset > ps[mid].End:
			lo = mid + 1
		default:
			return mid
		}
	}
	// offset 0 with a non-empty first node.
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
