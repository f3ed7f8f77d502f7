// Package highlight projects a resolved offset range onto markable text
// nodes, keeping at most one highlight active at a time.
package highlight

import (
	"sync"

	"github.com/dgnsrekt/readalong/internal/textindex"
)

// MarkID identifies a mark on one node. Nodes allocate their own ids.
type MarkID int

// Markable is a text node that can carry highlight marks.
type Markable interface {
	textindex.TextNode
	AddMark(start, end int) MarkID
	RemoveMark(id MarkID)
}

// Cleanup reverses a highlight. Calling it more than once is harmless.
type Cleanup func()

func noop() {}

// Projector marks the text of the range currently being spoken.
type Projector struct {
	mu     sync.Mutex
	active Cleanup
	rng    *textindex.Range
}

// New returns a projector with no active highlight.
func New() *Projector {
	return &Projector{}
}

// Project highlights [start, end) of m and returns the cleanup for it. Any
// previous highlight is removed first. Offsets that do not resolve leave the
// document untouched and return a no-op cleanup.
func (p *Projector) Project(m *textindex.Map, start, end int) Cleanup {
	r := textindex.OffsetToRange(m, start, end)
	if r == nil {
		return noop
	}

	p.mu.Lock()
	prev := p.active
	p.active = nil
	p.rng = nil
	p.mu.Unlock()
	if prev != nil {
		prev()
	}

	type applied struct {
		node Markable
		id   MarkID
	}
	var marks []applied
	for _, s := range r.Spans {
		node, ok := s.Node.(Markable)
		if !ok || s.End <= s.Start {
			continue
		}
		marks = append(marks, applied{node, node.AddMark(s.Start, s.End)})
	}

	var once sync.Once
	var cleanup Cleanup
	cleanup = func() {
		once.Do(func() {
			for _, a := range marks {
				a.node.RemoveMark(a.id)
			}
			p.mu.Lock()
			if p.rng == r {
				p.active = nil
				p.rng = nil
			}
			p.mu.Unlock()
		})
	}

	p.mu.Lock()
	p.active = cleanup
	p.rng = r
	p.mu.Unlock()
	return cleanup
}

// Clear removes the active highlight, if any.
func (p *Projector) Clear() {
	p.mu.Lock()
	c := p.active
	p.mu.Unlock()
	if c != nil {
		c()
	}
}

// Active returns the range currently highlighted, or nil.
func (p *Projector) Active() *textindex.Range {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng
}
