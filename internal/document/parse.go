package document

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// Parse builds a Document from markdown source. Thematic breaks, raw HTML
// and images without alt text contribute no text.
func Parse(source []byte) *Document {
	root := md.Parser().Parse(text.NewReader(source))
	d := &Document{}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.Heading:
			b := &Block{Kind: KindHeading, Level: n.Level}
			b.Nodes = inlines(n, source, InlinePlain)
			d.appendBlock(b)
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock:
			b := &Block{Kind: KindParagraph}
			if item, ok := enclosing[*ast.ListItem](n); ok {
				b.Kind = KindListItem
				if item.FirstChild() == n {
					b.Marker = listMarker(item)
				}
			} else if _, ok := enclosing[*ast.Blockquote](n); ok {
				b.Kind = KindBlockquote
			}
			b.Nodes = inlines(n, source, InlinePlain)
			d.appendBlock(b)
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock, *ast.FencedCodeBlock:
			code := strings.TrimRight(lines(n, source), "\n")
			if code != "" {
				d.appendBlock(&Block{
					Kind:  KindCodeBlock,
					Nodes: []*Text{{value: code, inline: InlineCode}},
				})
			}
			return ast.WalkSkipChildren, nil

		case *ast.HTMLBlock, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})

	return d
}

// inlines flattens the inline children of n into text nodes.
func inlines(n ast.Node, source []byte, style Inline) []*Text {
	var out []*Text
	brk := -1
	add := func(s string, style Inline) {
		if s == "" {
			return
		}
		// Merge runs of the same style so the tree stays small.
		if k := len(out); k > 0 && k-1 != brk && out[k-1].inline == style {
			out[k-1].value += s
			return
		}
		out = append(out, &Text{value: s, inline: style})
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			add(string(c.Segment.Value(source)), style)
			switch {
			case c.HardLineBreak():
				add("\n", style)
			case c.SoftLineBreak():
				// A separate node keeps the break visible to the index.
				out = append(out, &Text{value: " ", inline: style})
				brk = len(out) - 1
			}
		case *ast.String:
			add(string(c.Value), style)
		case *ast.CodeSpan:
			for _, t := range inlines(c, source, InlineCode) {
				add(t.value, InlineCode)
			}
		case *ast.Emphasis:
			s := InlineEmphasis
			if c.Level >= 2 {
				s = InlineStrong
			}
			out = append(out, inlines(c, source, s)...)
		case *ast.Link:
			out = append(out, inlines(c, source, InlineLink)...)
		case *ast.AutoLink:
			add(string(c.Label(source)), InlineLink)
		case *ast.Image:
			out = append(out, inlines(c, source, style)...)
		case *ast.RawHTML:
			// skip
		default:
			out = append(out, inlines(c, source, style)...)
		}
	}
	return out
}

func lines(n ast.Node, source []byte) string {
	var b strings.Builder
	l := n.Lines()
	for i := 0; i < l.Len(); i++ {
		seg := l.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// enclosing finds the nearest ancestor of n with type T.
func enclosing[T ast.Node](n ast.Node) (T, bool) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if v, ok := p.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func listMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "•"
	}

	n := list.Start
	for c := list.FirstChild(); c != nil && c != ast.Node(item); c = c.NextSibling() {
		n++
	}
	return fmt.Sprintf("%d.", n)
}
