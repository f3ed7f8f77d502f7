// Package document holds a markdown file as a tree of blocks and text nodes
// that can be walked for its linear text and highlighted in place.
//
// Highlights are stored as mark overlays on text nodes instead of splitting
// them, so a textindex.Map built from a Document stays valid while marks come
// and go. A Document is not safe for concurrent use.
package document

import (
	"github.com/dgnsrekt/readalong/internal/textindex"
)

// BlockSeparator is the text node placed between blocks.
const BlockSeparator = "\n\n"

// Kind identifies the type of a block.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindListItem
	KindBlockquote
	KindCodeBlock
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindListItem:
		return "list item"
	case KindBlockquote:
		return "blockquote"
	case KindCodeBlock:
		return "code block"
	default:
		return "unknown"
	}
}

// Inline describes how a text node is styled within its block.
type Inline int

const (
	InlinePlain Inline = iota
	InlineEmphasis
	InlineStrong
	InlineCode
	InlineLink
)

// Block is a top-level unit of the document.
type Block struct {
	Kind Kind
	// Level is the heading level for headings.
	Level int
	// Marker is the list bullet or number for list items.
	Marker string
	Nodes  []*Text
}

// Text returns the concatenated text of the block.
func (b *Block) Text() string {
	var s []rune
	for _, n := range b.Nodes {
		s = append(s, []rune(n.value)...)
	}
	return string(s)
}

// Document is a parsed markdown document.
type Document struct {
	blocks []*Block
	nodes  []*Text // every text node in order, separators included
	starts []int   // rune offset of each block in the full text
}

// Blocks returns the document blocks in order.
func (d *Document) Blocks() []*Block {
	return d.blocks
}

// BlockStart returns the rune offset where block i begins in the full text,
// or -1 if i is out of range.
func (d *Document) BlockStart(i int) int {
	if i < 0 || i >= len(d.starts) {
		return -1
	}
	return d.starts[i]
}

// BlockAt returns the index of the block containing offset, or -1.
func (d *Document) BlockAt(offset int) int {
	for i := len(d.starts) - 1; i >= 0; i-- {
		if offset >= d.starts[i] {
			if offset < d.starts[i]+runeLen(d.blocks[i].Text()) {
				return i
			}
			return -1
		}
	}
	return -1
}

// WalkText visits every text node in document order, block separators
// included.
func (d *Document) WalkText(fn func(textindex.TextNode) bool) {
	for _, n := range d.nodes {
		if !fn(n) {
			return
		}
	}
}

// ClearMarks removes every mark in the document.
func (d *Document) ClearMarks() {
	for _, n := range d.nodes {
		n.marks = nil
	}
}

func (d *Document) appendBlock(b *Block) {
	if len(b.Nodes) == 0 {
		return
	}

	offset := 0
	if len(d.blocks) > 0 {
		sep := &Text{value: BlockSeparator, separator: true}
		d.nodes = append(d.nodes, sep)
		last := len(d.blocks) - 1
		offset = d.starts[last] + runeLen(d.blocks[last].Text()) + runeLen(BlockSeparator)
	}

	d.blocks = append(d.blocks, b)
	d.starts = append(d.starts, offset)
	d.nodes = append(d.nodes, b.Nodes...)
}

func runeLen(s string) int {
	return len([]rune(s))
}
