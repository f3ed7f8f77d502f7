package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/readalong/internal/document"
)

const gutterWidth = 2

var cursorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"})

// renderDocument renders doc for the reader, marking the cursor block in the
// gutter. Marks placed by the projector are painted with the theme's
// highlight style. It returns the content and the first line of each block.
func renderDocument(doc *document.Document, width int, theme document.Theme, cursor int) (string, []int) {
	if doc == nil {
		return "", nil
	}

	wrapAt := 0
	if width > gutterWidth {
		wrapAt = width - gutterWidth
	}

	blocks := doc.Blocks()
	out := make([]string, len(blocks))
	starts := make([]int, len(blocks))
	line := 0
	for i := range blocks {
		gutter := strings.Repeat(" ", gutterWidth)
		if i == cursor {
			gutter = cursorStyle.Render("▌") + " "
		}

		lines := strings.Split(doc.RenderBlock(i, wrapAt, theme), "\n")
		for j := range lines {
			lines[j] = gutter + lines[j]
		}

		out[i] = strings.Join(lines, "\n")
		starts[i] = line
		line += len(lines) + 1
	}
	return strings.Join(out, "\n\n"), starts
}

// blockFor returns the block containing offset, or the closest block before
// it when offset falls between blocks.
func blockFor(doc *document.Document, offset int) int {
	if doc == nil {
		return -1
	}
	if i := doc.BlockAt(offset); i >= 0 {
		return i
	}
	for i := len(doc.Blocks()) - 1; i >= 0; i-- {
		if doc.BlockStart(i) <= offset {
			return i
		}
	}
	return -1
}
