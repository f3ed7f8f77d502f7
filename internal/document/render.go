package document

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// DefaultHighlightColor is the background used for the spoken sentence.
const DefaultHighlightColor = "226"

// Theme holds the styles used to render a document.
type Theme struct {
	Text      lipgloss.Style
	Emphasis  lipgloss.Style
	Strong    lipgloss.Style
	Code      lipgloss.Style
	Link      lipgloss.Style
	Heading   lipgloss.Style
	Quote     lipgloss.Style
	Marker    lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultTheme returns the reader theme with the given highlight background.
// An empty color selects DefaultHighlightColor.
func DefaultTheme(highlightColor string) Theme {
	if highlightColor == "" {
		highlightColor = DefaultHighlightColor
	}
	return Theme{
		Text:     lipgloss.NewStyle(),
		Emphasis: lipgloss.NewStyle().Italic(true),
		Strong:   lipgloss.NewStyle().Bold(true),
		Code:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Link:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
		Heading:  lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		Quote:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Marker:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Highlight: lipgloss.NewStyle().
			Background(lipgloss.Color(highlightColor)).
			Foreground(lipgloss.Color("0")).
			Bold(true),
	}
}

// Render renders every block separated by a blank line.
func (d *Document) Render(width int, theme Theme) string {
	out := make([]string, len(d.blocks))
	for i := range d.blocks {
		out[i] = d.RenderBlock(i, width, theme)
	}
	return strings.Join(out, "\n\n")
}

// RenderBlock renders block i wrapped to width. A width of 0 disables
// wrapping.
func (d *Document) RenderBlock(i, width int, theme Theme) string {
	if i < 0 || i >= len(d.blocks) {
		return ""
	}
	b := d.blocks[i]

	var body strings.Builder
	for _, n := range b.Nodes {
		body.WriteString(renderText(n, b, theme))
	}

	switch b.Kind {
	case KindHeading:
		prefix := theme.Heading.Render(strings.Repeat("#", b.Level) + " ")
		return wrap(prefix+body.String(), width)
	case KindListItem:
		marker := b.Marker
		if marker == "" {
			return prefixLines(wrap(body.String(), width-2), "  ", "  ")
		}
		first := theme.Marker.Render(marker) + " "
		return prefixLines(wrap(body.String(), width-lipgloss.Width(first)), first,
			strings.Repeat(" ", lipgloss.Width(first)))
	case KindBlockquote:
		bar := theme.Quote.Render("│") + " "
		return prefixLines(wrap(body.String(), width-2), bar, bar)
	case KindCodeBlock:
		return prefixLines(body.String(), "    ", "    ")
	default:
		return wrap(body.String(), width)
	}
}

// renderText styles a node, painting marked intervals with the highlight
// style.
func renderText(n *Text, b *Block, theme Theme) string {
	style := inlineStyle(n.inline, b, theme)
	marked := n.Marked()
	if len(marked) == 0 {
		return renderRun(style, n.value)
	}

	runes := []rune(n.value)
	var out strings.Builder
	pos := 0
	for _, m := range marked {
		out.WriteString(renderRun(style, string(runes[pos:m[0]])))
		out.WriteString(renderRun(theme.Highlight, string(runes[m[0]:m[1]])))
		pos = m[1]
	}
	out.WriteString(renderRun(style, string(runes[pos:])))
	return out.String()
}

// renderRun styles s line by line so styles never span a newline.
func renderRun(style lipgloss.Style, s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = style.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

func inlineStyle(in Inline, b *Block, theme Theme) lipgloss.Style {
	switch in {
	case InlineEmphasis:
		return theme.Emphasis
	case InlineStrong:
		return theme.Strong
	case InlineCode:
		return theme.Code
	case InlineLink:
		return theme.Link
	}
	switch b.Kind {
	case KindHeading:
		return theme.Heading
	case KindBlockquote:
		return theme.Quote
	}
	return theme.Text
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}

func prefixLines(s, first, rest string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = first + lines[i]
		} else {
			lines[i] = rest + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
