package ui

// Config contains the reader settings.
type Config struct {
	// Path of the markdown file being read. Empty when the document came
	// from stdin, which disables reloading and editing.
	Path string

	Voice          string
	Speed          float64
	HighlightColor string

	// Width caps the wrap width. Zero follows the terminal.
	Width       int
	EnableMouse bool
}
