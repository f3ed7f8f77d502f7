package textindex

import "testing"

type node string

func (n node) Text() string { return string(n) }

type tree []node

func (t tree) WalkText(fn func(TextNode) bool) {
	for _, n := range t {
		if !fn(n) {
			return
		}
	}
}

func TestBuild_Concatenates(t *testing.T) {
	m := Build(tree{"Hello ", "world", ". ", "", "Goodbye."})

	if m.FullText != "Hello world. Goodbye." {
		t.Errorf("FullText = %q", m.FullText)
	}
	if len(m.Positions) != 4 {
		t.Fatalf("Positions = %d, want 4 (empty node skipped)", len(m.Positions))
	}

	prev := 0
	for i, p := range m.Positions {
		if p.Start != prev {
			t.Errorf("Position %d starts at %d, want %d", i, p.Start, prev)
		}
		if got := m.FullText[p.Start:p.End]; got != p.Node.Text() {
			t.Errorf("Position %d covers %q, want %q", i, got, p.Node.Text())
		}
		prev = p.End
	}
}

func TestBuild_NilContainer(t *testing.T) {
	m := Build(nil)
	if m.FullText != "" || len(m.Positions) != 0 {
		t.Errorf("Expected empty map, got %+v", m)
	}
	if OffsetToRange(m, 0, 0) != nil {
		t.Error("Empty map should not resolve")
	}
}

func TestOffsetToRange_SingleNode(t *testing.T) {
	m := Build(tree{"Hello world. Goodbye."})

	r := OffsetToRange(m, 6, 11)
	if r == nil {
		t.Fatal("Expected a range")
	}
	if got := r.Text(); got != "world" {
		t.Errorf("Text = %q, want %q", got, "world")
	}
	if len(r.Spans) != 1 {
		t.Errorf("Spans = %d, want 1", len(r.Spans))
	}
}

func TestOffsetToRange_AcrossNodes(t *testing.T) {
	m := Build(tree{"Hello ", "wor", "ld. ", "Goodbye."})

	r := OffsetToRange(m, 4, 14)
	if r == nil {
		t.Fatal("Expected a range")
	}
	if got := r.Text(); got != "o world. G" {
		t.Errorf("Text = %q", got)
	}
	if len(r.Spans) != 4 {
		t.Fatalf("Spans = %d, want 4", len(r.Spans))
	}
	if s := r.Spans[0]; s.Start != 4 || s.End != 6 {
		t.Errorf("First span = [%d,%d), want [4,6)", s.Start, s.End)
	}
	if s := r.Spans[3]; s.Start != 0 || s.End != 1 {
		t.Errorf("Last span = [%d,%d), want [0,1)", s.Start, s.End)
	}
}

func TestOffsetToRange_Boundaries(t *testing.T) {
	m := Build(tree{"ab", "cd", "ef"})

	tests := []struct {
		name       string
		start, end int
		want       string
		spans      int
	}{
		{"start on boundary binds forward", 2, 4, "cd", 1},
		{"end on boundary binds backward", 0, 2, "ab", 1},
		{"whole text", 0, 6, "abcdef", 3},
		{"end of text", 4, 6, "ef", 1},
		{"collapsed at boundary", 2, 2, "", 1},
		{"collapsed at end", 6, 6, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := OffsetToRange(m, tt.start, tt.end)
			if r == nil {
				t.Fatal("Expected a range")
			}
			if got := r.Text(); got != tt.want {
				t.Errorf("Text = %q, want %q", got, tt.want)
			}
			if len(r.Spans) != tt.spans {
				t.Errorf("Spans = %d, want %d", len(r.Spans), tt.spans)
			}
		})
	}
}

func TestOffsetToRange_OutOfRange(t *testing.T) {
	m := Build(tree{"Hello world."})

	tests := []struct {
		name       string
		start, end int
	}{
		{"start beyond text", 20, 25},
		{"end beyond text", 6, 13},
		{"negative start", -1, 3},
		{"inverted", 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := OffsetToRange(m, tt.start, tt.end); r != nil {
				t.Errorf("Expected nil, got %+v", r)
			}
		})
	}

	if OffsetToRange(nil, 0, 1) != nil {
		t.Error("Nil map should not resolve")
	}
}

func TestOffsetToRange_EveryRangeMatchesFullText(t *testing.T) {
	m := Build(tree{"Ünï", "códé ", "", "テキスト", " ok."})
	runes := []rune(m.FullText)

	for start := 0; start < len(runes); start++ {
		for end := start + 1; end <= len(runes); end++ {
			r := OffsetToRange(m, start, end)
			if r == nil {
				t.Fatalf("[%d,%d) did not resolve", start, end)
			}
			if got, want := r.Text(), string(runes[start:end]); got != want {
				t.Fatalf("[%d,%d) = %q, want %q", start, end, got, want)
			}
		}
	}
}

func TestMap_Slice(t *testing.T) {
	m := Build(tree{"Hello ", "wörld."})

	if got := m.Slice(6, 12); got != "wörld." {
		t.Errorf("Slice = %q", got)
	}
	if got := m.Slice(6, 100); got != "wörld." {
		t.Errorf("Clamped slice = %q", got)
	}
	if got := m.Slice(-3, 5); got != "Hello" {
		t.Errorf("Clamped start = %q", got)
	}
	if got := m.Len(); got != 12 {
		t.Errorf("Len = %d, want 12", got)
	}
}
