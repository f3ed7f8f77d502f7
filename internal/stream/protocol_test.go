package stream

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeFrame_Start(t *testing.T) {
	data, err := EncodeFrame(Frame{Type: TypeStart, Text: "A. B.", Voice: "amy", Speed: 1.5})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	want := `{"type":"start","text":"A. B.","voice":"amy","speed":1.5}`
	if string(data) != want {
		t.Errorf("EncodeFrame = %s, want %s", data, want)
	}
}

func TestEncodeFrame_OnlyTypeFields(t *testing.T) {
	data, err := EncodeFrame(Frame{Type: TypeStop, Text: "ignored", Index: 3})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if string(data) != `{"type":"stop"}` {
		t.Errorf("EncodeFrame = %s", data)
	}

	// Zero values are still sent when the type carries them.
	data, _ = EncodeFrame(Frame{Type: TypeSentenceStart, Index: 0, Text: "Hi.", StartOffset: 0, EndOffset: 3})
	if !strings.Contains(string(data), `"index":0`) || !strings.Contains(string(data), `"startOffset":0`) {
		t.Errorf("Zero fields dropped: %s", data)
	}

	if _, err := EncodeFrame(Frame{Type: "bogus"}); !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("Expected ErrUnknownFrame, got %v", err)
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Frame
	}{
		{
			name: "sentence start",
			in:   `{"type":"sentence_start","index":1,"text":"B.","startOffset":3,"endOffset":5}`,
			want: Frame{Type: TypeSentenceStart, Index: 1, Text: "B.", StartOffset: 3, EndOffset: 5},
		},
		{
			name: "audio",
			in:   `{"type":"audio","index":2,"data":"AAA="}`,
			want: Frame{Type: TypeAudio, Index: 2, Data: "AAA="},
		},
		{
			name: "sentence end",
			in:   `{"type":"sentence_end","index":0}`,
			want: Frame{Type: TypeSentenceEnd},
		},
		{
			name: "error",
			in:   `{"type":"error","message":"voice not found"}`,
			want: Frame{Type: TypeError, Message: "voice not found"},
		},
		{
			name: "done",
			in:   `{"type":"done"}`,
			want: Frame{Type: TypeDone},
		},
		{
			name: "extra fields ignored",
			in:   `{"type":"stopped","reason":"client"}`,
			want: Frame{Type: TypeStopped},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFrame([]byte(tt.in))
			if err != nil {
				t.Fatalf("DecodeFrame failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeFrame = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not json", `not json`, ErrMalformedFrame},
		{"missing type", `{"index":1}`, ErrMalformedFrame},
		{"unknown type", `{"type":"word_boundary"}`, ErrUnknownFrame},
		{"audio without data", `{"type":"audio","index":0}`, ErrMalformedFrame},
		{"audio without index", `{"type":"audio","data":"AAA="}`, ErrMalformedFrame},
		{"sentence without offsets", `{"type":"sentence_start","index":0,"text":"A."}`, ErrMalformedFrame},
		{"inverted offsets", `{"type":"sentence_start","index":0,"startOffset":5,"endOffset":2}`, ErrMalformedFrame},
		{"negative index", `{"type":"sentence_end","index":-1}`, ErrMalformedFrame},
		{"wrong field type", `{"type":"audio","index":"one","data":""}`, ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
