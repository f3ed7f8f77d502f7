package stream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FrameType is the "type" field of a protocol frame.
type FrameType string

// Client to server.
const (
	TypeStart FrameType = "start"
	TypeStop  FrameType = "stop"
)

// Server to client.
const (
	TypeSentenceStart FrameType = "sentence_start"
	TypeAudio         FrameType = "audio"
	TypeSentenceEnd   FrameType = "sentence_end"
	TypeDone          FrameType = "done"
	TypeStopped       FrameType = "stopped"
	TypeError         FrameType = "error"
)

var (
	// ErrMalformedFrame is wrapped by every frame decoding failure.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownFrame indicates a frame with an unrecognized type.
	ErrUnknownFrame = errors.New("unknown frame type")
)

// Frame is a single JSON message of the streaming protocol. Only the fields
// relevant to Type are meaningful.
type Frame struct {
	Type FrameType

	// start
	Text  string
	Voice string
	Speed float64

	// sentence_start, audio, sentence_end
	Index       int
	StartOffset int
	EndOffset   int

	// audio: base64 encoded samples
	Data string

	// error
	Message string
}

type wireFrame struct {
	Type        FrameType `json:"type"`
	Text        *string   `json:"text,omitempty"`
	Voice       *string   `json:"voice,omitempty"`
	Speed       *float64  `json:"speed,omitempty"`
	Index       *int      `json:"index,omitempty"`
	StartOffset *int      `json:"startOffset,omitempty"`
	EndOffset   *int      `json:"endOffset,omitempty"`
	Data        *string   `json:"data,omitempty"`
	Message     *string   `json:"message,omitempty"`
}

// EncodeFrame serializes f with the fields its type carries.
func EncodeFrame(f Frame) ([]byte, error) {
	w := wireFrame{Type: f.Type}
	switch f.Type {
	case TypeStart:
		w.Text, w.Voice, w.Speed = &f.Text, &f.Voice, &f.Speed
	case TypeStop, TypeDone, TypeStopped:
	case TypeSentenceStart:
		w.Index, w.Text, w.StartOffset, w.EndOffset = &f.Index, &f.Text, &f.StartOffset, &f.EndOffset
	case TypeAudio:
		w.Index, w.Data = &f.Index, &f.Data
	case TypeSentenceEnd:
		w.Index = &f.Index
	case TypeError:
		w.Message = &f.Message
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
	}
	return json.Marshal(w)
}

// DecodeFrame parses a frame and checks that the fields its type requires
// are present.
func DecodeFrame(data []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	f := Frame{Type: w.Type}
	switch w.Type {
	case TypeSentenceStart:
		if w.Index == nil || w.StartOffset == nil || w.EndOffset == nil {
			return Frame{}, fmt.Errorf("%w: sentence_start needs index and offsets", ErrMalformedFrame)
		}
		f.Index, f.StartOffset, f.EndOffset = *w.Index, *w.StartOffset, *w.EndOffset
		if f.StartOffset < 0 || f.EndOffset < f.StartOffset {
			return Frame{}, fmt.Errorf("%w: invalid offsets [%d,%d)", ErrMalformedFrame, f.StartOffset, f.EndOffset)
		}
		f.Text = deref(w.Text)
	case TypeAudio:
		if w.Index == nil || w.Data == nil {
			return Frame{}, fmt.Errorf("%w: audio needs index and data", ErrMalformedFrame)
		}
		f.Index, f.Data = *w.Index, *w.Data
	case TypeSentenceEnd:
		if w.Index == nil {
			return Frame{}, fmt.Errorf("%w: sentence_end needs index", ErrMalformedFrame)
		}
		f.Index = *w.Index
	case TypeError:
		f.Message = deref(w.Message)
	case TypeStart:
		f.Text, f.Voice, f.Speed = deref(w.Text), deref(w.Voice), deref(w.Speed)
	case TypeDone, TypeStopped, TypeStop:
	case "":
		return Frame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownFrame, w.Type)
	}
	if f.Index < 0 {
		return Frame{}, fmt.Errorf("%w: negative index %d", ErrMalformedFrame, f.Index)
	}
	return f, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
