// Package ttypes contains shared types for the read-along system.
// This package is used to break import cycles between stream, audio and ui packages.
package ttypes

// SessionState represents the lifecycle state of a streaming session
type SessionState int

const (
	// StateIdle indicates no session is active
	StateIdle SessionState = iota

	// StateConnecting indicates the socket is being opened
	StateConnecting

	// StatePlaying indicates the session is streaming and playing audio
	StatePlaying

	// StateStopping indicates the session is being torn down
	StateStopping
)

// String returns the string representation of the state
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// SentenceInfo describes one synthesized sentence.
// Offsets are rune offsets relative to the text submitted for synthesis,
// not to the whole document.
type SentenceInfo struct {
	Index       int
	Text        string
	StartOffset int
	EndOffset   int
}

// Segment is a decoded chunk of audio belonging to a sentence.
// PCM is mono signed 16-bit little-endian at the sink sample rate.
type Segment struct {
	SentenceIndex int
	PCM           []byte
}

// Handlers receives session events. Any nil field is ignored.
// Handlers are called from background goroutines; implementations must not block.
type Handlers struct {
	OnStateChange   func(state SessionState)
	OnSentenceStart func(index int, text string, startOffset, endOffset int)
	OnSentenceEnd   func(index int)
	OnError         func(message string)
	OnDone          func()
}

// StateChanged invokes OnStateChange if set.
func (h Handlers) StateChanged(state SessionState) {
	if h.OnStateChange != nil {
		h.OnStateChange(state)
	}
}

// SentenceStarted invokes OnSentenceStart if set.
func (h Handlers) SentenceStarted(info SentenceInfo) {
	if h.OnSentenceStart != nil {
		h.OnSentenceStart(info.Index, info.Text, info.StartOffset, info.EndOffset)
	}
}

// SentenceEnded invokes OnSentenceEnd if set.
func (h Handlers) SentenceEnded(index int) {
	if h.OnSentenceEnd != nil {
		h.OnSentenceEnd(index)
	}
}

// Errored invokes OnError if set.
func (h Handlers) Errored(message string) {
	if h.OnError != nil {
		h.OnError(message)
	}
}

// Done invokes OnDone if set.
func (h Handlers) Done() {
	if h.OnDone != nil {
		h.OnDone()
	}
}
