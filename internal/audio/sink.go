package audio

import (
	"runtime"
	"time"
)

const (
	// DefaultSampleRate is the PCM sample rate the server streams (mono, 16-bit)
	DefaultSampleRate = 24000

	// BytesPerSample is the number of bytes per mono S16LE sample
	BytesPerSample = 2
)

// Sink plays decoded PCM buffers on an output device.
// Implementations must keep the buffer alive until the track is done.
type Sink interface {
	// Play starts playback of a mono S16LE buffer and returns its track.
	Play(pcm []byte) (Track, error)

	// SampleRate returns the rate the sink expects buffers at.
	SampleRate() int
}

// Track is one buffer being played by a Sink.
type Track interface {
	// Done is closed once the buffer has been fully played or halted.
	Done() <-chan struct{}

	// Halt stops playback immediately. Halting a finished track may return an
	// error, which callers are free to ignore.
	Halt() error
}

// Duration returns how long a mono S16LE buffer plays at sampleRate.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

func platformBufferSize() time.Duration {
	switch runtime.GOOS {
	case "darwin":
		// CoreAudio glitches with small buffers
		return 100 * time.Millisecond
	case "windows":
		return 80 * time.Millisecond
	default:
		return 50 * time.Millisecond
	}
}

// OtoSink plays PCM through the system audio device using oto.
type OtoSink struct {
	sampleRate   int
	pollInterval time.Duration
}

// NewOtoSink creates a sink for mono S16LE audio at sampleRate.
// The device is not opened until the first Play.
func NewOtoSink(sampleRate int) *OtoSink {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &OtoSink{
		sampleRate:   sampleRate,
		pollInterval: 5 * time.Millisecond,
	}
}

// SampleRate returns the sink sample rate.
func (s *OtoSink) SampleRate() int {
	return s.sampleRate
}
