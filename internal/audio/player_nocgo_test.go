//go:build nocgo
// +build nocgo

package audio

import (
	"errors"
	"testing"
)

func TestOtoSink_NoBackend(t *testing.T) {
	if Available() {
		t.Error("Available should be false without the audio backend")
	}

	sink := NewOtoSink(DefaultSampleRate)
	if _, err := sink.Play(make([]byte, 480)); !errors.Is(err, ErrAudioUnavailable) {
		t.Errorf("Play error = %v, want %v", err, ErrAudioUnavailable)
	}

	// The scheduler drops what the sink cannot play and still drains.
	sched := NewScheduler(sink)
	defer sched.Close()
	sched.Queue(0, make([]byte, 480))
	<-sched.Drained()
	if sched.IsPlaying() {
		t.Error("Nothing should be playing")
	}
}
