package audio

import (
	"errors"
	"testing"
	"time"
)

func TestMockSink_TimedTrackFinishes(t *testing.T) {
	sink := NewMockSink(24000, 1.0)

	// 10ms of audio at 24kHz.
	track, err := sink.Play(make([]byte, 480))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	select {
	case <-track.Done():
	case <-time.After(time.Second):
		t.Fatal("Timed track did not finish")
	}

	if err := track.Halt(); err == nil {
		t.Error("Halting a finished track should report an error")
	}
	if got := sink.Halted(); got != 0 {
		t.Errorf("Halted = %d, want 0", got)
	}
}

func TestMockSink_HaltStopsTrack(t *testing.T) {
	sink := NewMockSink(24000, 1.0)

	// One minute of audio; only Halt can end it in time.
	track, err := sink.Play(make([]byte, 24000*2*60))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if err := track.Halt(); err != nil {
		t.Fatalf("Halt failed: %v", err)
	}

	select {
	case <-track.Done():
	default:
		t.Error("Done should be closed after Halt")
	}
	if got := sink.Halted(); got != 1 {
		t.Errorf("Halted = %d, want 1", got)
	}
}

func TestMockSink_ManualCompletion(t *testing.T) {
	sink := NewManualMockSink(24000)

	if sink.Complete() {
		t.Error("Complete should report false with nothing playing")
	}

	first, _ := sink.Play([]byte{1, 0})
	second, _ := sink.Play([]byte{2, 0})

	if !sink.Complete() {
		t.Fatal("Complete should finish the first track")
	}

	select {
	case <-first.Done():
	default:
		t.Error("First track should be done")
	}
	select {
	case <-second.Done():
		t.Error("Second track should still be playing")
	default:
	}

	// Halted tracks are skipped by Complete.
	_ = second.Halt()
	if sink.Complete() {
		t.Error("Complete should skip halted tracks")
	}

	if got := len(sink.Played()); got != 2 {
		t.Errorf("Played = %d buffers, want 2", got)
	}
}

func TestMockSink_Failures(t *testing.T) {
	sink := NewMockSink(24000, 0)

	if _, err := sink.Play(nil); err == nil {
		t.Error("Expected error for empty buffer")
	}

	boom := errors.New("boom")
	sink.FailWith(boom)
	if _, err := sink.Play([]byte{0, 0}); !errors.Is(err, boom) {
		t.Errorf("Expected injected error, got %v", err)
	}
}
