package audio

import (
	"errors"
	"sync"
	"time"
)

// MockSink implements Sink without producing sound.
// In timed mode tracks finish after their simulated duration scaled by
// TimeScale; in manual mode they finish only when the test calls Complete.
type MockSink struct {
	mu         sync.Mutex
	sampleRate int
	manual     bool
	timeScale  float64

	played  [][]byte
	active  []*MockTrack
	halted  int
	failErr error
}

// NewMockSink creates a timed mock sink. A timeScale of 0 finishes every
// track as soon as it starts.
func NewMockSink(sampleRate int, timeScale float64) *MockSink {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &MockSink{
		sampleRate: sampleRate,
		timeScale:  timeScale,
	}
}

// NewManualMockSink creates a mock sink whose tracks finish only on Complete.
func NewManualMockSink(sampleRate int) *MockSink {
	m := NewMockSink(sampleRate, 0)
	m.manual = true
	return m
}

// SampleRate returns the simulated device rate.
func (m *MockSink) SampleRate() int {
	return m.sampleRate
}

// FailWith makes every following Play return err. Pass nil to recover.
func (m *MockSink) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Play records pcm and returns a simulated track.
func (m *MockSink) Play(pcm []byte) (Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return nil, m.failErr
	}
	if len(pcm) == 0 {
		return nil, errors.New("audio data is empty")
	}

	data := make([]byte, len(pcm))
	copy(data, pcm)
	m.played = append(m.played, data)

	t := &MockTrack{sink: m, done: make(chan struct{})}
	if m.manual {
		m.active = append(m.active, t)
		return t, nil
	}

	d := time.Duration(float64(Duration(pcm, m.sampleRate)) * m.timeScale)
	go t.run(d)
	return t, nil
}

// Complete finishes the oldest unfinished track in manual mode.
// It returns false when no track is playing.
func (m *MockSink) Complete() bool {
	m.mu.Lock()
	var t *MockTrack
	for len(m.active) > 0 && t == nil {
		t = m.active[0]
		m.active = m.active[1:]
		if t.isFinished() {
			t = nil
		}
	}
	m.mu.Unlock()

	if t == nil {
		return false
	}
	t.finish(false)
	return true
}

// Played returns copies of every buffer handed to the sink, in order.
func (m *MockSink) Played() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.played))
	copy(out, m.played)
	return out
}

// Halted returns how many tracks were halted before finishing.
func (m *MockSink) Halted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

// MockTrack is a simulated playing buffer.
type MockTrack struct {
	sink *MockSink

	mu       sync.Mutex
	finished bool
	done     chan struct{}
}

func (t *MockTrack) run(d time.Duration) {
	if d <= 0 {
		t.finish(false)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		t.finish(false)
	case <-t.done:
	}
}

// Done is closed when the track finishes or is halted.
func (t *MockTrack) Done() <-chan struct{} {
	return t.done
}

// Halt stops the track. Halting a finished track returns an error.
func (t *MockTrack) Halt() error {
	if !t.finish(true) {
		return errors.New("track already finished")
	}
	return nil
}

func (t *MockTrack) isFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

func (t *MockTrack) finish(halted bool) bool {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return false
	}
	t.finished = true
	close(t.done)
	t.mu.Unlock()

	if halted {
		t.sink.mu.Lock()
		t.sink.halted++
		t.sink.mu.Unlock()
	}
	return true
}
