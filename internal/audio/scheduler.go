package audio

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readalong/internal/ttypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// NoSentence is the tracked index when nothing is playing.
const NoSentence = -1

type eventKind int

const (
	eventStart eventKind = iota
	eventComplete
	eventDrained
)

type event struct {
	kind  eventKind
	index int
	gen   uint64
	sig   *signal
}

// signal is a channel that is closed at most once.
type signal struct {
	ch   chan struct{}
	once sync.Once
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) fire() {
	s.once.Do(func() { close(s.ch) })
}

// Scheduler plays a FIFO queue of sentence-tagged PCM segments back to back
// and reports sentence boundaries as playback actually reaches them.
//
// A segment is handed to the sink only after the previous track signals
// completion. Sentence callbacks run on a single dispatcher goroutine in the
// order they were produced and may call back into the scheduler.
type Scheduler struct {
	sink   Sink
	logger *log.Logger

	segments metric.Int64Counter

	mu      sync.Mutex
	queue   []ttypes.Segment
	track   Track
	current int
	highest int
	gen     uint64
	drained *signal
	pending []event

	onStart    func(index int)
	onComplete func(index int)

	wake      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *log.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMeter sets the meter used for playback counters.
func WithMeter(meter metric.Meter) SchedulerOption {
	return func(s *Scheduler) {
		if meter != nil {
			s.segments = newSegmentCounter(meter)
		}
	}
}

// NewScheduler creates a scheduler playing through sink.
// Close must be called to release the dispatcher goroutine.
func NewScheduler(sink Sink, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		sink:     sink,
		logger:   log.Default().WithPrefix("audio"),
		segments: newSegmentCounter(otel.Meter("github.com/dgnsrekt/readalong/internal/audio")),
		current:  NoSentence,
		highest:  NoSentence,
		drained:  newSignal(),
		wake:     make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	s.drained.fire()

	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.dispatch()

	return s
}

func newSegmentCounter(meter metric.Meter) metric.Int64Counter {
	counter, err := meter.Int64Counter("readalong.audio.segments",
		metric.WithDescription("Audio segments handed to the output sink"),
		metric.WithUnit("{segment}"))
	if err != nil {
		otel.Handle(err)
	}
	return counter
}

// OnSentenceStart registers the callback fired when a sentence begins playing.
func (s *Scheduler) OnSentenceStart(fn func(index int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStart = fn
}

// OnSentenceComplete registers the callback fired when a sentence has finished playing.
func (s *Scheduler) OnSentenceComplete(fn func(index int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = fn
}

// Queue appends a segment for sentenceIndex. Playback starts immediately
// when the scheduler is idle.
func (s *Scheduler) Queue(sentenceIndex int, pcm []byte) {
	if len(pcm) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return
	default:
	}

	s.queue = append(s.queue, ttypes.Segment{SentenceIndex: sentenceIndex, PCM: pcm})

	if s.track == nil {
		s.drained = newSignal()
		s.advanceLocked()
	}
}

// Stop clears the queue, halts the current track and forgets the tracked
// sentence. Boundary events not yet delivered are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	track := s.track
	s.track = nil
	s.queue = nil
	s.current = NoSentence
	s.highest = NoSentence
	s.gen++

	kept := s.pending[:0]
	for _, ev := range s.pending {
		if ev.kind == eventDrained {
			kept = append(kept, ev)
		}
	}
	s.pending = kept
	sig := s.drained
	s.mu.Unlock()

	sig.fire()

	if track != nil {
		// The track may have finished on its own already.
		if err := track.Halt(); err != nil {
			s.logger.Debug("halt after completion", "err", err)
		}
	}
}

// SampleRate returns the rate segments must be encoded at.
func (s *Scheduler) SampleRate() int {
	return s.sink.SampleRate()
}

// IsPlaying reports whether a track is currently playing.
func (s *Scheduler) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track != nil
}

// CurrentSentence returns the index of the sentence being played, or NoSentence.
func (s *Scheduler) CurrentSentence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// QueueLen returns the number of segments waiting behind the current track.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Drained returns a channel that is closed once the queue is empty, nothing
// is playing and the final sentence completion has been delivered.
func (s *Scheduler) Drained() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained.ch
}

// Close stops playback and releases the dispatcher goroutine.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		s.Stop()
		close(s.closed)
		s.wg.Wait()
	})
}

// advanceLocked hands the next playable segment to the sink, or finishes the
// run when the queue is empty.
func (s *Scheduler) advanceLocked() {
	for len(s.queue) > 0 {
		seg := s.queue[0]
		s.queue[0] = ttypes.Segment{}
		s.queue = s.queue[1:]

		track, err := s.sink.Play(seg.PCM)
		if err != nil {
			s.logger.Warn("dropping segment", "sentence", seg.SentenceIndex, "err", err)
			s.count("failed")
			continue
		}
		s.count("played")

		s.boundaryLocked(seg.SentenceIndex)
		s.track = track
		go s.await(track, s.gen)
		return
	}

	s.track = nil
	if s.current != NoSentence {
		s.emitLocked(eventComplete, s.current)
		s.current = NoSentence
	}
	s.pending = append(s.pending, event{kind: eventDrained, gen: s.gen, sig: s.drained})
	s.notify()
}

// boundaryLocked emits sentence transitions for a segment that just started.
// Indexes at or below the highest one already started never fire again.
func (s *Scheduler) boundaryLocked(index int) {
	if index == s.current {
		return
	}
	if index <= s.highest {
		s.logger.Debug("segment out of order, boundary suppressed",
			"sentence", index, "highest", s.highest)
		return
	}
	if s.current != NoSentence {
		s.emitLocked(eventComplete, s.current)
	}
	s.emitLocked(eventStart, index)
	s.current = index
	s.highest = index
}

func (s *Scheduler) emitLocked(kind eventKind, index int) {
	s.pending = append(s.pending, event{kind: kind, index: index, gen: s.gen})
	s.notify()
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// await advances the queue once track finishes, unless the scheduler was
// stopped in the meantime.
func (s *Scheduler) await(track Track, gen uint64) {
	select {
	case <-track.Done():
	case <-s.closed:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.track != track {
		return
	}
	s.advanceLocked()
}

// dispatch delivers pending events one at a time.
func (s *Scheduler) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case <-s.closed:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.pending[0]
			s.pending = s.pending[1:]
			stale := ev.gen != s.gen
			onStart, onComplete := s.onStart, s.onComplete
			s.mu.Unlock()

			switch ev.kind {
			case eventStart:
				if !stale && onStart != nil {
					onStart(ev.index)
				}
			case eventComplete:
				if !stale && onComplete != nil {
					onComplete(ev.index)
				}
			case eventDrained:
				ev.sig.fire()
			}
		}
	}
}

func (s *Scheduler) count(result string) {
	if s.segments == nil {
		return
	}
	s.segments.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result)))
}
