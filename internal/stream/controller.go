// Package stream drives a text-to-speech session against a streaming speech
// server and turns playback progress into sentence events.
package stream

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/ttypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

// Speed limits accepted by Start.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// Config holds the session settings of a Controller.
type Config struct {
	// URL of the speech server WebSocket endpoint.
	URL string
	// Voice and Speed are used when Start is called without them.
	Voice string
	Speed float64
	// ConnectTimeout bounds the WebSocket handshake.
	ConnectTimeout time.Duration
	// DrainTimeout bounds the wait for queued audio after the server is done.
	DrainTimeout time.Duration
}

// DefaultConfig returns the default session settings.
func DefaultConfig() Config {
	return Config{
		URL:            "ws://localhost:8765/tts",
		Voice:          "default",
		Speed:          1.0,
		ConnectTimeout: 10 * time.Second,
		DrainTimeout:   60 * time.Second,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithHandlers sets the session event handlers.
func WithHandlers(h ttypes.Handlers) Option {
	return func(c *Controller) { c.handlers = h }
}

// WithScheduler plays audio through s. The caller keeps ownership of s.
func WithScheduler(s *audio.Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Controller) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMeter sets the meter used for session counters.
func WithMeter(meter metric.Meter) Option {
	return func(c *Controller) {
		if meter != nil {
			c.meter = meter
		}
	}
}

// session is one connection's lifetime, from Start to cleanup.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   Conn // guarded by Controller.mu
	// finishing is set under Controller.mu once the server's done has won
	// over any Stop.
	finishing bool

	stopOnce    sync.Once
	cleanupOnce sync.Once
	done        chan struct{}
}

// Controller owns a single streaming session at a time. Handlers are invoked
// from the controller's goroutines and must not block on the controller.
type Controller struct {
	cfg      Config
	handlers ttypes.Handlers
	sched    *audio.Scheduler
	ownSched bool
	dialer   Dialer
	logger   *log.Logger
	meter    metric.Meter
	limiter  *rate.Limiter

	frames   metric.Int64Counter
	sessions metric.Int64Counter
	decodes  metric.Int64Counter

	// startMu serializes Start.
	startMu sync.Mutex

	mu        sync.Mutex
	state     ttypes.SessionState
	sess      *session
	last      *session
	sentences map[int]ttypes.SentenceInfo
	closed    bool
}

// NewController creates an idle controller. Without WithScheduler it plays
// through the system audio device and closes that scheduler on Close.
func NewController(cfg Config, opts ...Option) (*Controller, error) {
	def := DefaultConfig()
	if cfg.Voice == "" {
		cfg.Voice = def.Voice
	}
	if cfg.Speed == 0 {
		cfg.Speed = def.Speed
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	if cfg.Speed < MinSpeed || cfg.Speed > MaxSpeed {
		return nil, ErrInvalidSpeed
	}

	c := &Controller{
		cfg:     cfg,
		logger:  log.Default().WithPrefix("stream"),
		meter:   otel.Meter("github.com/dgnsrekt/readalong/internal/stream"),
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		state:   ttypes.StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		if cfg.URL == "" {
			return nil, ErrNoServer
		}
		c.dialer = &WebsocketDialer{HandshakeTimeout: cfg.ConnectTimeout}
	}
	if c.sched == nil {
		c.sched = audio.NewScheduler(audio.NewOtoSink(audio.DefaultSampleRate),
			audio.WithLogger(c.logger.WithPrefix("audio")),
			audio.WithMeter(c.meter))
		c.ownSched = true
	}
	c.initMetrics()

	c.sched.OnSentenceStart(c.playbackStarted)
	c.sched.OnSentenceComplete(c.playbackCompleted)

	return c, nil
}

func (c *Controller) initMetrics() {
	var err error
	if c.frames, err = c.meter.Int64Counter("readalong.stream.frames",
		metric.WithDescription("Frames received from the speech server"),
		metric.WithUnit("{frame}")); err != nil {
		otel.Handle(err)
	}
	if c.sessions, err = c.meter.Int64Counter("readalong.stream.sessions",
		metric.WithDescription("Finished sessions by outcome"),
		metric.WithUnit("{session}")); err != nil {
		otel.Handle(err)
	}
	if c.decodes, err = c.meter.Int64Counter("readalong.stream.decode_errors",
		metric.WithDescription("Audio segments dropped because they failed to decode"),
		metric.WithUnit("{segment}")); err != nil {
		otel.Handle(err)
	}
}

// State returns the current session state.
func (c *Controller) State() ttypes.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens a session speaking text. An empty voice or zero speed selects
// the configured default. Any running session is stopped first.
//
// Start returns once the server has been asked to speak; completion of the
// utterance is reported through the OnDone handler.
func (c *Controller) Start(ctx context.Context, text, voice string, speed float64) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if voice == "" {
		voice = c.cfg.Voice
	}
	if speed == 0 {
		speed = c.cfg.Speed
	}
	if speed < MinSpeed || speed > MaxSpeed {
		return ErrInvalidSpeed
	}

	c.startMu.Lock()
	defer c.startMu.Unlock()

	if err := c.Stop(); err != nil {
		return err
	}
	c.mu.Lock()
	last, closed := c.last, c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if last != nil {
		<-last.done
	}

	// Nothing from a previous session may keep playing.
	c.sched.Stop()

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{ctx: sctx, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.sess = s
	c.last = s
	c.sentences = make(map[int]ttypes.SentenceInfo)
	c.state = ttypes.StateConnecting
	c.mu.Unlock()
	c.handlers.StateChanged(ttypes.StateConnecting)

	c.logger.Debug("Connecting", "url", c.cfg.URL, "voice", voice, "speed", speed)

	dialCtx, dialCancel := context.WithCancel(ctx)
	stopWatch := context.AfterFunc(sctx, dialCancel)
	conn, err := c.dialer.Dial(dialCtx, c.cfg.URL)
	stopWatch()
	dialCancel()

	if err != nil {
		canceled := sctx.Err() != nil
		c.cleanup(s)
		if canceled {
			return ErrCanceled
		}
		c.count(c.sessions, "outcome", "connect_failed")
		return NewError(CodeConnection, "failed to connect to speech server", err)
	}

	c.mu.Lock()
	if c.sess != s || c.state != ttypes.StateConnecting {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrCanceled
	}
	s.conn = conn
	c.mu.Unlock()

	start, err := EncodeFrame(Frame{Type: TypeStart, Text: text, Voice: voice, Speed: speed})
	if err == nil {
		err = conn.WriteMessage(start)
	}
	if err != nil {
		canceled := sctx.Err() != nil
		c.cleanup(s)
		if canceled {
			return ErrCanceled
		}
		c.count(c.sessions, "outcome", "connect_failed")
		return NewError(CodeConnection, "failed to send start frame", err)
	}

	c.mu.Lock()
	if c.sess != s || c.state != ttypes.StateConnecting {
		c.mu.Unlock()
		return ErrCanceled
	}
	c.state = ttypes.StatePlaying
	c.mu.Unlock()
	c.handlers.StateChanged(ttypes.StatePlaying)

	go c.readLoop(s, conn)
	return nil
}

// Stop ends the current session. Audio is silenced immediately, the server is
// asked to stop if the socket is still open, and Stop returns once the
// controller is idle. Stopping an idle controller does nothing.
func (c *Controller) Stop() error {
	c.mu.Lock()
	s := c.sess
	if s == nil || c.state == ttypes.StateIdle {
		c.mu.Unlock()
		return nil
	}
	if s.finishing {
		c.mu.Unlock()
		<-s.done
		return nil
	}
	changed := c.state != ttypes.StateStopping
	c.state = ttypes.StateStopping
	conn := s.conn
	c.mu.Unlock()

	if changed {
		c.handlers.StateChanged(ttypes.StateStopping)
	}

	s.stopOnce.Do(func() {
		s.cancel()
		c.sched.Stop()
		if conn != nil {
			if f, err := EncodeFrame(Frame{Type: TypeStop}); err == nil {
				if err := conn.WriteMessage(f); err != nil {
					c.logger.Debug("stop frame not delivered", "err", err)
				}
			}
		}
		c.count(c.sessions, "outcome", "stopped")
	})

	c.cleanup(s)
	<-s.done
	return nil
}

// Close stops the session and releases the controller. The controller cannot
// be started again.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	err := c.Stop()
	if c.ownSched {
		c.sched.Close()
	}
	return err
}

// cleanup tears the session down exactly once. It reports whether this call
// performed it.
func (c *Controller) cleanup(s *session) bool {
	ran := false
	s.cleanupOnce.Do(func() {
		ran = true
		s.cancel()

		c.mu.Lock()
		conn := s.conn
		s.conn = nil
		current := c.sess == s
		c.mu.Unlock()

		if conn != nil {
			if err := conn.Close(); err != nil {
				c.logger.Debug("close connection", "err", err)
			}
		}

		if current {
			c.sched.Stop()

			c.mu.Lock()
			c.sess = nil
			c.sentences = nil
			changed := c.state != ttypes.StateIdle
			c.state = ttypes.StateIdle
			c.mu.Unlock()

			if changed {
				c.handlers.StateChanged(ttypes.StateIdle)
			}
		}
		close(s.done)
	})
	return ran
}

// readLoop processes inbound frames of s in order until the session ends.
func (c *Controller) readLoop(s *session, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			if isNormalClose(err) {
				c.logger.Debug("Server closed the connection")
				c.cleanup(s)
				return
			}
			c.fail(s, NewError(CodeConnection, "connection lost", err))
			return
		}

		if c.handleFrame(s, data) {
			return
		}
	}
}

// handleFrame applies one inbound frame. It returns true when the session is
// over.
func (c *Controller) handleFrame(s *session, data []byte) bool {
	f, err := DecodeFrame(data)
	if err != nil {
		c.count(c.frames, "type", "invalid")
		return c.fail(s, NewError(CodeProtocol, "dropping frame", err))
	}
	c.count(c.frames, "type", string(f.Type))

	switch f.Type {
	case TypeSentenceStart:
		c.mu.Lock()
		if c.sess == s && c.sentences != nil {
			c.sentences[f.Index] = ttypes.SentenceInfo{
				Index:       f.Index,
				Text:        f.Text,
				StartOffset: f.StartOffset,
				EndOffset:   f.EndOffset,
			}
		}
		c.mu.Unlock()

	case TypeAudio:
		pcm, err := audio.DecodeBase64(f.Data, c.sched.SampleRate())
		if err != nil {
			c.logger.Debug("undecodable audio", "sentence", f.Index)
			return c.fail(s, NewError(CodeDecode, "dropping audio segment", err))
		}
		// Queue under the lock so a concurrent Stop cannot be overtaken.
		c.mu.Lock()
		if c.sess == s && c.state == ttypes.StatePlaying {
			c.sched.Queue(f.Index, pcm)
		}
		c.mu.Unlock()

	case TypeSentenceEnd:
		// Sentence completion comes from playback.

	case TypeDone:
		c.finish(s)
		return true

	case TypeStopped:
		c.cleanup(s)
		return true

	case TypeError:
		return c.fail(s, NewError(CodeServer, f.Message, nil))

	default:
		return c.fail(s, NewError(CodeProtocol, "unexpected frame", ErrUnknownFrame))
	}
	return false
}

// fail handles a session error. Fatal errors are reported through OnError
// while the session is playing and end it; the rest only drop the offending
// frame. It returns true when the session is over.
func (c *Controller) fail(s *session, e *Error) bool {
	if !e.IsFatal() {
		switch e.Code {
		case CodeDecode:
			c.logger.Debug("Dropping segment", "err", e)
			c.count(c.decodes, "", "")
		default:
			c.protocolError(e)
		}
		return false
	}

	if c.isPlaying(s) {
		msg := e.Error()
		if e.Code == CodeServer {
			msg = e.Message
		}
		c.logger.Warn("Session failed", "err", e)
		c.handlers.Errored(msg)
		c.count(c.sessions, "outcome", "error")
	}
	c.cleanup(s)
	return true
}

// finish waits for queued audio to play out, then ends the session and
// reports it done.
func (c *Controller) finish(s *session) {
	drained := c.sched.Drained()
	timer := time.NewTimer(c.cfg.DrainTimeout)
	defer timer.Stop()

	stalled := false
	select {
	case <-drained:
	case <-timer.C:
		stalled = true
	case <-s.ctx.Done():
		return
	}

	// A Stop that got in first owns the session; Stop drains the scheduler
	// too, so drained alone says nothing.
	c.mu.Lock()
	live := c.sess == s && c.state == ttypes.StatePlaying
	if live {
		s.finishing = true
	}
	c.mu.Unlock()
	if !live {
		return
	}

	if stalled {
		e := NewError(CodePlaybackStall, "audio did not drain", context.DeadlineExceeded)
		c.logger.Warn("Forcing playback stop", "err", e, "timeout", c.cfg.DrainTimeout)
		c.sched.Stop()
	}

	if c.cleanup(s) {
		c.count(c.sessions, "outcome", "done")
		c.handlers.Done()
	}
}

func (c *Controller) isPlaying(s *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess == s && c.state == ttypes.StatePlaying
}

func (c *Controller) protocolError(err error) {
	if c.limiter.Allow() {
		c.logger.Warn("Protocol error", "err", err)
	}
}

// playbackStarted runs on the scheduler's dispatcher goroutine.
func (c *Controller) playbackStarted(index int) {
	c.mu.Lock()
	info, ok := c.sentences[index]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("no metadata for sentence", "sentence", index)
		return
	}
	c.handlers.SentenceStarted(info)
}

func (c *Controller) playbackCompleted(index int) {
	c.handlers.SentenceEnded(index)
}

func (c *Controller) count(counter metric.Int64Counter, key, value string) {
	if counter == nil {
		return
	}
	var opts []metric.AddOption
	if value != "" {
		opts = append(opts, metric.WithAttributes(attribute.String(key, value)))
	}
	counter.Add(context.Background(), 1, opts...)
}
