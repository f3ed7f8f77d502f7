//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, so it is created lazily on first
// playback and reused for the lifetime of the program.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

// ErrContextRate is returned when the shared output context was already
// opened at a different sample rate.
var ErrContextRate = errors.New("audio context already open at a different sample rate")

func sharedContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   platformBufferSize(),
		}

		log.Debug("Initializing audio context",
			"sample_rate", op.SampleRate,
			"buffer_size", op.BufferSize)

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create audio context: %w", err)
			return
		}

		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			otoErr = errors.New("audio context initialization timeout")
			return
		}

		otoCtx = ctx
		otoRate = sampleRate
	})

	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("%w: open at %d Hz, requested %d Hz", ErrContextRate, otoRate, sampleRate)
	}
	return otoCtx, nil
}

// Available reports whether OtoSink can reach an output device.
func Available() bool {
	return true
}

// Play starts playback of pcm on a fresh oto player.
func (s *OtoSink) Play(pcm []byte) (Track, error) {
	if len(pcm) == 0 {
		return nil, errors.New("audio data is empty")
	}

	ctx, err := sharedContext(s.sampleRate)
	if err != nil {
		return nil, err
	}

	// The player reads lazily; it must own its copy until it is done.
	data := make([]byte, len(pcm))
	copy(data, pcm)

	player := ctx.NewPlayer(bytes.NewReader(data))
	if player == nil {
		return nil, errors.New("failed to create oto player")
	}
	player.Play()

	t := &otoTrack{
		player: player,
		data:   data,
		done:   make(chan struct{}),
	}
	go t.monitor(s.pollInterval)

	return t, nil
}

// otoTrack is a buffer playing on an oto player.
type otoTrack struct {
	player *oto.Player
	data   []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (t *otoTrack) Done() <-chan struct{} {
	return t.done
}

// monitor closes done once the player has drained its buffer.
func (t *otoTrack) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if !t.player.IsPlaying() {
				_ = t.finish()
				return
			}
		}
	}
}

func (t *otoTrack) Halt() error {
	t.mu.Lock()
	if !t.closed {
		t.player.Pause()
	}
	t.mu.Unlock()
	return t.finish()
}

func (t *otoTrack) finish() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New("track already finished")
	}
	t.closed = true

	err := t.player.Close()
	t.data = nil
	close(t.done)
	return err
}
