//go:build nocgo
// +build nocgo

package audio

import "errors"

// ErrAudioUnavailable is returned by OtoSink when the program was built
// without the platform audio backend.
var ErrAudioUnavailable = errors.New("audio not available in nocgo build")

// Available reports whether OtoSink can reach an output device.
func Available() bool {
	return false
}

// Play always fails in nocgo builds.
func (s *OtoSink) Play(pcm []byte) (Track, error) {
	return nil, ErrAudioUnavailable
}
