package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-audio/wav"
)

// ErrDecode is wrapped by every payload decoding failure.
var ErrDecode = errors.New("audio decode failed")

var riffMagic = []byte("RIFF")

// DecodeBase64 decodes an audio frame payload into mono S16LE PCM at sampleRate.
func DecodeBase64(data string, sampleRate int) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecode, err)
	}
	return DecodePCM(payload, sampleRate)
}

// DecodePCM accepts either a WAV file or raw mono S16LE samples.
// WAV input is downmixed, converted to 16-bit and resampled to sampleRate.
func DecodePCM(payload []byte, sampleRate int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	if bytes.HasPrefix(payload, riffMagic) {
		return decodeWAV(payload, sampleRate)
	}

	if len(payload)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: invalid PCM data length: %d bytes (not aligned to %d-byte samples)",
			ErrDecode, len(payload), BytesPerSample)
	}
	return payload, nil
}

func decodeWAV(payload []byte, sampleRate int) ([]byte, error) {
	dec := wav.NewDecoder(bytes.NewReader(payload))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file", ErrDecode)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: WAV file has no samples", ErrDecode)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}

	frames := len(buf.Data) / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += toInt16(buf.Data[i*channels+c], depth)
		}
		mono[i] = int16(sum / channels)
	}

	if buf.Format.SampleRate > 0 && sampleRate > 0 && buf.Format.SampleRate != sampleRate {
		mono = resample(mono, buf.Format.SampleRate, sampleRate)
	}
	if len(mono) == 0 {
		return nil, fmt.Errorf("%w: WAV file too short to resample", ErrDecode)
	}

	out := make([]byte, len(mono)*BytesPerSample)
	for i, s := range mono {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(s))
	}
	return out, nil
}

// toInt16 scales a sample of the given bit depth into the 16-bit range.
func toInt16(v, depth int) int {
	switch depth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}

// resample converts mono samples from one rate to another using linear
// interpolation.
func resample(in []int16, from, to int) []int16 {
	if len(in) < 2 || from == to {
		return in
	}

	outLen := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]int16, outLen)
	ratio := float64(from) / float64(to)

	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := sampleAt(in, srcIdx)
		s1 := sampleAt(in, srcIdx+1)

		out[i] = int16(float64(s0) + frac*(float64(s1)-float64(s0)))
	}
	return out
}

func sampleAt(in []int16, idx int) int16 {
	if idx >= len(in) {
		// Clamp to last sample.
		idx = len(in) - 1
	}
	if idx < 0 {
		return 0
	}
	return in[idx]
}
