package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		name string
		pcm  []byte
		rate int
		want time.Duration
	}{
		{"one second", make([]byte, 48000), 24000, time.Second},
		{"half second", make([]byte, 22050), 22050, 500 * time.Millisecond},
		{"empty", nil, 24000, 0},
		{"no rate", make([]byte, 10), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Duration(tt.pcm, tt.rate); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeBase64_RawPCM(t *testing.T) {
	raw := []byte{0x01, 0x00, 0xff, 0x7f}
	got, err := DecodeBase64(base64.StdEncoding.EncodeToString(raw), DefaultSampleRate)
	if err != nil {
		t.Fatalf("DecodeBase64 failed: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("DecodeBase64 = %v, want %v", got, raw)
	}
}

func TestDecodeBase64_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid base64", "!!not-base64!!"},
		{"empty", ""},
		{"odd length", base64.StdEncoding.EncodeToString([]byte{1, 2, 3})},
		{"bad wav", base64.StdEncoding.EncodeToString([]byte("RIFF\x00\x00\x00\x00junk"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBase64(tt.data, DefaultSampleRate)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Expected ErrDecode, got %v", err)
			}
		})
	}
}

// writeWAV encodes samples into a WAV file and returns its bytes.
func writeWAV(t *testing.T, rate, channels int, samples []int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create wav: %v", err)
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Failed to write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read wav: %v", err)
	}
	return data
}

func samplesOf(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func TestDecodePCM_WAVSameRate(t *testing.T) {
	data := writeWAV(t, 24000, 1, []int{100, -100, 200, -200})

	got, err := DecodePCM(data, 24000)
	if err != nil {
		t.Fatalf("DecodePCM failed: %v", err)
	}

	want := []int16{100, -100, 200, -200}
	samples := samplesOf(got)
	if len(samples) != len(want) {
		t.Fatalf("Got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestDecodePCM_WAVStereoDownmix(t *testing.T) {
	// Interleaved L/R frames.
	data := writeWAV(t, 24000, 2, []int{100, 300, -100, -300})

	got, err := DecodePCM(data, 24000)
	if err != nil {
		t.Fatalf("DecodePCM failed: %v", err)
	}

	samples := samplesOf(got)
	if len(samples) != 2 {
		t.Fatalf("Got %d samples, want 2", len(samples))
	}
	if samples[0] != 200 || samples[1] != -200 {
		t.Errorf("Downmix = %v, want [200 -200]", samples)
	}
}

func TestDecodePCM_WAVResampled(t *testing.T) {
	in := make([]int, 480)
	for i := range in {
		in[i] = 1000
	}
	data := writeWAV(t, 48000, 1, in)

	got, err := DecodePCM(data, 24000)
	if err != nil {
		t.Fatalf("DecodePCM failed: %v", err)
	}

	samples := samplesOf(got)
	if len(samples) != 240 {
		t.Fatalf("Got %d samples, want 240", len(samples))
	}
	for i, s := range samples {
		if s != 1000 {
			t.Fatalf("sample[%d] = %d, want 1000", i, s)
		}
	}
}

func TestResample(t *testing.T) {
	in := []int16{0, 100, 200, 300}

	up := resample(in, 1, 2)
	if len(up) != 8 {
		t.Fatalf("Upsampled length = %d, want 8", len(up))
	}
	if up[1] != 50 || up[2] != 100 {
		t.Errorf("Interpolation = %v", up)
	}

	same := resample(in, 24000, 24000)
	if len(same) != len(in) {
		t.Errorf("Same-rate resample changed length to %d", len(same))
	}
}
