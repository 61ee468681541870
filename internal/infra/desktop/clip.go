package desktop

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

const chimeSampleRate = 44100

// Errors returned while loading a sound file.
var (
	ErrUnsupportedSound = errors.New("unsupported sound file")
	ErrInvalidWAV       = errors.New("invalid wav data")
)

// clip is a decoded mono PCM16 sound ready for playback.
type clip struct {
	samples    []int16
	sampleRate int
}

// pcm returns the little endian sample bytes scaled by volume.
func (c *clip) pcm(volume float64) []byte {
	out := make([]byte, len(c.samples)*2)
	for i, s := range c.samples {
		v := clampSample(float64(s) * volume)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

func clampSample(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// synthChime renders the built-in two tone chime: a short high note followed
// by a longer higher one, each with an exponential decay.
func synthChime() *clip {
	tones := []struct {
		freq     float64
		duration float64
	}{
		{freq: 880, duration: 0.15},
		{freq: 1318.5, duration: 0.3},
	}

	var samples []int16
	for _, tone := range tones {
		n := int(tone.duration * chimeSampleRate)
		for i := 0; i < n; i++ {
			t := float64(i) / chimeSampleRate
			envelope := math.Exp(-6 * t / tone.duration)
			v := math.Sin(2*math.Pi*tone.freq*t) * envelope * 0.8
			samples = append(samples, clampSample(v*math.MaxInt16))
		}
	}
	return &clip{samples: samples, sampleRate: chimeSampleRate}
}

// loadClip decodes an .mp3 or .wav file.
func loadClip(path string) (*clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sound file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return decodeMP3(bytes.NewReader(data))
	case ".wav":
		return decodeWAV(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSound, filepath.Ext(path))
	}
}

// decodeMP3 decodes to 16-bit stereo and downmixes to mono.
func decodeMP3(r io.Reader) (*clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("create mp3 decoder: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	return &clip{samples: downmix(raw, 2), sampleRate: dec.SampleRate()}, nil
}

// decodeWAV parses a RIFF/WAVE file holding uncompressed 16-bit PCM.
func decodeWAV(data []byte) (*clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var (
		channels   int
		sampleRate int
		haveFormat bool
	)
	rest := data[12:]
	for len(rest) >= 8 {
		id := string(rest[0:4])
		size := int(binary.LittleEndian.Uint32(rest[4:8]))
		body := rest[8:]
		if size > len(body) {
			size = len(body)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits := binary.LittleEndian.Uint16(body[14:16])
			if format != 1 || bits != 16 {
				return nil, fmt.Errorf("%w: only 16-bit PCM is supported (format %d, %d bits)", ErrInvalidWAV, format, bits)
			}
			if channels < 1 {
				return nil, fmt.Errorf("%w: no channels", ErrInvalidWAV)
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			return &clip{samples: downmix(body[:size], channels), sampleRate: sampleRate}, nil
		}

		// Chunks are word aligned.
		next := size + size%2
		if next > len(body) {
			break
		}
		rest = body[next:]
	}
	return nil, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
}

// downmix averages interleaved little endian PCM16 frames into mono samples.
func downmix(raw []byte, channels int) []int16 {
	frameSize := channels * 2
	frames := len(raw) / frameSize
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			off := i*frameSize + c*2
			sum += int(int16(binary.LittleEndian.Uint16(raw[off : off+2])))
		}
		out[i] = int16(sum / channels)
	}
	return out
}
