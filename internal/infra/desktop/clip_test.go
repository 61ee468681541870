package desktop

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildWAV encodes interleaved PCM16 samples as a minimal RIFF/WAVE file.
func buildWAV(channels, sampleRate int, samples []int16, extraChunk bool) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(s))
	}

	var out []byte
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, 0)
	out = append(out, "WAVE"...)

	if extraChunk {
		out = append(out, "LIST"...)
		out = binary.LittleEndian.AppendUint32(out, 3)
		out = append(out, 'a', 'b', 'c', 0) // odd size plus pad byte
	}

	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = binary.LittleEndian.AppendUint16(out, uint16(channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate*channels*2))
	out = binary.LittleEndian.AppendUint16(out, uint16(channels*2))
	out = binary.LittleEndian.AppendUint16(out, 16)

	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, data...)
	return out
}

func TestDecodeWAV_Mono(t *testing.T) {
	// Arrange
	raw := buildWAV(1, 22050, []int16{0, 1000, -1000, 32767}, false)

	// Act
	c, err := decodeWAV(raw)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 22050, c.sampleRate)
	assert.Equal(t, []int16{0, 1000, -1000, 32767}, c.samples)
}

func TestDecodeWAV_StereoDownmixedAndChunksSkipped(t *testing.T) {
	raw := buildWAV(2, 48000, []int16{100, 300, -200, -400}, true)

	c, err := decodeWAV(raw)

	require.NoError(t, err)
	assert.Equal(t, 48000, c.sampleRate)
	assert.Equal(t, []int16{200, -300}, c.samples)
}

func TestDecodeWAV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not riff", data: []byte("OggS0000WAVE")},
		{name: "no data chunk", data: buildWAV(1, 8000, nil, false)[:36]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeWAV(tt.data)
			assert.ErrorIs(t, err, ErrInvalidWAV)
		})
	}
}

func TestDecodeWAV_RejectsNonPCM16(t *testing.T) {
	raw := buildWAV(1, 8000, []int16{1}, false)
	binary.LittleEndian.PutUint16(raw[34:], 8) // bits per sample

	_, err := decodeWAV(raw)

	assert.ErrorIs(t, err, ErrInvalidWAV)
}

func TestLoadClip(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "ding.WAV")
	require.NoError(t, os.WriteFile(wav, buildWAV(1, 8000, []int16{5, 6}, false), 0o600))
	ogg := filepath.Join(dir, "ding.ogg")
	require.NoError(t, os.WriteFile(ogg, []byte("x"), 0o600))

	c, err := loadClip(wav)
	require.NoError(t, err)
	assert.Equal(t, []int16{5, 6}, c.samples)

	_, err = loadClip(ogg)
	assert.ErrorIs(t, err, ErrUnsupportedSound)

	_, err = loadClip(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)
}

func TestSynthChime(t *testing.T) {
	short, long := 0.15, 0.3

	c := synthChime()

	assert.Equal(t, chimeSampleRate, c.sampleRate)
	assert.Len(t, c.samples, int(short*chimeSampleRate)+int(long*chimeSampleRate))
	assert.Equal(t, int16(0), c.samples[0], "each tone starts at phase zero")
}

func TestClipPCM_Volume(t *testing.T) {
	c := &clip{samples: []int16{1000, -1000, 32767}}

	pcm := c.pcm(0.5)

	require.Len(t, pcm, 6)
	assert.Equal(t, int16(500), int16(binary.LittleEndian.Uint16(pcm[0:])))
	assert.Equal(t, int16(-500), int16(binary.LittleEndian.Uint16(pcm[2:])))
	assert.Equal(t, int16(16383), int16(binary.LittleEndian.Uint16(pcm[4:])))
}
