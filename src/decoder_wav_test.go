package daqcore

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildWAV assembles a minimal 16-bit PCM RIFF/WAVE buffer with the
// given interleaved samples, scaled into int16 range.
func buildWAV(t *testing.T, sampleRateHz, channels int, samples []int16) *bytes.Reader {
	t.Helper()

	var dataBytes = make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dataBytes[i*2:], uint16(s))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(dataBytes)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRateHz))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRateHz*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(dataBytes)))
	buf.Write(dataBytes)

	return bytes.NewReader(buf.Bytes())
}

func TestWAVDecoderParsesHeaderFields(t *testing.T) {
	var samples = []int16{100, -100, 200, -200, 300, -300}
	var r = buildWAV(t, 44100, 2, samples)

	var dec, err = newWAVDecoder(r, nopCloser{})
	require.NoError(t, err)
	defer dec.Close()

	assert.Equal(t, 44100, dec.SampleRateHz())
	assert.Equal(t, 2, dec.ChannelCount())
	assert.Equal(t, 16, dec.BitDepth())
	assert.Equal(t, int64(3), dec.TotalSamples())
}

func TestWAVDecoderReadIntoRoundTripsSamples(t *testing.T) {
	var samples = []int16{16384, -16384, 0, 32767, -32768, 1000}
	var r = buildWAV(t, 8000, 2, samples)

	var dec, err = newWAVDecoder(r, nopCloser{})
	require.NoError(t, err)
	defer dec.Close()

	var dst = make([]float32, 6)
	var framesRead, readErr = dec.ReadInto(dst, 3)
	require.NoError(t, readErr)
	assert.Equal(t, 3, framesRead)

	assert.InDelta(t, 0.5, dst[0], 0.001)
	assert.InDelta(t, -0.5, dst[1], 0.001)
}

func TestWAVDecoderReadIntoStopsAtEOF(t *testing.T) {
	var samples = []int16{1, 2, 3, 4}
	var r = buildWAV(t, 8000, 2, samples)

	var dec, err = newWAVDecoder(r, nopCloser{})
	require.NoError(t, err)
	defer dec.Close()

	var dst = make([]float32, 10)
	var framesRead, readErr = dec.ReadInto(dst, 10)
	require.NoError(t, readErr)
	assert.Equal(t, 2, framesRead, "only 2 frames exist in a 2-channel, 4-sample buffer")

	framesRead, readErr = dec.ReadInto(dst, 10)
	require.NoError(t, readErr)
	assert.Equal(t, 0, framesRead, "reading past the end yields zero frames, not an error")
}

func TestWAVDecoderSeekToSampleClampsRange(t *testing.T) {
	var samples = make([]int16, 20)
	var r = buildWAV(t, 8000, 2, samples)

	var dec, err = newWAVDecoder(r, nopCloser{})
	require.NoError(t, err)
	defer dec.Close()

	require.NoError(t, dec.SeekToSample(-5))
	assert.Equal(t, int64(0), dec.nextFrame)

	require.NoError(t, dec.SeekToSample(1000))
	assert.Equal(t, dec.totalSamples, dec.nextFrame)

	require.NoError(t, dec.SeekToSample(3))
	assert.Equal(t, int64(3), dec.nextFrame)
}

func TestWAVDecoderRejectsNonRIFF(t *testing.T) {
	var r = bytes.NewReader([]byte("not a riff file at all"))
	var _, err = newWAVDecoder(r, nopCloser{})
	require.Error(t, err)
}

func TestWAVDecoderRejectsMissingDataChunk(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(20))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint32(44100))
	binary.Write(&buf, binary.LittleEndian, uint32(44100*4))
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	var _, err = newWAVDecoder(bytes.NewReader(buf.Bytes()), nopCloser{})
	require.Error(t, err)
}

func TestDetectCodecByExtension(t *testing.T) {
	var codec, err = DetectCodec("song.WAV")
	require.NoError(t, err)
	assert.Equal(t, CodecWAV, codec)

	codec, err = DetectCodec("song.flac")
	require.NoError(t, err)
	assert.Equal(t, CodecFLAC, codec)

	_, err = DetectCodec("song.ogg")
	require.Error(t, err)
}
