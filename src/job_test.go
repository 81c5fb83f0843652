package daqcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fakeDecoder is a minimal in-memory Decoder double: no actual audio
// data, just enough bookkeeping to drive Job/FramePump tests.
type fakeDecoder struct {
	totalSamples int64
	sampleRateHz int
	channels     int
	bitDepth     int
	pos          int64
	closed       bool
	readErr      error

	// stallRemaining forces the next N ReadInto calls to report a
	// transient (n==0, err==nil) short read regardless of position,
	// simulating a decoder that "cannot currently yield samples"
	// (spec.md §4.5) without actually having reached end-of-stream.
	stallRemaining int
}

func (f *fakeDecoder) ReadInto(dest []float32, nFrames int) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if f.stallRemaining > 0 {
		f.stallRemaining--
		return 0, nil
	}
	remaining := f.totalSamples - f.pos
	if remaining <= 0 {
		return 0, nil
	}
	if int64(nFrames) > remaining {
		nFrames = int(remaining)
	}
	f.pos += int64(nFrames)
	return nFrames, nil
}

func (f *fakeDecoder) SeekToSample(n int64) error {
	if n < 0 || n > f.totalSamples {
		return &ValidationError{Reason: "seek out of range"}
	}
	f.pos = n
	return nil
}

func (f *fakeDecoder) TotalSamples() int64 { return f.totalSamples }
func (f *fakeDecoder) SampleRateHz() int   { return f.sampleRateHz }
func (f *fakeDecoder) ChannelCount() int   { return f.channels }
func (f *fakeDecoder) BitDepth() int       { return f.bitDepth }
func (f *fakeDecoder) Close() error        { f.closed = true; return nil }

func newTestJob(totalSamples int64, sourceChannels, aoLines int) *Job {
	job, _ := newTestJobWithDecoder(totalSamples, sourceChannels, aoLines)
	return job
}

func newTestJobWithDecoder(totalSamples int64, sourceChannels, aoLines int) (*Job, *fakeDecoder) {
	var asset = AudioAsset{Path: "test.wav", SampleRateHz: 44100, TotalSamples: totalSamples, ChannelCount: sourceChannels}
	var dec = &fakeDecoder{totalSamples: totalSamples, sampleRateHz: 44100, channels: sourceChannels, bitDepth: 16}
	var mapper, _ = NewChannelMapper(sourceChannels, aoLines)
	return NewJob(asset, DeviceDescriptor{Name: "dev0"}, ChannelSpec{AOLines: []string{"ao0", "ao1"}}, dec, mapper), dec
}

func TestNewJobDefaults(t *testing.T) {
	var job = newTestJob(1000, 2, 2)
	var snap = job.Snapshot()

	assert.Equal(t, 100, snap.VolumePct)
	assert.False(t, snap.Muted)
	assert.False(t, snap.FlipLRStereo)
	assert.Equal(t, LoopNone, snap.LoopMode)
	assert.Equal(t, int64(0), snap.PositionSamples)
	assert.Equal(t, StateIdle, snap.State)
}

func TestSetVolumeRejectsOutOfRange(t *testing.T) {
	var job = newTestJob(1000, 2, 2)

	require.Error(t, job.SetVolume(-1))
	require.Error(t, job.SetVolume(101))
	require.NoError(t, job.SetVolume(0))
	require.NoError(t, job.SetVolume(100))
	assert.Equal(t, 100, job.Snapshot().VolumePct)
}

func TestSetFlipLRStereoDisallowedOutsideStereo(t *testing.T) {
	var mono = newTestJob(1000, 1, 4)
	assert.False(t, mono.SetFlipLRStereo(true), "flip must be rejected for S != 2")
	assert.False(t, mono.Snapshot().FlipLRStereo)

	var stereo = newTestJob(1000, 2, 2)
	assert.True(t, stereo.SetFlipLRStereo(true))
	assert.True(t, stereo.Snapshot().FlipLRStereo)
}

func TestAdvancePositionClampsToTotalSamples(t *testing.T) {
	var job = newTestJob(100, 2, 2)
	job.AdvancePosition(80)
	assert.Equal(t, int64(80), job.Position())

	job.AdvancePosition(50)
	assert.Equal(t, int64(100), job.Position(), "position must never exceed total_samples")
}

func TestSetPositionAbsolute(t *testing.T) {
	var job = newTestJob(1000, 2, 2)
	job.SetPosition(500)
	assert.Equal(t, int64(500), job.Position())
}

func TestRecordUnderflowEscalatesAtThreeWithinWindow(t *testing.T) {
	var job = newTestJob(1000, 2, 2)
	var now = time.Unix(1700000000, 0)

	assert.False(t, job.RecordUnderflow(now))
	assert.False(t, job.RecordUnderflow(now.Add(500*time.Millisecond)))
	assert.True(t, job.RecordUnderflow(now.Add(900*time.Millisecond)), "third underflow within two seconds must escalate")
}

func TestRecordUnderflowWindowExpires(t *testing.T) {
	var job = newTestJob(1000, 2, 2)
	var now = time.Unix(1700000000, 0)

	assert.False(t, job.RecordUnderflow(now))
	assert.False(t, job.RecordUnderflow(now.Add(3*time.Second)))
	assert.False(t, job.RecordUnderflow(now.Add(3200*time.Millisecond)), "first underflow has aged out of the two-second window")
}

func TestSetLastErrorClearsOnNil(t *testing.T) {
	var job = newTestJob(1000, 2, 2)
	job.SetLastError(&ValidationError{Reason: "boom"})
	assert.Contains(t, job.Snapshot().LastError, "boom")

	job.SetLastError(nil)
	assert.Empty(t, job.Snapshot().LastError)
}

func TestVolumeAndFlipReflectsMute(t *testing.T) {
	var job = newTestJob(1000, 2, 2)
	require.NoError(t, job.SetVolume(60))
	job.SetMuted(true)

	var gain, _ = job.VolumeAndFlip()
	assert.Equal(t, float32(0), gain)

	job.SetMuted(false)
	gain, _ = job.VolumeAndFlip()
	assert.Equal(t, float32(0.6), gain)
}

// position_samples is always within [0, total_samples] no matter what
// sequence of AdvancePosition/SetPosition calls a test throws at it.
func TestPositionStaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var total = int64(rapid.IntRange(1, 1_000_000).Draw(t, "total"))
		var job = newTestJob(total, 2, 2)

		var steps = rapid.IntRange(0, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "absolute") {
				job.SetPosition(rapid.Int64Range(0, total).Draw(t, "pos"))
			} else {
				job.AdvancePosition(rapid.Int64Range(0, total).Draw(t, "delta"))
			}
			var pos = job.Position()
			assert.True(t, pos >= 0 && pos <= total)
		}
	})
}
