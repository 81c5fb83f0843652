package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	PlaybackJob: the mutable state shared between the audio
 *		callback thread and control handlers (spec.md §5).
 *
 * Description:	One mutex, two access patterns: the callback takes it
 *		only to read volume/mute/flip and to append to position
 *		and the underflow counter (O(1) work); handlers take it
 *		to mutate those fields or drive the Transport. Never
 *		held across a decoder read or a hardware write.
 *
 *---------------------------------------------------------------*/

import (
	"sync"
	"time"
)

// Job bundles one loaded asset with its device binding, decoder, and
// the fields the Frame Pump and control handlers share.
type Job struct {
	Asset    AudioAsset
	Device   DeviceDescriptor
	Channels ChannelSpec

	SampleRateHz    int
	SamplesPerFrame int
	TotalSamples    int64

	Decoder Decoder
	Mapper  *ChannelMapper

	Transport *Transport

	mu              sync.Mutex
	volumePct       int
	muted           bool
	flipLRStereo    bool
	loopMode        LoopMode
	positionSamples int64
	underflowEvents int64
	underflowWindow []time.Time
	lastError       string
}

// NewJob constructs a Job at default volume (100, unmuted, no flip,
// LoopNone), ready for Loaded.
func NewJob(asset AudioAsset, device DeviceDescriptor, channels ChannelSpec, dec Decoder, mapper *ChannelMapper) *Job {
	return &Job{
		Asset:           asset,
		Device:          device,
		Channels:        channels,
		SampleRateHz:    asset.SampleRateHz,
		TotalSamples:    asset.TotalSamples,
		Decoder:         dec,
		Mapper:          mapper,
		Transport:       NewTransport(),
		volumePct:       100,
		muted:           false,
		flipLRStereo:    false,
		loopMode:        LoopNone,
		underflowWindow: make([]time.Time, 0, 4),
	}
}

// SetVolume validates and stores the 0..100 wire volume.
func (j *Job) SetVolume(pct int) error {
	if pct < 0 || pct > 100 {
		return &ValidationError{Reason: "volume_pct out of range [0,100]"}
	}
	j.mu.Lock()
	j.volumePct = pct
	j.mu.Unlock()
	return nil
}

// SetMuted sets the mute flag.
func (j *Job) SetMuted(muted bool) {
	j.mu.Lock()
	j.muted = muted
	j.mu.Unlock()
}

// SetFlipLRStereo sets the stereo flip flag. Per spec.md §4.3 this is
// ignored (with ok=false) when the mapper's source channel count isn't
// exactly 2; callers should surface a warning in that case.
func (j *Job) SetFlipLRStereo(flip bool) (ok bool) {
	if !j.Mapper.FlipAllowed() {
		return false
	}
	j.mu.Lock()
	j.flipLRStereo = flip
	j.mu.Unlock()
	return true
}

// SetLoopMode stores the reply-echoed loop setting (spec.md §9).
func (j *Job) SetLoopMode(mode LoopMode) {
	j.mu.Lock()
	j.loopMode = mode
	j.mu.Unlock()
}

// VolumeAndFlip returns the current gain multiplier and flip flag in
// one lock acquisition, for the Frame Pump's per-callback read.
func (j *Job) VolumeAndFlip() (gain float32, flip bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Gain(j.volumePct, j.muted), j.flipLRStereo
}

// AdvancePosition appends consumedFrames to position_samples. It never
// exceeds TotalSamples.
func (j *Job) AdvancePosition(consumedFrames int64) {
	j.mu.Lock()
	j.positionSamples += consumedFrames
	if j.positionSamples > j.TotalSamples {
		j.positionSamples = j.TotalSamples
	}
	j.mu.Unlock()
}

// SetPosition is used by seek to set an absolute position.
func (j *Job) SetPosition(samples int64) {
	j.mu.Lock()
	j.positionSamples = samples
	j.mu.Unlock()
}

// Position returns the current position_samples.
func (j *Job) Position() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.positionSamples
}

// RecordUnderflow appends one underflow event to the rolling 2-second
// escalation window and reports whether the threshold (three within
// two seconds) has now been crossed.
func (j *Job) RecordUnderflow(now time.Time) (escalate bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.underflowEvents++

	window := j.underflowWindow[:0]
	for _, t := range j.underflowWindow {
		if now.Sub(t) <= 2*time.Second {
			window = append(window, t)
		}
	}
	window = append(window, now)
	j.underflowWindow = window

	return len(j.underflowWindow) >= 3
}

// SetLastError records the most recent error to surface in the next
// status reply.
func (j *Job) SetLastError(err error) {
	j.mu.Lock()
	if err == nil {
		j.lastError = ""
	} else {
		j.lastError = err.Error()
	}
	j.mu.Unlock()
}

// Snapshot produces a consistent, lock-free-to-read copy for JSON
// replies and progress broadcast.
func (j *Job) Snapshot() PlaybackJobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	return PlaybackJobSnapshot{
		Asset:           j.Asset,
		Device:          j.Device,
		Channels:        j.Channels,
		SampleRateHz:    j.SampleRateHz,
		SamplesPerFrame: j.SamplesPerFrame,
		VolumePct:       j.volumePct,
		Muted:           j.muted,
		FlipLRStereo:    j.flipLRStereo,
		LoopMode:        j.loopMode,
		PositionSamples: j.positionSamples,
		TotalSamples:    j.TotalSamples,
		State:           j.Transport.Current(),
		LastError:       j.lastError,
		UnderflowEvents: j.underflowEvents,
	}
}
