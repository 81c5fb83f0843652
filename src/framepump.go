package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Frame Pump (spec.md §4.5): owns the AO and DO tasks for
 *		one PlaybackJob and runs the per-callback
 *		decode → map → enqueue loop on portaudio's own real-time
 *		thread.
 *
 * Description:	Generalizes audio.go's audio_flush/retry-then-recover
 *		loop from ALSA xrun recovery to the decoder-short-read
 *		and driver-error handling this spec calls for. Escalation
 *		(three underflows in two seconds, or any driver error)
 *		must not act on the Transport from inside the real-time
 *		callback, so it is reported over a buffered channel for
 *		the daemon's event loop to act on instead.
 *
 *---------------------------------------------------------------*/

import (
	"time"
)

// PumpEventKind names why the Frame Pump stopped pulling samples on
// its own.
type PumpEventKind int

const (
	PumpUnderflowEscalation PumpEventKind = iota
	PumpDriverError
	PumpStreamEnd
)

// PumpEvent is sent (non-blocking, best-effort) to Events whenever the
// pump needs the owning Daemon to act on the Transport from outside
// the audio callback.
type PumpEvent struct {
	Kind PumpEventKind
	Err  error
}

// FramePump drives one Job's AO+DO tasks from portaudio's callback.
type FramePump struct {
	job    *Job
	ao     *AOTask
	do     *DOTask
	Events chan PumpEvent
	Done   chan struct{} // closed by Close, so a watcher blocked on Events can exit

	srcFrame []float32 // one source-channel-width frame, reused
	stopped  bool
}

// NewFramePump allocates the pump's scratch buffer at
// job.Mapper.SourceChannels width and wires it to ao/do. The pump does not
// start generation itself; call Start once both tasks are ready.
func NewFramePump(job *Job, ao *AOTask, do *DOTask) *FramePump {
	p := &FramePump{
		job:      job,
		ao:       ao,
		do:       do,
		Events:   make(chan PumpEvent, 8),
		Done:     make(chan struct{}),
		srcFrame: make([]float32, job.Mapper.SourceChannels),
	}
	return p
}

// Start raises the DO lines then starts AO generation, so the DO
// HIGH transition precedes the first generated sample by at most one
// syscall's worth of jitter (the closest this stack gets to the
// shared hardware start trigger of spec.md §4.5; see SPEC_FULL.md §4.5).
func (p *FramePump) Start() error {
	if err := p.do.Start(); err != nil {
		return err
	}
	if err := p.ao.Start(); err != nil {
		_ = p.do.Stop()
		return err
	}
	return nil
}

// Stop halts AO generation then lowers the DO lines, in the spec's
// documented order for Playing → Paused and stream-end.
func (p *FramePump) Stop() error {
	aoErr := p.ao.Stop()
	doErr := p.do.Stop()
	if aoErr != nil {
		return aoErr
	}
	return doErr
}

// Close releases both tasks permanently and unblocks any goroutine
// waiting on Events for a terminal pump event that will now never come.
func (p *FramePump) Close() error {
	aoErr := p.ao.Close()
	doErr := p.do.Close()
	close(p.Done)
	if aoErr != nil {
		return aoErr
	}
	return doErr
}

// Pull is the AOTask's callback target: it fills out (interleaved,
// AOLineCount wide) with exactly len(out)/AOLineCount mapped frames,
// decoding, mapping, and advancing position_samples synchronously.
// Called on portaudio's real-time thread; never blocks longer than
// one decoder read. Pull itself allocates nothing, but the decoder
// reads it makes do: the WAV decoder allocates a byte buffer on every
// ReadInto, and the FLAC decoder one sample buffer per FLAC frame.
func (p *FramePump) Pull(out []float32) {
	if p.stopped {
		for i := range out {
			out[i] = 0
		}
		return
	}

	aoLines := p.job.Mapper.AOLineCount
	nFrames := len(out) / aoLines
	gain, flip := p.job.VolumeAndFlip()

	framesWritten := 0
	for framesWritten < nFrames {
		n, err := p.job.Decoder.ReadInto(p.srcFrame, 1)
		if err != nil {
			p.handleDecoderError(err)
			zeroFrom(out, framesWritten, aoLines)
			return
		}
		if n == 0 {
			// A short/empty read with no error is the one signal
			// (spec.md §4.5) a decoder uses both for a transient
			// stall and for true end-of-stream; total_samples is the
			// only thing that tells them apart, exactly as the
			// advancing-position check below already does for a
			// successful read.
			if p.job.Position() >= p.job.TotalSamples {
				zeroFrom(out, framesWritten, aoLines)
				p.signalStreamEnd()
				return
			}
			if p.handleUnderflow() {
				zeroFrom(out, framesWritten, aoLines)
				return
			}
			dst := out[framesWritten*aoLines : (framesWritten+1)*aoLines]
			for i := range dst {
				dst[i] = 0
			}
			framesWritten++
			continue
		}

		dst := out[framesWritten*aoLines : (framesWritten+1)*aoLines]
		p.job.Mapper.Map(p.srcFrame, dst, flip, gain)

		framesWritten++
		p.job.AdvancePosition(1)

		if p.job.Position() >= p.job.TotalSamples {
			zeroFrom(out, framesWritten, aoLines)
			p.signalStreamEnd()
			return
		}
	}
}

func zeroFrom(out []float32, fromFrame, aoLines int) {
	for i := fromFrame * aoLines; i < len(out); i++ {
		out[i] = 0
	}
}

func (p *FramePump) handleDecoderError(err error) {
	p.job.SetLastError(err)
	if escalate := p.job.RecordUnderflow(time.Now()); escalate {
		p.stopped = true
		p.send(PumpEvent{Kind: PumpUnderflowEscalation, Err: &UnderflowWarning{MissedSamples: len(p.srcFrame)}})
		return
	}
	p.send(PumpEvent{Kind: PumpDriverError, Err: err})
}

// handleUnderflow records one underflow event for a short/empty read
// that has not yet reached end-of-stream, escalating to Paused after
// three within the two-second window (spec.md §4.5, Scenario 4) just
// like handleDecoderError does for a hard decode error.
func (p *FramePump) handleUnderflow() (escalated bool) {
	warn := &UnderflowWarning{MissedSamples: len(p.srcFrame)}
	p.job.SetLastError(warn)
	if escalate := p.job.RecordUnderflow(time.Now()); escalate {
		p.stopped = true
		p.send(PumpEvent{Kind: PumpUnderflowEscalation, Err: warn})
		return true
	}
	return false
}

func (p *FramePump) signalStreamEnd() {
	if p.stopped {
		return
	}
	p.stopped = true
	p.send(PumpEvent{Kind: PumpStreamEnd})
}

func (p *FramePump) send(ev PumpEvent) {
	select {
	case p.Events <- ev:
	default:
		// Events is only consulted for escalation/completion; a full
		// buffer means the daemon is already tearing the job down.
	}
}
