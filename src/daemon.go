package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Daemon wires the Device Registry, the current
 *		PlaybackJob's Transport/Frame Pump/Progress Emitter, and
 *		the Control Protocol server into one explicitly
 *		constructed object (spec.md §9's "no ambient globals"
 *		redesign note), rather than the teacher's package-level
 *		state (all_ports, save_audio_config_p, etc.).
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Daemon owns exactly one PlaybackJob at a time; load_audio tears down
// the previous one (if any) before building the next, per the
// Transport's "any → load_audio → Loaded" transition.
type Daemon struct {
	cfg      Config
	logger   *log.Logger
	Registry *Registry
	library  LibraryIndex

	startedAt time.Time

	mu       sync.Mutex
	job      *Job
	pump     *FramePump
	emitter  *ProgressEmitter
	emitCtx  context.Context
	emitStop context.CancelFunc
}

// NewDaemon constructs a Daemon from cfg. library may be nil; load_audio
// then builds the AudioAsset by probing the Decoder directly
// (ProbeAsset), since spec.md §4.8 names the library a collaborator,
// not a core responsibility.
func NewDaemon(cfg Config, logger *log.Logger, library LibraryIndex) *Daemon {
	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		Registry:  NewRegistry(len(cfg.DefaultDOLines)),
		library:   library,
		startedAt: time.Now(),
	}
}

// CurrentState returns Idle when no job has ever been loaded.
func (d *Daemon) CurrentState() TransportState {
	d.mu.Lock()
	job := d.job
	d.mu.Unlock()
	if job == nil {
		return StateIdle
	}
	return job.Transport.Current()
}

// Snapshot returns the current job's snapshot, or ok=false if no job
// has been loaded yet.
func (d *Daemon) Snapshot() (PlaybackJobSnapshot, bool) {
	d.mu.Lock()
	job := d.job
	d.mu.Unlock()
	if job == nil {
		return PlaybackJobSnapshot{}, false
	}
	return job.Snapshot(), true
}

// Pid returns the daemon process's pid, for the healthcheck/pid tasks.
func (d *Daemon) Pid() int { return os.Getpid() }

// currentJob returns the live job, if any, for handlers that need to
// touch it directly (volume/seek/flip) without going through a full
// Transport-driven Daemon method.
func (d *Daemon) currentJob() (*Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.job == nil {
		return nil, false
	}
	return d.job, true
}

// LoadAudio tears down any existing job and builds a new one bound to
// device/channels, priming the decoder and channel mapper but not yet
// starting generation (Idle/any → Loaded).
func (d *Daemon) LoadAudio(asset AudioAsset, device DeviceDescriptor, channels ChannelSpec, samplesPerFrame int) (PlaybackJobSnapshot, error) {
	if err := d.Registry.Validate(device, channels); err != nil {
		return PlaybackJobSnapshot{}, err
	}

	codec, err := DetectCodec(asset.Path)
	if err != nil {
		return PlaybackJobSnapshot{}, err
	}

	f, err := os.Open(asset.Path)
	if err != nil {
		return PlaybackJobSnapshot{}, &DecoderError{Reason: "opening " + asset.Path, Err: err}
	}

	dec, err := OpenDecoder(codec, f, f)
	if err != nil {
		f.Close()
		return PlaybackJobSnapshot{}, err
	}

	mapper, err := NewChannelMapper(dec.ChannelCount(), len(channels.AOLines))
	if err != nil {
		dec.Close()
		return PlaybackJobSnapshot{}, err
	}

	if samplesPerFrame <= 0 {
		samplesPerFrame = d.cfg.SamplesPerFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.teardownLocked()

	job := NewJob(asset, device, channels, dec, mapper)
	job.SamplesPerFrame = samplesPerFrame

	if err := job.Transport.Apply("load_audio", func(from TransportState) (TransportState, error) {
		if from == StateIdle {
			return StateLoaded, nil
		}
		return checkTransition(from, "load_audio")
	}); err != nil {
		dec.Close()
		return PlaybackJobSnapshot{}, err
	}

	d.job = job
	return job.Snapshot(), nil
}

// Play starts (or resumes) generation: Loaded/Paused/Completed →
// Playing. startPosition, when non-nil, seeks first.
func (d *Daemon) Play(startPosition *int64) (PlaybackJobSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	job := d.job
	if job == nil {
		return PlaybackJobSnapshot{}, &ValidationError{Reason: "no job loaded"}
	}

	from := job.Transport.Current()

	if from == StateCompleted {
		job.SetPosition(0)
		if err := job.Decoder.SeekToSample(0); err != nil {
			return PlaybackJobSnapshot{}, err
		}
	}
	if startPosition != nil {
		if err := d.seekLocked(*startPosition); err != nil {
			return PlaybackJobSnapshot{}, err
		}
	}

	err := job.Transport.Apply("play", func(from TransportState) (TransportState, error) {
		return checkTransition(from, "play")
	})
	if err != nil {
		return PlaybackJobSnapshot{}, err
	}

	if d.pump == nil {
		if err := d.openTasksLocked(); err != nil {
			d.teardownLocked()
			return PlaybackJobSnapshot{}, err
		}
	}
	if err := d.pump.Start(); err != nil {
		d.teardownLocked()
		return PlaybackJobSnapshot{}, err
	}
	d.startEmitterLocked()

	return job.Snapshot(), nil
}

// Pause stops generation, retaining position: Playing → Paused.
func (d *Daemon) Pause() (PlaybackJobSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	job := d.job
	if job == nil {
		return PlaybackJobSnapshot{}, &ValidationError{Reason: "no job loaded"}
	}

	err := job.Transport.Apply("pause", func(from TransportState) (TransportState, error) {
		return checkTransition(from, "pause")
	})
	if err != nil {
		return PlaybackJobSnapshot{}, err
	}

	if d.pump != nil {
		_ = d.pump.Stop()
	}
	d.stopEmitterLocked()

	return job.Snapshot(), nil
}

// Seek stops tasks, repositions the decoder, and resumes in whichever
// state preceded it (Playing or Paused), per spec.md §4.4. From Loaded
// it only repositions the decoder; the state stays Loaded.
func (d *Daemon) Seek(positionSamples int64) (PlaybackJobSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	job := d.job
	if job == nil {
		return PlaybackJobSnapshot{}, &ValidationError{Reason: "no job loaded"}
	}
	if positionSamples < 0 || positionSamples > job.TotalSamples {
		return PlaybackJobSnapshot{}, &ValidationError{Reason: "seek position out of range"}
	}

	if job.Transport.Current() == StateLoaded {
		if err := d.seekLocked(positionSamples); err != nil {
			return PlaybackJobSnapshot{}, err
		}
		return job.Snapshot(), nil
	}

	wasPlaying := job.Transport.Current() == StatePlaying

	err := job.Transport.Apply("seek", func(from TransportState) (TransportState, error) {
		return checkTransition(from, "seek")
	})
	if err != nil {
		return PlaybackJobSnapshot{}, err
	}

	if d.pump != nil {
		_ = d.pump.Stop()
	}

	if err := d.seekLocked(positionSamples); err != nil {
		return PlaybackJobSnapshot{}, err
	}

	event := "resume_paused"
	if wasPlaying {
		event = "resume_playing"
	}
	if err := job.Transport.Apply(event, func(from TransportState) (TransportState, error) {
		return checkTransition(from, event)
	}); err != nil {
		return PlaybackJobSnapshot{}, err
	}

	if wasPlaying {
		if d.pump != nil {
			_ = d.pump.Start()
		}
		d.startEmitterLocked()
	}

	return job.Snapshot(), nil
}

func (d *Daemon) seekLocked(positionSamples int64) error {
	job := d.job
	if err := job.Decoder.SeekToSample(positionSamples); err != nil {
		return err
	}
	job.SetPosition(positionSamples)
	return nil
}

// Terminate tears down the current job entirely: any → Idle.
func (d *Daemon) Terminate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownLocked()
	return nil
}

func (d *Daemon) teardownLocked() {
	d.stopEmitterLocked()
	if d.pump != nil {
		_ = d.pump.Close()
		d.pump = nil
	}
	if d.job != nil {
		_ = d.job.Decoder.Close()
		_ = d.job.Transport.Apply("terminate", func(from TransportState) (TransportState, error) {
			return StateIdle, nil
		})
		d.job = nil
	}
}

func (d *Daemon) openTasksLocked() error {
	job := d.job
	ao, err := OpenAOTask(job.Device.Name, len(job.Channels.AOLines), job.SampleRateHz, job.SamplesPerFrame, nil)
	if err != nil {
		return err
	}

	lineOffsets := make(map[string]int, len(job.Channels.DOLines))
	for _, name := range job.Channels.DOLines {
		if off, ok := d.cfg.DOLineOffsets[name]; ok {
			lineOffsets[name] = off
		}
	}
	do, err := OpenDOTask(d.cfg.DOChip, lineOffsets)
	if err != nil {
		_ = ao.Close()
		return err
	}

	pump := NewFramePump(job, ao, do)
	ao.pull = pump.Pull
	d.pump = pump

	go d.watchPumpEvents(pump)

	return nil
}

// watchPumpEvents handles exactly one event from pump: every
// PumpEventKind the Frame Pump sends ends that pump's use (escalation
// and stream end set its stopped flag before sending; a driver error
// makes this goroutine tear the pump down), so this goroutine exits
// after its first event rather than looping on a channel nothing will
// close.
func (d *Daemon) watchPumpEvents(pump *FramePump) {
	var ev PumpEvent
	select {
	case e := <-pump.Events:
		ev = e
	case <-pump.Done:
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pump != pump {
		return
	}

	switch ev.Kind {
	case PumpStreamEnd:
		job := d.job
		if job != nil {
			_ = job.Transport.Apply("stream_end", func(from TransportState) (TransportState, error) {
				if to, err := checkTransition(from, "stream_end"); err == nil {
					return to, nil
				}
				return from, nil
			})
		}
		_ = d.pump.Stop()
		if d.emitter != nil {
			d.emitter.PublishCompletion()
		}
		d.stopEmitterLocked()
	case PumpUnderflowEscalation:
		job := d.job
		if job != nil {
			job.SetLastError(ev.Err)
			_ = job.Transport.Apply("pause", func(from TransportState) (TransportState, error) {
				if to, err := checkTransition(from, "pause"); err == nil {
					return to, nil
				}
				return from, nil
			})
		}
		_ = d.pump.Stop()
		d.stopEmitterLocked()
	case PumpDriverError:
		if d.job != nil {
			d.job.SetLastError(ev.Err)
			_ = d.job.Transport.Apply("device_lost", func(from TransportState) (TransportState, error) {
				if to, err := checkTransition(from, "device_lost"); err == nil {
					return to, nil
				}
				return from, nil
			})
		}
		d.teardownLocked()
	}
}

func (d *Daemon) startEmitterLocked() {
	if d.emitter != nil {
		return
	}
	d.emitter = NewProgressEmitter(d.job)
	d.emitCtx, d.emitStop = context.WithCancel(context.Background())
	go d.emitter.Run(d.emitCtx)
}

func (d *Daemon) stopEmitterLocked() {
	if d.emitStop != nil {
		d.emitStop()
		d.emitStop = nil
	}
	d.emitter = nil
}

// ProgressChan returns the running emitter's channel, or nil if
// nothing is currently playing.
func (d *Daemon) ProgressChan() <-chan ProgressUpdate {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.emitter == nil {
		return nil
	}
	return d.emitter.Out
}
