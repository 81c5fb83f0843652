package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Progress Emitter (spec.md §4.7): ticks at ≈330ms while
 *		Playing, coalescing snapshots so a burst of position
 *		updates from the Frame Pump never queues more than the
 *		latest one.
 *
 * Description:	Generalizes the teacher's appserver.go periodic poll
 *		loop (a ticker driving a broadcast to open sessions) from
 *		its 1Hz cadence to this spec's progress cadence and
 *		coalesce-latest rule.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"time"
)

const progressTickInterval = 330 * time.Millisecond

// ProgressUpdate is the payload broadcast once per tick while Playing,
// and exactly once more (with AudioCompleted=true) on stream end.
type ProgressUpdate struct {
	Playing                  bool    `json:"playing"`
	AudioCompleted           bool    `json:"audio_completed"`
	DurationS                float64 `json:"duration"`
	ProgressPercent          float64 `json:"progress_percent"`
	PositionSamples          int64   `json:"position_samples"`
	UnderflowEventsSinceLast int64   `json:"underflow_events_since_last"`
}

// ProgressEmitter owns the ticker and the single-slot coalescing
// channel consumers read from.
type ProgressEmitter struct {
	job    *Job
	Out    chan ProgressUpdate
	ticker *time.Ticker

	lastUnderflowCount int64
}

// NewProgressEmitter constructs an emitter for job. Out has capacity 1
// so a slow consumer only ever sees the most recent tick.
func NewProgressEmitter(job *Job) *ProgressEmitter {
	return &ProgressEmitter{
		job: job,
		Out: make(chan ProgressUpdate, 1),
	}
}

// Run ticks until ctx is canceled, coalescing into Out, and publishes
// only on ticks where the state is Playing. It never sends the final
// AudioCompleted=true update itself; PublishCompletion does.
func (e *ProgressEmitter) Run(ctx context.Context) {
	e.ticker = time.NewTicker(progressTickInterval)
	defer e.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.ticker.C:
			if e.job.Transport.Current() != StatePlaying {
				continue
			}
			e.publish(false)
		}
	}
}

// PublishCompletion sends the terminal playback_completed snapshot.
// Called by the Daemon immediately after driving the Transport into
// Completed, not by Run's own ticker.
func (e *ProgressEmitter) PublishCompletion() {
	e.publish(true)
}

func (e *ProgressEmitter) publish(completed bool) {
	snap := e.job.Snapshot()

	underflowDelta := snap.UnderflowEvents - e.lastUnderflowCount
	e.lastUnderflowCount = snap.UnderflowEvents

	var durationS, progressPct float64
	if snap.SampleRateHz > 0 {
		durationS = float64(snap.TotalSamples) / float64(snap.SampleRateHz)
	}
	if snap.TotalSamples > 0 {
		progressPct = float64(snap.PositionSamples) / float64(snap.TotalSamples) * 100
	}

	update := ProgressUpdate{
		Playing:                  snap.State == StatePlaying,
		AudioCompleted:           completed,
		DurationS:                durationS,
		ProgressPercent:          progressPct,
		PositionSamples:          snap.PositionSamples,
		UnderflowEventsSinceLast: underflowDelta,
	}

	// Coalesce: drop a stale pending update before sending the latest.
	select {
	case <-e.Out:
	default:
	}
	select {
	case e.Out <- update:
	default:
	}
}
