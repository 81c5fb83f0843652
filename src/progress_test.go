package daqcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressEmitterPublishCompletionSendsTerminalUpdate(t *testing.T) {
	var job = newTestJob(44100, 2, 2)
	job.AdvancePosition(44100)
	require.NoError(t, job.Transport.Apply("load_audio", func(from TransportState) (TransportState, error) {
		return StateLoaded, nil
	}))
	require.NoError(t, job.Transport.Apply("play", func(from TransportState) (TransportState, error) {
		return StatePlaying, nil
	}))
	require.NoError(t, job.Transport.Apply("stream_end", func(from TransportState) (TransportState, error) {
		return StateCompleted, nil
	}))

	var emitter = NewProgressEmitter(job)
	emitter.PublishCompletion()

	select {
	case update := <-emitter.Out:
		assert.True(t, update.AudioCompleted)
		assert.Equal(t, int64(44100), update.PositionSamples)
		assert.InDelta(t, 100.0, update.ProgressPercent, 0.001)
	default:
		t.Fatal("expected a completion update on Out")
	}
}

func TestProgressEmitterCoalescesBurstsToLatest(t *testing.T) {
	var job = newTestJob(1000, 2, 2)
	var emitter = NewProgressEmitter(job)

	emitter.publish(false)
	job.AdvancePosition(10)
	emitter.publish(false)
	job.AdvancePosition(10)
	emitter.publish(false)

	select {
	case update := <-emitter.Out:
		assert.Equal(t, int64(20), update.PositionSamples, "only the latest publish should survive coalescing")
	default:
		t.Fatal("expected a coalesced update on Out")
	}

	select {
	case <-emitter.Out:
		t.Fatal("Out should hold at most one pending update")
	default:
	}
}

func TestProgressEmitterRunOnlyTicksWhilePlaying(t *testing.T) {
	var job = newTestJob(1000, 2, 2)
	var emitter = NewProgressEmitter(job)

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	go emitter.Run(ctx)

	select {
	case <-emitter.Out:
		t.Fatal("emitter must not publish while Idle")
	case <-time.After(progressTickInterval + 100*time.Millisecond):
	}
}

func TestProgressEmitterUnderflowDeltaResetsEachPublish(t *testing.T) {
	var job = newTestJob(1000, 2, 2)
	var emitter = NewProgressEmitter(job)
	var now = time.Now()

	job.RecordUnderflow(now)
	job.RecordUnderflow(now.Add(time.Millisecond))
	emitter.publish(false)
	var first = <-emitter.Out
	assert.Equal(t, int64(2), first.UnderflowEventsSinceLast)

	emitter.publish(false)
	var second = <-emitter.Out
	assert.Equal(t, int64(0), second.UnderflowEventsSinceLast, "delta must be relative to the last publish, not cumulative")
}
