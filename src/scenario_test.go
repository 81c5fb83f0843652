package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	End-to-end coverage of spec.md §8's scenarios that don't
 *		require real portaudio/gpiod hardware: load/volume/seek/
 *		flip/terminate driven through the same Daemon+ControlServer
 *		dispatch path a real client exercises, stopping short of
 *		Play (which needs an actual output device).
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	logger := NewLogger("test", "error")
	return NewDaemon(Config{SamplesPerFrame: 512}, logger, nil)
}

func writeTempWAV(t *testing.T, samples []int16, channels int) string {
	t.Helper()
	r := buildWAV(t, 44100, channels, samples)
	f, err := os.CreateTemp(t.TempDir(), "scenario-*.wav")
	require.NoError(t, err)
	_, err = r.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func dispatchReq(t *testing.T, s *ControlServer, session *ControlSession, task string, data interface{}) ControlReply {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		raw = b
	}
	reply, _ := s.dispatch(context.Background(), session, ControlRequest{ID: "t", Task: task, Data: raw})
	return reply
}

func TestScenarioLoadAudioReachesLoadedState(t *testing.T) {
	path := writeTempWAV(t, make([]int16, 44100*2), 2)

	d := newTestDaemon(t)
	device := DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 0}

	asset, err := ProbeAsset(path)
	require.NoError(t, err)

	snap, err := d.LoadAudio(asset, device, ChannelSpec{AOLines: []string{"ao0", "ao1"}}, 0)
	require.NoError(t, err)

	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, 44100, snap.SampleRateHz)
	assert.Equal(t, int64(44100), snap.TotalSamples)
	assert.Equal(t, 100, snap.VolumePct)
}

func TestScenarioVolumeAndFlipViaControlServer(t *testing.T) {
	path := writeTempWAV(t, make([]int16, 44100*2), 2)

	d := newTestDaemon(t)
	asset, err := ProbeAsset(path)
	require.NoError(t, err)
	_, err = d.LoadAudio(asset, DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 0}, ChannelSpec{AOLines: []string{"ao0", "ao1"}}, 0)
	require.NoError(t, err)

	s := NewControlServer(d, NewLogger("test", "error"))
	session := &ControlSession{ID: "sess1"}

	volReply := dispatchReq(t, s, session, "volume", map[string]int{"volume": 42})
	assert.Equal(t, statusSuccess, volReply.Status)

	statusReply := dispatchReq(t, s, session, "status", nil)
	snap, ok := statusReply.Data.(PlaybackJobSnapshot)
	require.True(t, ok)
	assert.Equal(t, 42, snap.VolumePct)

	flipReply := dispatchReq(t, s, session, "flip_lr_stereo", map[string]bool{"flip_lr_stereo": true})
	assert.Equal(t, statusSuccess, flipReply.Status)

	statusReply = dispatchReq(t, s, session, "status", nil)
	snap = statusReply.Data.(PlaybackJobSnapshot)
	assert.True(t, snap.FlipLRStereo)
}

func TestScenarioFlipRejectedForMonoSource(t *testing.T) {
	path := writeTempWAV(t, make([]int16, 44100), 1)

	d := newTestDaemon(t)
	asset, err := ProbeAsset(path)
	require.NoError(t, err)
	_, err = d.LoadAudio(asset, DeviceDescriptor{Name: "dev0", AOLineCount: 4, DOLineCount: 0}, ChannelSpec{AOLines: []string{"ao0", "ao1", "ao2", "ao3"}}, 0)
	require.NoError(t, err)

	s := NewControlServer(d, NewLogger("test", "error"))
	session := &ControlSession{ID: "sess2"}

	reply := dispatchReq(t, s, session, "flip_lr_stereo", map[string]bool{"flip_lr_stereo": true})
	assert.Equal(t, statusError, reply.Status)
}

func TestScenarioSeekUpdatesPosition(t *testing.T) {
	path := writeTempWAV(t, make([]int16, 44100*2*2), 2)

	d := newTestDaemon(t)
	asset, err := ProbeAsset(path)
	require.NoError(t, err)
	_, err = d.LoadAudio(asset, DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 0}, ChannelSpec{AOLines: []string{"ao0", "ao1"}}, 0)
	require.NoError(t, err)

	s := NewControlServer(d, NewLogger("test", "error"))
	session := &ControlSession{ID: "sess3"}

	reply := dispatchReq(t, s, session, "seek", map[string]int64{"position": 44100})
	assert.Equal(t, statusSuccess, reply.Status)

	posReply := dispatchReq(t, s, session, "get_position", nil)
	data, ok := posReply.Data.(map[string]float64)
	require.True(t, ok)
	assert.InDelta(t, 1.0, data["position_s"], 0.001)
}

func TestScenarioSeekOutOfRangeRejected(t *testing.T) {
	path := writeTempWAV(t, make([]int16, 44100*2), 2)

	d := newTestDaemon(t)
	asset, err := ProbeAsset(path)
	require.NoError(t, err)
	_, err = d.LoadAudio(asset, DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 0}, ChannelSpec{AOLines: []string{"ao0", "ao1"}}, 0)
	require.NoError(t, err)

	s := NewControlServer(d, NewLogger("test", "error"))
	session := &ControlSession{ID: "sess4"}

	reply := dispatchReq(t, s, session, "seek", map[string]int64{"position": 999_999_999})
	assert.Equal(t, statusError, reply.Status)
}

func TestScenarioTerminateReturnsToIdle(t *testing.T) {
	path := writeTempWAV(t, make([]int16, 44100*2), 2)

	d := newTestDaemon(t)
	asset, err := ProbeAsset(path)
	require.NoError(t, err)
	_, err = d.LoadAudio(asset, DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 0}, ChannelSpec{AOLines: []string{"ao0", "ao1"}}, 0)
	require.NoError(t, err)

	s := NewControlServer(d, NewLogger("test", "error"))
	session := &ControlSession{ID: "sess5"}

	reply := dispatchReq(t, s, session, "terminate", nil)
	assert.Equal(t, statusSuccess, reply.Status)
	assert.Equal(t, StateIdle, d.CurrentState())

	posReply := dispatchReq(t, s, session, "get_position", nil)
	assert.Equal(t, statusError, posReply.Status)
}

func TestScenarioLoadAudioReplacesExistingJob(t *testing.T) {
	firstPath := writeTempWAV(t, make([]int16, 44100*2), 2)
	secondPath := writeTempWAV(t, make([]int16, 22050*2), 2)

	d := newTestDaemon(t)
	firstAsset, err := ProbeAsset(firstPath)
	require.NoError(t, err)
	_, err = d.LoadAudio(firstAsset, DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 0}, ChannelSpec{AOLines: []string{"ao0", "ao1"}}, 0)
	require.NoError(t, err)

	secondAsset, err := ProbeAsset(secondPath)
	require.NoError(t, err)
	snap, err := d.LoadAudio(secondAsset, DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 0}, ChannelSpec{AOLines: []string{"ao0", "ao1"}}, 0)
	require.NoError(t, err)

	assert.Equal(t, secondPath, snap.Asset.Path)
	assert.Equal(t, int64(22050), snap.TotalSamples)
}
