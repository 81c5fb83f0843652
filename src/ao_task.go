package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	AO task: owns the portaudio output stream the Frame Pump
 *		writes generated samples into. Grounded on the
 *		gordonklaus/portaudio callback style shown in the pack's
 *		microphone.go, inverted from capture to playback.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// AOTask drives one portaudio output stream in continuous generation
// mode. The Frame Pump supplies samples by setting pull just before
// Start and never touching the stream directly thereafter; pull is
// invoked on portaudio's own callback thread and must not block.
type AOTask struct {
	stream *portaudio.Stream
	pull   func(out []float32)
}

// OpenAOTask finds device by name among portaudio's devices and opens
// an output-only stream at sampleRateHz with channelCount channels and
// framesPerBuffer frames per callback.
func OpenAOTask(deviceName string, channelCount, sampleRateHz, framesPerBuffer int, pull func(out []float32)) (*AOTask, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &DeviceError{Reason: "initializing portaudio", Err: err}
	}

	dev, err := findOutputDevice(deviceName)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channelCount,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRateHz),
		FramesPerBuffer: framesPerBuffer,
	}

	t := &AOTask{pull: pull}
	stream, err := portaudio.OpenStream(params, t.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, &DeviceError{Reason: "opening AO stream", Err: err}
	}
	t.stream = stream
	return t, nil
}

func (t *AOTask) callback(out []float32) {
	t.pull(out)
}

// Start begins continuous generation. The first sample written after
// Start is, best-effort, coincident with the DO task's first HIGH
// transition; see DOTask.Start.
func (t *AOTask) Start() error {
	if err := t.stream.Start(); err != nil {
		return &DeviceError{Reason: "starting AO stream", Err: err}
	}
	return nil
}

// Stop halts generation without closing the stream; Start may be
// called again to resume (spec.md §4.4 Paused → Playing).
func (t *AOTask) Stop() error {
	if err := t.stream.Stop(); err != nil {
		return &DeviceError{Reason: "stopping AO stream", Err: err}
	}
	return nil
}

// Close releases the stream and the portaudio host session.
func (t *AOTask) Close() error {
	err := t.stream.Close()
	portaudio.Terminate()
	if err != nil {
		return &DeviceError{Reason: "closing AO stream", Err: err}
	}
	return nil
}

func findOutputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, &DeviceError{Reason: "enumerating devices", Err: err}
	}
	for _, d := range devices {
		if d.Name == name && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, &DeviceError{Reason: fmt.Sprintf("output device %q not found", name)}
}
