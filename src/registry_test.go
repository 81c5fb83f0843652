package daqcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ListDevices/Refresh/DriverVersion all require a real portaudio host
// API to initialize, so only Validate (a pure function of its
// arguments) is exercised here.

func TestValidateRejectsEmptyAOLines(t *testing.T) {
	var r = NewRegistry(2)
	var device = DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 2}

	var err = r.Validate(device, ChannelSpec{})
	require.Error(t, err)
}

func TestValidateRejectsTooManyAOLines(t *testing.T) {
	var r = NewRegistry(2)
	var device = DeviceDescriptor{Name: "dev0", AOLineCount: 1, DOLineCount: 2}

	var err = r.Validate(device, ChannelSpec{AOLines: []string{"ao0", "ao1"}})
	require.Error(t, err)
}

func TestValidateRejectsTooManyDOLines(t *testing.T) {
	var r = NewRegistry(2)
	var device = DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 1}

	var err = r.Validate(device, ChannelSpec{AOLines: []string{"ao0"}, DOLines: []string{"do0", "do1"}})
	require.Error(t, err)
}

func TestValidateAcceptsWithinCapacity(t *testing.T) {
	var r = NewRegistry(2)
	var device = DeviceDescriptor{Name: "dev0", AOLineCount: 2, DOLineCount: 2}

	var err = r.Validate(device, ChannelSpec{AOLines: []string{"ao0", "ao1"}, DOLines: []string{"do0"}})
	assert.NoError(t, err)
}
