package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Device Registry (spec.md §4.1): enumerate playback
 *		devices and their capabilities, report a driver version,
 *		and validate a ChannelSpec against a chosen device.
 *
 * Description:	Results are cached after the first enumeration and
 *		refreshed only on explicit request (or, on Linux, after a
 *		udev sound attach/detach event), since probing real
 *		hardware can take anywhere from tens of milliseconds to a
 *		couple of seconds.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Registry caches DeviceDescriptors discovered via portaudio, refreshed
// on Refresh() and, on Linux, nudged by udev attach/detach events (see
// registry_linux.go).
type Registry struct {
	mu      sync.Mutex
	devices []DeviceDescriptor
	primed  bool

	doLineCount int
}

// NewRegistry constructs a Registry. doLineCount is the number of DO
// sync lines assumed present on every enumerated device; real NI-DAQmx
// hardware reports this per device, but the portaudio-backed stand-in
// (see DESIGN.md) has no notion of digital lines, so it is supplied
// from Config.DefaultDOLines instead.
func NewRegistry(doLineCount int) *Registry {
	return &Registry{doLineCount: doLineCount}
}

// ListDevices returns the cached device list, enumerating once on
// first call.
func (r *Registry) ListDevices() ([]DeviceDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.primed {
		if err := r.refreshLocked(); err != nil {
			return nil, err
		}
	}
	return append([]DeviceDescriptor(nil), r.devices...), nil
}

// Refresh forces re-enumeration, discarding any cached result.
func (r *Registry) Refresh() ([]DeviceDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.refreshLocked(); err != nil {
		return nil, err
	}
	return append([]DeviceDescriptor(nil), r.devices...), nil
}

func (r *Registry) refreshLocked() error {
	if err := portaudio.Initialize(); err != nil {
		return &DeviceError{Reason: "initializing portaudio", Err: err}
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return &DeviceError{Reason: "enumerating devices", Err: err}
	}

	devices := make([]DeviceDescriptor, 0, len(infos))
	for _, info := range infos {
		if info.MaxOutputChannels <= 0 {
			continue
		}
		devices = append(devices, DeviceDescriptor{
			Name:            info.Name,
			ProductType:     info.HostApi.Name,
			ProductCategory: "audio-output",
			MaxAORateHz:     info.DefaultSampleRate,
			AOLineCount:     info.MaxOutputChannels,
			DOLineCount:     r.doLineCount,
		})
	}

	r.devices = devices
	r.primed = true
	return nil
}

// DriverVersion reports the portaudio build string, standing in for
// NI-DAQmx's driver version (spec.md §4.1); nil is a legitimate answer
// when the host API doesn't expose one.
func (r *Registry) DriverVersion() (string, bool) {
	v := portaudio.VersionText()
	if v == "" {
		return "", false
	}
	return v, true
}

// Validate confirms that channels is satisfiable on device: every
// referenced AO line must exist (a name "aoN" with N below the device's
// AO line count), and the channel count the mapper will be asked to
// spread across those lines must be positive. DO lines are checked by
// count only; AI line names are not checked.
func (r *Registry) Validate(device DeviceDescriptor, channels ChannelSpec) error {
	if len(channels.AOLines) == 0 {
		return &ValidationError{Reason: "channel spec has no AO lines"}
	}
	if len(channels.AOLines) > device.AOLineCount {
		return &ValidationError{Reason: fmt.Sprintf("device %q has %d AO lines, channel spec needs %d", device.Name, device.AOLineCount, len(channels.AOLines))}
	}
	for _, name := range channels.AOLines {
		idx, err := strconv.Atoi(strings.TrimPrefix(name, "ao"))
		if !strings.HasPrefix(name, "ao") || err != nil || idx < 0 || idx >= device.AOLineCount {
			return &ValidationError{Reason: fmt.Sprintf("AO line %q not present on device %q", name, device.Name)}
		}
	}
	if len(channels.DOLines) > device.DOLineCount {
		return &ValidationError{Reason: fmt.Sprintf("device %q has %d DO lines, channel spec needs %d", device.Name, device.DOLineCount, len(channels.DOLines))}
	}
	return nil
}
