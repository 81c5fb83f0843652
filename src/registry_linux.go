//go:build linux

package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Linux-only hook: watch udev for sound-card attach/detach
 *		so the Device Registry's cache is invalidated promptly
 *		instead of only on an operator-requested refresh.
 *
 *---------------------------------------------------------------*/

import (
	"context"

	"github.com/jochenvg/go-udev"
)

// WatchUSBAttach invalidates r's cache whenever udev reports a sound
// subsystem device appearing or disappearing, until ctx is canceled.
// Callers that don't care about hotplug (tests, non-interactive CLI
// runs) can simply never call this.
func (r *Registry) WatchUSBAttach(ctx context.Context) error {
	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("sound"); err != nil {
		return &DeviceError{Reason: "adding udev sound filter", Err: err}
	}

	devices, err := mon.DeviceChan(ctx)
	if err != nil {
		return &DeviceError{Reason: "starting udev monitor", Err: err}
	}

	go func() {
		for range devices {
			r.mu.Lock()
			r.primed = false
			r.mu.Unlock()
		}
	}()

	return nil
}
