//go:build !linux

package daqcore

import "context"

// WatchUSBAttach is a no-op off Linux; go-udev is Linux-only, so
// hotplug-driven cache invalidation falls back to the operator's
// explicit Refresh on other platforms.
func (r *Registry) WatchUSBAttach(ctx context.Context) error {
	return nil
}
