//go:build linux

package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	DO task: drives the named digital-output sync lines HIGH
 *		while the AO task is generating and LOW otherwise
 *		(spec.md §4.5). Generalizes the teacher's sysfs-based PTT
 *		GPIO control (ptt.go) to the modern character-device API.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// DOTask owns one gpiocdev line request per named DO line.
type DOTask struct {
	chip  string
	lines map[string]*gpiocdev.Line
}

// OpenDOTask requests chip/offset output lines for each name in
// lineOffsets. Line names are resolved to chip offsets by the caller's
// Config (the portaudio-backed AO device has no notion of this
// mapping, unlike real NI-DAQmx hardware, so it must come from
// the YAML config's do_line_offsets).
func OpenDOTask(chip string, lineOffsets map[string]int) (*DOTask, error) {
	t := &DOTask{chip: chip, lines: make(map[string]*gpiocdev.Line, len(lineOffsets))}
	for name, offset := range lineOffsets {
		line, err := gpiocdev.RequestLine(chip, offset,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer("daqplayerd"))
		if err != nil {
			t.Close()
			return nil, &DeviceError{Reason: fmt.Sprintf("requesting DO line %q (offset %d)", name, offset), Err: err}
		}
		t.lines[name] = line
	}
	return t, nil
}

// Start drives every DO line HIGH. Called immediately before the AO
// task's Start to keep the two as close to coincident as two separate
// syscalls allow (spec.md §4.5's "share a start trigger" is an
// NI-DAQmx notion with no portaudio/gpiocdev equivalent; see
// SPEC_FULL.md §4.5).
func (t *DOTask) Start() error {
	for name, line := range t.lines {
		if err := line.SetValue(1); err != nil {
			return &DeviceError{Reason: fmt.Sprintf("raising DO line %q", name), Err: err}
		}
	}
	return nil
}

// Stop drives every DO line LOW.
func (t *DOTask) Stop() error {
	for name, line := range t.lines {
		if err := line.SetValue(0); err != nil {
			return &DeviceError{Reason: fmt.Sprintf("lowering DO line %q", name), Err: err}
		}
	}
	return nil
}

// Close releases every requested line, lowering it first.
func (t *DOTask) Close() error {
	var firstErr error
	for _, line := range t.lines {
		_ = line.SetValue(0)
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
