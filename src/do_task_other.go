//go:build !linux

package daqcore

// DOTask is a no-op off Linux; go-gpiocdev talks to the Linux GPIO
// character device and has no portable equivalent. Non-Linux builds
// can still exercise the rest of the Frame Pump against a fake
// Decoder/AOTask, just without real sync-line output.
type DOTask struct{}

func OpenDOTask(chip string, lineOffsets map[string]int) (*DOTask, error) {
	return &DOTask{}, nil
}

func (t *DOTask) Start() error { return nil }
func (t *DOTask) Stop() error  { return nil }
func (t *DOTask) Close() error { return nil }
