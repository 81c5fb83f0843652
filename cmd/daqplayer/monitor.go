package main

/*------------------------------------------------------------------
 *
 * Purpose:	`daqplayer monitor` (spec.md §4.9 ambient CLI addition): a
 *		live, raw-terminal transport view with single-key
 *		controls, reading progress_update messages off the
 *		control socket while forwarding keypresses back onto it.
 *
 * Description:	Generalizes walk96.go/serial_port.go's github.com/
 *		pkg/term usage (there: raw serial I/O to a GPS/TNC) to
 *		raw keyboard input against a local tty.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pkg/term"

	daqcore "github.com/daqplay/daqplayer/src"
)

type monitorState struct {
	mu       sync.Mutex
	snapshot daqcore.PlaybackJobSnapshot
	known    bool
}

func (m *monitorState) update(snap daqcore.PlaybackJobSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snap
	m.known = true
}

func (m *monitorState) get() (daqcore.PlaybackJobSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, m.known
}

func runMonitor(addr string) int {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "daqplayer monitor: %v\n", err)
		return 1
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	state := &monitorState{}
	send := func(task string, data interface{}) {
		var raw json.RawMessage
		if data != nil {
			b, _ := json.Marshal(data)
			raw = b
		}
		_ = enc.Encode(daqcore.ControlRequest{ID: "monitor", Task: task, Data: raw})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for scanner.Scan() {
			var reply daqcore.ControlReply
			if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
				continue
			}
			var snap daqcore.PlaybackJobSnapshot
			if err := reDecode(reply.Data, &snap); err == nil && snap.SampleRateHz > 0 {
				state.update(snap)
			}
		}
	}()

	send("status", nil)

	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "daqplayer monitor: opening tty: %v\n", err)
		return 1
	}
	defer tty.Restore()
	defer tty.Close()

	fmt.Println("space=pause/resume  left/right=seek -5s/+5s  m=mute  q=quit")

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 3)
		for {
			n, err := tty.Read(buf)
			if err != nil || n == 0 {
				close(keys)
				return
			}
			keys <- buf[0]
			if n >= 3 && buf[0] == 0x1b {
				keys <- buf[2]
			}
		}
	}()

	for {
		select {
		case <-done:
			return 0
		case <-ticker.C:
			printStatusLine(state)
		case k, ok := <-keys:
			if !ok {
				return 0
			}
			if handleMonitorKey(k, state, send) {
				return 0
			}
		}
	}
}

// handleMonitorKey interprets one keypress (or, for arrow keys, the
// third byte of the ESC [ A/B/C/D sequence) and returns true to quit.
func handleMonitorKey(k byte, state *monitorState, send func(task string, data interface{})) bool {
	switch k {
	case 'q', 'Q', 3: // q or Ctrl-C
		return true
	case ' ':
		snap, ok := state.get()
		if !ok {
			return false
		}
		if snap.State == daqcore.StatePlaying {
			send("pause", nil)
		} else {
			send("resume", nil)
		}
	case 'm', 'M':
		snap, ok := state.get()
		if ok {
			vol := 0
			if snap.Muted {
				vol = snap.VolumePct
			}
			send("volume", map[string]int{"volume": vol})
		}
	case 'C': // right arrow
		snap, ok := state.get()
		if ok {
			seekRelative(snap, send, 5)
		}
	case 'D': // left arrow
		snap, ok := state.get()
		if ok {
			seekRelative(snap, send, -5)
		}
	}
	return false
}

func seekRelative(snap daqcore.PlaybackJobSnapshot, send func(task string, data interface{}), deltaS int64) {
	if snap.SampleRateHz == 0 {
		return
	}
	pos := snap.PositionSamples + deltaS*int64(snap.SampleRateHz)
	if pos < 0 {
		pos = 0
	}
	send("seek", map[string]int64{"position": pos})
}

func printStatusLine(state *monitorState) {
	snap, ok := state.get()
	if !ok {
		return
	}
	posS := float64(0)
	durS := float64(0)
	if snap.SampleRateHz > 0 {
		posS = float64(snap.PositionSamples) / float64(snap.SampleRateHz)
		durS = float64(snap.TotalSamples) / float64(snap.SampleRateHz)
	}
	fmt.Printf("\r[%-9s] %6.1fs / %6.1fs  vol=%3d%%  underflows=%d   ",
		snap.State, posS, durS, snap.VolumePct, snap.UnderflowEvents)
}

func reDecode(src interface{}, dst interface{}) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
