package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Structured logging for the daemon, replacing the
 *		color-coded dw_printf scheme the teacher inherited from
 *		its C origin with the leveled logger the teacher's own
 *		go.mod already pinned but never imported.
 *
 *---------------------------------------------------------------*/

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// NewLogger builds a component-scoped logger at the given level
// ("debug", "info", "warn", "error"). An empty level defaults to info.
func NewLogger(component string, level string) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	l.SetLevel(parseLevel(level))
	return l.With("component", component)
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// dailyLogPattern names a rotating debug log file the same way the
// teacher's xmit.go names time-stamped files, generalized from a
// one-off transmit record to a daily daemon log.
const dailyLogPattern = "daqplayer-%Y%m%d.log"

// OpenDailyLogFile opens (creating if needed) today's log file under
// dir, returning a writer that can be multiplexed into a logger via
// io.MultiWriter alongside stderr.
func OpenDailyLogFile(dir string) (io.WriteCloser, error) {
	if dir == "" {
		return discardCloser{io.Discard}, nil
	}

	namer, err := strftime.New(dailyLogPattern)
	if err != nil {
		return nil, err
	}

	name := namer.FormatString(time.Now())
	path := filepath.Join(dir, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

type discardCloser struct{ io.Writer }

func (discardCloser) Close() error { return nil }
