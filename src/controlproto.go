package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Control Protocol wire types (spec.md §4.6): the request
 *		and reply envelopes exchanged as newline-delimited JSON
 *		over the control socket.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/json"
	"time"

	"github.com/lestrrat-go/strftime"
)

// ControlRequest is one line of client input: {id?, task, data?}.
type ControlRequest struct {
	ID   string          `json:"id,omitempty"`
	Task string          `json:"task"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ControlReply is one line of server output answering a request, or an
// unsolicited progress/completion message carrying the same id as the
// play request it belongs to.
type ControlReply struct {
	ID        string      `json:"id,omitempty"`
	Timestamp string      `json:"timestamp"`
	LastMsg   string      `json:"lastmsg,omitempty"`
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	Completed bool        `json:"completed"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

// controlReplyTimestampFormat mirrors kissutil.go's --timestamp-format
// flag: a user-legible strftime pattern rather than a raw epoch.
const controlReplyTimestampFormat = "%Y-%m-%dT%H:%M:%S"

func replyTimestamp() string {
	s, err := strftime.Format(controlReplyTimestampFormat, time.Now())
	if err != nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return s
}

func successReply(id string, data interface{}, completed bool) ControlReply {
	return ControlReply{ID: id, Timestamp: replyTimestamp(), Status: statusSuccess, Data: data, Completed: completed}
}

func errorReply(id string, reason string) ControlReply {
	return ControlReply{ID: id, Timestamp: replyTimestamp(), Status: statusError, Data: map[string]string{"reason": reason}, Completed: true}
}

func errorReplyFromErr(id string, err error) ControlReply {
	reason := "internal_error"
	switch err.(type) {
	case *ValidationError:
		reason = "validation_error"
	case *DecoderError:
		reason = "decoder_error"
	case *DeviceError:
		reason = "device_error"
	case *ErrInvalidTransition:
		reason = "invalid_transition"
	}
	return ControlReply{ID: id, Timestamp: replyTimestamp(), Status: statusError, Data: map[string]string{"reason": reason, "detail": err.Error()}, Completed: true}
}

// progressReply wraps a ProgressUpdate as an unsolicited reply carrying
// the originating play request's id, per spec.md §4.7.
func progressReply(id string, update ProgressUpdate) ControlReply {
	return ControlReply{ID: id, Timestamp: replyTimestamp(), Status: statusSuccess, Data: update, Completed: update.AudioCompleted}
}
