package daqcore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlRequestRoundTripsOverJSON(t *testing.T) {
	var req = ControlRequest{ID: "abc123", Task: "play", Data: json.RawMessage(`{"position":0}`)}

	var wire, err = json.Marshal(req)
	require.NoError(t, err)

	var decoded ControlRequest
	require.NoError(t, json.Unmarshal(wire, &decoded))
	assert.Equal(t, req, decoded)
}

func TestSuccessReplySetsTimestampAndStatus(t *testing.T) {
	var reply = successReply("id1", map[string]int{"volume": 50}, true)

	assert.Equal(t, statusSuccess, reply.Status)
	assert.True(t, reply.Completed)
	assert.NotZero(t, reply.Timestamp, "timestamp must be populated on every reply")
	assert.Equal(t, "id1", reply.ID)
}

func TestErrorReplyCarriesReason(t *testing.T) {
	var reply = errorReply("id2", "bad_path")

	assert.Equal(t, statusError, reply.Status)
	assert.True(t, reply.Completed)
	assert.NotZero(t, reply.Timestamp)

	var data, ok = reply.Data.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "bad_path", data["reason"])
}

func TestErrorReplyFromErrMapsKnownErrorTypes(t *testing.T) {
	var cases = []struct {
		err    error
		reason string
	}{
		{&ValidationError{Reason: "bad volume"}, "validation_error"},
		{&DecoderError{Reason: "open failed"}, "decoder_error"},
		{&DeviceError{Reason: "lost"}, "device_error"},
		{&ErrInvalidTransition{From: StateIdle, Event: "play"}, "invalid_transition"},
		{&InternalError{Reason: "invariant"}, "internal_error"},
	}

	for _, c := range cases {
		var reply = errorReplyFromErr("id3", c.err)
		var data, ok = reply.Data.(map[string]string)
		require.True(t, ok)
		assert.Equal(t, c.reason, data["reason"], "for error type %T", c.err)
		assert.Equal(t, c.err.Error(), data["detail"])
	}
}

func TestProgressReplyCompletedMirrorsUpdate(t *testing.T) {
	var playing = progressReply("id4", ProgressUpdate{AudioCompleted: false})
	assert.False(t, playing.Completed)

	var done = progressReply("id4", ProgressUpdate{AudioCompleted: true})
	assert.True(t, done.Completed, "a progress reply with AudioCompleted must mark the control reply Completed too")
}

func TestControlReplyOmitsEmptyIDAndLastMsgInJSON(t *testing.T) {
	var reply = successReply("", nil, false)

	var wire, err = json.Marshal(reply)
	require.NoError(t, err)
	assert.NotContains(t, string(wire), `"id"`)
	assert.NotContains(t, string(wire), `"lastmsg"`)
}
