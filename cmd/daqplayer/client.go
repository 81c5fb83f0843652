package main

/*------------------------------------------------------------------
 *
 * Purpose:	Minimal control-protocol client: one request, one or
 *		more newline-delimited JSON replies sharing its id.
 *
 * Description:	Generalizes kissutil.go's net.Conn dial + bufio framing
 *		(there: raw KISS bytes over TCP) to this protocol's
 *		JSON-line framing.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	daqcore "github.com/daqplay/daqplayer/src"
)

type controlClient struct {
	conn    net.Conn
	scanner *bufio.Scanner
	enc     *json.Encoder
	nextID  int
}

func dialControl(addr string) (*controlClient, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &controlClient{conn: conn, scanner: scanner, enc: json.NewEncoder(conn)}, nil
}

func (c *controlClient) Close() error { return c.conn.Close() }

// call sends one request and returns every reply sharing its id, up to
// and including the first with completed=true. onUpdate, if non-nil,
// is invoked for every reply before the final one (the progress_update
// stream a play/resume task emits).
func (c *controlClient) call(task string, data interface{}, onUpdate func(daqcore.ControlReply)) (daqcore.ControlReply, error) {
	c.nextID++
	id := fmt.Sprintf("cli-%d", c.nextID)

	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return daqcore.ControlReply{}, err
		}
		raw = b
	}

	req := daqcore.ControlRequest{ID: id, Task: task, Data: raw}
	if err := c.enc.Encode(req); err != nil {
		return daqcore.ControlReply{}, fmt.Errorf("sending %s: %w", task, err)
	}

	for c.scanner.Scan() {
		var reply daqcore.ControlReply
		if err := json.Unmarshal(c.scanner.Bytes(), &reply); err != nil {
			return daqcore.ControlReply{}, fmt.Errorf("decoding reply: %w", err)
		}
		if reply.Completed {
			return reply, nil
		}
		if onUpdate != nil {
			onUpdate(reply)
		}
	}
	if err := c.scanner.Err(); err != nil {
		return daqcore.ControlReply{}, fmt.Errorf("reading reply: %w", err)
	}
	return daqcore.ControlReply{}, fmt.Errorf("connection closed before a completed reply for %s", task)
}
