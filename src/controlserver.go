package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Control Protocol transport (spec.md §4.6): a TCP listener
 *		accepting many short-lived JSON connections, one goroutine
 *		per connection reading newline-delimited requests and
 *		writing newline-delimited replies.
 *
 * Description:	Generalizes kissnet.go's connect_listen_thread accept
 *		loop (and its per-client goroutine) from binary KISS
 *		framing to JSON-line framing, and appserver.go's
 *		session-table bookkeeping to the spec's ControlSession.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ControlServer owns the listener and every live connection's session
// and play-cancellation state.
type ControlServer struct {
	daemon   *Daemon
	logger   *log.Logger
	listener net.Listener

	mu   sync.Mutex
	conn map[string]*connState
}

type connState struct {
	session    *ControlSession
	playCancel context.CancelFunc

	writeMu sync.Mutex
	enc     *json.Encoder
}

// NewControlServer constructs a server but does not start listening;
// call Serve with the port to bind.
func NewControlServer(daemon *Daemon, logger *log.Logger) *ControlServer {
	return &ControlServer{
		daemon: daemon,
		logger: logger,
		conn:   make(map[string]*connState),
	}
}

// Serve listens on port and accepts connections until ctx is canceled.
// It blocks until the listener closes. A client's terminate task tears
// down the current job and closes that client's connection only; the
// listener keeps accepting.
func (s *ControlServer) Serve(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return &InternalError{Reason: fmt.Sprintf("binding control port %d: %v", port, err)}
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.logger.Info("control server listening", "port", port)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Error("accept failed", "err", err)
				return err
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *ControlServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sessionID := randomSessionID()
	session := &ControlSession{ID: sessionID, Connected: time.Now()}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cs := &connState{session: session, enc: json.NewEncoder(conn)}
	s.mu.Lock()
	s.conn[sessionID] = cs
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conn, sessionID)
		s.mu.Unlock()
	}()

	s.logger.Info("client connected", "session", sessionID, "remote", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		var req ControlRequest
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, &req); err != nil {
			_ = s.writeJSON(sessionID, errorReply("", "malformed_json"))
			return
		}

		session.LastMsgID = req.ID
		reply, terminate := s.dispatch(connCtx, session, req)
		if err := s.writeJSON(sessionID, reply); err != nil {
			return
		}
		if terminate {
			return
		}
	}
}

// writeJSON encodes v to sessionID's connection under that connection's
// write mutex, so the read-dispatch loop in handleConn and a play
// task's progress-forwarding goroutine (handlers.go's forwardProgress)
// can both write to the same net.Conn without interleaving partial
// JSON lines.
func (s *ControlServer) writeJSON(sessionID string, v interface{}) error {
	s.mu.Lock()
	cs, ok := s.conn[sessionID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s closed", sessionID)
	}
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()
	return cs.enc.Encode(v)
}

func randomSessionID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%x", b)
}

// cancelPendingPlay replaces (or clears) the play-cancellation func for
// sessionID, canceling whatever play was previously in flight on that
// connection (spec.md §5: play is cancelled by pause/terminate/
// load_audio on the same connection).
func (s *ControlServer) cancelPendingPlay(sessionID string, next context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.conn[sessionID]
	if !ok {
		return
	}
	if cs.playCancel != nil {
		cs.playCancel()
	}
	cs.playCancel = next
}
