package server

import (
	"bufio"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"relaychat/internal/protocol"
)

// Session owns one control connection: its reader loop, its serialized
// writer, its login state and its heartbeat. All outbound frames for a peer
// funnel through send, so PING and chat traffic never interleave mid-frame.
type Session struct {
	srv  *Server
	conn net.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	username string // empty until ENTER succeeds

	hb *heartbeat

	closeOnce sync.Once
}

func newSession(srv *Server, conn net.Conn) *Session {
	return &Session{srv: srv, conn: conn}
}

// Username returns the login name, or "" while the session is anonymous.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *Session) named() bool { return s.Username() != "" }

// send serializes one frame to the peer. A write failure closes the raw
// connection; the reader loop then runs the full teardown.
func (s *Session) send(cmd string, payload any) {
	line, err := protocol.Encode(cmd, payload)
	if err != nil {
		slog.Error("encode frame", "command", cmd, "err", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.srv.cfg.WriteTimeout.Std())); err != nil {
		return
	}
	if _, err := s.conn.Write(line); err != nil {
		slog.Debug("write failed, closing peer", "user", s.Username(), "err", err)
		s.conn.Close()
	}
}

// serve greets the peer and runs the reader loop until EOF or error, then
// tears the session down.
func (s *Session) serve() {
	defer s.teardown()

	s.send(protocol.CmdReady, protocol.Ready{Version: s.srv.version})

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)
	for scanner.Scan() {
		s.handleLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("connection closed", "user", s.Username(), "err", err)
	}
}

// maxFrameBytes bounds a single control line. Chat payloads are small; the
// limit only guards against a peer that never sends a newline.
const maxFrameBytes = 1 << 20

func (s *Session) handleLine(line string) {
	frame, err := protocol.Parse(line)
	if err != nil {
		s.send(protocol.CmdUnknownCommand, nil)
		return
	}
	s.srv.metrics.FramesTotal.WithLabelValues(frame.Command).Inc()

	var handlerErr error
	switch frame.Command {
	case protocol.CmdEnter:
		handlerErr = s.handleEnter(frame)
	case protocol.CmdPong:
		s.handlePong()
	case protocol.CmdBye:
		s.handleBye()
	case protocol.CmdBroadcastReq:
		handlerErr = s.srv.handleBroadcast(s, frame)
	case protocol.CmdListReq:
		s.srv.handleList(s)
	case protocol.CmdPrivateMsgReq:
		handlerErr = s.srv.handlePrivateMsg(s, frame)
	case protocol.CmdRPSStartReq:
		handlerErr = s.srv.handleRPSStart(s, frame)
	case protocol.CmdRPSInviteResp:
		handlerErr = s.srv.handleRPSInviteResp(s, frame)
	case protocol.CmdRPSMoveReq:
		handlerErr = s.srv.handleRPSMove(s, frame)
	case protocol.CmdFileTransferReq:
		handlerErr = s.srv.handleTransferRequest(s, frame)
	case protocol.CmdFileTransferResp:
		handlerErr = s.srv.handleTransferResponse(s, frame)
	default:
		// A verb we emit but never accept.
		s.send(protocol.CmdUnknownCommand, nil)
	}
	if handlerErr != nil {
		s.send(protocol.CmdParseError, nil)
	}
}

func (s *Session) handleEnter(frame protocol.Frame) error {
	if strings.TrimSpace(string(frame.Payload)) == "" {
		s.send(protocol.CmdEnterResp, protocol.Errorf(protocol.CodeNameInvalid))
		return nil
	}
	if s.named() {
		s.send(protocol.CmdEnterResp, protocol.Errorf(protocol.CodeAlreadyLoggedIn))
		return nil
	}

	var enter protocol.Enter
	if err := frame.Decode(&enter); err != nil {
		return err
	}
	if !protocol.ValidUsername(enter.Username) {
		s.send(protocol.CmdEnterResp, protocol.Errorf(protocol.CodeNameInvalid))
		return nil
	}
	if !s.srv.registry.Add(enter.Username, s) {
		s.send(protocol.CmdEnterResp, protocol.Errorf(protocol.CodeNameTaken))
		return nil
	}

	s.mu.Lock()
	s.username = enter.Username
	s.hb = startHeartbeat(s, s.srv.cfg.PingInterval.Std(), s.srv.cfg.PongTimeout.Std())
	s.mu.Unlock()

	s.send(protocol.CmdEnterResp, protocol.OK())
	s.srv.broadcastExcept(s, protocol.CmdJoined, protocol.Presence{Username: enter.Username})
	slog.Info("client logged in", "user", enter.Username, "remote", s.conn.RemoteAddr())
	return nil
}

func (s *Session) handlePong() {
	s.mu.Lock()
	hb := s.hb
	s.mu.Unlock()
	if hb == nil || !hb.pong() {
		s.send(protocol.CmdPongError, protocol.PongError{Code: protocol.CodePongUnexpected})
	}
}

func (s *Session) handleBye() {
	s.send(protocol.CmdByeResp, protocol.OK())
	s.close()
}

// close shuts the socket; the reader loop notices and runs teardown.
func (s *Session) close() {
	s.conn.Close()
}

// teardown runs the disconnect sequence exactly once: stop the heartbeat,
// close the socket, then, for named sessions, unregister, announce LEFT,
// dissolve any game pair and drop pending transfers addressed to this user.
// Relays already in flight on the auxiliary port are left alone.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		name := s.username
		hb := s.hb
		s.mu.Unlock()

		if hb != nil {
			hb.stop()
		}
		s.conn.Close()

		if name == "" {
			return
		}
		s.srv.registry.Remove(name)
		s.srv.broadcastExcept(s, protocol.CmdLeft, protocol.Presence{Username: name})

		if opponent := s.srv.rps.dissolve(name); opponent != "" {
			if peer, ok := s.srv.registry.Get(opponent); ok {
				peer.send(protocol.CmdRPSInviteDeclined, nil)
			}
		}
		s.srv.broker.dropReceiver(name)
		slog.Info("client disconnected", "user", name)
	})
}
