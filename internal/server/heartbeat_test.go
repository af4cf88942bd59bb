package server

import (
	"io"
	"testing"
	"time"

	"relaychat/internal/config"
	"relaychat/internal/protocol"
)

func heartbeatConfig() config.Config {
	cfg := testConfig()
	cfg.PingInterval = config.Duration(80 * time.Millisecond)
	cfg.PongTimeout = config.Duration(50 * time.Millisecond)
	return cfg
}

func TestHeartbeatEvictsSilentClient(t *testing.T) {
	srv := startTestServer(t, heartbeatConfig())
	c := dialControl(t, srv)
	c.login("alice")

	c.expect(protocol.CmdPing)
	// Stay silent past the pong deadline.
	hangup := decodeAs[protocol.Hangup](t, c.expect(protocol.CmdHangup))
	if hangup.Reason != protocol.CodeHangup {
		t.Errorf("hangup reason = %d, want %d", hangup.Reason, protocol.CodeHangup)
	}

	// The server closes the connection after the hangup.
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.r.ReadString('\n'); err != io.EOF {
		t.Fatalf("read after hangup: %v, want EOF", err)
	}

	waitFor(t, func() bool { return srv.ClientCount() == 0 })
}

func TestHeartbeatPongKeepsSessionAlive(t *testing.T) {
	srv := startTestServer(t, heartbeatConfig())
	c := dialControl(t, srv)
	c.login("alice")

	for i := 0; i < 3; i++ {
		c.expect(protocol.CmdPing)
		c.sendLine(`PONG {}`)
	}

	// Still logged in after several cycles.
	c.sendLine(`LIST_REQ {}`)
	for {
		frame := c.readFrame()
		if frame.Command == protocol.CmdPing {
			c.sendLine(`PONG {}`)
			continue
		}
		if frame.Command != protocol.CmdListResp {
			t.Fatalf("got %s %s, want %s", frame.Command, frame.Payload, protocol.CmdListResp)
		}
		if list := decodeAs[protocol.ListResp](t, frame); list.Status != protocol.StatusOK {
			t.Fatalf("list resp %s", frame.Payload)
		}
		break
	}
}

func TestPongWithoutPing(t *testing.T) {
	srv := startTestServer(t, testConfig())
	c := dialControl(t, srv)
	c.login("alice")

	c.sendLine(`PONG {}`)
	pe := decodeAs[protocol.PongError](t, c.expect(protocol.CmdPongError))
	if pe.Code != protocol.CodePongUnexpected {
		t.Errorf("code = %d, want %d", pe.Code, protocol.CodePongUnexpected)
	}
}

func TestPongBeforeLogin(t *testing.T) {
	srv := startTestServer(t, testConfig())
	c := dialControl(t, srv)

	// No heartbeat exists yet, so any PONG is unexpected.
	c.sendLine(`PONG {}`)
	pe := decodeAs[protocol.PongError](t, c.expect(protocol.CmdPongError))
	if pe.Code != protocol.CodePongUnexpected {
		t.Errorf("code = %d, want %d", pe.Code, protocol.CodePongUnexpected)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
