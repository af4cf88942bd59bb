package server

import (
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"relaychat/internal/config"
	"relaychat/internal/protocol"
)

// dialRelay connects to the auxiliary port and announces id with role.
func dialRelay(t *testing.T, srv *Server, id string, role byte) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.RelayAddr().String())
	if err != nil {
		t.Fatalf("dial relay: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Write(append([]byte(id), role)); err != nil {
		t.Fatalf("write relay header: %v", err)
	}
	return conn
}

// expectClosed fails unless the server closes conn without sending anything.
func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err != io.EOF {
		t.Fatalf("read = %v, want EOF", err)
	}
}

func TestRelayRejectsUnknownID(t *testing.T) {
	srv := startTestServer(t, testConfig())
	conn := dialRelay(t, srv, uuid.NewString(), protocol.RoleSender)
	expectClosed(t, conn)
}

func TestRelayRejectsBadRole(t *testing.T) {
	srv := startTestServer(t, testConfig())
	id := uuid.NewString()
	srv.relay.Create(id)

	conn := dialRelay(t, srv, id, 'x')
	expectClosed(t, conn)
}

func TestRelayRejectsDuplicateRole(t *testing.T) {
	srv := startTestServer(t, testConfig())
	id := uuid.NewString()
	srv.relay.Create(id)

	first := dialRelay(t, srv, id, protocol.RoleSender)
	second := dialRelay(t, srv, id, protocol.RoleSender)
	expectClosed(t, second)

	// The first binding survives the rejected duplicate.
	receiver := dialRelay(t, srv, id, protocol.RoleReceive)
	go func() {
		first.Write([]byte("payload"))
		first.(*net.TCPConn).CloseWrite()
	}()
	got, err := io.ReadAll(receiver)
	if err != nil || string(got) != "payload" {
		t.Fatalf("received %q, %v", got, err)
	}
}

func TestRelayRendezvousTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RendezvousTimeout = config.Duration(100 * time.Millisecond)
	srv := startTestServer(t, cfg)

	id := uuid.NewString()
	srv.relay.Create(id)

	conn := dialRelay(t, srv, id, protocol.RoleSender)
	expectClosed(t, conn)
	waitFor(t, func() bool { return srv.relay.Count() == 0 })

	// The context is gone, so a late peer is turned away.
	late := dialRelay(t, srv, id, protocol.RoleReceive)
	expectClosed(t, late)
}

func TestRelayTruncatedHeader(t *testing.T) {
	srv := startTestServer(t, testConfig())

	conn, err := net.Dial("tcp", srv.RelayAddr().String())
	if err != nil {
		t.Fatalf("dial relay: %v", err)
	}
	conn.Write([]byte(strings.Repeat("a", 10)))
	conn.(*net.TCPConn).CloseWrite()
	expectClosed(t, conn)
	conn.Close()
}
