package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"relaychat/internal/protocol"
)

// Relay is the auxiliary-port service. Each accepted connection announces a
// transfer ID and a role; the two halves of a transfer rendezvous here and
// the relay streams bytes from the sender to the receiver without buffering
// the file.
type Relay struct {
	wait    time.Duration
	metrics *Metrics

	mu       sync.Mutex
	contexts map[string]*transferContext
}

// transferContext is the shared rendezvous record for one transfer ID. The
// ready channel closes once both halves are bound; the half that completes
// the pair performs the copy and owns both sockets from then on.
type transferContext struct {
	mu       sync.Mutex
	sender   net.Conn
	receiver net.Conn
	ready    chan struct{}
}

func NewRelay(wait time.Duration, metrics *Metrics) *Relay {
	return &Relay{
		wait:     wait,
		metrics:  metrics,
		contexts: make(map[string]*transferContext),
	}
}

// Create registers an empty context for id. The broker calls this before
// either FILE_TRANSFER_READY goes out, so a peer can never dial ahead of
// the context existing.
func (r *Relay) Create(id string) {
	r.mu.Lock()
	r.contexts[id] = &transferContext{ready: make(chan struct{})}
	r.mu.Unlock()
}

func (r *Relay) lookup(id string) (*transferContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[id]
	return ctx, ok
}

func (r *Relay) remove(id string) {
	r.mu.Lock()
	delete(r.contexts, id)
	r.mu.Unlock()
}

// Count reports the number of transfers awaiting or performing relay.
func (r *Relay) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

var errRoleTaken = errors.New("relay: role already bound")

// bind attaches conn to its role slot and reports whether the pair is now
// complete. Duplicate roles are rejected and the context left untouched.
func (c *transferContext) bind(role byte, conn net.Conn) (complete bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch role {
	case protocol.RoleSender:
		if c.sender != nil {
			return false, errRoleTaken
		}
		c.sender = conn
	case protocol.RoleReceive:
		if c.receiver != nil {
			return false, errRoleTaken
		}
		c.receiver = conn
	}
	if c.sender != nil && c.receiver != nil {
		close(c.ready)
		return true, nil
	}
	return false, nil
}

// closeBoth shuts whichever halves are bound.
func (c *transferContext) closeBoth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sender != nil {
		c.sender.Close()
	}
	if c.receiver != nil {
		c.receiver.Close()
	}
}

// ServeConn handles one auxiliary-port connection: read the 37-byte header,
// find the context, bind the stream, and either wait for the other half or
// perform the copy. Unknown IDs, bad roles and duplicate roles close the
// socket immediately.
func (r *Relay) ServeConn(conn net.Conn) {
	header := make([]byte, protocol.UUIDLength+1)
	conn.SetReadDeadline(time.Now().Add(r.wait))
	if _, err := io.ReadFull(conn, header); err != nil {
		slog.Debug("relay header read failed", "remote", conn.RemoteAddr(), "err", err)
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	id := string(header[:protocol.UUIDLength])
	role := header[protocol.UUIDLength]
	if role != protocol.RoleSender && role != protocol.RoleReceive {
		slog.Debug("relay unknown role", "role", role)
		conn.Close()
		return
	}

	ctx, ok := r.lookup(id)
	if !ok {
		slog.Debug("relay unknown transfer id", "id", id)
		conn.Close()
		return
	}

	complete, err := ctx.bind(role, conn)
	if err != nil {
		slog.Debug("relay duplicate role", "id", id, "role", role)
		conn.Close()
		return
	}

	if complete {
		r.copy(id, ctx)
		return
	}

	// First arriver: park until the second half binds. The completing
	// goroutine owns the copy; if nobody shows up the context is a leak,
	// so it is torn down after the deadline.
	select {
	case <-ctx.ready:
	case <-time.After(r.wait):
		slog.Info("relay rendezvous timed out", "id", id)
		r.remove(id)
		ctx.closeBoth()
	}
}

// copy streams sender bytes to the receiver until the sender half-closes,
// then shuts both sockets and retires the context.
func (r *Relay) copy(id string, ctx *transferContext) {
	defer r.remove(id)
	defer ctx.closeBoth()

	n, err := io.Copy(ctx.receiver, ctx.sender)
	if err != nil {
		slog.Info("relay copy aborted", "id", id, "bytes", n, "err", err)
		return
	}
	r.metrics.RelayTransfersTotal.Inc()
	r.metrics.RelayBytesTotal.Add(float64(n))
	slog.Info("relay transfer complete", "id", id, "bytes", n)
}
