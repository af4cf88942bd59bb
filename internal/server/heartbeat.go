package server

import (
	"log/slog"
	"sync"
	"time"

	"relaychat/internal/protocol"
)

// heartbeat drives the PING/PONG liveness check for one named session.
// Every interval it sends a PING and arms a timeout; a PONG inside the
// window disarms it, anything else evicts the session with HANGUP 7000.
// At most one PING is ever outstanding.
type heartbeat struct {
	s        *Session
	interval time.Duration
	timeout  time.Duration

	mu        sync.Mutex
	awaiting  bool
	pongTimer *time.Timer

	done     chan struct{}
	stopOnce sync.Once
}

// startHeartbeat begins the cycle; the first PING fires one interval after
// login.
func startHeartbeat(s *Session, interval, timeout time.Duration) *heartbeat {
	h := &heartbeat{
		s:        s,
		interval: interval,
		timeout:  timeout,
		done:     make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *heartbeat) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *heartbeat) tick() {
	h.mu.Lock()
	if h.awaiting {
		// The timeout timer normally wins this race; evicting here too
		// keeps the guarantee even if the tick fires first.
		h.mu.Unlock()
		h.expire()
		return
	}
	h.awaiting = true
	h.pongTimer = time.AfterFunc(h.timeout, h.deadline)
	h.mu.Unlock()

	h.s.send(protocol.CmdPing, nil)
}

// deadline fires timeout after a PING; it evicts only if the PONG is still
// missing.
func (h *heartbeat) deadline() {
	h.mu.Lock()
	missed := h.awaiting
	h.mu.Unlock()
	if missed {
		h.expire()
	}
}

// expire hangs up on the peer. The socket close wakes the reader loop,
// which performs the full teardown (including stopping this heartbeat).
func (h *heartbeat) expire() {
	slog.Info("pong deadline missed, hanging up", "user", h.s.Username())
	h.s.srv.metrics.HangupsTotal.Inc()
	h.s.send(protocol.CmdHangup, protocol.Hangup{Reason: protocol.CodeHangup})
	h.s.close()
}

// pong records an inbound PONG. It reports false when no PING was
// outstanding, which the session answers with PONG_ERROR.
func (h *heartbeat) pong() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.awaiting {
		return false
	}
	h.awaiting = false
	if h.pongTimer != nil {
		h.pongTimer.Stop()
		h.pongTimer = nil
	}
	return true
}

func (h *heartbeat) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		if h.pongTimer != nil {
			h.pongTimer.Stop()
			h.pongTimer = nil
		}
		h.awaiting = false
		h.mu.Unlock()
	})
}
