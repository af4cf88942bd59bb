// Package server implements the chat/coordination service: the control-port
// session multiplexer (presence, chat, heartbeat, rock-paper-scissors,
// transfer brokering) and the auxiliary-port bytes relay.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"relaychat/internal/config"
)

// Server owns all process-wide chat state and both listeners.
type Server struct {
	cfg     config.Config
	version string

	registry *Registry
	rps      *rpsState
	broker   *Broker
	relay    *Relay

	promReg *prometheus.Registry
	metrics *Metrics

	listenOnce sync.Once
	controlLn  net.Listener
	relayLn    net.Listener
}

// New builds a server from cfg. version is the semver reported in the READY
// greeting.
func New(cfg config.Config, version string) *Server {
	promReg := prometheus.NewRegistry()
	metrics := newMetrics(promReg)
	return &Server{
		cfg:      cfg,
		version:  version,
		registry: NewRegistry(),
		rps:      newRPSState(),
		broker:   NewBroker(),
		relay:    NewRelay(cfg.RendezvousTimeout.Std(), metrics),
		promReg:  promReg,
		metrics:  metrics,
	}
}

// Listen binds the control and relay ports without serving yet, so callers
// (and tests using ":0") can learn the bound addresses before traffic flows.
func (srv *Server) Listen() error {
	var err error
	srv.listenOnce.Do(func() {
		srv.controlLn, err = net.Listen("tcp", srv.cfg.ControlAddr)
		if err != nil {
			err = fmt.Errorf("listen control %s: %w", srv.cfg.ControlAddr, err)
			return
		}
		srv.relayLn, err = net.Listen("tcp", srv.cfg.RelayAddr)
		if err != nil {
			srv.controlLn.Close()
			err = fmt.Errorf("listen relay %s: %w", srv.cfg.RelayAddr, err)
		}
	})
	return err
}

// ControlAddr returns the bound control address. Valid after Listen.
func (srv *Server) ControlAddr() net.Addr { return srv.controlLn.Addr() }

// RelayAddr returns the bound relay address. Valid after Listen.
func (srv *Server) RelayAddr() net.Addr { return srv.relayLn.Addr() }

// Run binds (if needed) and serves both ports until ctx is canceled or a
// listener fails.
func (srv *Server) Run(ctx context.Context) error {
	if err := srv.Listen(); err != nil {
		return err
	}
	slog.Info("control listening", "addr", srv.controlLn.Addr())
	slog.Info("relay listening", "addr", srv.relayLn.Addr())

	errCh := make(chan error, 2)
	go func() { errCh <- srv.acceptControl() }()
	go func() { errCh <- srv.acceptRelay() }()

	select {
	case <-ctx.Done():
		srv.Close()
		<-errCh
		<-errCh
		return nil
	case err := <-errCh:
		srv.Close()
		<-errCh
		return err
	}
}

// Close shuts both listeners. In-flight sessions and relays finish or fail
// on their own sockets.
func (srv *Server) Close() {
	if srv.controlLn != nil {
		srv.controlLn.Close()
	}
	if srv.relayLn != nil {
		srv.relayLn.Close()
	}
}

func (srv *Server) acceptControl() error {
	for {
		conn, err := srv.controlLn.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept control: %w", err)
		}
		srv.metrics.ConnectionsTotal.Inc()
		srv.metrics.ActiveSessions.Inc()
		go func() {
			defer srv.metrics.ActiveSessions.Dec()
			newSession(srv, conn).serve()
		}()
	}
}

func (srv *Server) acceptRelay() error {
	for {
		conn, err := srv.relayLn.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept relay: %w", err)
		}
		go srv.relay.ServeConn(conn)
	}
}

// MetricsRegistry exposes the Prometheus registry for the admin API.
func (srv *Server) MetricsRegistry() *prometheus.Registry { return srv.promReg }

// ClientCount reports how many sessions are currently named.
func (srv *Server) ClientCount() int { return srv.registry.Len() }

// Usernames reports the registered usernames.
func (srv *Server) Usernames() []string { return srv.registry.Names() }

// ActiveGames reports each live RPS pair once.
func (srv *Server) ActiveGames() [][2]string { return srv.rps.activePairs() }

// PendingTransferCount reports offered-but-unanswered file transfers.
func (srv *Server) PendingTransferCount() int { return srv.broker.pendingCount() }

// OngoingTransferCount reports transfers awaiting or performing relay.
func (srv *Server) OngoingTransferCount() int { return srv.relay.Count() }
