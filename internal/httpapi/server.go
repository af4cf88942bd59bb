// Package httpapi is the optional admin/observability surface: health,
// state snapshot, and Prometheus metrics. It never touches the chat wire
// protocol.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// State is the read-only view of the chat server the API reports on.
type State interface {
	ClientCount() int
	Usernames() []string
	ActiveGames() [][2]string
	PendingTransferCount() int
	OngoingTransferCount() int
	MetricsRegistry() *prometheus.Registry
}

// Server is the Echo application.
type Server struct {
	echo  *echo.Echo
	state State
}

// New constructs the Echo app with all routes registered.
func New(state State) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, state: state}
	s.registerRoutes()
	return s
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/api/state", s.handleState)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
		s.state.MetricsRegistry(), promhttp.HandlerOpts{},
	)))
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Clients: s.state.ClientCount(),
	})
}

type gameInfo struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

type stateResponse struct {
	Clients          []string   `json:"clients"`
	Games            []gameInfo `json:"games"`
	PendingTransfers int        `json:"pending_transfers"`
	OngoingTransfers int        `json:"ongoing_transfers"`
}

func (s *Server) handleState(c echo.Context) error {
	clients := s.state.Usernames()
	if clients == nil {
		clients = []string{}
	}
	games := make([]gameInfo, 0)
	for _, pair := range s.state.ActiveGames() {
		games = append(games, gameInfo{Player1: pair[0], Player2: pair[1]})
	}
	return c.JSON(http.StatusOK, stateResponse{
		Clients:          clients,
		Games:            games,
		PendingTransfers: s.state.PendingTransferCount(),
		OngoingTransfers: s.state.OngoingTransferCount(),
	})
}
