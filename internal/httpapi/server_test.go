package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// fakeState is a canned State implementation.
type fakeState struct {
	clients  []string
	games    [][2]string
	pending  int
	ongoing  int
	registry *prometheus.Registry
}

func (f *fakeState) ClientCount() int                      { return len(f.clients) }
func (f *fakeState) Usernames() []string                   { return f.clients }
func (f *fakeState) ActiveGames() [][2]string              { return f.games }
func (f *fakeState) PendingTransferCount() int             { return f.pending }
func (f *fakeState) OngoingTransferCount() int             { return f.ongoing }
func (f *fakeState) MetricsRegistry() *prometheus.Registry { return f.registry }

func newTestState() *fakeState {
	return &fakeState{
		clients:  []string{"alice", "bob"},
		games:    [][2]string{{"alice", "bob"}},
		pending:  1,
		registry: prometheus.NewRegistry(),
	}
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := New(newTestState())
	rec := doRequest(t, s, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Clients != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestStateSnapshot(t *testing.T) {
	s := New(newTestState())
	rec := doRequest(t, s, "/api/state")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Clients) != 2 || body.Clients[0] != "alice" {
		t.Errorf("clients = %v", body.Clients)
	}
	if len(body.Games) != 1 || body.Games[0].Player1 != "alice" || body.Games[0].Player2 != "bob" {
		t.Errorf("games = %v", body.Games)
	}
	if body.PendingTransfers != 1 || body.OngoingTransfers != 0 {
		t.Errorf("transfers = %d/%d", body.PendingTransfers, body.OngoingTransfers)
	}
}

func TestStateEmptyServer(t *testing.T) {
	s := New(&fakeState{registry: prometheus.NewRegistry()})
	rec := doRequest(t, s, "/api/state")

	// Empty collections serialize as [], not null.
	body := rec.Body.String()
	if !strings.Contains(body, `"clients":[]`) || !strings.Contains(body, `"games":[]`) {
		t.Errorf("body = %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	state := newTestState()
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relaychat_test_total", Help: "test counter",
	})
	state.registry.MustRegister(c)
	c.Add(3)

	s := New(state)
	rec := doRequest(t, s, "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "relaychat_test_total 3") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
