package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	appconfig "canonflow/config"
	"canonflow/internal/channel"
	"canonflow/internal/orderbook"
)

func testServer(t *testing.T) (*Server, *orderbook.Manager) {
	t.Helper()
	books := orderbook.NewManager(context.Background(), orderbook.Options{}, nil, nil)
	chans := channel.NewChannels(4, 4)
	t.Cleanup(chans.Close)

	s := NewServer(appconfig.DashboardConfig{Enabled: true, Address: ":0"}, books, chans)
	if s == nil {
		t.Fatal("enabled dashboard should not be nil")
	}
	s.startedAt = time.Now()
	return s, books
}

func TestNewServerDisabled(t *testing.T) {
	if s := NewServer(appconfig.DashboardConfig{Enabled: false}, nil, nil); s != nil {
		t.Fatal("disabled dashboard should be nil")
	}
	// nil server lifecycle is a no-op
	var s *Server
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("nil Start: %v", err)
	}
	s.Stop()
}

func TestHealthzReportsDesync(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, books := testServer(t)

	// A synced book keeps the probe green.
	engine := books.Get("okx", "BTC-USDT-SWAP", "perpetual")
	engine.ApplySnapshot(orderbook.Snapshot{LastUpdateID: 1})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.handleHealthz(c)

	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", w.Code)
	}
	var body struct {
		Status   string `json:"status"`
		Books    int    `json:"books"`
		Desynced int    `json:"desynced"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Books != 1 || body.Desynced != 0 {
		t.Errorf("body = %+v", body)
	}
}

func TestBooksEndpointListsEngines(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, books := testServer(t)
	books.Get("binance_derivatives", "BTCUSDT", "perpetual")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/books", nil)
	s.handleBooks(c)

	var health []orderbook.Health
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(health) != 1 || health[0].Symbol != "BTC-USDT" {
		t.Errorf("health = %+v", health)
	}
	if health[0].SyncStatus != orderbook.StatusUnsynced {
		t.Errorf("fresh engine status = %s", health[0].SyncStatus)
	}
}
