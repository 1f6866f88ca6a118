package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/marketcore/lob/internal/config"
	"github.com/marketcore/lob/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestGateway(t *testing.T) (*Gateway, context.CancelFunc) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Book.AssertInvariants = true
	cfg.Book.DefaultDepth = 10
	cfg.RateLimit.RequestsPerSecond = 1e6
	cfg.RateLimit.Burst = 1e6
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.CORS.AllowedMethods = []string{"GET", "POST", "DELETE"}
	cfg.Monitoring.Enabled = true
	cfg.Monitoring.Path = "/metrics"

	log, err := logger.New(logger.Config{Level: "error", Encoding: "console"})
	require.NoError(t, err)

	gw := NewGateway(cfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	go gw.Run(ctx)
	return gw, cancel
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGatewaySubmitAndQueryTop(t *testing.T) {
	gw, cancel := newTestGateway(t)
	defer cancel()
	h := gw.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/orders", orderRequest{ID: 1, Side: "bid", Size: 10, Price: 100})
	require.Equal(t, http.StatusOK, rec.Code)

	// submit has already waited for apply; poll the read side until it
	// reports the new best bid.
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/book/top?side=bid", nil)
		h.ServeHTTP(rec, req)
		var resp map[string]interface{}
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		price, ok := resp["price"]
		return ok && price == float64(100)
	}, time.Second, 5*time.Millisecond)
}

func TestGatewayResubmittedRestingIDRoutesToUpdate(t *testing.T) {
	gw, cancel := newTestGateway(t)
	defer cancel()
	h := gw.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/orders", orderRequest{ID: 1, Side: "bid", Size: 10, Price: 100})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		gw.mu.RLock()
		defer gw.mu.RUnlock()
		_, ok := gw.book.Resting(1)
		return ok
	}, time.Second, 5*time.Millisecond)

	rec = doJSON(t, h, http.MethodPost, "/v1/orders", orderRequest{ID: 1, Side: "ask", Size: 10, Price: 100})
	require.Equal(t, http.StatusBadRequest, rec.Code, "same id routes to update (not add, which would be 409), and update rejects a side change")
}

func TestGatewayCancelUnknownReturnsNotFound(t *testing.T) {
	gw, cancel := newTestGateway(t)
	defer cancel()
	h := gw.Handler()

	rec := httptest.NewRequest(http.MethodDelete, "/v1/orders/999", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, rec)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGatewayHealthAndMetrics(t *testing.T) {
	gw, cancel := newTestGateway(t)
	defer cancel()
	h := gw.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGatewayInvalidOrderRejected(t *testing.T) {
	gw, cancel := newTestGateway(t)
	defer cancel()
	h := gw.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/orders", map[string]interface{}{"id": 1, "side": "bid", "size": 0, "price": 100})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
