package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/WorstGen/land-marketplace/internal/adapter/handler"
	"github.com/WorstGen/land-marketplace/internal/adapter/repository/memory"
	"github.com/WorstGen/land-marketplace/internal/core/domain"
	"github.com/WorstGen/land-marketplace/internal/core/ports/mocks"
	"github.com/WorstGen/land-marketplace/internal/core/services"
	"github.com/WorstGen/land-marketplace/internal/platform/metrics"
)

const (
	buyer    = "FKFeSgtKAmgkKwxiXMD8woCWUh1ERyzAZARoFtJi2p9c"
	other    = "11111111111111111111111111111111"
	treasury = "4kU3B6hvnMEWNZadKWkQatky8fBgDLt7R9HwoysVpump"
)

type fixture struct {
	server *httptest.Server
	chain  *mocks.ChainClient
	svc    *services.LandService
	hub    *handler.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger, err := domain.NewLedger(domain.DefaultLedgerConfig())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	chain := mocks.NewChainClient(t)
	hub := handler.NewHub("*")

	opts := services.DefaultOptions()
	opts.Treasury = treasury

	svc := services.NewLandService(ledger, memory.NewPurchaseRepository(), opts)
	svc.SetChainClient(chain)
	svc.SetEventPublisher(hub)
	svc.SetMetrics(metrics.New(reg))

	h := handler.NewLandHandler(svc, nil)
	srv := httptest.NewServer(handler.NewRouter(h, handler.RouterConfig{
		AllowedOrigin:  "*",
		RequestTimeout: 5 * time.Second,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Feed:           hub,
	}))
	t.Cleanup(srv.Close)

	return &fixture{server: srv, chain: chain, svc: svc, hub: hub}
}

// paid makes sig a confirmed transfer of amount SOL from sender to the treasury.
func (f *fixture) paid(sig, sender, amount string) {
	f.chain.On("ConfirmTransaction", mock.Anything, sig).Return(true, nil).Once()
	f.chain.On("GetTransfer", mock.Anything, sig, treasury).Return(&domain.Transfer{
		Signature: sig,
		Sender:    sender,
		SOLAmount: decimal.RequireFromString(amount),
	}, nil).Once()
}

func (f *fixture) post(t *testing.T, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	resp, err := http.Post(f.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp, out
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()

	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp, out
}

func purchaseBody(plotID, sig, price string) string {
	return purchaseBodyFrom(buyer, plotID, sig, price)
}

func purchaseBodyFrom(owner, plotID, sig, price string) string {
	b, _ := json.Marshal(map[string]string{
		"plotId":               plotID,
		"ownerAddress":         owner,
		"transactionSignature": sig,
		"price":                price,
		"paymentMethod":        "SOL",
	})
	return string(b)
}

func errorCode(body map[string]interface{}) (string, string) {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	expected, _ := e["expectedPlotId"].(string)
	return code, expected
}

func TestLandData(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/land-data")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, float64(8), body["currentAreaNumber"])

	next := body["nextPlot"].(map[string]interface{})
	assert.Equal(t, "8-2", next["id"])
}

func TestPreflight(t *testing.T) {
	f := newFixture(t)

	req, _ := http.NewRequest(http.MethodOptions, f.server.URL+"/purchase-plot", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestPurchasePlot_Success(t *testing.T) {
	f := newFixture(t)
	f.paid("sig-1", buyer, "0.8")

	resp, body := f.post(t, "/purchase-plot", purchaseBody("8-2", "sig-1", "0.8"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	plot := body["plot"].(map[string]interface{})
	assert.Equal(t, "8-2", plot["id"])
	assert.Equal(t, buyer, plot["owner"])
	assert.Equal(t, float64(1), plot["purchaseOrder"])
	assert.Equal(t, false, body["areaCompleted"])
	assert.Nil(t, body["newAreaNumber"])

	ledger := body["ledger"].(map[string]interface{})
	assert.Equal(t, "8-3", ledger["nextPlot"].(map[string]interface{})["id"])
}

func TestPurchasePlot_Errors(t *testing.T) {
	f := newFixture(t)
	f.paid("sig-ok", buyer, "0.8")
	f.paid("sig-skip", buyer, "0.8")
	f.paid("sig-unknown", buyer, "4.2")
	f.paid("sig-stolen", other, "0.8")
	f.chain.On("ConfirmTransaction", mock.Anything, "sig-pending").Return(false, nil).Once()

	resp, _ := f.post(t, "/purchase-plot", purchaseBody("8-2", "sig-ok", "0.8"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cases := []struct {
		name     string
		body     string
		status   int
		code     string
		expected string
	}{
		{"out of order", purchaseBody("8-5", "sig-skip", "0.8"), http.StatusConflict, "OUT_OF_ORDER", "8-3"},
		{"reused signature", purchaseBodyFrom(other, "8-2", "sig-ok", "0.8"), http.StatusConflict, "DUPLICATE_PAYMENT", ""},
		{"paid by someone else", purchaseBody("8-3", "sig-stolen", "0.8"), http.StatusPaymentRequired, "PAYMENT_UNCONFIRMED", ""},
		{"unknown plot", purchaseBody("42-1", "sig-unknown", "4.2"), http.StatusNotFound, "UNKNOWN_PLOT", ""},
		{"unconfirmed", purchaseBody("8-3", "sig-pending", "0.8"), http.StatusPaymentRequired, "PAYMENT_UNCONFIRMED", ""},
		{"wrong price", purchaseBody("8-3", "sig-cheap", "0.5"), http.StatusBadRequest, "PRICE_MISMATCH", ""},
		{"missing field", `{"plotId":"8-3","price":0.8}`, http.StatusBadRequest, "INVALID_REQUEST", ""},
		{"bad plot id", purchaseBody("eight-3", "sig-x", "0.8"), http.StatusBadRequest, "INVALID_REQUEST", ""},
		{"not json", `plot please`, http.StatusBadRequest, "INVALID_REQUEST", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.post(t, "/purchase-plot", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)

			code, expected := errorCode(body)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.expected, expected)
		})
	}

	assert.Equal(t, int64(1), f.svc.Ledger().TotalPurchases())

	// the buyer retrying its own purchase gets it back
	resp, body := f.post(t, "/purchase-plot", purchaseBody("8-2", "sig-ok", "0.8"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "8-2", body["plot"].(map[string]interface{})["id"])

	_, body = f.get(t, "/orphaned-payments")
	orphans := body["orphanedPayments"].([]interface{})
	require.Len(t, orphans, 1)
	assert.Equal(t, "sig-skip", orphans[0].(map[string]interface{})["transactionSignature"])
}

func TestPurchaseHistory(t *testing.T) {
	f := newFixture(t)
	for i, id := range []string{"8-2", "8-3", "8-4"} {
		sig := "sig-" + id
		f.paid(sig, buyer, "0.8")
		resp, _ := f.post(t, "/purchase-plot", purchaseBody(id, sig, "0.8"))
		require.Equal(t, http.StatusOK, resp.StatusCode, "purchase %d", i)
	}

	resp, body := f.get(t, "/purchase-history?limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	purchases := body["purchases"].([]interface{})
	require.Len(t, purchases, 2)
	assert.Equal(t, "8-4", purchases[0].(map[string]interface{})["id"])
	assert.Equal(t, "8-3", purchases[1].(map[string]interface{})["id"])

	resp, _ = f.get(t, "/purchase-history?limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuoteAndMonitor(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/quote")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "8-2", body["nextPlotId"])
	assert.Equal(t, true, body["degraded"])

	resp, body = f.get(t, "/monitor")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["monitoring"])
}

func TestWallets(t *testing.T) {
	f := newFixture(t)
	f.chain.On("GetBalance", mock.Anything, buyer).Return(decimal.RequireFromString("1.25"), nil).Once()

	resp, body := f.get(t, "/wallets/"+buyer+"/balance")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.25", body["balance"])

	resp, body = f.get(t, "/wallets/not-base58!/balance")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, _ := errorCode(body)
	assert.Equal(t, "INVALID_REQUEST", code)

	resp, body = f.post(t, "/wallets/"+buyer+"/airdrop", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	code, _ = errorCode(body)
	assert.Equal(t, "AIRDROP_DISABLED", code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFeed(t *testing.T) {
	f := newFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	f.paid("sig-feed", buyer, "0.8")
	resp, _ := f.post(t, "/purchase-plot", purchaseBody("8-2", "sig-feed", "0.8"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e domain.Event
	require.NoError(t, conn.ReadJSON(&e))

	assert.Equal(t, domain.EventPlotPurchased, e.Type)
	require.NotNil(t, e.Plot)
	assert.Equal(t, "8-2", e.Plot.ID)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub := handler.NewHub("")
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	// never read; the buffer and socket fill up and the hub lets go
	big := &domain.Plot{ID: strings.Repeat("x", 64<<10)}
	require.Eventually(t, func() bool {
		hub.Publish(context.Background(), domain.Event{Type: domain.EventPlotPurchased, Plot: big})
		return hub.Subscribers() == 0
	}, 10*time.Second, time.Millisecond)
}
