package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSimBot/config"
	"cryptoSimBot/internal/adapters/logger"
	"cryptoSimBot/internal/app"
	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ledger"
)

type stubSource struct{}

func (stubSource) Propose(ctx context.Context, symbol string) (*domain.Proposal, error) {
	return &domain.Proposal{
		Symbol:     symbol,
		Price:      45000,
		Confidence: 0.8,
		Side:       domain.Long,
		Amount:     250,
	}, nil
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestAPI(t *testing.T) (*app.Engine, http.Handler) {
	t.Helper()
	cfg := &config.Config{
		Symbols:           []string{"BTC/USDT"},
		ScanInterval:      5 * time.Millisecond,
		MinConfidence:     0.7,
		InitialBalance:    10000,
		PromoteMinClosed:  50,
		PromoteMinWinRate: 0.75,
		PromoteMinPnL:     500,
		ConfidenceStep:    0.01,
		ConfidenceCap:     0.95,
		InitConfidence:    0.5,
	}
	led, err := ledger.New(ledger.Config{
		ConfidenceStep: cfg.ConfidenceStep,
		ConfidenceCap:  cfg.ConfidenceCap,
		InitConfidence: cfg.InitConfidence,
		Logger:         logger.NewNop(),
	})
	require.NoError(t, err)

	engine, err := app.NewEngine(cfg, logger.NewNop(), stubSource{}, led, app.NewModeController(logger.NewNop()), nil, nil)
	require.NoError(t, err)

	h := NewHandlers(engine, nil, led.RecentClosed, logger.NewNop())
	return engine, NewRouter(h, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestStatusEndpoint(t *testing.T) {
	_, router := newTestAPI(t)

	rec, resp := doJSON(t, router, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	var status app.Status
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.False(t, status.Running)
	assert.Equal(t, domain.ModeSimulated, status.Mode)
	assert.Equal(t, 10000.0, status.Balance)
	assert.Equal(t, 0, status.TotalTrades)
}

func TestStartStopTrading(t *testing.T) {
	engine, router := newTestAPI(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/start-trading", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	assert.True(t, engine.IsRunning())

	rec, _ = doJSON(t, router, http.MethodPost, "/api/stop-trading", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, engine.IsRunning())
}

func TestMarketOrder(t *testing.T) {
	_, router := newTestAPI(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/market-order", map[string]interface{}{
		"symbol": "BTC/USDT", "side": "buy", "amount": 150,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	var pos domain.Position
	require.NoError(t, json.Unmarshal(resp.Data, &pos))
	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, domain.Long, pos.Side)
	assert.Equal(t, 150.0, pos.Amount)
	assert.Equal(t, 45000.0, pos.EntryPrice)
}

func TestMarketOrderRejectsBadSide(t *testing.T) {
	_, router := newTestAPI(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/market-order", map[string]interface{}{
		"symbol": "BTC/USDT", "side": "hold", "amount": 150,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestMarketOrderRejectsBadAmount(t *testing.T) {
	_, router := newTestAPI(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/market-order", map[string]interface{}{
		"symbol": "BTC/USDT", "side": "SHORT", "amount": -5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestClosePosition(t *testing.T) {
	engine, router := newTestAPI(t)

	pos, err := engine.ManualOrder(context.Background(), "BTC/USDT", domain.Long, 100)
	require.NoError(t, err)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/positions/"+pos.ID+"/close", map[string]interface{}{
		"exitPrice": 46000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	var closed domain.Position
	require.NoError(t, json.Unmarshal(resp.Data, &closed))
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.Equal(t, 46000.0, closed.ExitPrice)
	assert.Greater(t, closed.PnL, 0.0)
}

func TestClosePositionUnknownID(t *testing.T) {
	_, router := newTestAPI(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/positions/no-such-id/close", map[string]interface{}{
		"exitPrice": 46000,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
}

func TestToggleModeRefusedBeforePromotion(t *testing.T) {
	_, router := newTestAPI(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/toggle-mode", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)
}

func TestPositionsAndTradesFallback(t *testing.T) {
	engine, router := newTestAPI(t)
	ctx := context.Background()

	open, err := engine.ManualOrder(ctx, "BTC/USDT", domain.Long, 100)
	require.NoError(t, err)
	closedPos, err := engine.ManualOrder(ctx, "ETH/USDT", domain.Short, 200)
	require.NoError(t, err)
	_, err = engine.Close(ctx, closedPos.ID, 44000)
	require.NoError(t, err)

	rec, resp := doJSON(t, router, http.MethodGet, "/api/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var openPositions []domain.Position
	require.NoError(t, json.Unmarshal(resp.Data, &openPositions))
	require.Len(t, openPositions, 1)
	assert.Equal(t, open.ID, openPositions[0].ID)

	rec, resp = doJSON(t, router, http.MethodGet, "/api/trades?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []domain.Position
	require.NoError(t, json.Unmarshal(resp.Data, &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, closedPos.ID, trades[0].ID)
}

func TestHealth(t *testing.T) {
	_, router := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
