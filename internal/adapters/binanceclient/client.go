// Package binanceclient implements ports.LiveExecutor against the Binance
// futures API. It is only exercised once the bot has been promoted to live
// mode; until then the engine never touches it.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"

	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ports"
)

const (
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements the ports.LiveExecutor interface using the go-binance library.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
}

var _ ports.LiveExecutor = (*Client)(nil)

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: API key and secret are required for live execution", ports.ErrConfigurationError)
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{
		"baseURL": client.BaseURL,
		"testnet": cfg.UseTestnet,
	})

	return &Client{futuresClient: client, logger: cfg.Logger}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiCode"] = apiErr.Code
		c.logger.Error(ctx, err, "Binance API error", fields)
		switch apiErr.Code {
		case -1003:
			return fmt.Errorf("%w: %v", ports.ErrRateLimited, err)
		case -2014, -2015, -1022:
			return fmt.Errorf("%w: %v", ports.ErrAuthenticationFailed, err)
		case -2019:
			return fmt.Errorf("%w: %v", ports.ErrInsufficientFunds, err)
		default:
			return fmt.Errorf("%w: %v", ports.ErrOrderPlacementFailed, err)
		}
	}

	c.logger.Error(ctx, err, "Binance request failed", fields)
	return fmt.Errorf("%w: %v", ports.ErrConnectionFailed, err)
}

// Ping checks connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, "Ping")
	}
	return nil
}

// PlaceMarketOrder places a market order sized from the given notional
// amount in quote currency. Symbols use the pair form "BTC/USDT" and are
// mapped to the exchange form internally.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, quoteAmount float64) (*ports.OrderResponse, error) {
	if quoteAmount <= 0 {
		return nil, fmt.Errorf("%w: quote amount must be positive", ports.ErrOrderPlacementFailed)
	}
	exchangeSymbol := toExchangeSymbol(symbol)

	prices, err := c.futuresClient.NewListPricesService().Symbol(exchangeSymbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "GetTickerPrice")
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no ticker price for %s", ports.ErrExchangeUnavailable, exchangeSymbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil || price <= 0 {
		return nil, fmt.Errorf("%w: bad ticker price %q for %s", ports.ErrExchangeUnavailable, prices[0].Price, exchangeSymbol)
	}

	orderSide := futures.SideTypeBuy
	if side == domain.Short {
		orderSide = futures.SideTypeSell
	}
	quantity := strconv.FormatFloat(quoteAmount/price, 'f', 3, 64)

	c.logger.Info(ctx, "Placing live market order", map[string]interface{}{
		"symbol":   exchangeSymbol,
		"side":     orderSide,
		"quantity": quantity,
	})

	order, err := c.futuresClient.NewCreateOrderService().
		Symbol(exchangeSymbol).
		Side(orderSide).
		Type(futures.OrderTypeMarket).
		Quantity(quantity).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "PlaceMarketOrder")
	}

	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
	executedQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	return &ports.OrderResponse{
		OrderID:   order.OrderID,
		Symbol:    order.Symbol,
		AvgPrice:  avgPrice,
		Quantity:  executedQty,
		Status:    string(order.Status),
		Side:      string(order.Side),
		Timestamp: time.Now().UTC(),
	}, nil
}

// toExchangeSymbol maps "BTC/USDT" to "BTCUSDT".
func toExchangeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}
