package bybit

import (
	"context"
	"fmt"
	"strconv"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"go.uber.org/zap"

	"github.com/quanterra/bandbot/internal/exchange"
)

// category is fixed: the bot trades USDT-margined linear perpetuals only
const category = "linear"

// Client implements exchange.Gateway on top of the Bybit v5 unified trading
// API.
type Client struct {
	httpClient *bybit_api.Client
	logger     *zap.Logger
	rules      *rulesCache
	testnet    bool
	demo       bool
}

// Config holds the connection settings for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // demo trading environment (paper trading)
}

// NewClient creates a new Bybit gateway client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	var baseURL string
	switch {
	case cfg.Demo:
		baseURL = "https://api-demo.bybit.com"
	case cfg.Testnet:
		baseURL = bybit_api.TESTNET
	default:
		baseURL = bybit_api.MAINNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		cfg.APIKey,
		cfg.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		rules:      newRulesCache(),
		testnet:    cfg.Testnet,
		demo:       cfg.Demo,
	}
}

// Environment returns a string describing the current trading environment
func (c *Client) Environment() string {
	switch {
	case c.demo:
		return "demo"
	case c.testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

// VerifyConnectivity checks reachability and credential validity by
// requesting the unified account wallet.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	params := map[string]interface{}{"accountType": "UNIFIED"}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return exchange.WrapTransport("verifyConnectivity", err)
	}
	if _, err := checkResponse("verifyConnectivity", result); err != nil {
		return err
	}
	return nil
}

// SetLeverage configures leverage for a symbol. Bybit rejects a request that
// would not change the current leverage; that response is treated as success.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	lev := strconv.FormatFloat(leverage, 'f', -1, 64)
	params := map[string]interface{}{
		"category":     category,
		"symbol":       symbol,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionLeverage(ctx)
	if err != nil {
		return exchange.WrapTransport("setLeverage", err)
	}

	serverResp, ok := any(result).(*bybit_api.ServerResponse)
	if !ok {
		return exchange.WrapUnknown("setLeverage", fmt.Errorf("invalid response type %T", result))
	}
	if serverResp.RetCode == errCodeLeverageNotModified {
		c.logger.Debug("leverage already set", zap.String("symbol", symbol), zap.String("leverage", lev))
		return nil
	}
	if serverResp.RetCode != 0 {
		return classifyAPIError("setLeverage", serverResp.RetCode, serverResp.RetMsg)
	}
	return nil
}
