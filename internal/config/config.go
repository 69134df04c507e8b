package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config represents the complete configuration for the signal execution bot
type Config struct {
	// Trading parameters
	Trading TradingConfig `json:"trading"`

	// Risk management limits
	Risk RiskConfig `json:"risk"`

	// Exchange connection
	Exchange ExchangeConfig `json:"exchange"`

	// Notification configuration (optional)
	Notifications NotificationConfig `json:"notifications"`

	// Monitoring endpoint configuration
	Monitoring MonitoringConfig `json:"monitoring"`
}

// TradingConfig holds sizing and execution parameters
type TradingConfig struct {
	Enabled             bool    `json:"enabled"`               // Master kill switch
	Symbol              string  `json:"symbol"`                // Trading symbol (e.g., BTCUSDT)
	Asset               string  `json:"asset"`                 // Settlement asset (e.g., USDT)
	Leverage            float64 `json:"leverage"`              // Position leverage
	PositionSizePercent float64 `json:"position_size_percent"` // Fraction of available balance per trade
	TakeProfitPercent   float64 `json:"take_profit_percent"`   // Take profit distance as a fraction
	StopLossPercent     float64 `json:"stop_loss_percent"`     // Stop loss distance as a fraction
	MaxPositionSizeUsdt float64 `json:"max_position_size_usdt"`
	MinPositionSizeUsdt float64 `json:"min_position_size_usdt"`
	RetryAttempts       int     `json:"retry_attempts"`
	RetryDelayMs        int     `json:"retry_delay_ms"`
}

// RiskConfig holds risk limit configuration
type RiskConfig struct {
	DailyLossLimitUsdt float64 `json:"daily_loss_limit_usdt"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"` // Fraction, 0.1 = 10%
	AutoCloseOnBreach  bool    `json:"auto_close_on_breach"`
	CheckIntervalMs    int     `json:"check_interval_ms"`
}

// ExchangeConfig holds Bybit connection settings. Credentials come from the
// environment, never from the config file.
type ExchangeConfig struct {
	APIKey    string `json:"-"`
	APISecret string `json:"-"`
	Demo      bool   `json:"demo"`
	Testnet   bool   `json:"testnet"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Enabled       bool   `json:"enabled"`
	TelegramToken string `json:"-"`
	TelegramChat  string `json:"telegram_chat,omitempty"`
}

// MonitoringConfig holds the metrics and signal endpoint settings
type MonitoringConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// Load loads configuration from file and applies environment overrides
func Load(configFile string) (*Config, error) {
	// If config file doesn't contain path separators, look in configs/ directory
	if !strings.ContainsAny(configFile, "/\\") {
		configFile = filepath.Join("configs", configFile)
	}

	// Add .json extension if not present
	if !strings.HasSuffix(configFile, ".json") {
		configFile += ".json"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()

	if err := config.setDefaults(); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnv pulls secrets and override flags from the environment
func (c *Config) applyEnv() {
	c.Exchange.APIKey = os.Getenv("BYBIT_API_KEY")
	c.Exchange.APISecret = os.Getenv("BYBIT_API_SECRET")
	if os.Getenv("BYBIT_DEMO") == "true" {
		c.Exchange.Demo = true
	}
	if os.Getenv("BYBIT_TESTNET") == "true" {
		c.Exchange.Testnet = true
	}
	c.Notifications.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		c.Notifications.TelegramChat = chat
	}
}

// setDefaults sets default values for missing configuration
func (c *Config) setDefaults() error {
	// Trading defaults
	if c.Trading.Asset == "" {
		c.Trading.Asset = "USDT"
	}
	if c.Trading.Leverage == 0 {
		c.Trading.Leverage = 1.0
	}
	if c.Trading.PositionSizePercent == 0 {
		c.Trading.PositionSizePercent = 0.05 // 5% of available balance
	}
	if c.Trading.TakeProfitPercent == 0 {
		c.Trading.TakeProfitPercent = 0.02
	}
	if c.Trading.StopLossPercent == 0 {
		c.Trading.StopLossPercent = 0.01
	}
	if c.Trading.MaxPositionSizeUsdt == 0 {
		c.Trading.MaxPositionSizeUsdt = 1000.0
	}
	if c.Trading.MinPositionSizeUsdt == 0 {
		c.Trading.MinPositionSizeUsdt = 10.0
	}
	if c.Trading.RetryAttempts == 0 {
		c.Trading.RetryAttempts = 3
	}
	if c.Trading.RetryDelayMs == 0 {
		c.Trading.RetryDelayMs = 1000
	}

	// Risk defaults
	if c.Risk.DailyLossLimitUsdt == 0 {
		c.Risk.DailyLossLimitUsdt = 100.0
	}
	if c.Risk.MaxDrawdownPercent == 0 {
		c.Risk.MaxDrawdownPercent = 0.10
	}
	if c.Risk.CheckIntervalMs == 0 {
		c.Risk.CheckIntervalMs = 30000
	}

	// Monitoring defaults
	if c.Monitoring.ListenAddr == "" {
		c.Monitoring.ListenAddr = ":8080"
	}

	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading symbol is required")
	}
	if c.Trading.Leverage < 1 || c.Trading.Leverage > 100 {
		return fmt.Errorf("leverage must be between 1 and 100")
	}
	if c.Trading.PositionSizePercent <= 0 || c.Trading.PositionSizePercent > 1.0 {
		return fmt.Errorf("position size percent must be between 0 and 1.0")
	}
	if c.Trading.TakeProfitPercent <= 0 || c.Trading.TakeProfitPercent > 1.0 {
		return fmt.Errorf("take profit percent must be between 0 and 1.0")
	}
	if c.Trading.StopLossPercent <= 0 || c.Trading.StopLossPercent > 1.0 {
		return fmt.Errorf("stop loss percent must be between 0 and 1.0")
	}
	if c.Trading.MinPositionSizeUsdt > c.Trading.MaxPositionSizeUsdt {
		return fmt.Errorf("min position size exceeds max position size")
	}
	if c.Trading.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}

	if c.Risk.DailyLossLimitUsdt <= 0 {
		return fmt.Errorf("daily loss limit must be greater than 0")
	}
	if c.Risk.MaxDrawdownPercent <= 0 || c.Risk.MaxDrawdownPercent > 1.0 {
		return fmt.Errorf("max drawdown percent must be between 0 and 1.0")
	}

	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("exchange API credentials are required (BYBIT_API_KEY, BYBIT_API_SECRET)")
	}

	if c.Notifications.Enabled && (c.Notifications.TelegramToken == "" || c.Notifications.TelegramChat == "") {
		return fmt.Errorf("telegram notifications enabled but token or chat id is missing")
	}

	return nil
}
