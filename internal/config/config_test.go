package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// TestLoad_AppliesDefaults tests that a minimal config file is filled in
// with defaults and environment credentials.
func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{"trading": {"symbol": "BTCUSDT"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.Trading.Symbol)
	assert.Equal(t, "USDT", cfg.Trading.Asset)
	assert.Equal(t, 1.0, cfg.Trading.Leverage)
	assert.Equal(t, 0.05, cfg.Trading.PositionSizePercent)
	assert.Equal(t, 3, cfg.Trading.RetryAttempts)
	assert.Equal(t, 1000, cfg.Trading.RetryDelayMs)
	assert.Equal(t, 100.0, cfg.Risk.DailyLossLimitUsdt)
	assert.Equal(t, 0.10, cfg.Risk.MaxDrawdownPercent)
	assert.Equal(t, 30000, cfg.Risk.CheckIntervalMs)
	assert.Equal(t, ":8080", cfg.Monitoring.ListenAddr)
	assert.Equal(t, "key", cfg.Exchange.APIKey)
	assert.Equal(t, "secret", cfg.Exchange.APISecret)
}

// TestLoad_ExplicitValuesSurviveDefaults tests that values present in the
// file are not overwritten by defaults.
func TestLoad_ExplicitValuesSurviveDefaults(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{
		"trading": {
			"enabled": true,
			"symbol": "ETHUSDT",
			"leverage": 10,
			"position_size_percent": 0.1,
			"take_profit_percent": 0.03,
			"stop_loss_percent": 0.015,
			"max_position_size_usdt": 500,
			"min_position_size_usdt": 25,
			"retry_attempts": 5,
			"retry_delay_ms": 250
		},
		"risk": {
			"daily_loss_limit_usdt": 75,
			"max_drawdown_percent": 0.2,
			"auto_close_on_breach": true,
			"check_interval_ms": 5000
		},
		"monitoring": {"listen_addr": ":9090"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Trading.Enabled)
	assert.Equal(t, 10.0, cfg.Trading.Leverage)
	assert.Equal(t, 0.1, cfg.Trading.PositionSizePercent)
	assert.Equal(t, 500.0, cfg.Trading.MaxPositionSizeUsdt)
	assert.Equal(t, 5, cfg.Trading.RetryAttempts)
	assert.Equal(t, 75.0, cfg.Risk.DailyLossLimitUsdt)
	assert.True(t, cfg.Risk.AutoCloseOnBreach)
	assert.Equal(t, ":9090", cfg.Monitoring.ListenAddr)
}

// TestLoad_EnvironmentOverridesMode tests that demo and testnet flags can be
// forced on from the environment.
func TestLoad_EnvironmentOverridesMode(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")
	t.Setenv("BYBIT_DEMO", "true")

	path := writeConfig(t, `{"trading": {"symbol": "BTCUSDT"}, "exchange": {"demo": false}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Exchange.Demo)
}

// TestLoad_MissingSymbol tests that a config without a trading symbol is
// rejected.
func TestLoad_MissingSymbol(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{"trading": {}}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol")
}

// TestLoad_MissingCredentials tests that absent API credentials fail
// validation.
func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "")
	t.Setenv("BYBIT_API_SECRET", "")

	path := writeConfig(t, `{"trading": {"symbol": "BTCUSDT"}}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

// TestLoad_MinAboveMax tests that an inverted position size range is
// rejected.
func TestLoad_MinAboveMax(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{"trading": {
		"symbol": "BTCUSDT",
		"min_position_size_usdt": 2000,
		"max_position_size_usdt": 1000
	}}`)

	_, err := Load(path)
	require.Error(t, err)
}

// TestLoad_TelegramEnabledWithoutToken tests that enabling notifications
// without credentials fails fast instead of silently dropping messages.
func TestLoad_TelegramEnabledWithoutToken(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	path := writeConfig(t, `{
		"trading": {"symbol": "BTCUSDT"},
		"notifications": {"enabled": true}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
}

// TestLoad_FileNotFound tests the error path for a missing config file.
func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
