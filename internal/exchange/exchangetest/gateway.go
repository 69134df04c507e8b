// Package exchangetest provides a mock Gateway for component tests.
package exchangetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/quanterra/bandbot/internal/exchange"
	"github.com/quanterra/bandbot/pkg/types"
)

// MockGateway is a testify mock of exchange.Gateway
type MockGateway struct {
	mock.Mock
}

var _ exchange.Gateway = (*MockGateway)(nil)

func (m *MockGateway) GetBalance(ctx context.Context, asset string) (types.AccountBalance, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(types.AccountBalance), args.Error(1)
}

func (m *MockGateway) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(types.Position), args.Error(1)
}

func (m *MockGateway) GetSymbolRules(ctx context.Context, symbol string) (types.SymbolTradingRules, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(types.SymbolTradingRules), args.Error(1)
}

func (m *MockGateway) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockGateway) SubmitMarketOrder(ctx context.Context, params exchange.MarketOrderParams) (*types.OrderResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.OrderResult), args.Error(1)
}

func (m *MockGateway) SubmitTakeProfitOrder(ctx context.Context, params exchange.StopOrderParams) (*types.OrderResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.OrderResult), args.Error(1)
}

func (m *MockGateway) SubmitStopLossOrder(ctx context.Context, params exchange.StopOrderParams) (*types.OrderResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.OrderResult), args.Error(1)
}

func (m *MockGateway) CancelAllOrders(ctx context.Context, symbol string) error {
	args := m.Called(ctx, symbol)
	return args.Error(0)
}

func (m *MockGateway) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	args := m.Called(ctx, symbol, leverage)
	return args.Error(0)
}

func (m *MockGateway) VerifyConnectivity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
