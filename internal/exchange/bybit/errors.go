package bybit

import (
	"encoding/json"
	"fmt"
	"strconv"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/quanterra/bandbot/internal/exchange"
)

// Bybit v5 API error codes seen by this bot
const (
	errCodeInvalidAPIKey        = 10003
	errCodeInvalidSignature     = 10004
	errCodeInvalidTimestamp     = 10005
	errCodeRateLimitExceeded    = 10006
	errCodeOrderNotFound        = 110001
	errCodeInvalidOrderType     = 110004
	errCodeInsufficientBalance  = 110007
	errCodeSymbolNotFound       = 110009
	errCodeInvalidQuantity      = 110020
	errCodeInvalidPrice         = 110021
	errCodeLeverageNotModified  = 110043
	errCodeSystemInternal       = 10016
	errCodeServiceUnavailable   = 10002
)

// classifyAPIError maps a Bybit retCode to the normalized tagged error the
// pipeline's retry layer understands.
func classifyAPIError(op string, retCode int, retMsg string) *exchange.Error {
	kind := exchange.ErrorKindUnknown
	switch retCode {
	case errCodeRateLimitExceeded, errCodeSystemInternal, errCodeServiceUnavailable:
		kind = exchange.ErrorKindRetryable
	case errCodeInvalidAPIKey, errCodeInvalidSignature, errCodeInvalidTimestamp,
		errCodeInsufficientBalance, errCodeSymbolNotFound, errCodeInvalidOrderType,
		errCodeInvalidQuantity, errCodeInvalidPrice, errCodeOrderNotFound:
		kind = exchange.ErrorKindNonRetryable
	default:
		// Bybit uses 5-digit 1xxxx codes for gateway/system problems and
		// 11xxxx codes for trading rejections.
		if retCode >= 10000 && retCode < 11000 {
			kind = exchange.ErrorKindRetryable
		}
	}
	return exchange.NewError(kind, op, retCode, retMsg)
}

// checkResponse asserts the ServerResponse shape and a zero retCode, then
// re-marshals the result payload for typed decoding.
func checkResponse(op string, response interface{}) ([]byte, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, exchange.WrapUnknown(op, fmt.Errorf("invalid response type %T", response))
	}
	if serverResp.RetCode != 0 {
		return nil, classifyAPIError(op, serverResp.RetCode, serverResp.RetMsg)
	}
	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, exchange.WrapUnknown(op, fmt.Errorf("marshal result: %w", err))
	}
	return resultBytes, nil
}

// parseFloat parses Bybit's stringly-typed numeric fields, treating empty
// strings as zero.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
