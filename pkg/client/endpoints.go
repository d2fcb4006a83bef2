package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"edgex/pkg/core"
	"edgex/pkg/market"
)

// Endpoint paths. Quote endpoints are public; everything under /private
// requires a signed request.
const (
	pathServerTime = "/api/v1/public/meta/getServerTime"
	pathMetaData   = "/api/v1/public/meta/getMetaData"

	pathTicker = "/api/v1/quote/getTicker"
	pathKline  = "/api/v1/quote/getKline"
	pathDepth  = "/api/v1/quote/getDepth"

	pathAccountAsset            = "/api/v1/private/assets/getAccountAsset"
	pathAccountPage             = "/api/v1/private/account/getAccountPage"
	pathPositionTransactionPage = "/api/v1/private/account/getPositionTransactionPage"
	pathCollateralTransaction   = "/api/v1/private/account/getCollateralTransactionPage"
	pathActiveOrderPage         = "/api/v1/private/order/getActiveOrderPage"
	pathHistoryOrderPage        = "/api/v1/private/order/getHistoryOrderPage"
	pathCreateOrder             = "/api/v1/private/order/createOrder"
	pathCancelOrder             = "/api/v1/private/order/cancelOrderById"
)

// Position transaction defaults.
const (
	DefaultTransactionFilter = "SETTLE_FUNDING_FEE"
	DefaultPageSize          = "10"
)

// GetServerTime returns the exchange clock payload.
func (c *Client) GetServerTime(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, core.NewRequest(http.MethodGet, pathServerTime))
}

// GetMetaData returns exchange metadata, including the contract list.
func (c *Client) GetMetaData(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, core.NewRequest(http.MethodGet, pathMetaData))
}

// GetTicker fetches the 24-hour statistics for one contract.
func (c *Client) GetTicker(ctx context.Context, contractID string) (*market.Ticker, error) {
	data, err := c.call(ctx, core.NewRequest(http.MethodGet, pathTicker).
		SetQuery("contractId", contractID))
	if err != nil {
		return nil, err
	}
	return market.ParseTicker(data)
}

// GetKline fetches up to size candlesticks for a contract and interval.
func (c *Client) GetKline(ctx context.Context, contractID, interval string, size int) ([]market.Kline, error) {
	data, err := c.call(ctx, core.NewRequest(http.MethodGet, pathKline).
		SetQuery("contractId", contractID).
		SetQuery("klineType", interval).
		SetQuery("size", strconv.Itoa(size)))
	if err != nil {
		return nil, err
	}
	return market.ParseKlines(data)
}

// GetDepth fetches an order book snapshot with the given level count.
func (c *Client) GetDepth(ctx context.Context, contractID string, level int) (*market.Depth, error) {
	data, err := c.call(ctx, core.NewRequest(http.MethodGet, pathDepth).
		SetQuery("contractId", contractID).
		SetQuery("level", strconv.Itoa(level)))
	if err != nil {
		return nil, err
	}
	return market.ParseDepth(data)
}

// GetAccountAsset fetches asset balances for the signing account.
func (c *Client) GetAccountAsset(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, core.NewRequest(http.MethodGet, pathAccountAsset).
		SetQuery("accountId", c.AccountID()).
		SetRequireAuth(true))
}

// GetAccountPage fetches a page of sub-accounts.
func (c *Client) GetAccountPage(ctx context.Context, size string) (json.RawMessage, error) {
	if size == "" {
		size = DefaultPageSize
	}
	return c.call(ctx, core.NewRequest(http.MethodGet, pathAccountPage).
		SetQuery("size", size).
		SetRequireAuth(true))
}

// GetPositionTransactionPage fetches a page of position transactions.
// Empty arguments fall back to the signing account, the funding settlement
// filter, and a page size of 10.
func (c *Client) GetPositionTransactionPage(ctx context.Context, accountID, filterTypeList, size string) (json.RawMessage, error) {
	if accountID == "" {
		accountID = c.AccountID()
	}
	if filterTypeList == "" {
		filterTypeList = DefaultTransactionFilter
	}
	if size == "" {
		size = DefaultPageSize
	}
	return c.call(ctx, core.NewRequest(http.MethodGet, pathPositionTransactionPage).
		SetQueryParams(core.Params{
			"accountId":      accountID,
			"filterTypeList": filterTypeList,
			"size":           size,
		}).
		SetRequireAuth(true))
}

// GetCollateralTransactionPage fetches a page of collateral movements.
func (c *Client) GetCollateralTransactionPage(ctx context.Context, size string) (json.RawMessage, error) {
	if size == "" {
		size = DefaultPageSize
	}
	return c.call(ctx, core.NewRequest(http.MethodGet, pathCollateralTransaction).
		SetQueryParams(core.Params{
			"accountId": c.AccountID(),
			"size":      size,
		}).
		SetRequireAuth(true))
}

// GetActiveOrderPage fetches a page of open orders.
func (c *Client) GetActiveOrderPage(ctx context.Context, size string) (json.RawMessage, error) {
	if size == "" {
		size = DefaultPageSize
	}
	return c.call(ctx, core.NewRequest(http.MethodGet, pathActiveOrderPage).
		SetQueryParams(core.Params{
			"accountId": c.AccountID(),
			"size":      size,
		}).
		SetRequireAuth(true))
}

// GetHistoryOrderPage fetches a page of filled and canceled orders.
func (c *Client) GetHistoryOrderPage(ctx context.Context, size string) (json.RawMessage, error) {
	if size == "" {
		size = DefaultPageSize
	}
	return c.call(ctx, core.NewRequest(http.MethodGet, pathHistoryOrderPage).
		SetQueryParams(core.Params{
			"accountId": c.AccountID(),
			"size":      size,
		}).
		SetRequireAuth(true))
}

// CreateOrderParams carries the fields of a new order. Prices and sizes are
// decimal strings in the contract's native precision.
type CreateOrderParams struct {
	ContractID    string `json:"contractId"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Size          string `json:"size"`
	Price         string `json:"price,omitempty"`
	TimeInForce   string `json:"timeInForce,omitempty"`
	ClientOrderID string `json:"clientOrderId,omitempty"`
}

// CreateOrder submits a new order for the signing account.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (json.RawMessage, error) {
	body := map[string]any{
		"accountId":  c.AccountID(),
		"contractId": params.ContractID,
		"side":       params.Side,
		"type":       params.Type,
		"size":       params.Size,
	}
	if params.Price != "" {
		body["price"] = params.Price
	}
	if params.TimeInForce != "" {
		body["timeInForce"] = params.TimeInForce
	}
	if params.ClientOrderID != "" {
		body["clientOrderId"] = params.ClientOrderID
	}

	return c.call(ctx, core.NewRequest(http.MethodPost, pathCreateOrder).
		SetBody(body).
		SetRequireAuth(true))
}

// CancelOrder cancels one order by its exchange-assigned id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	body := map[string]any{
		"accountId":   c.AccountID(),
		"orderIdList": []string{orderID},
	}
	return c.call(ctx, core.NewRequest(http.MethodPost, pathCancelOrder).
		SetBody(body).
		SetRequireAuth(true))
}
