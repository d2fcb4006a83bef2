// Package market provides typed views over the public feed payloads.
//
// The wire format carries prices and sizes as decimal strings. The parse
// helpers in this package convert them to apd.Decimal so callers can do
// exact arithmetic without round-tripping through float64.
package market

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"edgex/pkg/core"
)

// decCtx is the shared context for all decimal arithmetic in this package.
var decCtx = apd.Context{
	Precision:   32,
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Rounding:    apd.RoundHalfUp,
}

func parseDecimal(s string) (apd.Decimal, error) {
	if s == "" {
		return apd.Decimal{}, nil
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return apd.Decimal{}, core.WrapError(core.ErrorTypeProtocol, "invalid decimal "+strconv.Quote(s), err)
	}
	return *d, nil
}

func parseMillis(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, core.WrapError(core.ErrorTypeProtocol, "invalid timestamp "+strconv.Quote(s), err)
	}
	return time.UnixMilli(ms), nil
}

// Ticker is a 24-hour rolling statistics snapshot for one contract.
type Ticker struct {
	ContractID   string      `json:"contractId"`
	ContractName string      `json:"contractName"`
	Open         apd.Decimal `json:"open"`
	Close        apd.Decimal `json:"close"`
	High         apd.Decimal `json:"high"`
	Low          apd.Decimal `json:"low"`
	// Size is the 24-hour base volume, Value the quoted turnover.
	Size        apd.Decimal `json:"size"`
	Value       apd.Decimal `json:"value"`
	LastPrice   apd.Decimal `json:"lastPrice"`
	IndexPrice  apd.Decimal `json:"indexPrice"`
	OraclePrice apd.Decimal `json:"oraclePrice"`
	FundingRate apd.Decimal `json:"fundingRate"`
	Trades      int64       `json:"trades"`
	Time        time.Time   `json:"time"`
}

type tickerWire struct {
	ContractID   string `json:"contractId"`
	ContractName string `json:"contractName"`
	Open         string `json:"open"`
	Close        string `json:"close"`
	High         string `json:"high"`
	Low          string `json:"low"`
	Size         string `json:"size"`
	Value        string `json:"value"`
	LastPrice    string `json:"lastPrice"`
	IndexPrice   string `json:"indexPrice"`
	OraclePrice  string `json:"oraclePrice"`
	FundingRate  string `json:"fundingRate"`
	Trades       string `json:"trades"`
	Time         string `json:"time"`
}

func (w *tickerWire) typed() (*Ticker, error) {
	t := &Ticker{ContractID: w.ContractID, ContractName: w.ContractName}

	var err error
	for _, f := range []struct {
		dst *apd.Decimal
		src string
	}{
		{&t.Open, w.Open}, {&t.Close, w.Close}, {&t.High, w.High},
		{&t.Low, w.Low}, {&t.Size, w.Size}, {&t.Value, w.Value},
		{&t.LastPrice, w.LastPrice}, {&t.IndexPrice, w.IndexPrice},
		{&t.OraclePrice, w.OraclePrice}, {&t.FundingRate, w.FundingRate},
	} {
		if *f.dst, err = parseDecimal(f.src); err != nil {
			return nil, err
		}
	}

	if w.Trades != "" {
		if t.Trades, err = strconv.ParseInt(w.Trades, 10, 64); err != nil {
			return nil, core.WrapError(core.ErrorTypeProtocol, "invalid trade count", err)
		}
	}
	if t.Time, err = parseMillis(w.Time); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseTicker decodes a single ticker payload.
func ParseTicker(data json.RawMessage) (*Ticker, error) {
	var w tickerWire
	if err := sonic.Unmarshal(data, &w); err != nil {
		return nil, core.WrapError(core.ErrorTypeProtocol, "decode ticker", err)
	}
	return w.typed()
}

// Kline is one candlestick.
type Kline struct {
	ContractID string      `json:"contractId"`
	Interval   string      `json:"klineType"`
	OpenTime   time.Time   `json:"klineTime"`
	Open       apd.Decimal `json:"open"`
	High       apd.Decimal `json:"high"`
	Low        apd.Decimal `json:"low"`
	Close      apd.Decimal `json:"close"`
	Size       apd.Decimal `json:"size"`
	Value      apd.Decimal `json:"value"`
	Trades     int64       `json:"trades"`
}

type klineWire struct {
	ContractID string `json:"contractId"`
	Interval   string `json:"klineType"`
	KlineTime  string `json:"klineTime"`
	Open       string `json:"open"`
	High       string `json:"high"`
	Low        string `json:"low"`
	Close      string `json:"close"`
	Size       string `json:"size"`
	Value      string `json:"value"`
	Trades     int64  `json:"trades"`
}

// ParseKlines decodes a kline channel payload, which carries a batch.
func ParseKlines(data json.RawMessage) ([]Kline, error) {
	var wires []klineWire
	if err := sonic.Unmarshal(data, &wires); err != nil {
		return nil, core.WrapError(core.ErrorTypeProtocol, "decode klines", err)
	}

	klines := make([]Kline, 0, len(wires))
	for _, w := range wires {
		k := Kline{ContractID: w.ContractID, Interval: w.Interval, Trades: w.Trades}

		var err error
		if k.OpenTime, err = parseMillis(w.KlineTime); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			dst *apd.Decimal
			src string
		}{
			{&k.Open, w.Open}, {&k.High, w.High}, {&k.Low, w.Low},
			{&k.Close, w.Close}, {&k.Size, w.Size}, {&k.Value, w.Value},
		} {
			if *f.dst, err = parseDecimal(f.src); err != nil {
				return nil, err
			}
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// DepthLevel is a single price level of the book.
type DepthLevel struct {
	Price apd.Decimal `json:"price"`
	Size  apd.Decimal `json:"size"`
}

// Depth is an order book snapshot. Bids are sorted by price descending,
// asks ascending, as delivered by the feed.
type Depth struct {
	ContractID string       `json:"contractId"`
	Bids       []DepthLevel `json:"bids"`
	Asks       []DepthLevel `json:"asks"`
	Time       time.Time    `json:"time"`
}

type depthWire struct {
	ContractID string      `json:"contractId"`
	Bids       [][2]string `json:"bids"`
	Asks       [][2]string `json:"asks"`
	Time       string      `json:"time"`
}

func parseLevels(pairs [][2]string) ([]DepthLevel, error) {
	levels := make([]DepthLevel, 0, len(pairs))
	for _, p := range pairs {
		var lvl DepthLevel
		var err error
		if lvl.Price, err = parseDecimal(p[0]); err != nil {
			return nil, err
		}
		if lvl.Size, err = parseDecimal(p[1]); err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

// ParseDepth decodes an order book payload.
func ParseDepth(data json.RawMessage) (*Depth, error) {
	var w depthWire
	if err := sonic.Unmarshal(data, &w); err != nil {
		return nil, core.WrapError(core.ErrorTypeProtocol, "decode depth", err)
	}

	d := &Depth{ContractID: w.ContractID}
	var err error
	if d.Bids, err = parseLevels(w.Bids); err != nil {
		return nil, err
	}
	if d.Asks, err = parseLevels(w.Asks); err != nil {
		return nil, err
	}
	if d.Time, err = parseMillis(w.Time); err != nil {
		return nil, err
	}
	return d, nil
}

// BestBid returns the top bid level, or false for an empty side.
func (d *Depth) BestBid() (DepthLevel, bool) {
	if len(d.Bids) == 0 {
		return DepthLevel{}, false
	}
	return d.Bids[0], true
}

// BestAsk returns the top ask level, or false for an empty side.
func (d *Depth) BestAsk() (DepthLevel, bool) {
	if len(d.Asks) == 0 {
		return DepthLevel{}, false
	}
	return d.Asks[0], true
}

// Mid computes the book midpoint from the top of each side.
func (d *Depth) Mid() (*apd.Decimal, bool) {
	bid, bidOK := d.BestBid()
	ask, askOK := d.BestAsk()
	if !bidOK || !askOK {
		return nil, false
	}

	var sum, mid apd.Decimal
	if _, err := decCtx.Add(&sum, &bid.Price, &ask.Price); err != nil {
		return nil, false
	}
	if _, err := decCtx.Quo(&mid, &sum, apd.New(2, 0)); err != nil {
		return nil, false
	}
	return &mid, true
}

// Spread computes ask minus bid from the top of each side.
func (d *Depth) Spread() (*apd.Decimal, bool) {
	bid, bidOK := d.BestBid()
	ask, askOK := d.BestAsk()
	if !bidOK || !askOK {
		return nil, false
	}

	var spread apd.Decimal
	if _, err := decCtx.Sub(&spread, &ask.Price, &bid.Price); err != nil {
		return nil, false
	}
	return &spread, true
}

// Trade is a single public fill.
type Trade struct {
	ID         string      `json:"ticketId"`
	ContractID string      `json:"contractId"`
	Price      apd.Decimal `json:"price"`
	Size       apd.Decimal `json:"size"`
	// IsBuyerMaker reports whether the passive side of the fill was a bid.
	IsBuyerMaker bool      `json:"isBuyerMaker"`
	Time         time.Time `json:"time"`
}

type tradeWire struct {
	ID           string `json:"ticketId"`
	ContractID   string `json:"contractId"`
	Price        string `json:"price"`
	Size         string `json:"size"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
	Time         string `json:"time"`
}

// ParseTrades decodes a trades channel payload, which carries a batch.
func ParseTrades(data json.RawMessage) ([]Trade, error) {
	var wires []tradeWire
	if err := sonic.Unmarshal(data, &wires); err != nil {
		return nil, core.WrapError(core.ErrorTypeProtocol, "decode trades", err)
	}

	trades := make([]Trade, 0, len(wires))
	for _, w := range wires {
		tr := Trade{ID: w.ID, ContractID: w.ContractID, IsBuyerMaker: w.IsBuyerMaker}

		var err error
		if tr.Price, err = parseDecimal(w.Price); err != nil {
			return nil, err
		}
		if tr.Size, err = parseDecimal(w.Size); err != nil {
			return nil, err
		}
		if tr.Time, err = parseMillis(w.Time); err != nil {
			return nil, err
		}
		trades = append(trades, tr)
	}
	return trades, nil
}
