package core

import "strings"

// EventKind identifies a private account event delivered on the trading
// websocket. The set is closed; inbound kinds outside it are ignored.
type EventKind int

const (
	KindAccountUpdate EventKind = iota
	KindDepositUpdate
	KindWithdrawUpdate
	KindTransferInUpdate
	KindTransferOutUpdate
	KindOrderUpdate
	KindForceWithdrawUpdate
	KindForceTradeUpdate
	KindFundingSettlementUpdate
	KindFeeIncomeUpdate
	KindStartLiquidatingUpdate
	KindFinishLiquidatingUpdate
)

var eventKindNames = [...]string{
	"ACCOUNT_UPDATE",
	"DEPOSIT_UPDATE",
	"WITHDRAW_UPDATE",
	"TRANSFER_IN_UPDATE",
	"TRANSFER_OUT_UPDATE",
	"ORDER_UPDATE",
	"FORCE_WITHDRAW_UPDATE",
	"FORCE_TRADE_UPDATE",
	"FUNDING_SETTLEMENT_UPDATE",
	"FEE_INCOME_UPDATE",
	"START_LIQUIDATING_UPDATE",
	"FINISH_LIQUIDATING_UPDATE",
}

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	return eventKindNames[k]
}

// EventKinds returns every private event kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, len(eventKindNames))
	for i := range kinds {
		kinds[i] = EventKind(i)
	}
	return kinds
}

// ParseEventKind maps a wire event name to its EventKind. The second return
// value is false for names outside the closed set.
func ParseEventKind(name string) (EventKind, bool) {
	for i, n := range eventKindNames {
		if n == name {
			return EventKind(i), true
		}
	}
	return 0, false
}

// SnapshotEvent is the trade-event kind carrying a full state snapshot on
// connect. Snapshots are dropped: no callback, no storage.
const SnapshotEvent = "Snapshot"

// QuoteChannel is the distinguished callback key for quote-event frames.
// Quote volume is too high for retention, so quote frames are never stored.
const QuoteChannel = "quote"

// Category classifies a public market-data channel.
type Category int

const (
	CategoryKline Category = iota
	CategoryDepth
	CategoryTrades
	CategoryUnknown
)

// String returns the string representation of the category.
func (c Category) String() string {
	return [...]string{"kline", "depth", "trades", "unknown"}[c]
}

// Known reports whether the category is one of the three named ones.
// Unknown events are dispatched but never persisted.
func (c Category) Known() bool {
	return c != CategoryUnknown
}

// ClassifyChannel buckets a free-form channel name into a Category by
// case-insensitive substring match. Priority order matters: a channel naming
// both kline and depth is a kline channel.
func ClassifyChannel(channel string) Category {
	lower := strings.ToLower(channel)
	switch {
	case strings.Contains(lower, "kline"):
		return CategoryKline
	case strings.Contains(lower, "depth"):
		return CategoryDepth
	case strings.Contains(lower, "trade"):
		return CategoryTrades
	default:
		return CategoryUnknown
	}
}
