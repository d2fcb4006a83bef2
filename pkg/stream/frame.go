package stream

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"edgex/pkg/core"
)

// FrameType classifies an inbound websocket frame by its top-level type
// field. The set is closed; anything else maps to FrameUnknown.
type FrameType int

const (
	FrameConnected FrameType = iota
	FrameSubscribed
	FrameTradeEvent
	FrameQuoteEvent
	FramePayload
	FramePing
	FramePong
	FrameUnknown
)

// String returns the wire name of the frame type.
func (t FrameType) String() string {
	return [...]string{
		"connected",
		"subscribed",
		"trade-event",
		"quote-event",
		"payload",
		"ping",
		"pong",
		"unknown",
	}[t]
}

// ParseFrameType maps a wire type string to its FrameType.
func ParseFrameType(s string) FrameType {
	switch s {
	case "connected":
		return FrameConnected
	case "subscribed":
		return FrameSubscribed
	case "trade-event":
		return FrameTradeEvent
	case "quote-event":
		return FrameQuoteEvent
	case "payload":
		return FramePayload
	case "ping":
		return FramePing
	case "pong":
		return FramePong
	default:
		return FrameUnknown
	}
}

// Content is the nested body of trade-event and payload frames.
type Content struct {
	// Event is the private event-kind key on trade-event frames.
	Event string `json:"event,omitempty"`
	// Data is the opaque payload handed to callbacks and stores.
	Data json.RawMessage `json:"data,omitempty"`
}

// Frame is one inbound websocket message. Raw keeps the original bytes so
// quote callbacks receive the full frame unmodified.
type Frame struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel,omitempty"`
	Content *Content `json:"content,omitempty"`
	// Time is echoed verbatim in pong replies, so its wire form (string or
	// number) is preserved.
	Time json.RawMessage `json:"time,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseFrame decodes an inbound frame. A decode failure is a protocol error:
// the receive loop logs it and continues.
func ParseFrame(data []byte) (*Frame, error) {
	var frame Frame
	if err := sonic.Unmarshal(data, &frame); err != nil {
		return nil, core.WrapError(core.ErrorTypeProtocol, "malformed frame", err)
	}
	frame.Raw = json.RawMessage(data)
	return &frame, nil
}

// FrameType returns the classification of the frame's type field.
func (f *Frame) FrameType() FrameType {
	return ParseFrameType(f.Type)
}

// subscribeFrame requests delivery of one public channel.
type subscribeFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Symbol  string `json:"symbol,omitempty"`
}

// pingFrame is the outbound keepalive.
type pingFrame struct {
	Type string `json:"type"`
	Time string `json:"time"`
}

// pongFrame answers an inbound ping, echoing its time field.
type pongFrame struct {
	Type string          `json:"type"`
	Time json.RawMessage `json:"time,omitempty"`
}
