package stream

import (
	"github.com/rs/zerolog"

	"edgex/pkg/core"
)

// Router classifies inbound frames and dispatches them to registered
// callbacks and event stores. Frames are processed one at a time: a callback
// runs to completion before the next frame is read, which is the inbound
// side's only backpressure mechanism.
type Router struct {
	registry *Registry
	public   *Store
	private  *Store
	logger   zerolog.Logger
}

// NewRouter creates a Router over the given registry and stores.
func NewRouter(registry *Registry, public, private *Store) *Router {
	return &Router{
		registry: registry,
		public:   public,
		private:  private,
		logger:   zerolog.Nop(),
	}
}

// SetLogger configures the logger for the router.
func (r *Router) SetLogger(logger zerolog.Logger) {
	r.logger = logger
}

// Process parses and dispatches one raw frame. A parse failure is returned
// as a protocol error; the caller logs it and keeps receiving.
func (r *Router) Process(data []byte) error {
	frame, err := ParseFrame(data)
	if err != nil {
		return err
	}
	r.Dispatch(frame)
	return nil
}

// Dispatch routes a parsed frame by its type.
func (r *Router) Dispatch(frame *Frame) {
	switch frame.FrameType() {
	case FrameConnected, FrameSubscribed:
		r.logger.Debug().Str("type", frame.Type).Msg("session acknowledgement")

	case FrameTradeEvent:
		r.dispatchTradeEvent(frame)

	case FrameQuoteEvent:
		// Quote frames go to the quote callback whole and are never stored.
		r.registry.Fire(core.QuoteChannel, frame.Raw)

	case FramePayload:
		r.dispatchPayload(frame)

	case FramePing, FramePong:
		// Keepalive frames are answered by the session, not routed.

	default:
		r.logger.Warn().Str("type", frame.Type).Msg("unrecognized frame type")
	}
}

func (r *Router) dispatchTradeEvent(frame *Frame) {
	if frame.Content == nil {
		r.logger.Warn().Msg("trade-event frame without content")
		return
	}

	if frame.Content.Event == core.SnapshotEvent {
		r.logger.Debug().Msg("dropping snapshot event")
		return
	}

	kind, ok := core.ParseEventKind(frame.Content.Event)
	if !ok {
		r.logger.Warn().Str("event", frame.Content.Event).Msg("unrecognized event kind")
		return
	}

	r.registry.Fire(kind.String(), frame.Content.Data)
	r.private.Push(kind.String(), frame.Content.Data)
}

func (r *Router) dispatchPayload(frame *Frame) {
	category := core.ClassifyChannel(frame.Channel)

	var data []byte
	if frame.Content != nil {
		data = frame.Content.Data
	}

	r.registry.Fire(category.String(), data)

	// Unclassified channels are dispatched but never retained.
	if category.Known() {
		r.public.Push(category.String(), data)
	}
}
