package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/swaptoon/swap-engine/internal/metrics"
	"github.com/swaptoon/swap-engine/internal/swap"
)

const publishTimeout = 2 * time.Second

// Bridge is a swap.Listener that records metrics, broadcasts every
// transition on the hub and publishes completed trades. Hub and publisher
// are both optional.
type Bridge struct {
	hub       *Hub
	publisher TradePublisher
}

// NewBridge creates a listener over hub and publisher; either may be nil.
func NewBridge(hub *Hub, publisher TradePublisher) *Bridge {
	return &Bridge{hub: hub, publisher: publisher}
}

// MessageFor converts a transition to its WebSocket message.
func MessageFor(ev swap.Event) Message {
	msg := Message{
		Type:         "swap_status",
		UserID:       ev.UserID,
		Status:       string(ev.To),
		Source:       ev.Snapshot.Source.Symbol,
		Target:       ev.Snapshot.Target.Symbol,
		SourceAmount: ev.Snapshot.SourceAmount,
		TargetAmount: ev.Snapshot.TargetAmount,
		Reason:       ev.Snapshot.FailureReason,
	}
	if ev.Trade != nil {
		msg.Type = "trade_completed"
		msg.TradeID = ev.Trade.ID
		msg.SourceAmount = ev.Trade.SourceAmount
		msg.TargetAmount = ev.Trade.TargetAmount
	}
	return msg
}

func (b *Bridge) OnTransition(ev swap.Event) {
	metrics.SwapTransitions.WithLabelValues(string(ev.To)).Inc()
	if ev.Terminal() {
		metrics.SwapDuration.WithLabelValues(string(ev.To)).Observe(ev.Elapsed.Seconds())
	}

	if b.hub != nil {
		b.hub.Broadcast(MessageFor(ev))
	}

	if ev.Trade == nil {
		return
	}
	metrics.SwapVolumeUSD.
		WithLabelValues(ev.Trade.SourceAsset.Symbol, ev.Trade.TargetAsset.Symbol).
		Add(ev.Snapshot.SourceUSD.InexactFloat64())

	if b.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.publisher.Publish(ctx, *ev.Trade); err != nil {
		metrics.EventPublishFailures.WithLabelValues("amqp").Inc()
		slog.Error("failed to publish trade", "trade_id", ev.Trade.ID, "err", err)
	}
}
