package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// StateOrderCreated is the order state that converts a quote into a placed
// quote. Other states are published but currently have no handler.
const StateOrderCreated = "order-created"

// OrderEvent is the payload the marketplace emits whenever an order changes
// state.
type OrderEvent struct {
	OrderID      string    `json:"orderId"`
	CurrentState string    `json:"currentState"`
	RecordedAt   time.Time `json:"recordedAt"`
}

type OrderEventHandler func(context.Context, *OrderEvent) error

type EventManager struct {
	natsConn *nats.Conn
	handlers map[string]OrderEventHandler
	logger   *zap.Logger
}

func NewEventManager(natsConn *nats.Conn, logger *zap.Logger) *EventManager {
	return &EventManager{
		natsConn: natsConn,
		handlers: make(map[string]OrderEventHandler),
		logger:   logger,
	}
}

func (em *EventManager) RegisterHandler(state string, handler OrderEventHandler) {
	em.handlers[state] = handler
}

func (em *EventManager) GetHandler(state string) (OrderEventHandler, bool) {
	handler, exists := em.handlers[state]
	return handler, exists
}

func (em *EventManager) PublishEvent(event *OrderEvent) error {
	// NATS is optional wiring; hooks still arrive over HTTP without it.
	if em.natsConn == nil {
		return fmt.Errorf("event bus is not connected")
	}

	subject := fmt.Sprintf("order.event.%s", event.CurrentState)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return em.natsConn.Publish(subject, data)
}

// SubscribeToEvents fans incoming order events out to the dispatcher so hook
// requests are acknowledged before any quote work happens.
func (em *EventManager) SubscribeToEvents(d *Dispatcher, process func(ctx context.Context, event *OrderEvent) error) error {
	_, err := em.natsConn.Subscribe("order.event.>", func(msg *nats.Msg) {
		var event OrderEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			em.logger.Error("Failed to unmarshal event", zap.Error(err))
			return
		}

		d.Submit("process-order-event", func(ctx context.Context) error {
			return process(ctx, &event)
		})
	})

	return err
}
