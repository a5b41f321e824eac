package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-storefront-orderflow/internal/aws"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
)

// MessagePublisher is satisfied by *aws.Publisher.
type MessagePublisher interface {
	PublishOrder(ctx context.Context, msg aws.OrderMessage) (string, error)
}

// QueueSubmitter hands the order payload to a message queue consumed by the backend.
// The message id stands in for the remote order id.
type QueueSubmitter struct {
	publisher    MessagePublisher
	defaultEmail string
}

func NewQueueSubmitter(p MessagePublisher, defaultEmail string) *QueueSubmitter {
	return &QueueSubmitter{publisher: p, defaultEmail: defaultEmail}
}

func (q *QueueSubmitter) Submit(ctx context.Context, o orders.Order) (string, error) {
	body, err := json.Marshal(NewPayload(o, q.defaultEmail))
	if err != nil {
		return "", &SyncError{OrderRef: o.OrderRef, Err: fmt.Errorf("marshal payload: %w", err)}
	}
	id, err := q.publisher.PublishOrder(ctx, aws.OrderMessage{
		Body:     body,
		OrderRef: o.OrderRef,
		Attributes: map[string]string{
			"order_ref":      o.OrderRef,
			"correlation_id": uuid.NewString(),
		},
	})
	if err != nil {
		return "", &SyncError{OrderRef: o.OrderRef, Transient: true, Err: err}
	}
	return id, nil
}
