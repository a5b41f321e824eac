package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// OrderMessage is one order hand-off to the backend queue.
type OrderMessage struct {
	Body []byte
	// OrderRef doubles as the FIFO deduplication id and message group.
	OrderRef   string
	Attributes map[string]string
}

// Publisher sends order messages to a single SQS queue.
type Publisher struct {
	client   SQSAPI
	queueURL string
	fifo     bool
}

func NewPublisher(client SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

// PublishOrder returns the SQS message id. On a FIFO queue a repeated
// OrderRef inside the dedup window is accepted by SQS without a second delivery.
func (p *Publisher) PublishOrder(ctx context.Context, msg OrderMessage) (string, error) {
	if len(msg.Body) == 0 {
		return "", errors.New("publish order: empty body")
	}
	body := string(msg.Body)
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &body,
	}
	if p.fifo && msg.OrderRef != "" {
		input.MessageDeduplicationId = awsString(msg.OrderRef)
		input.MessageGroupId = awsString(msg.OrderRef)
	}
	attrs := map[string]sqstypes.MessageAttributeValue{}
	for k, v := range msg.Attributes {
		// SQS rejects empty attribute values
		if v == "" {
			continue
		}
		attrs[k] = sqstypes.MessageAttributeValue{
			DataType:    awsString("String"),
			StringValue: awsString(v),
		}
	}
	if len(attrs) > 0 {
		input.MessageAttributes = attrs
	}

	out, err := p.client.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("publish order %s: %w", msg.OrderRef, err)
	}
	if out == nil || out.MessageId == nil {
		return "", fmt.Errorf("publish order %s: no message id returned", msg.OrderRef)
	}
	return *out.MessageId, nil
}

func awsString(s string) *string { return &s }
