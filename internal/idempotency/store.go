package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-storefront-orderflow/internal/aws"
)

// beginCondition lets a new attempt replace a missing, failed or abandoned entry.
const beginCondition = "attribute_not_exists(order_ref) OR #s = :failed OR (#s = :inprogress AND started_at < :stale)"

// Store keeps the submission ledger in DynamoDB so that several API instances
// serialise submissions of the same order.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // how long finished entries are retained
	lease     time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// ttlWindow: retention of entries via the table's TTL attribute (e.g. 48*time.Hour).
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		lease:     DefaultLease,
		nowFunc:   time.Now,
	}
}

// Begin claims the right to submit orderRef. It returns ErrSubmissionInFlight or
// ErrAlreadySubmitted when the claim is refused.
func (s *Store) Begin(ctx context.Context, orderRef string) error {
	now := s.nowFunc()
	rec := Record{
		OrderRef:  orderRef,
		Status:    StatusInProgress,
		StartedAt: now.Unix(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttlWindow).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                &s.tableName,
		Item:                     item,
		ConditionExpression:      awsString(beginCondition),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed":     &types.AttributeValueMemberS{Value: StatusFailed},
			":inprogress": &types.AttributeValueMemberS{Value: StatusInProgress},
			":stale":      &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(-s.lease).Unix(), 10)},
		},
	})
	if err != nil {
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			existing, gerr := s.Get(ctx, orderRef)
			if gerr != nil {
				return ErrSubmissionInFlight
			}
			return refusal(existing)
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get retrieves the entry for orderRef. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, orderRef string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            recordKey(orderRef),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// MarkDone records the remote id and closes the entry for good.
func (s *Store) MarkDone(ctx context.Context, orderRef, remoteID string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              recordKey(orderRef),
		UpdateExpression: awsString("SET #s = :done, remote_id = :rid, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":done": &types.AttributeValueMemberS{Value: StatusDone},
			":rid":  &types.AttributeValueMemberS{Value: remoteID},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("update item (mark done): %w", err)
	}
	return nil
}

// MarkFailed closes the attempt; a later Begin for the same order is allowed.
func (s *Store) MarkFailed(ctx context.Context, orderRef, note string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              recordKey(orderRef),
		UpdateExpression: awsString("SET #s = :failed, note = :n, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed": &types.AttributeValueMemberS{Value: StatusFailed},
			":n":      &types.AttributeValueMemberS{Value: note},
			":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("update item (mark failed): %w", err)
	}
	return nil
}

func recordKey(orderRef string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_ref": &types.AttributeValueMemberS{Value: orderRef},
	}
}

// Helpers
func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
