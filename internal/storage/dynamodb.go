package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-storefront-orderflow/internal/aws"
)

// slotItem is the shape persisted in the slots DynamoDB table.
type slotItem struct {
	Slot      string    `dynamodbav:"slot"` // PK
	Payload   string    `dynamodbav:"payload"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// DynamoSlot stores the payload as one item of a DynamoDB table keyed by "slot".
type DynamoSlot struct {
	client    aws.DynamoDBAPI
	tableName string
	name      string
	nowFunc   func() time.Time
}

func NewDynamoSlot(client aws.DynamoDBAPI, tableName, name string) *DynamoSlot {
	return &DynamoSlot{
		client:    client,
		tableName: tableName,
		name:      name,
		nowFunc:   time.Now,
	}
}

func (d *DynamoSlot) Read(ctx context.Context) ([]byte, error) {
	out, err := d.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &d.tableName,
		Key: map[string]types.AttributeValue{
			"slot": &types.AttributeValueMemberS{Value: d.name},
		},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var it slotItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal slot: %w", err)
	}
	return []byte(it.Payload), nil
}

func (d *DynamoSlot) Write(ctx context.Context, data []byte) error {
	item, err := attributevalue.MarshalMap(slotItem{
		Slot:      d.name,
		Payload:   string(data),
		UpdatedAt: d.nowFunc().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal slot: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &d.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func awsBool(b bool) *bool { return &b }
