package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoTimeFormat is fixed-width so created_at range conditions compare
// lexicographically the same as chronologically. RFC3339Nano trims trailing
// zeros, which breaks that at sub-second boundaries. Timestamps are stored
// in UTC for the same reason.
const dynamoTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// DynamoLedgerStore persists the ledger in DynamoDB. The table uses
// pair_key (tenant#variant#location) as partition key and sequence as sort
// key; a conditional write guards against duplicate sequences so concurrent
// appends for the same pair cannot both commit the same slot.
type DynamoLedgerStore struct {
	client    *dynamodb.Client
	tableName string
	tenantID  string
}

// dynamoEntry is the DynamoDB item layout for a ledger entry.
type dynamoEntry struct {
	PairKey    string `dynamodbav:"pair_key"`
	Sequence   int64  `dynamodbav:"sequence"`
	ID         string `dynamodbav:"id"`
	VariantID  string `dynamodbav:"variant_id"`
	LocationID string `dynamodbav:"location_id"`
	Delta      int64  `dynamodbav:"delta"`
	Type       string `dynamodbav:"adjustment_type"`
	Reference  string `dynamodbav:"reference"`
	CreatedAt  string `dynamodbav:"created_at"`
	VariantKey string `dynamodbav:"gsi_variant"` // GSI: all locations of a variant
	TenantKey  string `dynamodbav:"gsi_tenant"`  // GSI: time-windowed scans per tenant
}

func NewDynamoLedgerStore(client *dynamodb.Client, tableName, tenantID string) *DynamoLedgerStore {
	return &DynamoLedgerStore{
		client:    client,
		tableName: tableName,
		tenantID:  tenantID,
	}
}

func (s *DynamoLedgerStore) pairKey(variantID, locationID string) string {
	return s.tenantID + "#" + variantID + "#" + locationID
}

// Append stores an entry with the next per-pair sequence.
func (s *DynamoLedgerStore) Append(ctx context.Context, entry Entry) (*Entry, error) {
	key := s.pairKey(entry.VariantID, entry.LocationID)

	seq, err := s.nextSequence(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get next sequence: %w", err)
	}
	entry.Sequence = seq

	item := dynamoEntry{
		PairKey:    key,
		Sequence:   entry.Sequence,
		ID:         entry.ID,
		VariantID:  entry.VariantID,
		LocationID: entry.LocationID,
		Delta:      entry.Delta,
		Type:       string(entry.Type),
		Reference:  entry.Reference,
		CreatedAt:  entry.Timestamp.UTC().Format(dynamoTimeFormat),
		VariantKey: s.tenantID + "#" + entry.VariantID,
		TenantKey:  s.tenantID,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pair_key) AND attribute_not_exists(#seq)"),
		ExpressionAttributeNames: map[string]string{
			"#seq": "sequence",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put entry: %w", err)
	}

	return &entry, nil
}

// nextSequence queries the current max sequence for the pair and returns the
// next one.
func (s *DynamoLedgerStore) nextSequence(ctx context.Context, pairKey string) (int64, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pair_key = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pairKey},
		},
		ScanIndexForward:     aws.Bool(false),
		Limit:                aws.Int32(1),
		ProjectionExpression: aws.String("#seq"),
		ExpressionAttributeNames: map[string]string{
			"#seq": "sequence",
		},
	})
	if err != nil {
		return 0, err
	}

	if len(result.Items) == 0 {
		return 1, nil
	}

	var item struct {
		Sequence int64 `dynamodbav:"sequence"`
	}
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return 0, err
	}
	return item.Sequence + 1, nil
}

// Replay returns the pair history in sequence order.
func (s *DynamoLedgerStore) Replay(ctx context.Context, variantID, locationID string) ([]Entry, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pair_key = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: s.pairKey(variantID, locationID)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query pair history: %w", err)
	}

	return unmarshalEntries(result.Items)
}

// ReplayVariant returns all entries for a variant via the variant GSI.
func (s *DynamoLedgerStore) ReplayVariant(ctx context.Context, variantID string) ([]Entry, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String("variant-index"),
		KeyConditionExpression: aws.String("gsi_variant = :vk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":vk": &types.AttributeValueMemberS{Value: s.tenantID + "#" + variantID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query variant history: %w", err)
	}

	return unmarshalEntries(result.Items)
}

// EntriesInWindow returns all tenant entries with from <= created_at < to,
// via the tenant GSI keyed on (gsi_tenant, created_at).
func (s *DynamoLedgerStore) EntriesInWindow(ctx context.Context, from, to time.Time) ([]Entry, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String("tenant-index"),
		KeyConditionExpression: aws.String("gsi_tenant = :tk AND created_at >= :from"),
		FilterExpression:       aws.String("created_at < :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tk":   &types.AttributeValueMemberS{Value: s.tenantID},
			":from": &types.AttributeValueMemberS{Value: from.UTC().Format(dynamoTimeFormat)},
			":to":   &types.AttributeValueMemberS{Value: to.UTC().Format(dynamoTimeFormat)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query window: %w", err)
	}

	return unmarshalEntries(result.Items)
}

func unmarshalEntries(items []map[string]types.AttributeValue) ([]Entry, error) {
	var entries []Entry
	for _, raw := range items {
		var item dynamoEntry
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}

		ts, err := time.Parse(dynamoTimeFormat, item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse entry timestamp: %w", err)
		}

		entries = append(entries, Entry{
			ID:         item.ID,
			VariantID:  item.VariantID,
			LocationID: item.LocationID,
			Delta:      item.Delta,
			Type:       AdjustmentType(item.Type),
			Reference:  item.Reference,
			Timestamp:  ts,
			Sequence:   item.Sequence,
		})
	}
	return entries, nil
}
