package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the backend uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoBackend stores one item per cycle, keyed by run_id (hash) and
// cycle (range).
type DynamoBackend struct {
	Client DynamoAPI
	Table  string
}

// NewDynamoBackend initializes a DynamoDB backend.
func NewDynamoBackend(cfg aws.Config, table string) *DynamoBackend {
	return &DynamoBackend{Client: dynamodb.NewFromConfig(cfg), Table: table}
}

func (b *DynamoBackend) Append(ctx context.Context, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = b.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.Table),
		Item: map[string]types.AttributeValue{
			"run_id":    &types.AttributeValueMemberS{Value: e.RunID},
			"cycle":     &types.AttributeValueMemberN{Value: strconv.Itoa(e.Cycle)},
			"timestamp": &types.AttributeValueMemberN{Value: strconv.FormatInt(e.Timestamp, 10)},
			"payload":   &types.AttributeValueMemberS{Value: string(payload)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put ledger item: %w", err)
	}
	return nil
}

func (b *DynamoBackend) Load(ctx context.Context, n int) ([]Entry, error) {
	var entries []Entry
	paginator := dynamodb.NewScanPaginator(b.Client, &dynamodb.ScanInput{
		TableName:            aws.String(b.Table),
		ProjectionExpression: aws.String("payload"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger: %w", err)
		}
		for _, item := range page.Items {
			attr, ok := item["payload"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			var e Entry
			if err := json.Unmarshal([]byte(attr.Value), &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp < entries[j].Timestamp
		}
		return entries[i].Cycle < entries[j].Cycle
	})
	return tail(entries, n), nil
}
