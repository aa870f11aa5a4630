package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// DynamoAPI is the subset of *dynamodb.Client used here.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoSnapshotRepo writes snapshots to a table with partition key
// tickerSymbol and sort key timestamp.
type DynamoSnapshotRepo struct {
	client DynamoAPI
	table  string
}

func NewDynamoSnapshotRepo(client DynamoAPI, table string) *DynamoSnapshotRepo {
	return &DynamoSnapshotRepo{client: client, table: table}
}

type dynamoSnapshotItem struct {
	TickerSymbol string   `dynamodbav:"tickerSymbol"`
	Timestamp    string   `dynamodbav:"timestamp"`
	Price        float64  `dynamodbav:"price"`
	Change       *float64 `dynamodbav:"change,omitempty"`
	Sector       string   `dynamodbav:"sector,omitempty"`
}

func (r *DynamoSnapshotRepo) PutSnapshot(ctx context.Context, row models.SnapshotRow) error {
	item, err := attributevalue.MarshalMap(dynamoSnapshotItem{
		TickerSymbol: row.Ticker,
		Timestamp:    row.Timestamp,
		Price:        row.Price,
		Change:       row.Change,
		Sector:       row.Sector,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot %s@%s: %w", row.Ticker, row.Timestamp, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s@%s: %w", row.Ticker, row.Timestamp, err)
	}
	return nil
}

// Latest reads the newest rows for ticker. Timestamps are fixed-width epoch
// milliseconds, so the string sort key orders chronologically.
func (r *DynamoSnapshotRepo) Latest(ctx context.Context, ticker string, limit int) ([]models.SnapshotRow, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("tickerSymbol = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: ticker},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("query snapshots %s: %w", ticker, err)
	}

	var items []dynamoSnapshotItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal snapshots %s: %w", ticker, err)
	}

	result := make([]models.SnapshotRow, len(items))
	for i, it := range items {
		result[i] = models.SnapshotRow{
			Ticker:    it.TickerSymbol,
			Timestamp: it.Timestamp,
			Price:     it.Price,
			Change:    it.Change,
			Sector:    it.Sector,
		}
	}
	return result, nil
}
