package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/yourusername/race-reels/internal/config"
	"github.com/yourusername/race-reels/internal/models"
)

// dynamoAPI is the subset of *dynamodb.Client the ledgers use.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// NewDynamoDBClient builds a client from the dynamodb config section
func NewDynamoDBClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// DynamoDBSightingLedger stores sightings keyed by EventImageId, with a
// global secondary index on EventId.
type DynamoDBSightingLedger struct {
	client     dynamoAPI
	table      string
	eventIndex string
	newID      func() string
}

// NewDynamoDBSightingLedger creates a new sighting ledger
func NewDynamoDBSightingLedger(client dynamoAPI, table, eventIndex string) *DynamoDBSightingLedger {
	return &DynamoDBSightingLedger{
		client:     client,
		table:      table,
		eventIndex: eventIndex,
		newID:      newSightingID,
	}
}

// RecordSighting puts a new item conditioned on the id being unused
func (l *DynamoDBSightingLedger) RecordSighting(ctx context.Context, eventID, bibID, filename string) (string, error) {
	sighting := models.Sighting{
		SightingID: l.newID(),
		BibID:      bibID,
		EventID:    eventID,
		Filename:   filename,
		CreatedAt:  time.Now().UTC(),
	}

	item, err := attributevalue.MarshalMap(sighting)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sighting: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(EventImageId)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return "", fmt.Errorf("%w: %s", ErrIDCollision, sighting.SightingID)
		}
		return "", fmt.Errorf("failed to put sighting: %w", err)
	}
	return sighting.SightingID, nil
}

// QuerySightings pages through the event index filtered by bib
func (l *DynamoDBSightingLedger) QuerySightings(ctx context.Context, eventID, bibID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(l.table),
		IndexName:              aws.String(l.eventIndex),
		KeyConditionExpression: aws.String("EventId = :event"),
		FilterExpression:       aws.String("BibId = :bib"),
		ProjectionExpression:   aws.String("filename"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":event": &types.AttributeValueMemberS{Value: eventID},
			":bib":   &types.AttributeValueMemberS{Value: bibID},
		},
	}

	filenames := make([]string, 0)
	paginator := dynamodb.NewQueryPaginator(l.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query sightings: %w", err)
		}

		var rows []struct {
			Filename string `dynamodbav:"filename"`
		}
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &rows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sightings: %w", err)
		}
		for _, row := range rows {
			filenames = append(filenames, row.Filename)
		}
	}
	return filenames, nil
}

// DynamoDBStatusLedger stores one item per (EventId, FileId).
type DynamoDBStatusLedger struct {
	client dynamoAPI
	table  string
}

// NewDynamoDBStatusLedger creates a new status ledger
func NewDynamoDBStatusLedger(client dynamoAPI, table string) *DynamoDBStatusLedger {
	return &DynamoDBStatusLedger{client: client, table: table}
}

// MarkPending records that ingestion started
func (l *DynamoDBStatusLedger) MarkPending(ctx context.Context, eventID, fileID string) error {
	return l.update(ctx, eventID, fileID, models.JobStatusPending, "")
}

// MarkCompleted records a successful ingestion
func (l *DynamoDBStatusLedger) MarkCompleted(ctx context.Context, eventID, fileID string) error {
	return l.update(ctx, eventID, fileID, models.JobStatusCompleted, "")
}

// MarkFailed records a failed ingestion unless it already completed
func (l *DynamoDBStatusLedger) MarkFailed(ctx context.Context, eventID, fileID string, cause error) error {
	return l.update(ctx, eventID, fileID, models.JobStatusFailed, errorText(cause))
}

func (l *DynamoDBStatusLedger) update(ctx context.Context, eventID, fileID string, status models.JobStatus, errMsg string) error {
	_, err := l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(l.table),
		Key:                 statusKey(eventID, fileID),
		UpdateExpression:    aws.String("SET #s = :status, #e = :err, UpdatedAt = :now"),
		ConditionExpression: aws.String("attribute_not_exists(#s) OR #s <> :completed"),
		ExpressionAttributeNames: map[string]string{
			"#s": "Status",
			"#e": "Error",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: string(status)},
			":err":       &types.AttributeValueMemberS{Value: errMsg},
			":now":       &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
			":completed": &types.AttributeValueMemberS{Value: string(models.JobStatusCompleted)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// already COMPLETED
			return nil
		}
		return fmt.Errorf("failed to update ingestion status: %w", err)
	}
	return nil
}

// Get retrieves the status item for an (event, file) pair
func (l *DynamoDBStatusLedger) Get(ctx context.Context, eventID, fileID string) (*models.IngestionJob, error) {
	out, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.table),
		Key:            statusKey(eventID, fileID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion status: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, models.ErrNotFound
	}

	job := &models.IngestionJob{}
	if err := attributevalue.UnmarshalMap(out.Item, job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingestion status: %w", err)
	}
	return job, nil
}

func statusKey(eventID, fileID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"EventId": &types.AttributeValueMemberS{Value: eventID},
		"FileId":  &types.AttributeValueMemberS{Value: fileID},
	}
}
