package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/domain/core/valueobjects"
	"nodal/domain/events"
)

// batchLimit is the DynamoDB BatchWriteItem item limit
const batchLimit = 25

// eventRetention bounds how long canvas events are kept
const eventRetention = 30 * 24 * time.Hour

// EventRecord is how a canvas event is stored. Events live in the same
// partition as the workspace canvas, sorted by time.
type EventRecord struct {
	PK        string                 `dynamodbav:"PK"` // WORKSPACE#<workspace_id>
	SK        string                 `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EventID   string                 `dynamodbav:"EventID"`
	EventType string                 `dynamodbav:"EventType"`
	EventData map[string]interface{} `dynamodbav:"EventData"`
	Timestamp string                 `dynamodbav:"Timestamp"`
	Version   int                    `dynamodbav:"Version"`
	TTL       int64                  `dynamodbav:"TTL,omitempty"`
}

// EventLog appends canvas events to DynamoDB and reads them back
type EventLog struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewEventLog creates a new DynamoDB event log
func NewEventLog(client Client, tableName string, logger *zap.Logger) *EventLog {
	return &EventLog{client: client, tableName: tableName, logger: logger}
}

// Publish appends one event
func (l *EventLog) Publish(ctx context.Context, event events.DomainEvent) error {
	return l.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch appends events in batches of 25
func (l *EventLog) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := eventToRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	for i := 0; i < len(writeRequests); i += batchLimit {
		end := i + batchLimit
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		result, err := l.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				l.tableName: writeRequests[i:end],
			},
		})
		if err != nil {
			return fmt.Errorf("failed to write events batch: %w", err)
		}
		if unprocessed := len(result.UnprocessedItems[l.tableName]); unprocessed > 0 {
			return fmt.Errorf("failed to write %d events", unprocessed)
		}
	}
	return nil
}

// Recent returns the newest events of a workspace, newest first
func (l *EventLog) Recent(ctx context.Context, workspaceID valueobjects.WorkspaceID, limit int) ([]ports.StoredEvent, error) {
	key := expression.Key("PK").Equal(expression.Value(workspacePK(workspaceID.String()))).
		And(expression.Key("SK").BeginsWith("EVENT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(l.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := l.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	out := make([]ports.StoredEvent, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			l.logger.Warn("Skipping malformed event record", zap.Error(err))
			continue
		}
		out = append(out, ports.StoredEvent{
			EventType: record.EventType,
			Timestamp: record.Timestamp,
			Data:      record.EventData,
		})
	}
	return out, nil
}

func eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	eventData := make(map[string]interface{})
	if err := json.Unmarshal(eventBytes, &eventData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event to map: %w", err)
	}

	timestamp := event.GetTimestamp().UTC()
	eventID := uuid.New().String()
	return &EventRecord{
		PK:        workspacePK(event.GetAggregateID()),
		SK:        fmt.Sprintf("EVENT#%s#%s", timestamp.Format(time.RFC3339Nano), eventID),
		EventID:   eventID,
		EventType: event.GetEventType(),
		EventData: eventData,
		Timestamp: timestamp.Format(time.RFC3339Nano),
		Version:   event.GetVersion(),
		TTL:       timestamp.Add(eventRetention).Unix(),
	}, nil
}
