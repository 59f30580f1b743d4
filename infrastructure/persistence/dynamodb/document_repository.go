package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
	"nodal/domain/versioning"
	"nodal/infrastructure/persistence/schema"
	pkgerrors "nodal/pkg/errors"
)

const (
	canvasSK         = "CANVAS"
	canvasEntityType = "CANVAS"
)

// canvasItem is the DynamoDB item holding one workspace document. The
// document is kept as its JSON encoding so every store shares one format.
type canvasItem struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	EntityType      string `dynamodbav:"EntityType"`
	WorkspaceID     string `dynamodbav:"WorkspaceID"`
	SchemaVersion   int    `dynamodbav:"SchemaVersion"`
	Document        string `dynamodbav:"Document"`
	Checksum        string `dynamodbav:"Checksum"`
	NoteCount       int    `dynamodbav:"NoteCount"`
	ZoneCount       int    `dynamodbav:"ZoneCount"`
	ConnectionCount int    `dynamodbav:"ConnectionCount"`
	UpdatedAt       string `dynamodbav:"UpdatedAt"`
	Version         int    `dynamodbav:"Version"`
}

// DocumentRepository stores canvas documents in a single DynamoDB table
type DocumentRepository struct {
	client    Client
	tableName string
	codec     *schema.Codec
	logger    *zap.Logger
	now       func() time.Time
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(client Client, tableName string, codec *schema.Codec, logger *zap.Logger) *DocumentRepository {
	if codec == nil {
		codec = schema.NewCodec(nil)
	}
	return &DocumentRepository{
		client:    client,
		tableName: tableName,
		codec:     codec,
		logger:    logger,
		now:       time.Now,
	}
}

// Load reads the workspace document, or returns a fresh one
func (r *DocumentRepository) Load(ctx context.Context, workspaceID valueobjects.WorkspaceID) (*aggregates.Document, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: workspacePK(workspaceID.String())},
			"SK": &types.AttributeValueMemberS{Value: canvasSK},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get canvas", err)
	}
	if result.Item == nil {
		return aggregates.NewDocument(), nil
	}

	var item canvasItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal canvas item: %w", err)
	}

	doc, changed, err := r.codec.Decode([]byte(item.Document))
	if err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", workspaceID, err)
	}
	if changed {
		r.logger.Info("Stored canvas document was normalized",
			zap.String("workspaceID", workspaceID.String()),
			zap.Int("storedSchemaVersion", item.SchemaVersion),
			zap.Int("version", item.Version))
	}
	return doc, nil
}

// Save writes the workspace document and bumps the item version
func (r *DocumentRepository) Save(ctx context.Context, workspaceID valueobjects.WorkspaceID, doc *aggregates.Document) error {
	data, err := r.codec.Encode(doc)
	if err != nil {
		return err
	}
	sum, err := versioning.Checksum(doc)
	if err != nil {
		return err
	}

	update := expression.
		Set(expression.Name("EntityType"), expression.Value(canvasEntityType)).
		Set(expression.Name("WorkspaceID"), expression.Value(workspaceID.String())).
		Set(expression.Name("SchemaVersion"), expression.Value(doc.SchemaVersion)).
		Set(expression.Name("Document"), expression.Value(string(data))).
		Set(expression.Name("Checksum"), expression.Value(sum)).
		Set(expression.Name("NoteCount"), expression.Value(len(doc.Notes))).
		Set(expression.Name("ZoneCount"), expression.Value(len(doc.Zones))).
		Set(expression.Name("ConnectionCount"), expression.Value(len(doc.Connections))).
		Set(expression.Name("UpdatedAt"), expression.Value(r.now().UTC().Format(time.RFC3339))).
		Add(expression.Name("Version"), expression.Value(1))

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: workspacePK(workspaceID.String())},
			"SK": &types.AttributeValueMemberS{Value: canvasSK},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save canvas", err)
	}

	r.logger.Debug("Saved canvas to DynamoDB",
		zap.String("workspaceID", workspaceID.String()),
		zap.Int("bytes", len(data)),
		zap.Int("noteCount", len(doc.Notes)))
	return nil
}

// List scans for every stored canvas
func (r *DocumentRepository) List(ctx context.Context) ([]valueobjects.WorkspaceID, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(canvasEntityType))
	projection := expression.NamesList(expression.Name("WorkspaceID"))
	expr, err := expression.NewBuilder().WithFilter(filter).WithProjection(projection).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var out []valueobjects.WorkspaceID
	for {
		result, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("list canvases", err)
		}
		for _, item := range result.Items {
			var row struct {
				WorkspaceID string `dynamodbav:"WorkspaceID"`
			}
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				continue
			}
			if strings.TrimSpace(row.WorkspaceID) != "" {
				out = append(out, valueobjects.WorkspaceID(row.WorkspaceID))
			}
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Ping checks the table is reachable
func (r *DocumentRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	if err != nil {
		return pkgerrors.NewUnavailableError("dynamodb").WithCause(err)
	}
	return nil
}
