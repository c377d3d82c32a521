// Package dynamodb stores snapshots as items in a DynamoDB table.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// MaxSnapshotBytes keeps an item under DynamoDB's 400 KB limit with room for
// the key attributes
const MaxSnapshotBytes = 390 * 1024

const currentSK = "CURRENT"

// API is the part of the DynamoDB client the slot uses
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// ddbSnapshotItem represents the structure of a snapshot item in DynamoDB
type ddbSnapshotItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      []byte `dynamodbav:"Data"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// SnapshotSlot implements ports.SnapshotSlot on a PK/SK table
type SnapshotSlot struct {
	client    API
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

var _ ports.SnapshotSlot = (*SnapshotSlot)(nil)

// NewSnapshotSlot creates a slot on tableName
func NewSnapshotSlot(client API, tableName string, logger *zap.Logger) *SnapshotSlot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotSlot{client: client, tableName: tableName, logger: logger, now: time.Now}
}

func keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "SNAPSHOT#" + key},
		"SK": &types.AttributeValueMemberS{Value: currentSK},
	}
}

// Save writes data under key
func (s *SnapshotSlot) Save(ctx context.Context, key string, data []byte) error {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return err
	}
	if len(data) > MaxSnapshotBytes {
		return pkgerrors.NewValidationError(fmt.Sprintf("snapshot %s is %d bytes; the dynamodb backend holds at most %d", key, len(data), MaxSnapshotBytes))
	}

	itemMap, err := attributevalue.MarshalMap(ddbSnapshotItem{
		PK:        "SNAPSHOT#" + key,
		SK:        currentSK,
		Data:      data,
		UpdatedAt: s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      itemMap,
	})
	if err != nil {
		return s.wrap("save", key, err)
	}
	return nil
}

// Load returns the data under key
func (s *SnapshotSlot) Load(ctx context.Context, key string) ([]byte, error) {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return nil, err
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, s.wrap("load", key, err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("snapshot", key)
	}

	var item ddbSnapshotItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot item: %w", err)
	}
	return item.Data, nil
}

// Delete removes key
func (s *SnapshotSlot) Delete(ctx context.Context, key string) error {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       keyOf(key),
	})
	if err != nil {
		return s.wrap("delete", key, err)
	}
	return nil
}

// EnsureTable creates the table with on-demand billing if it does not exist
func (s *SnapshotSlot) EnsureTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", s.tableName, err)
	}
	s.logger.Info("Created snapshot table", zap.String("table", s.tableName))
	return nil
}

// wrap turns AWS API errors into AppErrors that keep the AWS error code
func (s *SnapshotSlot) wrap(op, key string, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("failed to %s snapshot %s: %w", op, key, err)
	}

	s.logger.Warn("DynamoDB request failed",
		zap.String("operation", op),
		zap.String("key", key),
		zap.String("code", apiErr.ErrorCode()),
		zap.String("fault", apiErr.ErrorFault().String()))

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return pkgerrors.NewInternalError(fmt.Sprintf("snapshot table %s does not exist", s.tableName)).
			WithCode(apiErr.ErrorCode()).
			WithCause(err)
	}
	return pkgerrors.NewInternalError(fmt.Sprintf("failed to %s snapshot %s", op, key)).
		WithCode(apiErr.ErrorCode()).
		WithCause(err)
}
