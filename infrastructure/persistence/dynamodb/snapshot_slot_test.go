package dynamodb_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	ddbslot "github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/dynamodb"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/slottest"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// fakeDynamo keeps items in memory keyed by PK|SK
type fakeDynamo struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	tables  map[string]bool
	failAll error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}, tables: map[string]bool{}}
}

func itemKey(k map[string]types.AttributeValue) string {
	return k["PK"].(*types.AttributeValueMemberS).Value + "|" + k["SK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	item, ok := f.items[itemKey(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	// copy the binary payload the way the wire would
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		if b, isBinary := v.(*types.AttributeValueMemberB); isBinary {
			v = &types.AttributeValueMemberB{Value: append([]byte(nil), b.Value...)}
		}
		out[k] = v
	}
	return &dynamodb.GetItemOutput{Item: out}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.TableName)
	if f.tables[name] {
		return nil, &types.ResourceInUseException{Message: aws.String("table exists")}
	}
	f.tables[name] = true
	return &dynamodb.CreateTableOutput{}, nil
}

func TestSnapshotSlot(t *testing.T) {
	slottest.Run(t, ddbslot.NewSnapshotSlot(newFakeDynamo(), "snapshots", nil))
}

func TestSnapshotSlot_ItemLayout(t *testing.T) {
	fake := newFakeDynamo()
	slot := ddbslot.NewSnapshotSlot(fake, "snapshots", nil)
	require.NoError(t, slot.Save(context.Background(), ports.SlotKeyGraph, []byte(`{"version":"1"}`)))

	item, ok := fake.items["SNAPSHOT#graph|CURRENT"]
	require.True(t, ok)
	assert.Equal(t, []byte(`{"version":"1"}`), item["Data"].(*types.AttributeValueMemberB).Value)
	assert.NotEmpty(t, item["UpdatedAt"].(*types.AttributeValueMemberS).Value)
}

func TestSnapshotSlot_RejectsOversizedSnapshot(t *testing.T) {
	slot := ddbslot.NewSnapshotSlot(newFakeDynamo(), "snapshots", nil)
	big := []byte(strings.Repeat("x", ddbslot.MaxSnapshotBytes+1))
	err := slot.Save(context.Background(), ports.SlotKeyGraph, big)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSnapshotSlot_MapsAPIErrors(t *testing.T) {
	fake := newFakeDynamo()
	fake.failAll = &types.ResourceNotFoundException{Message: aws.String("no table")}
	slot := ddbslot.NewSnapshotSlot(fake, "snapshots", nil)

	err := slot.Save(context.Background(), ports.SlotKeyGraph, []byte("{}"))
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeInternal, appErr.Type)
	assert.Equal(t, "ResourceNotFoundException", appErr.Code)

	fake.failAll = &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}
	_, err = slot.Load(context.Background(), ports.SlotKeyGraph)
	appErr = pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "ProvisionedThroughputExceededException", appErr.Code)
}

func TestEnsureTable_Idempotent(t *testing.T) {
	fake := newFakeDynamo()
	slot := ddbslot.NewSnapshotSlot(fake, "snapshots", nil)
	require.NoError(t, slot.EnsureTable(context.Background()))
	require.NoError(t, slot.EnsureTable(context.Background()))
	assert.True(t, fake.tables["snapshots"])
}
