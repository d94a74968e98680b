package audit

import (
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/carverauto/fieldradar/pkg/db"
	"github.com/carverauto/fieldradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo pages one item at a time so pagination is exercised.
type fakeDynamo struct {
	items []map[string]types.AttributeValue
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}

	return ""
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	device := str(in.ExpressionAttributeValues[":device"])
	since := str(in.ExpressionAttributeValues[":since"])

	var matched []map[string]types.AttributeValue

	for _, item := range f.items {
		if str(item["device_id"]) == device && str(item["sk"]) >= since {
			matched = append(matched, item)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return str(matched[i]["sk"]) < str(matched[j]["sk"]) })

	start := 0
	if in.ExclusiveStartKey != nil {
		start, _ = strconv.Atoi(str(in.ExclusiveStartKey["page"]))
	}

	if start >= len(matched) {
		return &dynamodb.QueryOutput{}, nil
	}

	out := &dynamodb.QueryOutput{Items: matched[start : start+1]}
	if start+1 < len(matched) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"page": &types.AttributeValueMemberS{Value: strconv.Itoa(start + 1)},
		}
	}

	return out, nil
}

func exercise(t *testing.T, store Store) {
	t.Helper()

	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &models.AuditEntry{DeviceID: "dev-1", Kind: models.AuditCommand, Event: models.EventSent, CommandID: "c1", CreatedAt: base}
	require.NoError(t, store.Append(ctx, first))
	assert.NotEmpty(t, first.ID)

	require.NoError(t, store.Append(ctx, &models.AuditEntry{
		DeviceID: "dev-1", Kind: models.AuditCommand, Event: models.EventTimedOut, CommandID: "c1",
		Reason: "timeout", Details: map[string]any{"elapsed_seconds": 31.0}, CreatedAt: base.Add(500 * time.Millisecond),
	}))
	require.NoError(t, store.Append(ctx, &models.AuditEntry{
		DeviceID: "dev-1", Kind: models.AuditLiveness, Event: models.EventOffline, CreatedAt: base.Add(10 * time.Minute),
	}))
	require.NoError(t, store.Append(ctx, &models.AuditEntry{
		DeviceID: "dev-2", Kind: models.AuditLiveness, Event: models.EventOffline, CreatedAt: base,
	}))

	all, err := store.Query(ctx, "dev-1", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.EventSent, all[0].Event)
	assert.Equal(t, models.EventTimedOut, all[1].Event)
	assert.Equal(t, "timeout", all[1].Reason)
	assert.Equal(t, models.EventOffline, all[2].Event)

	recent, err := store.Query(ctx, "dev-1", base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, models.AuditLiveness, recent[0].Kind)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exercise(t, store)

	assert.Len(t, store.Events("dev-1", models.AuditCommand), 2)
}

func TestSQLStore(t *testing.T) {
	database, err := db.New(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { _ = database.Close() })

	exercise(t, NewSQLStore(database))
}

func TestDynamoStore(t *testing.T) {
	exercise(t, &DynamoStore{Client: &fakeDynamo{}, TableName: "audit"})
}

func TestNewDynamoStoreRequiresTable(t *testing.T) {
	_, err := NewDynamoStore(context.Background(), "", "us-east-1")
	assert.ErrorIs(t, err, errTableRequired)
}

func TestSortKeyOrdersByTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Less(t, sortKey(base, "b"), sortKey(base.Add(time.Nanosecond), "a"))
	assert.Less(t, sortKey(base, ""), sortKey(base, "a"))
}
