package patients

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo evaluates the two condition expressions the repository uses.
type fakeDynamo struct {
	items map[string]map[string]types.AttributeValue
	puts  []*dynamodb.PutItemInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := in.Key["medicalCardId"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	id := in.Item["medicalCardId"].(*types.AttributeValueMemberS).Value
	current, exists := f.items[id]
	switch aws.ToString(in.ConditionExpression) {
	case "attribute_not_exists(medicalCardId)":
		if exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	case "#version = :expected":
		want := in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value
		if !exists || current["version"].(*types.AttributeValueMemberN).Value != want {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("version")}
		}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func TestDynamoRepositoryRoundTrip(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewDynamoRepository(fake, "carefront_patients", testSealer(t))
	ctx := context.Background()

	p := &Patient{MedicalCardID: "111-111-111", Name: "Ann Lee", HistorySummary: NewPatientHistory}
	require.NoError(t, repo.Upsert(ctx, p))
	assert.Equal(t, int64(1), p.Version)
	assert.Equal(t, "carefront_patients", aws.ToString(fake.puts[0].TableName))

	var stored dynamoItem
	require.NoError(t, attributevalue.UnmarshalMap(fake.items["111-111-111"], &stored))
	assert.NotContains(t, string(stored.Document), "Ann Lee", "document is sealed at rest")

	got, err := repo.Find(ctx, "111-111-111")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", got.Name)
	assert.Equal(t, int64(1), got.Version)

	got.HistorySummary = "updated"
	require.NoError(t, repo.Upsert(ctx, got))

	p.HistorySummary = "stale"
	assert.ErrorIs(t, repo.Upsert(ctx, p), ErrConflict)
	assert.Equal(t, int64(1), p.Version)

	dup := &Patient{MedicalCardID: "111-111-111", Name: "Dup"}
	assert.ErrorIs(t, repo.Upsert(ctx, dup), ErrConflict)

	_, err = repo.Find(ctx, "999-999-999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoRepositoryListAllSorted(t *testing.T) {
	repo := NewDynamoRepository(newFakeDynamo(), "carefront_patients", testSealer(t))
	ctx := context.Background()
	for _, id := range []string{"333-333-333", "111-111-111", "222-222-222"} {
		require.NoError(t, repo.Upsert(ctx, &Patient{MedicalCardID: id, Name: "Ann Lee"}))
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "111-111-111", all[0].MedicalCardID)
	assert.Equal(t, "333-333-333", all[2].MedicalCardID)
}
