package patients

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type dynamoItem struct {
	MedicalCardID string `dynamodbav:"medicalCardId"`
	Document      []byte `dynamodbav:"document"`
	Version       int64  `dynamodbav:"version"`
	UpdatedAt     string `dynamodbav:"updatedAt"`
}

// DynamoRepository keeps sealed patient documents in a DynamoDB table keyed
// by medicalCardId. Writes are conditional on the stored version.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
	codec     documentCodec
}

func NewDynamoRepository(client dynamoAPI, tableName string, sealer *Sealer) *DynamoRepository {
	if client == nil {
		panic("patients: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("patients: table name cannot be empty")
	}
	if sealer == nil {
		panic("patients: sealer required")
	}
	return &DynamoRepository{client: client, tableName: tableName, codec: documentCodec{sealer: sealer}}
}

func (r *DynamoRepository) Find(ctx context.Context, medicalCardID string) (*Patient, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"medicalCardId": &types.AttributeValueMemberS{Value: medicalCardID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("patients: get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("patients: unmarshal item: %w", err)
	}
	return r.codec.decode(item.Document, medicalCardID, item.Version)
}

func (r *DynamoRepository) Upsert(ctx context.Context, p *Patient) error {
	if p == nil || p.MedicalCardID == "" {
		return fmt.Errorf("%w: medical card id is required", ErrInvalidInput)
	}

	expected := p.Version
	p.Version = expected + 1
	doc, err := r.codec.encode(p)
	if err != nil {
		p.Version = expected
		return err
	}
	item, err := attributevalue.MarshalMap(dynamoItem{
		MedicalCardID: p.MedicalCardID,
		Document:      doc,
		Version:       p.Version,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		p.Version = expected
		return fmt.Errorf("patients: marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}
	if expected == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(medicalCardId)")
	} else {
		input.ConditionExpression = aws.String("#version = :expected")
		input.ExpressionAttributeNames = map[string]string{"#version": "version"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		}
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		p.Version = expected
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConflict
		}
		return fmt.Errorf("patients: put item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) ListAll(ctx context.Context) ([]*Patient, error) {
	var (
		out   []*Patient
		start map[string]types.AttributeValue
	)
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("patients: scan: %w", err)
		}
		var items []dynamoItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("patients: unmarshal scan: %w", err)
		}
		for _, item := range items {
			p, err := r.codec.decode(item.Document, item.MedicalCardID, item.Version)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MedicalCardID < out[j].MedicalCardID })
	return out, nil
}
