package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rkotari/smartdrive"
)

type fileItem struct {
	FileID     string `dynamodbav:"file_id"`
	OwnerEmail string `dynamodbav:"email"`
	StorageKey string `dynamodbav:"s3_key"`
	FileName   string `dynamodbav:"file_name"`
	CreatedAt  string `dynamodbav:"upload_date"`
}

// FileCatalog implements smartdrive.FileCatalog on a DynamoDB table keyed by
// file_id.
type FileCatalog struct {
	client *dynamodb.Client
	table  string
}

// NewFileCatalog creates a FileCatalog using the given client and table.
func NewFileCatalog(client *dynamodb.Client, table string) *FileCatalog {
	return &FileCatalog{client: client, table: table}
}

func (c *FileCatalog) Get(ctx context.Context, fileID string) (smartdrive.FileRecord, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"file_id": &types.AttributeValueMemberS{Value: fileID},
		},
	})
	if err != nil {
		return smartdrive.FileRecord{}, fmt.Errorf("get file record: %w", err)
	}
	if len(out.Item) == 0 {
		return smartdrive.FileRecord{}, smartdrive.ErrNotFound
	}

	var item fileItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return smartdrive.FileRecord{}, fmt.Errorf("get file record: unmarshal: %w", err)
	}

	return item.record()
}

func (c *FileCatalog) Put(ctx context.Context, record smartdrive.FileRecord) error {
	item, err := attributevalue.MarshalMap(fileItem{
		FileID:     record.FileID,
		OwnerEmail: record.OwnerEmail,
		StorageKey: record.StorageKey,
		FileName:   record.FileName,
		CreatedAt:  record.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("put file record: marshal: %w", err)
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put file record: %w", err)
	}
	return nil
}

func (c *FileCatalog) Delete(ctx context.Context, fileID string) error {
	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"file_id": &types.AttributeValueMemberS{Value: fileID},
		},
		ConditionExpression: aws.String("attribute_exists(file_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return smartdrive.ErrNotFound
		}
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

// ListByOwner scans the table and filters by owner server-side.
// TODO: query an owner GSI instead of scanning once the table gains one.
func (c *FileCatalog) ListByOwner(ctx context.Context, owner string) ([]smartdrive.FileRecord, error) {
	var records []smartdrive.FileRecord
	var startKey map[string]types.AttributeValue

	for {
		out, err := c.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(c.table),
			FilterExpression: aws.String("email = :owner"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":owner": &types.AttributeValueMemberS{Value: owner},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("list file records: %w", err)
		}

		for _, raw := range out.Items {
			var item fileItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("list file records: unmarshal: %w", err)
			}
			record, err := item.record()
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].FileID < records[j].FileID
	})

	return records, nil
}

func (i fileItem) record() (smartdrive.FileRecord, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return smartdrive.FileRecord{}, fmt.Errorf("parse upload_date: %w", err)
	}
	return smartdrive.FileRecord{
		FileID:     i.FileID,
		OwnerEmail: i.OwnerEmail,
		StorageKey: i.StorageKey,
		FileName:   i.FileName,
		CreatedAt:  createdAt,
	}, nil
}
