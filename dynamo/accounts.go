// Package dynamo implements the smartdrive table stores on DynamoDB.
// Tables are expected to exist; keys are the account email and the file id.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rkotari/smartdrive"
)

type accountItem struct {
	Email        string `dynamodbav:"email"`
	PasswordHash string `dynamodbav:"password_hash"`
	CreatedAt    string `dynamodbav:"created_at"`
}

// AccountDirectory implements smartdrive.AccountDirectory on a DynamoDB table
// keyed by email.
type AccountDirectory struct {
	client *dynamodb.Client
	table  string
}

// NewAccountDirectory creates an AccountDirectory using the given client and table.
func NewAccountDirectory(client *dynamodb.Client, table string) *AccountDirectory {
	return &AccountDirectory{client: client, table: table}
}

func (d *AccountDirectory) Get(ctx context.Context, email string) (smartdrive.Account, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return smartdrive.Account{}, fmt.Errorf("get account: %w", err)
	}
	if len(out.Item) == 0 {
		return smartdrive.Account{}, smartdrive.ErrNotFound
	}

	var item accountItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return smartdrive.Account{}, fmt.Errorf("get account: unmarshal: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return smartdrive.Account{}, fmt.Errorf("get account: parse created_at: %w", err)
	}

	return smartdrive.Account{
		Email:        item.Email,
		PasswordHash: item.PasswordHash,
		CreatedAt:    createdAt,
	}, nil
}

func (d *AccountDirectory) Create(ctx context.Context, account smartdrive.Account) error {
	item, err := attributevalue.MarshalMap(accountItem{
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("create account: marshal: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return smartdrive.ErrAlreadyExists
		}
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}
