/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package audit

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

	"github.com/carverauto/fieldradar/pkg/models"
)

var errTableRequired = errors.New("dynamodb audit table is not set")

// sortKeyLayout is fixed width so lexical order matches time order.
const sortKeyLayout = "2006-01-02T15:04:05.000000000Z"

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps the audit log in a DynamoDB table keyed by device_id (hash) and sk (range).
type DynamoStore struct {
	Client    DynamoDBAPI
	TableName string
}

var _ Store = (*DynamoStore)(nil)

type auditItem struct {
	models.AuditEntry
	SortKey string `dynamodbav:"sk"`
}

// NewDynamoStore builds a store from the default AWS credential chain.
func NewDynamoStore(ctx context.Context, table, region string) (*DynamoStore, error) {
	if table == "" {
		return nil, errTableRequired
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &DynamoStore{
		Client:    dynamodb.NewFromConfig(cfg),
		TableName: table,
	}, nil
}

func sortKey(t time.Time, id string) string {
	key := t.UTC().Format(sortKeyLayout)
	if id != "" {
		key += "#" + id
	}

	return key
}

func (s *DynamoStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	prepare(entry)

	item, err := attributevalue.MarshalMap(auditItem{
		AuditEntry: *entry,
		SortKey:    sortKey(entry.CreatedAt, entry.ID),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.TableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store audit entry in dynamodb: %w", err)
	}

	return nil
}

func (s *DynamoStore) Query(ctx context.Context, deviceID string, since time.Time) ([]models.AuditEntry, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TableName),
		KeyConditionExpression: aws.String("device_id = :device AND sk >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":device": &types.AttributeValueMemberS{Value: deviceID},
			":since":  &types.AttributeValueMemberS{Value: sortKey(since, "")},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var entries []models.AuditEntry

	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query audit entries: %w", err)
		}

		var items []auditItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit entries: %w", err)
		}

		for i := range items {
			entries = append(entries, items[i].AuditEntry)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}

		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return entries, nil
}
