// Package shops persists installation state in the shops DynamoDB table.
package shops

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/shopkite/shopify-connect/internal/aws"
)

// Store encapsulates operations on the shops table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new shops Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// UpsertOnComplete records a successful OAuth completion: platform tag,
// access token and the installation timestamp. installedAt is written at
// most once; a re-completion for an already installed shop refreshes the
// token and platform but keeps the original timestamp.
func (s *Store) UpsertOnComplete(ctx context.Context, shopDomain, accessToken string, now time.Time) error {
	key := map[string]types.AttributeValue{
		"shopDomain": &types.AttributeValueMemberS{Value: shopDomain},
	}
	installedAt := strconv.FormatInt(now.UnixMilli(), 10)

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 key,
		UpdateExpression:    awsString("SET platform = :platform, accessToken = :accessToken, installedAt = :installedAt"),
		ConditionExpression: awsString("attribute_not_exists(installedAt)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":platform":    &types.AttributeValueMemberS{Value: Platform},
			":accessToken": &types.AttributeValueMemberS{Value: accessToken},
			":installedAt": &types.AttributeValueMemberN{Value: installedAt},
		},
	})
	if err == nil {
		return nil
	}

	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return fmt.Errorf("upsert shop: %w", err)
	}

	// Already installed: refresh token and platform only.
	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              key,
		UpdateExpression: awsString("SET platform = :platform, accessToken = :accessToken"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":platform":    &types.AttributeValueMemberS{Value: Platform},
			":accessToken": &types.AttributeValueMemberS{Value: accessToken},
		},
	})
	if err != nil {
		return fmt.Errorf("refresh shop token: %w", err)
	}
	return nil
}

// Get fetches a shop record by domain. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, shopDomain string) (*Shop, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"shopDomain": &types.AttributeValueMemberS{Value: shopDomain},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var shop Shop
	if err := attributevalue.UnmarshalMap(out.Item, &shop); err != nil {
		return nil, fmt.Errorf("unmarshal shop: %w", err)
	}
	return &shop, nil
}

// ArchiveAndRemove copies the shop record under a derived uninstall key and
// then deletes the original. Copy before delete: a crash in between leaves a
// duplicate, never a lost record. Returns false with no side effects when
// the record is already gone, so redelivered uninstall events are no-ops.
func (s *Store) ArchiveAndRemove(ctx context.Context, shopDomain string, now time.Time) (bool, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"shopDomain": &types.AttributeValueMemberS{Value: shopDomain},
		},
	})
	if err != nil {
		return false, fmt.Errorf("get shop for archive: %w", err)
	}
	if len(out.Item) == 0 {
		return false, nil
	}

	archiveKey := fmt.Sprintf("%s-uninstalled-%d", shopDomain, now.UnixMilli())
	item := make(map[string]types.AttributeValue, len(out.Item)+1)
	for k, v := range out.Item {
		item[k] = v
	}
	item["shopDomain"] = &types.AttributeValueMemberS{Value: archiveKey}
	item["uninstalledAt"] = &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339)}

	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return false, fmt.Errorf("archive shop: %w", err)
	}

	if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"shopDomain": &types.AttributeValueMemberS{Value: shopDomain},
		},
	}); err != nil {
		return false, fmt.Errorf("delete shop: %w", err)
	}
	return true, nil
}

// MergeProfileFields partially updates whitelisted profile attributes.
// Nil values and unknown fields are skipped; an existing value is never
// overwritten with null.
func (s *Store) MergeProfileFields(ctx context.Context, shopDomain string, fields map[string]interface{}) error {
	names := make([]string, 0, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		if _, ok := profileFields[k]; !ok {
			continue
		}
		names = append(names, k)
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	updateExpr := "SET "
	exprNames := make(map[string]string, len(names))
	exprValues := make(map[string]types.AttributeValue, len(names))
	for i, field := range names {
		placeholder := fmt.Sprintf("P%d", i)
		av, err := attributevalue.Marshal(fields[field])
		if err != nil {
			return fmt.Errorf("marshal field %s: %w", field, err)
		}
		if i > 0 {
			updateExpr += ", "
		}
		updateExpr += fmt.Sprintf("#%s = :%s", placeholder, placeholder)
		exprNames["#"+placeholder] = field
		exprValues[":"+placeholder] = av
	}

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"shopDomain": &types.AttributeValueMemberS{Value: shopDomain},
		},
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})
	if err != nil {
		return fmt.Errorf("merge shop profile: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
