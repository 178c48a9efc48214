package shops

import (
	"errors"
	"strings"
	"sync"

	"context"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory stand-in for the shops table. It supports
// GetItem, PutItem, DeleteItem and the SET-only UpdateItem expressions the
// store issues, plus attribute_not_exists conditions.
type mockDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	putCalls    int
	deleteCalls int
	updateCalls int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func keyValue(key map[string]types.AttributeValue) (string, error) {
	attr, ok := key["shopDomain"]
	if !ok {
		return "", errors.New("missing shopDomain key")
	}
	s, ok := attr.(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("shopDomain key is not a string")
	}
	return s.Value, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, err := keyValue(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.items[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	pk, err := keyValue(params.Item)
	if err != nil {
		return nil, err
	}
	m.items[pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	pk, err := keyValue(params.Key)
	if err != nil {
		return nil, err
	}
	delete(m.items, pk)
	return &dyn.DeleteItemOutput{}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	pk, err := keyValue(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.items[pk]
	if !ok {
		item = map[string]types.AttributeValue{
			"shopDomain": &types.AttributeValueMemberS{Value: pk},
		}
	}

	if params.ConditionExpression != nil {
		cond := *params.ConditionExpression
		if strings.HasPrefix(cond, "attribute_not_exists(") {
			attr := strings.TrimSuffix(strings.TrimPrefix(cond, "attribute_not_exists("), ")")
			if _, exists := item[attr]; exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	expr := *params.UpdateExpression
	if !strings.HasPrefix(expr, "SET ") {
		return nil, errors.New("mock only supports SET expressions")
	}
	for _, assign := range strings.Split(strings.TrimPrefix(expr, "SET "), ", ") {
		parts := strings.SplitN(assign, " = ", 2)
		if len(parts) != 2 {
			return nil, errors.New("malformed assignment: " + assign)
		}
		name := parts[0]
		if strings.HasPrefix(name, "#") {
			resolved, ok := params.ExpressionAttributeNames[name]
			if !ok {
				return nil, errors.New("unresolved attribute name: " + name)
			}
			name = resolved
		}
		value, ok := params.ExpressionAttributeValues[parts[1]]
		if !ok {
			return nil, errors.New("unresolved attribute value: " + parts[1])
		}
		item[name] = value
	}

	m.items[pk] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}
