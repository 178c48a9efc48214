package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkite/shopify-connect/internal/shops"
)

// tableMock is a map-backed shops table supporting the operations the
// uninstall path issues.
type tableMock struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newTableMock() *tableMock {
	return &tableMock{items: map[string]map[string]types.AttributeValue{}}
}

func (m *tableMock) pk(key map[string]types.AttributeValue) string {
	return key["shopDomain"].(*types.AttributeValueMemberS).Value
}

func (m *tableMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[m.pk(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *tableMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[m.pk(params.Item)] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *tableMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, m.pk(params.Key))
	return &dyn.DeleteItemOutput{}, nil
}

func (m *tableMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return &dyn.UpdateItemOutput{}, nil
}

func snsEvent(messages ...string) events.SNSEvent {
	ev := events.SNSEvent{}
	for _, m := range messages {
		ev.Records = append(ev.Records, events.SNSEventRecord{
			SNS: events.SNSEntity{Message: m},
		})
	}
	return ev
}

func newTestProcessor(table *tableMock) *Processor {
	p := NewProcessor(shops.NewStore(table, "shops-table"), zerolog.Nop())
	p.nowFunc = func() time.Time {
		return time.Date(2020, 7, 1, 12, 0, 0, 0, time.UTC)
	}
	return p
}

func TestHandle_ArchivesAndRemoves(t *testing.T) {
	table := newTableMock()
	table.items["example.myshopify.com"] = map[string]types.AttributeValue{
		"shopDomain":  &types.AttributeValueMemberS{Value: "example.myshopify.com"},
		"platform":    &types.AttributeValueMemberS{Value: "shopify"},
		"accessToken": &types.AttributeValueMemberS{Value: "access_token"},
	}
	p := newTestProcessor(table)

	err := p.Handle(context.Background(), snsEvent(
		`{"shopDomain":"example.myshopify.com","event":"app/uninstalled","data":null}`,
	))
	require.NoError(t, err)

	_, live := table.items["example.myshopify.com"]
	assert.False(t, live, "original record removed")

	archiveKey := "example.myshopify.com-uninstalled-1593604800000"
	archived, ok := table.items[archiveKey]
	require.True(t, ok, "archived copy present")
	assert.Equal(t, "access_token", archived["accessToken"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "2020-07-01T12:00:00Z", archived["uninstalledAt"].(*types.AttributeValueMemberS).Value)
}

func TestHandle_UnknownShopIsANoOp(t *testing.T) {
	table := newTableMock()
	p := newTestProcessor(table)

	err := p.Handle(context.Background(), snsEvent(
		`{"shopDomain":"gone.myshopify.com","event":"app/uninstalled","data":null}`,
	))
	require.NoError(t, err)
	assert.Empty(t, table.items)
}

func TestHandle_SkipsOtherEvents(t *testing.T) {
	table := newTableMock()
	table.items["example.myshopify.com"] = map[string]types.AttributeValue{
		"shopDomain": &types.AttributeValueMemberS{Value: "example.myshopify.com"},
	}
	p := newTestProcessor(table)

	err := p.Handle(context.Background(), snsEvent(
		`{"shopDomain":"example.myshopify.com","event":"shop/update","data":{}}`,
	))
	require.NoError(t, err)
	_, live := table.items["example.myshopify.com"]
	assert.True(t, live)
}

func TestHandle_MalformedMessage(t *testing.T) {
	p := newTestProcessor(newTableMock())

	err := p.Handle(context.Background(), snsEvent(`not json`))
	assert.Error(t, err)
}
