package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-backend/domain/catalog"
	"catalog-backend/domain/events"
)

type fakeEventBridge struct {
	calls  []*eventbridge.PutEventsInput
	output *eventbridge.PutEventsOutput
	err    error
}

func (f *fakeEventBridge) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.output != nil {
		return f.output, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func sampleEvents(n int) []events.DomainEvent {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewCatalogChanged(catalog.BrandsChanged, events.EntityBrand, i+1, events.ActionUpdated, ts)
	}
	return out
}

func TestPublish_BuildsEntries(t *testing.T) {
	fake := &fakeEventBridge{}
	p := NewPublisher(fake, "catalog-bus", zap.NewNop())

	err := p.Publish(context.Background(), sampleEvents(1)...)

	require.NoError(t, err)
	require.Len(t, fake.calls, 1)
	entry := fake.calls[0].Entries[0]
	assert.Equal(t, "catalog-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, events.EventTypeCatalogChanged, aws.ToString(entry.DetailType))
	assert.Equal(t, []string{"catalog:brand#1"}, entry.Resources)

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "brands", detail["scope"])
	assert.Equal(t, "updated", detail["action"])
}

func TestPublish_SplitsIntoBatchesOfTen(t *testing.T) {
	fake := &fakeEventBridge{}
	p := NewPublisher(fake, "catalog-bus", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), sampleEvents(23)...))

	require.Len(t, fake.calls, 3)
	assert.Len(t, fake.calls[0].Entries, 10)
	assert.Len(t, fake.calls[1].Entries, 10)
	assert.Len(t, fake.calls[2].Entries, 3)
}

func TestPublish_NothingToSend(t *testing.T) {
	fake := &fakeEventBridge{}

	require.NoError(t, NewPublisher(fake, "catalog-bus", zap.NewNop()).Publish(context.Background()))
	assert.Empty(t, fake.calls)
}

func TestPublish_Failures(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		fake := &fakeEventBridge{err: errors.New("network down")}
		err := NewPublisher(fake, "catalog-bus", zap.NewNop()).Publish(context.Background(), sampleEvents(1)...)
		assert.ErrorContains(t, err, "network down")
	})

	t.Run("failed entries", func(t *testing.T) {
		fake := &fakeEventBridge{output: &eventbridge.PutEventsOutput{
			FailedEntryCount: 1,
			Entries: []types.PutEventsResultEntry{
				{EventId: aws.String("ok")},
				{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("try again")},
			},
		}}
		err := NewPublisher(fake, "catalog-bus", zap.NewNop()).Publish(context.Background(), sampleEvents(2)...)
		assert.ErrorContains(t, err, "1 of 2 events failed")
	})
}
