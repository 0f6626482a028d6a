package helpers

import (
	"context"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	messages []*message.Message
}

func (r *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	r.messages = append(r.messages, messages...)
	return nil
}

func (r *recordingPublisher) Close() error {
	return nil
}

func TestCorrelationIDFromContext(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "turn-1")
	assert.Equal(t, "turn-1", CorrelationIDFromContext(ctx))

	generated := CorrelationIDFromContext(context.Background())
	assert.True(t, strings.HasPrefix(generated, "gen_"))
	assert.NotEqual(t, generated, CorrelationIDFromContext(context.Background()))
}

func TestCorrelationPublisherDecorator(t *testing.T) {
	rec := &recordingPublisher{}
	pub := CorrelationPublisherDecorator{Publisher: rec}

	fromCtx := message.NewMessage(watermill.NewUUID(), nil)
	fromCtx.SetContext(ContextWithCorrelationID(context.Background(), "abc"))

	preset := message.NewMessage(watermill.NewUUID(), nil)
	preset.Metadata.Set(CorrelationIDMetadataKey, "keep")

	require.NoError(t, pub.Publish("chat", fromCtx, preset))
	require.Len(t, rec.messages, 2)
	assert.Equal(t, "abc", rec.messages[0].Metadata.Get(CorrelationIDMetadataKey))
	assert.Equal(t, "keep", rec.messages[1].Metadata.Get(CorrelationIDMetadataKey))
}
