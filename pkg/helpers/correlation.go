package helpers

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/lithammer/shortuuid/v3"
)

// CorrelationIDMetadataKey is the watermill metadata key holding the id of the turn
// an event belongs to.
const CorrelationIDMetadataKey = "correlation_id"

type correlationIDKeyType string

const correlationIDKey correlationIDKeyType = "correlation_id"

func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// NewCorrelationID returns a short random id.
func NewCorrelationID() string {
	return shortuuid.New()
}

// CorrelationIDFromContext returns the id stored in ctx, or a generated one with a
// "gen_" prefix so that missing ids can be told apart.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx != nil {
		if v, ok := ctx.Value(correlationIDKey).(string); ok && v != "" {
			return v
		}
	}
	return "gen_" + shortuuid.New()
}

// CorrelationPublisherDecorator sets the correlation id of outgoing messages from their
// context, unless it is already set.
type CorrelationPublisherDecorator struct {
	message.Publisher
}

func (c CorrelationPublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		if messages[i].Metadata.Get(CorrelationIDMetadataKey) != "" {
			continue
		}
		messages[i].Metadata.Set(CorrelationIDMetadataKey, CorrelationIDFromContext(messages[i].Context()))
	}

	return c.Publisher.Publish(topic, messages...)
}
