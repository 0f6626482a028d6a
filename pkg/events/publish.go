package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/parley/pkg/helpers"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	MetadataSequenceNumberKey = "sequence_number"
	MetadataEventTypeKey      = "event_type"
)

// PublisherManager distributes events to a set of publishers, each registered for a
// topic. Every outgoing message gets a sequence number, in the order Publish is called,
// and the correlation id of the turn taken from the context.
//
// A PublisherManager without publishers drops events, which makes it usable in tests
// and in commands that do not listen to events.
type PublisherManager struct {
	Publishers     map[string][]message.Publisher
	sequenceNumber uint64
	mutex          sync.Mutex
}

func NewPublisherManager() *PublisherManager {
	return &PublisherManager{
		Publishers: make(map[string][]message.Publisher),
	}
}

func (s *PublisherManager) RegisterPublisher(topic string, pub message.Publisher) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Publishers[topic] = append(s.Publishers[topic], pub)
}

// Publish serializes e to JSON and sends it to every registered publisher. Failures of
// individual publishers are collected, publishing continues with the others.
func (s *PublisherManager) Publish(ctx context.Context, e Event) error {
	// the lock also keeps sequence numbers in delivery order
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "could not serialize event")
	}

	seq := s.sequenceNumber
	s.sequenceNumber++

	var result error
	for topic, pubs := range s.Publishers {
		for _, pub := range pubs {
			// each publisher gets its own message, gochannel acks are per message
			msg := message.NewMessage(watermill.NewUUID(), b)
			msg.SetContext(ctx)
			msg.Metadata.Set(MetadataSequenceNumberKey, fmt.Sprintf("%d", seq))
			msg.Metadata.Set(MetadataEventTypeKey, string(e.Type()))
			msg.Metadata.Set(helpers.CorrelationIDMetadataKey, helpers.CorrelationIDFromContext(ctx))

			if err := pub.Publish(topic, msg); err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "could not publish to %s", topic))
			}
		}
	}

	return result
}

func (s *PublisherManager) PublishBlind(ctx context.Context, e Event) {
	err := s.Publish(ctx, e)
	if err != nil {
		log.Warn().Err(err).Str("event_type", string(e.Type())).Msg("failed to publish")
	}
}
