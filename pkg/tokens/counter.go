package tokens

import (
	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// TokensPerImage is the flat cost added for every image part. The real cost depends
// on image size and detail, this is an estimate.
const TokensPerImage = 85

const DefaultEncoding = tokenizer.Cl100kBase

// Counter estimates token counts with the tiktoken codec of a model. Counts are
// estimates for display, not billing figures.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter returns a counter for model, falling back to cl100k_base for models the
// tokenizer does not know.
func NewCounter(model string) *Counter {
	if model != "" {
		c, err := tokenizer.ForModel(tokenizer.Model(model))
		if err == nil {
			return &Counter{codec: c}
		}
		log.Debug().Str("model", model).Err(err).Msg("unknown tokenizer model, falling back to default encoding")
	}

	c, err := tokenizer.Get(DefaultEncoding)
	if err != nil {
		// cl100k_base is compiled into the tokenizer package
		log.Warn().Err(err).Msg("could not load default encoding, using length heuristic")
		return &Counter{}
	}
	return &Counter{codec: c}
}

func NewCounterForEncoding(encoding string) (*Counter, error) {
	c, err := tokenizer.Get(tokenizer.Encoding(encoding))
	if err != nil {
		return nil, err
	}
	return &Counter{codec: c}, nil
}

func (c *Counter) Encoding() string {
	if c.codec == nil {
		return "heuristic"
	}
	return c.codec.GetName()
}

// Count returns the number of tokens of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.codec != nil {
		ids, _, err := c.codec.Encode(text)
		if err == nil {
			return len(ids)
		}
		log.Debug().Err(err).Msg("could not encode text, using length heuristic")
	}
	return (len(text) + 3) / 4
}

// CountMessage counts the text of m plus TokensPerImage for every image part.
func (c *Counter) CountMessage(m *conversation.Message) int {
	if m == nil {
		return 0
	}
	switch content := m.Content.(type) {
	case *conversation.TextContent:
		return c.Count(content.Text)
	case *conversation.PartsContent:
		ret := 0
		for _, part := range content.Parts {
			switch p := part.(type) {
			case *conversation.TextPart:
				ret += c.Count(p.Text)
			case *conversation.ImagePart:
				ret += TokensPerImage
			}
		}
		return ret
	default:
		return 0
	}
}

// CountMessages sums CountMessage over messages.
func (c *Counter) CountMessages(messages ...*conversation.Message) int {
	ret := 0
	for _, m := range messages {
		ret += c.CountMessage(m)
	}
	return ret
}

// Encode returns the token ids and their text pieces.
func (c *Counter) Encode(text string) ([]uint, []string, error) {
	if c.codec == nil {
		return nil, nil, errors.New("no codec available")
	}
	return c.codec.Encode(text)
}

func (c *Counter) Decode(ids []uint) (string, error) {
	if c.codec == nil {
		return "", errors.New("no codec available")
	}
	return c.codec.Decode(ids)
}
