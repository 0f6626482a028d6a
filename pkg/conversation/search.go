package conversation

import (
	"strings"

	"github.com/samber/lo"
)

// MaxSearchResults is how many matches a UI shows for a search.
const MaxSearchResults = 5

type SearchResult struct {
	Index   int
	Message *Message
}

// Search matches query case-insensitively against the plain text messages of the
// current conversation. Messages with a parts list are never matched. An empty query
// matches nothing.
func (s *Store) Search(query string) []SearchResult {
	s.ensure()
	return SearchMessages(s.buffer.Messages, query)
}

func SearchMessages(messages Messages, query string) []SearchResult {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)

	return lo.FilterMap(messages, func(m *Message, idx int) (SearchResult, bool) {
		switch c := m.Content.(type) {
		case *TextContent:
			if strings.Contains(strings.ToLower(c.Text), q) {
				return SearchResult{Index: idx, Message: m}, true
			}
			return SearchResult{}, false
		case *PartsContent:
			return SearchResult{}, false
		default:
			return SearchResult{}, false
		}
	})
}
