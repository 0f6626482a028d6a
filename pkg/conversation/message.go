package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeParts ContentType = "parts"
)

// Content is the body of a message. It is either plain text (*TextContent) or an
// ordered list of typed parts (*PartsContent). No other implementations exist.
type Content interface {
	ContentType() ContentType
	String() string
	View() string

	isContent()
}

type TextContent struct {
	Text string `json:"text" yaml:"text"`
}

func NewTextContent(text string) *TextContent {
	return &TextContent{Text: text}
}

func (t *TextContent) ContentType() ContentType {
	return ContentTypeText
}

func (t *TextContent) String() string {
	return t.Text
}

func (t *TextContent) View() string {
	return strings.TrimRight(t.Text, "\n")
}

func (t *TextContent) isContent() {}

var _ Content = (*TextContent)(nil)

type PartType string

const (
	PartTypeText  PartType = "text"
	PartTypeImage PartType = "image"
)

// Part is one typed unit of multimodal content, either *TextPart or *ImagePart.
type Part interface {
	PartType() PartType

	isPart()
}

type TextPart struct {
	Text string `json:"text" yaml:"text"`
}

func (t *TextPart) PartType() PartType {
	return PartTypeText
}

func (t *TextPart) isPart() {}

type ImagePart struct {
	Image *ImageContent `json:"image" yaml:"image"`
}

func (i *ImagePart) PartType() PartType {
	return PartTypeImage
}

func (i *ImagePart) isPart() {}

var (
	_ Part = (*TextPart)(nil)
	_ Part = (*ImagePart)(nil)
)

type PartsContent struct {
	Parts []Part `json:"parts" yaml:"parts"`
}

// NewPartsContent builds a parts list with the text part first (omitted if text is
// empty) followed by one image part per image.
func NewPartsContent(text string, images ...*ImageContent) *PartsContent {
	ret := &PartsContent{}
	if text != "" {
		ret.Parts = append(ret.Parts, &TextPart{Text: text})
	}
	for _, img := range images {
		ret.Parts = append(ret.Parts, &ImagePart{Image: img})
	}
	return ret
}

func (p *PartsContent) ContentType() ContentType {
	return ContentTypeParts
}

// Text returns the text part, if there is one.
func (p *PartsContent) Text() (string, bool) {
	for _, part := range p.Parts {
		if tp, ok := part.(*TextPart); ok {
			return tp.Text, true
		}
	}
	return "", false
}

func (p *PartsContent) Images() []*ImageContent {
	var ret []*ImageContent
	for _, part := range p.Parts {
		if ip, ok := part.(*ImagePart); ok {
			ret = append(ret, ip.Image)
		}
	}
	return ret
}

func (p *PartsContent) String() string {
	text, _ := p.Text()
	return text
}

func (p *PartsContent) View() string {
	var sb strings.Builder
	text, hasText := p.Text()
	if hasText {
		sb.WriteString(strings.TrimRight(text, "\n"))
	}
	for _, img := range p.Images() {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("[image: %s]", img.ImageName))
	}
	return sb.String()
}

// Validate checks that the list is non-empty and holds at most one text part.
func (p *PartsContent) Validate() error {
	if len(p.Parts) == 0 {
		return errors.Wrap(ErrInvalidContent, "empty parts list")
	}
	textParts := 0
	for i, part := range p.Parts {
		switch part_ := part.(type) {
		case *TextPart:
			textParts++
		case *ImagePart:
			if part_.Image == nil {
				return errors.Wrapf(ErrInvalidContent, "image part %d has no image", i)
			}
		default:
			return errors.Wrapf(ErrInvalidContent, "unknown part type at %d", i)
		}
	}
	if textParts > 1 {
		return errors.Wrapf(ErrInvalidContent, "%d text parts, at most one allowed", textParts)
	}
	return nil
}

func (p *PartsContent) isContent() {}

var _ Content = (*PartsContent)(nil)

// Message is a single role-tagged entry of a conversation. Messages are not modified
// once they have been appended.
type Message struct {
	ID      uuid.UUID `json:"id"`
	Time    time.Time `json:"time"`
	Role    Role      `json:"role"`
	Content Content   `json:"content"`
}

type MessageOption func(*Message)

func WithTime(time time.Time) MessageOption {
	return func(message *Message) {
		message.Time = time
	}
}

func WithID(id uuid.UUID) MessageOption {
	return func(message *Message) {
		message.ID = id
	}
}

func NewMessage(role Role, content Content, options ...MessageOption) *Message {
	ret := &Message{
		ID:      uuid.New(),
		Time:    time.Now(),
		Role:    role,
		Content: content,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func NewTextMessage(role Role, text string, options ...MessageOption) *Message {
	return NewMessage(role, NewTextContent(text), options...)
}

// Validate checks the role and the content invariants of the message.
func (m *Message) Validate() error {
	if m == nil {
		return errors.Wrap(ErrInvalidContent, "nil message")
	}
	switch m.Role {
	case RoleUser, RoleAssistant:
	default:
		return errors.Wrapf(ErrInvalidContent, "unknown role %q", m.Role)
	}
	switch c := m.Content.(type) {
	case *TextContent:
		if c == nil {
			return errors.Wrap(ErrInvalidContent, "nil text content")
		}
		return nil
	case *PartsContent:
		if c == nil {
			return errors.Wrap(ErrInvalidContent, "nil parts content")
		}
		return c.Validate()
	default:
		return errors.Wrap(ErrInvalidContent, "missing content")
	}
}

// Text returns the text carried by the message, whichever content kind it uses.
func (m *Message) Text() string {
	switch c := m.Content.(type) {
	case *TextContent:
		return c.Text
	case *PartsContent:
		text, _ := c.Text()
		return text
	default:
		return ""
	}
}

// HasImage reports whether the message carries at least one image part.
func (m *Message) HasImage() bool {
	c, ok := m.Content.(*PartsContent)
	return ok && len(c.Images()) > 0
}

func (m *Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, m.Content.View())
}

type partView struct {
	Type  PartType   `json:"type" yaml:"type"`
	Text  string     `json:"text,omitempty" yaml:"text,omitempty"`
	Image *imageView `json:"image,omitempty" yaml:"image,omitempty"`
}

type imageView struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	MediaType string `json:"media_type,omitempty" yaml:"media_type,omitempty"`
	Size      int    `json:"size" yaml:"size"`
}

type messageView struct {
	ID          uuid.UUID   `json:"id" yaml:"id"`
	Time        time.Time   `json:"time" yaml:"time"`
	Role        Role        `json:"role" yaml:"role"`
	ContentType ContentType `json:"content_type" yaml:"content_type"`
	Text        string      `json:"text,omitempty" yaml:"text,omitempty"`
	Parts       []partView  `json:"parts,omitempty" yaml:"parts,omitempty"`
}

// view flattens the content union for export. Raw image bytes are left out, only
// their size is kept.
func (m *Message) view() messageView {
	ret := messageView{
		ID:   m.ID,
		Time: m.Time,
		Role: m.Role,
	}
	switch c := m.Content.(type) {
	case *TextContent:
		ret.ContentType = ContentTypeText
		ret.Text = c.Text
	case *PartsContent:
		ret.ContentType = ContentTypeParts
		for _, part := range c.Parts {
			switch p := part.(type) {
			case *TextPart:
				ret.Parts = append(ret.Parts, partView{Type: PartTypeText, Text: p.Text})
			case *ImagePart:
				ret.Parts = append(ret.Parts, partView{
					Type: PartTypeImage,
					Image: &imageView{
						Name:      p.Image.ImageName,
						URL:       p.Image.ImageURL,
						MediaType: p.Image.MediaType,
						Size:      len(p.Image.ImageContent),
					},
				})
			}
		}
	}
	return ret
}

func (m *Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.view())
}

func (m *Message) MarshalYAML() (interface{}, error) {
	return m.view(), nil
}

// Messages is an ordered message history.
type Messages []*Message

// HasImage reports whether any message in the history carries an image.
func (messages Messages) HasImage() bool {
	for _, m := range messages {
		if m.HasImage() {
			return true
		}
	}
	return false
}
