package conversation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPartsContent_TextFirstThenImages(t *testing.T) {
	img := &ImageContent{ImageURL: "https://example.com/cat.png", ImageName: "cat.png"}
	c := NewPartsContent("what is this?", img)

	require.Len(t, c.Parts, 2)
	require.Equal(t, PartTypeText, c.Parts[0].PartType())
	require.Equal(t, PartTypeImage, c.Parts[1].PartType())
	text, ok := c.Text()
	require.True(t, ok)
	require.Equal(t, "what is this?", text)
	require.NoError(t, c.Validate())

	imageOnly := NewPartsContent("", img)
	require.Len(t, imageOnly.Parts, 1)
	_, ok = imageOnly.Text()
	require.False(t, ok)
}

func TestImageContent_URL(t *testing.T) {
	remote := &ImageContent{ImageURL: "https://example.com/a.jpg"}
	require.Equal(t, "https://example.com/a.jpg", remote.URL())

	local := &ImageContent{ImageContent: []byte("abc"), MediaType: "image/png"}
	require.Equal(t, "data:image/png;base64,YWJj", local.URL())
}

func TestNewImageContentFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic.JPG")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0644))

	img, err := NewImageContentFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MediaType)
	assert.Equal(t, "pic.JPG", img.ImageName)
	assert.Len(t, img.ImageContent, 3)

	bad := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("hi"), 0644))
	_, err = NewImageContentFromFile(bad)
	require.Error(t, err)

	_, err = NewImageContentFromFile(filepath.Join(dir, "missing.png"))
	require.Error(t, err)

	remote, err := NewImageContentFromFile("https://example.com/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", remote.ImageName)
	assert.Equal(t, "https://example.com/cat.png", remote.URL())

	_, err = NewImageContentFromFile("http://127.0.0.1/cat.png")
	require.Error(t, err)
}

func TestNewImageContentFromBytes(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	img, err := NewImageContentFromBytes("upload", png)
	require.NoError(t, err)
	require.Equal(t, "image/png", img.MediaType)

	_, err = NewImageContentFromBytes("upload", []byte("plain text"))
	require.Error(t, err)

	_, err = NewImageContentFromBytes("empty.png", nil)
	require.Error(t, err)
}

func TestMessage_TextAndImage(t *testing.T) {
	m := NewTextMessage(RoleUser, "hi")
	require.Equal(t, "hi", m.Text())
	require.False(t, m.HasImage())

	img := &ImageContent{ImageContent: []byte{1}, MediaType: "image/gif", ImageName: "x.gif"}
	mm := NewMessage(RoleUser, NewPartsContent("look", img))
	require.Equal(t, "look", mm.Text())
	require.True(t, mm.HasImage())
	require.True(t, Messages{m, mm}.HasImage())
	require.False(t, Messages{m}.HasImage())
	require.Equal(t, "[user]: look\n[image: x.gif]", mm.View())
}

func TestSaveToFile(t *testing.T) {
	c := NewConversation("conversation 2")
	img := &ImageContent{ImageContent: []byte{1, 2, 3, 4}, MediaType: "image/png", ImageName: "p.png"}
	c.Messages = Messages{
		NewTextMessage(RoleUser, "hi"),
		NewTextMessage(RoleAssistant, "Hello!"),
		NewMessage(RoleUser, NewPartsContent("and this?", img)),
	}
	c.TokenCount = 9

	dir := t.TempDir()

	jsonPath := filepath.Join(dir, ExportFileName(c.Name, "json"))
	require.True(t, strings.HasSuffix(jsonPath, "conversation-2.json"))
	require.NoError(t, SaveToFile(c, jsonPath))

	b, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded struct {
		Name       string `json:"name"`
		TokenCount int    `json:"token_count"`
		Messages   []struct {
			Role        string `json:"role"`
			ContentType string `json:"content_type"`
			Text        string `json:"text"`
			Parts       []struct {
				Type  string `json:"type"`
				Image *struct {
					Size int `json:"size"`
				} `json:"image"`
			} `json:"parts"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "conversation 2", decoded.Name)
	require.Equal(t, 9, decoded.TokenCount)
	require.Len(t, decoded.Messages, 3)
	require.Equal(t, "assistant", decoded.Messages[1].Role)
	require.Equal(t, "Hello!", decoded.Messages[1].Text)
	require.Equal(t, "parts", decoded.Messages[2].ContentType)
	require.Len(t, decoded.Messages[2].Parts, 2)
	require.Equal(t, 4, decoded.Messages[2].Parts[1].Image.Size)

	yamlPath := filepath.Join(dir, "out", "c.yaml")
	require.NoError(t, SaveToFile(c, yamlPath))
	b, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var y map[string]interface{}
	require.NoError(t, yaml.Unmarshal(b, &y))
	require.Equal(t, "conversation 2", y["name"])
	require.Len(t, y["messages"], 3)
}
