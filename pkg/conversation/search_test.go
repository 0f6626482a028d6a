package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearch_MatchesTextCaseInsensitively(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AppendMessage(NewTextMessage(RoleUser, "hello world")))
	require.NoError(t, s.AppendMessage(NewTextMessage(RoleAssistant, "foo")))

	res := s.Search("hello")
	require.Len(t, res, 1)
	require.Equal(t, 0, res[0].Index)
	require.Equal(t, "hello world", res[0].Message.Text())

	res = s.Search("HELLO")
	require.Len(t, res, 1)

	require.Empty(t, s.Search("zzz"))
	require.Empty(t, s.Search(""))
}

func TestSearch_SkipsStructuredContent(t *testing.T) {
	s := NewStore()
	img := &ImageContent{ImageContent: []byte{1, 2, 3}, MediaType: "image/png", ImageName: "a.png"}
	require.NoError(t, s.AppendMessage(NewMessage(RoleUser, NewPartsContent("hello picture", img))))
	require.NoError(t, s.AppendMessage(NewMessage(RoleUser, NewPartsContent("", img))))
	require.NoError(t, s.AppendMessage(NewTextMessage(RoleAssistant, "hello back")))

	res := s.Search("hello")
	require.Len(t, res, 1)
	require.Equal(t, 2, res[0].Index)

	require.Empty(t, s.Search("picture"))
	require.Empty(t, s.Search("a.png"))
}

func TestSearch_KeepsOriginalOrder(t *testing.T) {
	s := NewStore()
	for _, text := range []string{"go one", "nothing", "Go two", "go three"} {
		require.NoError(t, s.AppendMessage(NewTextMessage(RoleUser, text)))
	}

	res := s.Search("go")
	require.Len(t, res, 3)
	require.Equal(t, []int{0, 2, 3}, []int{res[0].Index, res[1].Index, res[2].Index})
}

func TestSearch_OnlyCurrentConversation(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AppendMessage(NewTextMessage(RoleUser, "needle")))
	_, err := s.CreateConversation("b")
	require.NoError(t, err)
	require.NoError(t, s.SwitchCurrent("b"))

	require.Empty(t, s.Search("needle"))
}
