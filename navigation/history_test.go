package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryHistory_PushDropsForwardEntries(t *testing.T) {
	h := NewMemoryHistory("mdview://viewer", "")
	h.Push("a.md")
	h.Push("b.md")
	require.True(t, h.Back())
	assert.True(t, h.CanGoForward())

	h.Push("c.md")
	assert.False(t, h.CanGoForward())
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, "c.md", h.Current().Path)
}

func Test_MemoryHistory_ReplaceKeepsID(t *testing.T) {
	h := NewMemoryHistory("mdview://viewer", "")
	entry := h.Push("a.md")

	replaced := h.Replace("b.md")
	assert.Equal(t, entry.ID, replaced.ID)
	assert.Equal(t, "b.md", h.Current().Path)
}

func Test_MemoryHistory_BoundsAndSubscribe(t *testing.T) {
	h := NewMemoryHistory("mdview://viewer", "")
	var seen []string
	unsubscribe := h.Subscribe(func(e Entry) { seen = append(seen, e.Path) })

	assert.False(t, h.Back())
	h.Push("a.md")
	require.True(t, h.Back())
	require.True(t, h.Forward())
	assert.False(t, h.Forward())
	assert.Equal(t, []string{"", "a.md"}, seen)

	unsubscribe()
	require.True(t, h.Back())
	assert.Len(t, seen, 2)
}

func Test_BuildURL(t *testing.T) {
	assert.Equal(t, "mdview://viewer?file=docs%2Fa+b.md", BuildURL("mdview://viewer", "docs/a b.md"))
	assert.Equal(t, "mdview://viewer", BuildURL("mdview://viewer?file=x.md", ""))
	assert.Equal(t, "http://localhost/view?file=x.md&theme=dark", BuildURL("http://localhost/view?theme=dark", "x.md"))
}

func Test_ParseURL(t *testing.T) {
	assert.Equal(t, "docs/a b.md", ParseURL("mdview://viewer?file=docs%2Fa+b.md"))
	assert.Equal(t, "", ParseURL("mdview://viewer"))
	assert.Equal(t, "", ParseURL(""))
	assert.Equal(t, "x.md", ParseURL(BuildURL("mdview://viewer", "x.md")))
}
