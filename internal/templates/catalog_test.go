package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	c := Builtin()

	assert.Equal(t, []string{"chrome", "content", "general"}, c.Categories())
	assert.Equal(t, []string{"Compact Toolbar", "Dark Theme", "Hide Tab Bar", "Minimal UI", "Vertical Tabs"}, c.Names("chrome"))
	assert.Len(t, c.ByCategory("content"), 5)
	assert.Len(t, c.ByCategory("general"), 2)

	hide := c.ByCategory("chrome")["Hide Tab Bar"]
	assert.Equal(t, "/* Hide the tab bar */\n#TabsToolbar {\n    visibility: collapse !important;\n}", hide)

	reset := c.ByCategory("general")["Reset All"]
	assert.True(t, strings.HasSuffix(reset, "below this line */\n\n"))

	assert.Contains(t, c.ByCategory("content")["YouTube Dark"], `@-moz-document domain("youtube.com")`)
}

func TestByCategory_Unknown(t *testing.T) {
	got := Builtin().ByCategory("nope")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := Builtin()

	chrome := c.ByCategory("chrome")
	chrome["Hide Tab Bar"] = "mutated"
	delete(chrome, "Dark Theme")

	all := c.All()
	all["chrome"]["Minimal UI"] = "mutated"
	delete(all, "general")

	fresh := c.ByCategory("chrome")
	assert.NotEqual(t, "mutated", fresh["Hide Tab Bar"])
	assert.NotEqual(t, "mutated", fresh["Minimal UI"])
	assert.Contains(t, fresh, "Dark Theme")
	assert.Len(t, c.All(), 3)
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte("a:\n  one: |-\n    x\nb:\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Categories())
	assert.Equal(t, map[string]string{"one": "x"}, c.ByCategory("a"))
	assert.Empty(t, c.ByCategory("b"))

	_, err = Parse([]byte("a: [unclosed"))
	assert.Error(t, err)
}
