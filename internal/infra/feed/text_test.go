package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{name: "empty", html: "", want: ""},
		{name: "plain", html: "just text", want: "just text"},
		{name: "paragraphs", html: "<p>One</p><p>Two</p>", want: "One\nTwo"},
		{name: "collapses spaces", html: "<p>  a \t  b  </p>", want: "a b"},
		{name: "drops script and style", html: "<style>p{}</style><p>Keep</p><script>alert(1)</script>", want: "Keep"},
		{name: "entities", html: "<p>Fish &amp; Chips</p>", want: "Fish & Chips"},
		{name: "list items", html: "<ul><li>a</li><li>b</li></ul>", want: "a\nb"},
		{name: "inline stays on line", html: "<p>Hello <b>world</b></p>", want: "Hello world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.html))
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "One Two", Preview("<p>One</p><p>Two</p>", 0))
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "Hello...", Preview("<p>Hello world</p>", 6))
	assert.Equal(t, "微信公众...", Preview("<p>微信公众号文章</p>", 4), "cuts on rune boundaries")
}
