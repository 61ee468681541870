package cli

import (
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werss-client/internal/domain/entity"
)

func TestArticlesList(t *testing.T) {
	// Arrange
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wx/articles", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		writeOK(w, map[string]any{
			"list": []entity.Article{
				{ID: "a1", Title: "Go 1.25 released", MpName: "Gopher Daily", PublishTime: 1735689600, IsRead: 1},
			},
			"total": 31,
		})
	})
	backend(t, mux)

	// Act
	out, err := run(t, "articles", "list", "--page", "2", "--limit", "5", "--search", "go")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, query, "offset=10")
	assert.Contains(t, query, "limit=5")
	assert.Contains(t, query, "search=go")
	assert.Contains(t, out, "Go 1.25 released")
	assert.Contains(t, out, "Gopher Daily")
	assert.Contains(t, out, "1 of 31")
}

func TestArticlesText_UsesStoredBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wx/articles/a1", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, entity.Article{ID: "a1", Title: "t", Content: "<p>Hello <b>world</b></p><script>x()</script>"})
	})
	backend(t, mux)

	out, err := run(t, "articles", "text", "a1")

	require.NoError(t, err)
	assert.Equal(t, "Hello world\n", out)
}

func TestArticlesClean_RequiresConfirmation(t *testing.T) {
	var called atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { called.Store(true) })
	backend(t, mux)

	_, err := run(t, "articles", "clean")

	assert.ErrorIs(t, err, errConfirmationRequired)
	assert.False(t, called.Load())
}

func TestArticlesRead_Unread(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /wx/articles/a1/read", func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("is_read")
		writeOK(w, nil)
	})
	backend(t, mux)

	out, err := run(t, "articles", "read", "a1", "--unread")

	require.NoError(t, err)
	assert.Equal(t, "false", got)
	assert.Contains(t, out, "read=false")
}

func TestRoot_RejectsUnknownOutput(t *testing.T) {
	_, err := run(t, "articles", "list", "-o", "xml")

	assert.ErrorContains(t, err, "unknown output format")
}
