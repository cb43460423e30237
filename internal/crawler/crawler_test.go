package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	page := `<html><head><title> Meter guide </title><style>p{}</style></head>
<body><nav>Home | About</nav><p>Read   your meter
every month.</p><script>alert(1)</script><footer>(c)</footer></body></html>`

	title, text, err := ExtractText([]byte(page), 0)
	require.NoError(t, err)
	assert.Equal(t, "Meter guide", title)
	assert.Equal(t, "Read your meter every month.", text)
}

func TestExtractText_TruncatesWords(t *testing.T) {
	_, text, err := ExtractText([]byte("<p>one two three four</p>"), 2)
	require.NoError(t, err)
	assert.Equal(t, "one two...", text)
}

func TestCrawl_KeepsInputOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<title>Slow</title><p>slow body</p>"))
	})
	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<title>Fast</title><p>fast body</p>"))
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewCrawler(time.Second, 4, 1<<20)
	pages := c.Crawl(context.Background(), []string{
		srv.URL + "/slow", srv.URL + "/fast", srv.URL + "/json", srv.URL + "/missing",
	})
	require.Len(t, pages, 4)

	assert.NoError(t, pages[0].Err)
	assert.Equal(t, "Slow", pages[0].Title)
	assert.Equal(t, "slow body", pages[0].Content)
	assert.Equal(t, "Fast", pages[1].Title)

	require.Error(t, pages[2].Err)
	assert.True(t, strings.Contains(pages[2].Err.Error(), "non-HTML"))
	require.Error(t, pages[3].Err)
	assert.Contains(t, pages[3].Err.Error(), "HTTP 404")
}

func TestCrawl_Empty(t *testing.T) {
	assert.Empty(t, NewCrawler(time.Second, 2, 1024).Crawl(context.Background(), nil))
}
