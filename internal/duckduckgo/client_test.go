package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amityadav/marketwatch/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result result--ad"><a class="result__a" href="https://ads.example.com/x">Sponsored</a></div>
<div class="result"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.reddit.com%2Fr%2FAppliances%2Fcomments%2F1&amp;rut=abc">Best dishwasher? : r/Appliances</a></div>
<div class="result"><a class="result__a" href="https://www.bestbuy.com/site/ranges">Ranges | Best Buy</a></div>
<div class="result"><a class="result__a" href="javascript:void(0)">Broken</a></div>
<div class="result"><a class="result__a" href="https://www.lg.com/us/ovens">LG Ovens</a></div>
</body></html>`

func newTestClient(t *testing.T, max int, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(5*time.Second, max).WithEndpoint(srv.URL)
}

func TestFetch_ParsesAndClassifies(t *testing.T) {
	var got string
	c := newTestClient(t, 10, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		_, _ = w.Write([]byte(resultsPage))
	})

	res := c.Fetch(context.Background(), search.Request{
		Query:  "dishwasher site:reddit.com",
		Locale: search.Locale{WebRegion: "us-en"},
		Window: search.WindowWeek,
	})

	require.True(t, res.OK, res.Diagnostic)
	assert.Contains(t, got, "kl=us-en")
	assert.Contains(t, got, "df=w")
	require.Len(t, res.Records, 3)

	assert.Equal(t, "https://www.reddit.com/r/Appliances/comments/1", res.Records[0].Link)
	assert.Equal(t, search.TypeReddit, res.Records[0].Type)
	assert.Equal(t, "reddit.com", res.Records[0].Source)
	assert.Equal(t, search.TypeWeb, res.Records[1].Type)
	assert.Equal(t, "bestbuy.com", res.Records[1].Source)
	assert.False(t, res.Records[0].PublishedAt.IsZero())
}

func TestFetch_TruncatesToMaxResults(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><body>")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&page, `<div class="result"><a class="result__a" href="https://site%d.example.com/">Result %d</a></div>`, i, i)
	}
	page.WriteString("</body></html>")

	c := newTestClient(t, 5, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page.String()))
	})

	res := c.Fetch(context.Background(), search.Request{Query: "fridge"})
	require.True(t, res.OK)
	assert.Len(t, res.Records, 5)
}

func TestFetch_UnboundedWindowOmitsDF(t *testing.T) {
	var got string
	c := newTestClient(t, 5, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		_, _ = w.Write([]byte("<html></html>"))
	})

	res := c.Fetch(context.Background(), search.Request{Query: "fridge", Window: search.WindowAll})
	assert.True(t, res.OK)
	assert.Empty(t, res.Records)
	assert.NotContains(t, got, "df=")
}

func TestFetch_HTTPErrorIsEmpty(t *testing.T) {
	c := newTestClient(t, 5, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	res := c.Fetch(context.Background(), search.Request{Query: "fridge"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Diagnostic, "403")
	assert.NotNil(t, res.Records)
}

func TestTimeLimit(t *testing.T) {
	assert.Equal(t, "d", timeLimit(search.WindowDay))
	assert.Equal(t, "y", timeLimit(search.WindowYear))
	assert.Equal(t, "", timeLimit(search.WindowAll))
}
