package history_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amityadav/marketwatch/internal/history"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/metrics"
)

const goodCSV = "\ufeffCategory,Date,Title,Source,Link,Notes\n" +
	"競品動態,2026-10-01,GE launches range,GE,https://ge.example.com/1,\n" +
	"Recalls,2026-10-01,Dishwasher recall,CPSC,https://cpsc.example.com/2,x\n" +
	"競品動態,2026/10/02,Bosch price cut,Bosch,https://bosch.example.com/3,\n" +
	",,,,,\n"

func serve(t *testing.T, body *atomic.Value, status *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := status.Load(); s != 0 {
			w.WriteHeader(int(s))
			return
		}
		_, _ = w.Write([]byte(body.Load().(string)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParse(t *testing.T) {
	rows, err := history.Parse(strings.NewReader(goodCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "競品動態", rows[0].Category)
	assert.Equal(t, time.October, rows[2].Date.Month())
	assert.Equal(t, 2, rows[2].Date.Day())
}

func TestParse_FailsWholeLoad(t *testing.T) {
	cases := map[string]string{
		"missing column": "Category,Date,Title,Link\nA,2026-10-01,T,https://x\n",
		"bad date":       "Category,Date,Title,Source,Link\nA,2026-10-01,T,S,https://x\nA,someday,T,S,https://y\n",
		"short row":      "Category,Date,Title,Source,Link\nA,2026-10-01,T\n",
		"empty link":     "Category,Date,Title,Source,Link\nA,2026-10-01,T,S,\n",
		"empty body":     "",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := history.Parse(strings.NewReader(body))
			require.ErrorIs(t, err, history.ErrSourceUnavailable)
		})
	}
}

func TestService_ViewAndFilter(t *testing.T) {
	var body atomic.Value
	body.Store(goodCSV)
	var status atomic.Int32
	srv := serve(t, &body, &status)

	svc := history.NewService(srv.URL, time.Second, logger.NewNop(), metrics.New())

	all, err := svc.View(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, history.AllCategories, all.Category)
	assert.Equal(t, 3, all.Count)
	assert.Equal(t, []string{"競品動態", "Recalls"}, all.Categories)

	recalls, err := svc.View(context.Background(), "Recalls")
	require.NoError(t, err)
	assert.Equal(t, 1, recalls.Count)

	none, err := svc.View(context.Background(), "Nope")
	require.NoError(t, err)
	assert.NotNil(t, none.Rows)
	assert.Zero(t, none.Count)
}

func TestService_DailyCounts(t *testing.T) {
	var body atomic.Value
	body.Store(goodCSV)
	var status atomic.Int32
	srv := serve(t, &body, &status)
	svc := history.NewService(srv.URL, time.Second, logger.NewNop(), nil)

	counts, err := svc.DailyCounts(context.Background(), "all")
	require.NoError(t, err)
	assert.Equal(t, []history.DailyCount{
		{Day: "2026-10-01", Category: "Recalls", Count: 1},
		{Day: "2026-10-01", Category: "競品動態", Count: 1},
		{Day: "2026-10-02", Category: "競品動態", Count: 1},
	}, counts)
}

func TestService_Unavailable(t *testing.T) {
	var body atomic.Value
	body.Store(goodCSV)
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	srv := serve(t, &body, &status)

	svc := history.NewService(srv.URL, time.Second, logger.NewNop(), nil)
	_, err := svc.View(context.Background(), "all")
	require.ErrorIs(t, err, history.ErrSourceUnavailable)

	unset := history.NewService("", time.Second, logger.NewNop(), nil)
	assert.False(t, unset.Configured())
	_, err = unset.View(context.Background(), "all")
	require.ErrorIs(t, err, history.ErrSourceUnavailable)
}

func TestService_FailedRefreshKeepsLastGoodDataset(t *testing.T) {
	var body atomic.Value
	body.Store(goodCSV)
	var status atomic.Int32
	srv := serve(t, &body, &status)
	svc := history.NewService(srv.URL, time.Second, logger.NewNop(), nil)
	require.NoError(t, svc.Refresh(context.Background()))

	body.Store("Category,Date,Title,Source,Link\nA,garbage,T,S,https://x\n")
	require.ErrorIs(t, svc.Refresh(context.Background()), history.ErrSourceUnavailable)

	v, err := svc.View(context.Background(), "all")
	require.NoError(t, err)
	assert.Equal(t, 3, v.Count)
}
