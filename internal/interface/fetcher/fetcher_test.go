package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fare-crawler-service/pkg/logger"

	"github.com/stretchr/testify/require"
)

func TestBuildSearchURL(t *testing.T) {
	got := BuildSearchURL(
		"https://flights.ctrip.com/online/list/oneway-{origin}-{destination}?depdate={date}&cabin=y_s_c_f",
		"SHA", "HKG", "2024-03-01",
	)
	require.Equal(t, "https://flights.ctrip.com/online/list/oneway-sha-hkg?depdate=2024-03-01&cabin=y_s_c_f", got)
}

func TestHTTPFetcherParsesPage(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("date")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`<html><body><div class="flight-box"></div><div class="flight-box"><span class="price">¥1,200</span></div></body></html>`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/list/{origin}-{destination}?date={date}", "crawler-test", time.Second, logger.NewNopLogger())
	doc, err := f.Fetch(context.Background(), "PVG", "ICN", "2024-03-02")
	require.NoError(t, err)

	require.Equal(t, "/list/pvg-icn", gotPath)
	require.Equal(t, "2024-03-02", gotQuery)
	require.Equal(t, "crawler-test", gotUA)
	require.Equal(t, 2, doc.Find("div.flight-box").Length())
	require.NoError(t, f.Close())
}

func TestHTTPFetcherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/{origin}", "", time.Second, logger.NewNopLogger())
	_, err := f.Fetch(context.Background(), "PVG", "ICN", "2024-03-02")
	require.ErrorContains(t, err, "403")
}

func TestChromeFetcherCloseBeforeStart(t *testing.T) {
	f := NewChromeFetcher(ChromeOptions{}, logger.NewNopLogger())
	require.NoError(t, f.Close())
}
