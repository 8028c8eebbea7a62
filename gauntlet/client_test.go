package gauntlet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gameJSON(start string) string {
	return fmt.Sprintf(`{"startTime":%q,"players":["p1","p2"],"results":[]}`, start)
}

func pageJSON(games int, cursor string) string {
	items := make([]string, games)
	for i := range items {
		items[i] = gameJSON("2026-08-01T10:00:00Z")
	}
	// Built by hand so the games stay raw JSON objects.
	out := `{"games":[`
	for i := range items {
		if i > 0 {
			out += ","
		}
		out += items[i]
	}
	out += `]`
	if cursor != "" {
		out += fmt.Sprintf(`,"cursor":%q`, cursor)
	}
	return out + `}`
}

func newTestClient(t *testing.T, handler http.HandlerFunc, pageSize, retries int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		BaseURL:    server.URL,
		Token:      "test-token",
		PageSize:   pageSize,
		MaxRetries: retries,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	})
}

func TestFetchAllMatchesFollowsCursor(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch calls {
		case 1:
			assert.Empty(t, req.Cursor)
			fmt.Fprint(w, pageJSON(2, "c1"))
		case 2:
			assert.Equal(t, "c1", req.Cursor)
			fmt.Fprint(w, pageJSON(2, "c2"))
		default:
			assert.Equal(t, "c2", req.Cursor)
			fmt.Fprint(w, pageJSON(1, ""))
		}
	}, 2, 3)

	records, err := client.FetchAllMatches(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Len(t, records, 5)
	assert.Equal(t, 3, calls)
}

func TestFetchAllMatchesStopsOnShortPageDespiteCursor(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Short page but the API still hands back a cursor; the loop must
		// not follow it.
		fmt.Fprint(w, pageJSON(1, "ghost-cursor"))
	}, 10, 3)

	records, err := client.FetchAllMatches(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, calls)
}

func TestFetchAllMatchesPaginatesPastSkippedGames(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			// A full upstream page where one game fails normalization. The
			// drop must not make the page look short, or the rest of the
			// window would be silently lost.
			fmt.Fprintf(w, `{"games":[%s,{"startTime":"not-a-timestamp"}],"cursor":"c1"}`,
				gameJSON("2026-08-01T10:00:00Z"))
		default:
			fmt.Fprint(w, pageJSON(1, ""))
		}
	}, 2, 3)

	records, err := client.FetchAllMatches(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, records, 2)
}

func TestSearchPageRetriesOn5xx(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, pageJSON(1, ""))
	}, 10, 3)

	records, _, err := client.SearchPage(context.Background(), SearchRequest{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 3, calls)
}

func TestSearchPageExhaustsRetriesOn5xx(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}, 10, 3)

	_, _, err := client.SearchPage(context.Background(), SearchRequest{})
	require.ErrorIs(t, err, ErrUpstreamFetch)
	assert.Equal(t, 3, calls)
}

func TestSearchPageDoesNotRetry4xx(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}, 10, 3)

	_, _, err := client.SearchPage(context.Background(), SearchRequest{})
	require.ErrorIs(t, err, ErrUpstreamFetch)
	assert.Equal(t, 1, calls, "client errors must fail fast")
}

func TestSearchPageDefaultsAndAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ranked", req.Mode)
		assert.Equal(t, 25, req.Count)
		assert.NotNil(t, req.Players)
		fmt.Fprint(w, pageJSON(0, ""))
	}, 25, 1)

	records, cursor, err := client.SearchPage(context.Background(), SearchRequest{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, cursor)
}

func TestSearchPageSkipsUnparseableGames(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"games":[%s,{"startTime":"not-a-timestamp"}]}`, gameJSON("2026-08-01T10:00:00Z"))
	}, 10, 1)

	records, _, err := client.SearchPage(context.Background(), SearchRequest{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestForwardRelaysStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ranked", body["mode"])
		assert.Contains(t, body, "sort")
		assert.Contains(t, body, "filter")
		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, `{"detail":"verbatim"}`)
	}, 10, 1)

	status, respBody, err := client.Forward(context.Background(), map[string]interface{}{"players": []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, status)
	assert.JSONEq(t, `{"detail":"verbatim"}`, string(respBody))
}
