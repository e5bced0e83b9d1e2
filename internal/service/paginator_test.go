package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jjenkins/wcivf/internal/logging"
	"github.com/jjenkins/wcivf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID string `json:"id"`
}

func pagedServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, strings.ReplaceAll(body, "{{base}}", srv.URL))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPaginatorFollowsNext(t *testing.T) {
	srv := pagedServer(t, map[string]string{
		"/p1": `{"count":3,"next":"{{base}}/p2","results":[{"id":"a"},{"id":"b"}]}`,
		"/p2": `{"count":3,"next":null,"results":[{"id":"c"}]}`,
	})

	var out bytes.Buffer
	log, err := logging.New(&out, "info", "text")
	require.NoError(t, err)

	var ids []string
	pages := NewPaginator[item](NewClient(0), srv.URL+"/p1", log)
	for page, err := range pages.Pages(context.Background()) {
		require.NoError(t, err)
		for _, r := range page.Results {
			ids = append(ids, r.ID)
		}
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Contains(t, out.String(), srv.URL+"/p1")
	assert.Contains(t, out.String(), srv.URL+"/p2")
}

func TestPaginatorRestarts(t *testing.T) {
	srv := pagedServer(t, map[string]string{
		"/p1": `{"count":1,"next":null,"results":[{"id":"a"}]}`,
	})
	pages := NewPaginator[item](NewClient(0), srv.URL+"/p1", logging.Discard())

	for range 2 {
		n := 0
		for page, err := range pages.Pages(context.Background()) {
			require.NoError(t, err)
			n += len(page.Results)
		}
		assert.Equal(t, 1, n)
	}
}

func TestPaginatorStopsOnStatusError(t *testing.T) {
	srv := pagedServer(t, map[string]string{
		"/p1": `{"count":2,"next":"{{base}}/missing","results":[{"id":"a"}]}`,
	})

	var seen int
	var lastErr error
	pages := NewPaginator[item](NewClient(0), srv.URL+"/p1", logging.Discard())
	for page, err := range pages.Pages(context.Background()) {
		if err != nil {
			lastErr = err
			continue
		}
		seen += len(page.Results)
	}

	assert.Equal(t, 1, seen)
	var statusErr *StatusError
	require.ErrorAs(t, lastErr, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestPaginatorMalformedJSON(t *testing.T) {
	srv := pagedServer(t, map[string]string{
		"/p1": `{"results": [`,
	})

	pages := NewPaginator[item](NewClient(0), srv.URL+"/p1", logging.Discard())
	for _, err := range pages.Pages(context.Background()) {
		assert.ErrorContains(t, err, "failed to parse response")
	}
}

func TestPaginatorCancelled(t *testing.T) {
	srv := pagedServer(t, map[string]string{
		"/p1": `{"count":0,"next":null,"results":[]}`,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := NewPaginator[model.BallotRecord](NewClient(0), srv.URL+"/p1", logging.Discard())
	for page, err := range pages.Pages(ctx) {
		assert.Nil(t, page)
		assert.ErrorIs(t, err, context.Canceled)
	}
}
