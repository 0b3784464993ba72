package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/canvas-assignments/internal/testutil"
	"github.com/Sternrassler/canvas-assignments/pkg/client"
	"github.com/Sternrassler/canvas-assignments/pkg/record"
)

func newClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()

	c, err := client.New(client.DefaultConfig(baseURL, "token"))
	require.NoError(t, err)
	c.SetSleep(func(context.Context, time.Duration) error { return nil })
	return c
}

func ids(t *testing.T, records []record.Record) []int64 {
	t.Helper()

	out := make([]int64, 0, len(records))
	for _, r := range records {
		id, ok := r.Int("id")
		require.True(t, ok, "record without id: %v", r)
		out = append(out, id)
	}
	return out
}

// scriptPages serves n pages of size items each under /items; page k links to k+1.
func scriptPages(mock *testutil.MockCanvas, n, size int) {
	for page := 1; page <= n; page++ {
		body := "["
		for i := 0; i < size; i++ {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"id": %d}`, (page-1)*size+i+1)
		}
		body += "]"

		current := fmt.Sprintf("%s/items?page=%d", mock.URL(), page)
		next := ""
		if page < n {
			next = fmt.Sprintf("%s/items?page=%d", mock.URL(), page+1)
		}

		route := fmt.Sprintf("/items?page=%d", page)
		if page == 1 {
			route = "/items"
		}
		mock.SetResponses(route, testutil.NewPageResponse(body, current, next))
	}
}

func TestAll_ConcatenatesPagesInOrder(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d pages", n), func(t *testing.T) {
			mock := testutil.NewMockCanvas()
			defer mock.Close()
			scriptPages(mock, n, 3)

			c := newClient(t, mock.URL())
			records, err := Collect(New(c).All(context.Background(), c.URL("/items"), nil))
			require.NoError(t, err)

			want := make([]int64, 0, n*3)
			for i := 1; i <= n*3; i++ {
				want = append(want, int64(i))
			}
			assert.Equal(t, want, ids(t, records))
			assert.Equal(t, n, mock.RequestCount("/items"))
		})
	}
}

func TestAll_ParamsOnlyOnFirstRequest(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	scriptPages(mock, 3, 1)

	c := newClient(t, mock.URL())
	params := url.Values{"per_page": {"100"}}
	_, err := Collect(New(c).All(context.Background(), c.URL("/items"), params))
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "100", reqs[0].Query.Get("per_page"))
	assert.Equal(t, url.Values{"page": {"2"}}, reqs[1].Query)
	assert.Equal(t, url.Values{"page": {"3"}}, reqs[2].Query)
}

func TestAll_SingleObjectBody(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetResponses("/api/v1/courses/7", testutil.NewJSONResponse(`{"id": 7, "name": "Solo"}`))

	c := newClient(t, mock.URL())
	records, err := Collect(New(c).All(context.Background(), c.URL("/api/v1/courses/7"), nil))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Solo", records[0].String("name", ""))
}

func TestAll_SkipsNonObjectElements(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetResponses("/items", testutil.NewJSONResponse(`[{"id": 1}, 2, "x", null, {"id": 3}]`))

	c := newClient(t, mock.URL())
	records, err := Collect(New(c).All(context.Background(), c.URL("/items"), nil))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(t, records))
}

func TestAll_EmptyAndNullBodies(t *testing.T) {
	for _, body := range []string{"", "null", "[]"} {
		mock := testutil.NewMockCanvas()
		mock.SetResponses("/items", testutil.MockResponse{StatusCode: http.StatusOK, Body: body})

		c := newClient(t, mock.URL())
		records, err := Collect(New(c).All(context.Background(), c.URL("/items"), nil))
		assert.NoError(t, err, "body %q", body)
		assert.Empty(t, records, "body %q", body)
		mock.Close()
	}
}

func TestAll_FailedPageSurfacesHTTPError(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetResponses("/items", testutil.NewPageResponse(`[{"id": 1}]`, mock.URL()+"/items", mock.URL()+"/items?page=2"))
	mock.SetResponses("/items?page=2", testutil.NewUnauthorizedResponse())

	c := newClient(t, mock.URL())

	var got []int64
	var gotErr error
	for r, err := range New(c).All(context.Background(), c.URL("/items"), nil) {
		if err != nil {
			gotErr = err
			break
		}
		id, _ := r.Int("id")
		got = append(got, id)
	}

	assert.Equal(t, []int64{1}, got)
	var httpErr *client.HTTPError
	require.ErrorAs(t, gotErr, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
}

func TestAll_ExhaustedServerErrorPropagates(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetResponses("/items", testutil.NewServerErrorResponse(http.StatusServiceUnavailable))

	c := newClient(t, mock.URL())
	_, err := Collect(New(c).All(context.Background(), c.URL("/items"), nil))

	require.Error(t, err)
	assert.True(t, client.IsServerError(err))
	assert.ErrorIs(t, err, client.ErrRetryExhausted)
	assert.Equal(t, 5, mock.RequestCount("/items"))
}

func TestAll_RetriedPageYieldsOnce(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetResponses("/items",
		testutil.NewPageResponse(`[{"id": 1}, {"id": 2}]`, mock.URL()+"/items", mock.URL()+"/items?page=2"),
	)
	mock.SetResponses("/items?page=2",
		testutil.NewRateLimitResponse("1"),
		testutil.NewServerErrorResponse(http.StatusBadGateway),
		testutil.NewPageResponse(`[{"id": 3}]`, mock.URL()+"/items?page=2", ""),
	)

	c := newClient(t, mock.URL())
	records, err := Collect(New(c).All(context.Background(), c.URL("/items"), nil))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(t, records))
}

func TestAll_StopsWhenConsumerStops(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	scriptPages(mock, 4, 2)

	c := newClient(t, mock.URL())

	count := 0
	for _, err := range New(c).All(context.Background(), c.URL("/items"), nil) {
		require.NoError(t, err)
		count++
		if count == 3 {
			break
		}
	}

	assert.Equal(t, 3, count)
	assert.Equal(t, 2, mock.RequestCount("/items"), "only the pages needed were fetched")
}

func TestAll_RestartsOnEachRange(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	scriptPages(mock, 2, 1)

	c := newClient(t, mock.URL())
	seq := New(c).All(context.Background(), c.URL("/items"), nil)

	first, err := Collect(seq)
	require.NoError(t, err)
	second, err := Collect(seq)
	require.NoError(t, err)

	assert.Equal(t, ids(t, first), ids(t, second))
	assert.Equal(t, 4, mock.RequestCount("/items"))
}

type failingFetcher struct{ err error }

func (f failingFetcher) Fetch(context.Context, string, url.Values) (*client.Response, error) {
	return nil, f.err
}

func TestAll_TransportErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := Collect(New(failingFetcher{err: boom}).All(context.Background(), "http://x/items", nil))

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetch page 1")
}

type staticFetcher struct{ resp *client.Response }

func (f staticFetcher) Fetch(context.Context, string, url.Values) (*client.Response, error) {
	return f.resp, nil
}

func TestAll_InvalidJSON(t *testing.T) {
	resp := &client.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(`[{"id":`)}
	_, err := Collect(New(staticFetcher{resp: resp}).All(context.Background(), "http://x/items", nil))
	assert.Error(t, err)

	scalar := &client.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(`42`)}
	_, err = Collect(New(staticFetcher{resp: scalar}).All(context.Background(), "http://x/items", nil))
	assert.ErrorContains(t, err, "unexpected response body type")
}
