package traffic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine/swarm"
	"github.com/DrSkyle/skybalance/pkg/geo"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSource(url string) *HTTPSource {
	s := NewHTTPSource(HTTPOptions{BaseURL: url + "/", Host: "example.test", APIKey: "secret", Timeout: time.Second, MaxRetries: 2})
	s.NewBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return s
}

var cdg = airspace.Facility{Name: "CDG", Position: geo.Point{X: 49.0097, Y: 2.5479}}

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/aircraft/json/lat/49.0097/lon/2.5479/dist/25/", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "example.test", r.Header.Get("X-RapidAPI-Host"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ac":[
			{"icao":"3C6444","lat":49.1,"lon":2.6},
			{"icao":"39856f","lat":"48.95","lon":"2.41"},
			{"icao":"","lat":1,"lon":1},
			{"icao":"4ca7b5","lat":null,"lon":2},
			{"icao":"4ca7b6","lat":"","lon":2}
		],"total":5}`))
	}))
	defer srv.Close()

	got, err := testSource(srv.URL).Fetch(context.Background(), cdg, 25)
	require.NoError(t, err)
	assert.Equal(t, []Sighting{
		{Entity: "3C6444", Position: geo.Point{X: 49.1, Y: 2.6}},
		{Entity: "39856f", Position: geo.Point{X: 48.95, Y: 2.41}},
	}, got)
}

func TestHTTPSourceEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ac":null}`))
	}))
	defer srv.Close()

	got, err := testSource(srv.URL).Fetch(context.Background(), cdg, 25)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ac":[{"icao":"abc","lat":1,"lon":2}]}`))
	}))
	defer srv.Close()

	got, err := testSource(srv.URL).Fetch(context.Background(), cdg, 25)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPSourceGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testSource(srv.URL).Fetch(context.Background(), cdg, 25)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPSourceDoesNotRetryClientErrors(t *testing.T) {
	for _, tc := range []struct {
		status    int
		throttled bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusForbidden, false},
	} {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(tc.status)
		}))

		_, err := testSource(srv.URL).Fetch(context.Background(), cdg, 25)
		srv.Close()

		require.Error(t, err)
		assert.Equal(t, tc.throttled, errors.Is(err, ErrThrottled))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	}
}

func TestHTTPSourceMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ac":[{"icao":"x","lat":1,`))
	}))
	defer srv.Close()

	_, err := testSource(srv.URL).Fetch(context.Background(), cdg, 25)
	assert.Error(t, err)
}

func TestHTTPSourceSkipsUnparsableCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ac":[
			{"icao":"bad1","lat":"north","lon":1},
			{"icao":"bad2","lat":49,"lon":"abc"},
			{"icao":"good","lat":"49.2","lon":2.5}
		]}`))
	}))
	defer srv.Close()

	got, err := testSource(srv.URL).Fetch(context.Background(), cdg, 25)
	require.NoError(t, err)
	assert.Equal(t, []Sighting{{Entity: "good", Position: geo.Point{X: 49.2, Y: 2.5}}}, got)
}

func TestMockSourceIsDeterministic(t *testing.T) {
	fs := []airspace.Facility{
		{Name: "A", Position: geo.Point{X: 0, Y: 0}},
		{Name: "B", Position: geo.Point{X: 5, Y: 5}},
		{Name: "C", Position: geo.Point{X: 10, Y: 0}},
	}
	a := NewMockSource(fs, 4, 25, 7)
	b := NewMockSource(fs, 4, 25, 7)
	assert.Equal(t, a.Fleet, b.Fleet)
	assert.Len(t, a.Fleet, 0+4+8)

	got, err := a.Fetch(context.Background(), fs[2], 25)
	require.NoError(t, err)
	assert.Len(t, got, 8)

	got, err = a.Fetch(context.Background(), fs[0], 25)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMockSourceEntitiesAreUnique(t *testing.T) {
	var fs []airspace.Facility
	for i := 0; i < 40; i++ {
		fs = append(fs, airspace.Facility{Name: fmt.Sprintf("F%d", i), Position: geo.Point{X: float64(i), Y: 0}})
	}
	src := NewMockSource(fs, 200, 25, 3)

	seen := make(map[string]bool, len(src.Fleet))
	for _, s := range src.Fleet {
		require.False(t, seen[s.Entity], "duplicate entity %s", s.Entity)
		seen[s.Entity] = true
	}
	assert.Len(t, seen, 10*(0+200+400+600))
}

func TestCollectorKeepsRegistryOrder(t *testing.T) {
	fs := []airspace.Facility{
		{Name: "A", Position: geo.Point{X: 0, Y: 0}},
		{Name: "B", Position: geo.Point{X: 0.1, Y: 0}},
		{Name: "C", Position: geo.Point{X: 5, Y: 5}},
		{Name: "D", Position: geo.Point{X: 9, Y: 9}},
	}
	src := NewMockSource(fs, 3, 25, 1)
	boom := errors.New("boom")
	src.Fail = func(f airspace.Facility) error {
		if f.Name == "C" {
			return boom
		}
		return nil
	}

	c := NewCollector(src, swarm.NewEngine(4), 25, nil)
	results := c.Collect(context.Background(), fs)
	require.Len(t, results, 4)
	for i, f := range fs {
		assert.Equal(t, f.Name, results[i].Facility)
	}
	assert.ErrorIs(t, results[2].Err, boom)

	obs, failed := Fold(results)
	assert.Equal(t, []string{"C"}, failed)
	for _, o := range obs {
		assert.NotEqual(t, "C", o.Facility)
	}

	count := map[string]int{}
	for _, o := range obs {
		count[o.Facility]++
	}
	assert.Equal(t, 3, count["B"])
	assert.Equal(t, 9, count["D"])
	assert.LessOrEqual(t, count["A"], 3, "A only sees B's overlapping cluster")
}

func TestReplaySource(t *testing.T) {
	src := NewReplay([]airspace.Observation{
		{Facility: "A", Entity: "x", Position: geo.Point{X: 1, Y: 1}},
		{Facility: "B", Entity: "y"},
		{Facility: "A", Entity: "z"},
	})
	got, err := src.Fetch(context.Background(), airspace.Facility{Name: "A", Position: geo.Point{X: 50, Y: 50}}, 25)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "x", got[0].Entity)
	assert.Equal(t, "z", got[1].Entity)
}
