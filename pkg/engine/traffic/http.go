package traffic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/geo"
	"github.com/DrSkyle/skybalance/pkg/version"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// HTTPSource queries the ADS-B exchange simulation API.
type HTTPSource struct {
	BaseURL string
	Host    string
	APIKey  string

	Client  *http.Client
	Limiter *rate.Limiter
	// MaxRetries bounds retries of transport errors and 5xx responses.
	MaxRetries int
	// NewBackOff returns the retry schedule for one Fetch.
	NewBackOff func() backoff.BackOff
}

// HTTPOptions configures NewHTTPSource.
type HTTPOptions struct {
	BaseURL    string
	Host       string
	APIKey     string
	Timeout    time.Duration
	RatePerSec float64
	MaxRetries int
}

// NewHTTPSource returns a rate-limited, retrying source.
func NewHTTPSource(o HTTPOptions) *HTTPSource {
	limit := rate.Inf
	if o.RatePerSec > 0 {
		limit = rate.Limit(o.RatePerSec)
	}
	return &HTTPSource{
		BaseURL:    strings.TrimRight(o.BaseURL, "/"),
		Host:       o.Host,
		APIKey:     o.APIKey,
		Client:     &http.Client{Timeout: o.Timeout},
		Limiter:    rate.NewLimiter(limit, 1),
		MaxRetries: o.MaxRetries,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

func (s *HTTPSource) Name() string { return "adsbx" }

// Fetch lists the aircraft within radius of the facility.
func (s *HTTPSource) Fetch(ctx context.Context, f airspace.Facility, radius int) ([]Sighting, error) {
	url := fmt.Sprintf("%s/api/aircraft/json/lat/%s/lon/%s/dist/%d/",
		s.BaseURL,
		strconv.FormatFloat(f.Position.X, 'f', -1, 64),
		strconv.FormatFloat(f.Position.Y, 'f', -1, 64),
		radius)

	var body []byte
	op := func() error {
		if err := s.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		var err error
		body, err = s.get(ctx, url)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.NewBackOff(), uint64(max(s.MaxRetries, 0))), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return decodeAircraft(body)
}

func (s *HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("X-RapidAPI-Key", s.APIKey)
	req.Header.Set("X-RapidAPI-Host", s.Host)
	req.Header.Set("User-Agent", version.AppName+"/"+version.Current)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrThrottled, resp.Status))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("upstream error: %s", resp.Status)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("request rejected: %s: %s", resp.Status, bytes.TrimSpace(data)))
	}
	return data, nil
}

// coord accepts a JSON number, a numeric string or null. Anything else
// leaves ok unset so the aircraft is dropped without failing the response.
type coord struct {
	v  float64
	ok bool
}

func (c *coord) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.v, c.ok = 0, false
		return nil
	}
	c.v, c.ok = v, true
	return nil
}

type aircraftResponse struct {
	AC []struct {
		ICAO string `json:"icao"`
		Lat  coord  `json:"lat"`
		Lon  coord  `json:"lon"`
	} `json:"ac"`
}

func decodeAircraft(body []byte) ([]Sighting, error) {
	var resp aircraftResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode aircraft response: %w", err)
	}
	out := make([]Sighting, 0, len(resp.AC))
	for _, ac := range resp.AC {
		ac.ICAO = strings.TrimSpace(ac.ICAO)
		if ac.ICAO == "" || !ac.Lat.ok || !ac.Lon.ok {
			continue
		}
		out = append(out, Sighting{
			Entity:   ac.ICAO,
			Position: geo.Point{X: ac.Lat.v, Y: ac.Lon.v},
		})
	}
	return out, nil
}
