// Package calendar reads busy and business-day events from the availability
// endpoint that fronts the store's calendar.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tenantbook/reservations/services/availability-service/internal/availability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUpstream wraps every failure to obtain a usable event list.
var ErrUpstream = errors.New("availability source error")

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
	queryLayout    = "2006-01-02T15:04:05.000Z"
)

type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	endpoint *url.URL
	http     *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid availability url %q", cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type wireEvent struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// FetchEvents requests the events between start and end. A non-200 status or
// a payload that is not a JSON array of well-formed events is an error; no
// partial list is returned.
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) ([]availability.Event, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("startTime", start.UTC().Format(queryLayout))
	q.Set("endTime", end.UTC().Format(queryLayout))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return DecodeEvents(body)
}

// DecodeEvents parses an availability payload. The title falls back to the
// summary field when absent.
func DecodeEvents(body []byte) ([]availability.Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: payload is not an array", ErrUpstream)
	}

	var raw []wireEvent
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}

	events := make([]availability.Event, 0, len(raw))
	for i, w := range raw {
		start, err := time.Parse(time.RFC3339, w.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d startTime %q", ErrUpstream, i, w.StartTime)
		}
		end, err := time.Parse(time.RFC3339, w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d endTime %q", ErrUpstream, i, w.EndTime)
		}
		title := w.Title
		if title == "" {
			title = w.Summary
		}
		events = append(events, availability.Event{Title: title, Start: start, End: end})
	}
	return events, nil
}

// Registry hands out one Client per endpoint URL, with a default endpoint
// for stores that do not override it.
type Registry struct {
	def     *Client
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]*Client
}

func NewRegistry(def Config) (*Registry, error) {
	c, err := NewClient(def)
	if err != nil {
		return nil, err
	}
	return &Registry{def: c, timeout: def.Timeout, clients: map[string]*Client{}}, nil
}

// For returns the client for rawURL, or the default client when rawURL is empty.
func (r *Registry) For(rawURL string) (*Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return r.def, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[rawURL]; ok {
		return c, nil
	}
	c, err := NewClient(Config{URL: rawURL, Timeout: r.timeout})
	if err != nil {
		return nil, err
	}
	r.clients[rawURL] = c
	return c, nil
}
