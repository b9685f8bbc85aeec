package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tenantbook/reservations/libs/httpx"
	"github.com/tenantbook/reservations/services/availability-service/internal/availability"
	"github.com/tenantbook/reservations/services/availability-service/internal/calendar"
	"github.com/tenantbook/reservations/services/availability-service/internal/menu"
	"github.com/tenantbook/reservations/services/availability-service/internal/reservations"
	"github.com/tenantbook/reservations/services/availability-service/internal/tenant"
	"golang.org/x/crypto/bcrypt"
)

var jst = time.FixedZone("JST", 9*60*60)

type memStore map[string]tenant.StoreConfig

func (m memStore) Get(_ context.Context, id string) (tenant.StoreConfig, error) {
	cfg, ok := m[id]
	if !ok {
		return tenant.StoreConfig{}, tenant.ErrNotFound
	}
	return cfg, nil
}

func (m memStore) Put(_ context.Context, cfg tenant.StoreConfig) error {
	if err := tenant.Validate(cfg); err != nil {
		return err
	}
	m[cfg.ID] = cfg
	return nil
}

func (m memStore) List(context.Context) ([]string, error) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids, nil
}

// openDays reports a 09:00-18:00 business window on every day requested.
type openDays struct {
	err error
}

func (f openDays) FetchEvents(_ context.Context, start, end time.Time) ([]availability.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var events []availability.Event
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		events = append(events, availability.Event{
			Title: "営業日",
			Start: time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, jst),
			End:   time.Date(d.Year(), d.Month(), d.Day(), 18, 0, 0, 0, jst),
		})
	}
	return events, nil
}

func testStore() tenant.StoreConfig {
	return tenant.StoreConfig{
		ID:   "salon-a",
		Name: "Salon A",
		Menu: menu.Config{
			Menus:       []menu.Item{{Name: "カット", Minutes: 60}},
			Options:     []menu.Item{{Name: "ヘッドスパ", Minutes: 30}},
			VisitAdjust: menu.VisitAdjust{First: 30, Repeat: 0},
		},
		Rules: tenant.Rules{LastAcceptableEnd: "18:00"},
	}
}

func newTestServer(t *testing.T, fetcher availability.Fetcher) (*httptest.Server, memStore) {
	t.Helper()
	stores := memStore{"salon-a": testStore()}
	return newServerWithStore(t, stores, fetcher), stores
}

func newServerWithStore(t *testing.T, stores tenant.Store, fetcher availability.Fetcher) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := reservations.NewService(stores,
		func(tenant.StoreConfig) (availability.Fetcher, error) { return fetcher, nil },
		reservations.NewLogPublisher(logger),
		logger,
		reservations.Config{DefaultLocation: jst},
	)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	mux := http.NewServeMux()
	Register(mux, NewAvailabilityHandler(svc, logger), NewAdminHandler(stores, logger),
		httpx.WithBasicAuth("admin", "admin", string(hash)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWeekReturnsSevenDays(t *testing.T) {
	srv, _ := newTestServer(t, openDays{})

	q := url.Values{"start": {"2031-03-03"}, "menu": {"カット"}}
	resp, err := http.Get(srv.URL + "/api/v1/public/stores/salon-a/availability?" + q.Encode())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var wk reservations.Week
	if err := json.NewDecoder(resp.Body).Decode(&wk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wk.TotalMinutes != 60 {
		t.Fatalf("expected 60 minutes, got %d", wk.TotalMinutes)
	}
	if len(wk.Days) != availability.DaysInPeriod {
		t.Fatalf("expected 7 days, got %d", len(wk.Days))
	}
	if wk.Days[0].DateISO != "2031-03-03T00:00:00.000Z" {
		t.Fatalf("unexpected first date %q", wk.Days[0].DateISO)
	}
	times := wk.Days[0].AvailableTimes
	if len(times) != 17 || times[0] != "09:00" || times[len(times)-1] != "17:00" {
		t.Fatalf("unexpected times %v", times)
	}
}

func TestWeekErrors(t *testing.T) {
	cases := []struct {
		name    string
		fetcher availability.Fetcher
		path    string
		status  int
	}{
		{"unknown store", openDays{}, "/api/v1/public/stores/nope/availability", http.StatusNotFound},
		{"bad start", openDays{}, "/api/v1/public/stores/salon-a/availability?start=tomorrow", http.StatusBadRequest},
		{"upstream", openDays{err: fmt.Errorf("%w: status 500", calendar.ErrUpstream)}, "/api/v1/public/stores/salon-a/availability", http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tc.fetcher)
			resp, err := http.Get(srv.URL + tc.path)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Fatalf("expected error body, got %v (%v)", body, err)
			}
		})
	}
}

func TestWeekMalformedStoredConfigIsServerError(t *testing.T) {
	dir := t.TempDir()
	doc := "name: Salon B\nrules:\n  lastAcceptableEnd: \"5pm\"\n"
	if err := os.WriteFile(filepath.Join(dir, "salon-b.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stores, err := tenant.NewFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	srv := newServerWithStore(t, stores, openDays{})

	resp, err := http.Get(srv.URL + "/api/v1/public/stores/salon-b/availability?start=2031-03-03")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestWeekMalformedCutoffFromAnyStoreIsServerError(t *testing.T) {
	cfg := testStore()
	cfg.Rules.LastAcceptableEnd = "5pm"
	srv := newServerWithStore(t, memStore{"salon-a": cfg}, openDays{})

	resp, err := http.Get(srv.URL + "/api/v1/public/stores/salon-a/availability?start=2031-03-03")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestDurationRepeatedMenuCountsOnce(t *testing.T) {
	srv, _ := newTestServer(t, openDays{})

	q := url.Values{"menu": {"カット", "カット"}}
	resp, err := http.Get(srv.URL + "/api/v1/public/stores/salon-a/duration?" + q.Encode())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var got durationResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalMinutes != 60 {
		t.Fatalf("expected 60 minutes, got %d", got.TotalMinutes)
	}
}

func TestDurationReportsUnmatched(t *testing.T) {
	srv, _ := newTestServer(t, openDays{})

	q := url.Values{
		"visit":  {menu.VisitFirst},
		"menu":   {"カット"},
		"option": {"ヘッドスパ", "unknown"},
	}
	resp, err := http.Get(srv.URL + "/api/v1/public/stores/salon-a/duration?" + q.Encode())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var got durationResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalMinutes != 120 {
		t.Fatalf("expected 120 minutes, got %d", got.TotalMinutes)
	}
	if len(got.Unmatched) != 1 || got.Unmatched[0] != "unknown" {
		t.Fatalf("unexpected unmatched %v", got.Unmatched)
	}
}

func TestPublicConfig(t *testing.T) {
	srv, _ := newTestServer(t, openDays{})

	resp, err := http.Get(srv.URL + "/api/v1/public/stores/salon-a/config")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var got publicConfigResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.StoreID != "salon-a" || len(got.Menus) != 1 || len(got.SlotStarts) != 18 {
		t.Fatalf("unexpected config %+v", got)
	}
}

func postReservation(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/public/stores/salon-a/reservations", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateReservation(t *testing.T) {
	srv, _ := newTestServer(t, openDays{})

	resp := postReservation(t, srv, `{"name":"山田","phone":"090-0000-0000","menus":["カット"],"start_time":"2031-03-03T10:00:00+09:00"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var got createReservationResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ReservationID == "" || got.TotalMinutes != 60 {
		t.Fatalf("unexpected response %+v", got)
	}
	if got.EndTime != "2031-03-03T11:00:00+09:00" {
		t.Fatalf("unexpected end time %q", got.EndTime)
	}
}

func TestCreateReservationRejects(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing contact", `{"name":"山田","menus":["カット"],"start_time":"2031-03-03T10:00:00+09:00"}`, http.StatusBadRequest},
		{"past cutoff", `{"name":"山田","phone":"1","menus":["カット"],"start_time":"2031-03-03T17:30:00+09:00"}`, http.StatusUnprocessableEntity},
		{"off grid", `{"name":"山田","phone":"1","menus":["カット"],"start_time":"2031-03-03T10:15:00+09:00"}`, http.StatusUnprocessableEntity},
		{"fractional seconds", `{"name":"山田","phone":"1","menus":["カット"],"start_time":"2031-03-03T10:00:00.5+09:00"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, openDays{})
			if resp := postReservation(t, srv, tc.body); resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func adminRequest(t *testing.T, method, target, body string, auth bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if auth {
		req.SetBasicAuth("admin", "secret")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAdminRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, openDays{})

	resp := adminRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/stores", "", false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp = adminRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/stores", "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAdminPutConfig(t *testing.T) {
	srv, stores := newTestServer(t, openDays{})
	target := srv.URL + "/api/v1/admin/stores/salon-b/config"

	body := `{"name":"Salon B","menu":{"menus":[{"name":"カラー","minutes":90}]},"rules":{"lastAcceptableEnd":"19:00"}}`
	if resp := adminRequest(t, http.MethodPut, target, body, true); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if got := stores["salon-b"]; got.Name != "Salon B" || got.Rules.LastAcceptableEnd != "19:00" {
		t.Fatalf("config not stored: %+v", got)
	}

	mismatch := `{"id":"other","name":"Salon B","rules":{"lastAcceptableEnd":"19:00"}}`
	if resp := adminRequest(t, http.MethodPut, target, mismatch, true); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for id mismatch, got %d", resp.StatusCode)
	}

	invalid := `{"name":"Salon B","rules":{"lastAcceptableEnd":"25:00"}}`
	if resp := adminRequest(t, http.MethodPut, target, invalid, true); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid config, got %d", resp.StatusCode)
	}
}
