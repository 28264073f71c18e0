package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"livingcost/internal/basket"
	"livingcost/internal/core"
	"livingcost/internal/log"
	"livingcost/internal/prices"
	"livingcost/internal/prices/memory"
	"livingcost/internal/services"
)

type fakeLocations struct {
	names []string
	err   error
}

func (f fakeLocations) Locations(context.Context) ([]string, error) { return f.names, f.err }

type fakeEstimator struct {
	err     error
	lastReq services.EstimateRequest
}

func (f *fakeEstimator) Estimate(_ context.Context, req services.EstimateRequest) (services.EstimateResult, error) {
	f.lastReq = req
	if f.err != nil {
		return services.EstimateResult{}, f.err
	}
	return services.EstimateResult{Profile: req.Profile}, nil
}

func (f *fakeEstimator) RecommendIncome(_ context.Context, cost float64, a core.IncomeAssumptions) (core.IncomeRecommendation, error) {
	if f.err != nil {
		return core.IncomeRecommendation{}, f.err
	}
	return core.RecommendIncome(cost, a)
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: &bytes.Buffer{}})
}

// newTestServer wires the real service over an in-memory price table.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	primary := memory.New([]prices.Entry{
		{Location: "New Jersey", Value: 108.9},
		{Location: "Averageland", Value: 100},
	})
	resolver := prices.NewResolver(primary, memory.New(nil), nil, nil)
	svc := services.NewEstimateService(resolver, basket.NewProvider(""), quietLogger())
	srv, err := NewServer(Options{
		Addr:      ":0",
		Estimator: svc,
		Locations: resolver,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func do(srv *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

const formType = "application/x-www-form-urlencoded"

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Cost of Living Estimator", `value="New Jersey"`, `<option value="Averageland">`, `value="15"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("security headers not applied")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("request id not set")
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := do(srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if rr := do(srv, http.MethodGet, "/nope", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestEstimatePartial(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/estimate", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	rr = do(srv, http.MethodPost, "/estimate", formType, "state=Averageland&adults=1&include_income=on")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Housing", "$1,500", "$2,950", "$35,400", "100.0", "Recommended income"} {
		if !strings.Contains(body, want) {
			t.Errorf("estimate body missing %q", want)
		}
	}
	if trig := rr.Header().Get("HX-Trigger"); !strings.Contains(trig, `"estimate:computed"`) {
		t.Errorf("missing estimate trigger: %q", trig)
	}
}

func TestEstimatePartialErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"unknown state", "state=Atlantis", http.StatusNotFound, "Try a full name (e.g., &#39;New Jersey&#39;)"},
		{"other country", "country=Other+(coming+soon)&state=Averageland", http.StatusUnprocessableEntity, "coming soon"},
		{"too many adults", "state=Averageland&adults=9", http.StatusUnprocessableEntity, "adults"},
		{"bad option", "state=Averageland&bedrooms=Castle", http.StatusUnprocessableEntity, "bedrooms"},
		{"empty state", "state=", http.StatusUnprocessableEntity, "empty state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/estimate", formType, tt.body)
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Fatalf("body %q missing %q", rr.Body.String(), tt.want)
			}
		})
	}
}

func TestIncomePartial(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodPost, "/income", formType, "monthly_cost=%242%2C950&savings_pct=15&tax_pct=22&buffer_pct=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	// 2950 * 1.05 / 0.85 / 0.78 = 4671.945701...
	if !strings.Contains(rr.Body.String(), "$4,671.95") {
		t.Fatalf("gross monthly missing: %s", rr.Body.String())
	}

	rr = do(srv, http.MethodPost, "/income", formType, "monthly_cost=abc")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestAPIEstimate(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodPost, "/api/v1/estimate", "application/json",
		`{"state":"jersey","adults":2,"kids":1,"income":{"savings_rate":0.1}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp apiEstimateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Location.Location != "New Jersey" || resp.Location.Match != prices.MatchSubstring {
		t.Errorf("unexpected resolution %+v", resp.Location)
	}
	if len(resp.Lines) != 9 {
		t.Errorf("expected 9 lines, got %d", len(resp.Lines))
	}
	if resp.AnnualTotal != resp.MonthlyTotal*12 {
		t.Errorf("annual %v != 12 x monthly %v", resp.AnnualTotal, resp.MonthlyTotal)
	}
	if resp.Income == nil || resp.Income.GrossMonthly <= resp.MonthlyTotal {
		t.Errorf("expected income recommendation above total, got %+v", resp.Income)
	}
}

func TestAPIEstimateErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"not json", "state=Averageland", http.StatusBadRequest},
		{"missing state", `{}`, http.StatusUnprocessableEntity},
		{"kids out of range", `{"state":"Averageland","kids":7}`, http.StatusUnprocessableEntity},
		{"bad enum", `{"state":"Averageland","travel":"Always"}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"state":"Averageland","pets":2}`, http.StatusUnprocessableEntity},
		{"rate above one", `{"state":"Averageland","income":{"buffer":1.5}}`, http.StatusUnprocessableEntity},
		{"unresolved", `{"state":"Atlantis"}`, http.StatusNotFound},
		{"unsupported country", `{"state":"Ontario","country":"Canada"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/api/v1/estimate", "application/json", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rr.Code, rr.Body.String())
			}
			var e errorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil || e.Error == "" {
				t.Fatalf("expected JSON error body, got %s", rr.Body.String())
			}
		})
	}
}

func TestAPIIncome(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodPost, "/api/v1/income", "application/json", `{"monthly_cost":2950}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rec core.IncomeRecommendation
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := 2950 * 1.05 / 0.85 / 0.78
	if diff := rec.GrossMonthly - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("gross monthly = %v, want %v", rec.GrossMonthly, want)
	}

	rr = do(srv, http.MethodPost, "/api/v1/income", "application/json", `{"monthly_cost":-1}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestIncomeRejectsNonFiniteInput(t *testing.T) {
	srv := newTestServer(t)

	forms := []struct {
		path string
		body string
	}{
		{"/income", "monthly_cost=2950&savings_pct=NaN&tax_pct=22&buffer_pct=5"},
		{"/estimate", "state=Averageland&include_income=on&tax_pct=NaN"},
		{"/estimate", "state=Averageland&include_income=on&buffer_pct=NaN"},
	}
	for _, f := range forms {
		rr := do(srv, http.MethodPost, f.path, formType, f.body)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s %s: expected 422, got %d", f.path, f.body, rr.Code)
		}
		if strings.Contains(rr.Body.String(), "$0.00") {
			t.Errorf("%s %s: rendered a zero income: %s", f.path, f.body, rr.Body.String())
		}
	}

	rr := do(srv, http.MethodPost, "/api/v1/income", "application/json",
		`{"monthly_cost":1e308,"savings_rate":0.5,"effective_tax_rate":0.5,"buffer":0.5}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for an unbounded cost, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "monthly_cost") {
		t.Errorf("expected a schema problem naming monthly_cost, got %q", rr.Body.String())
	}
}

func TestInvalidRateMapsTo500(t *testing.T) {
	est := &fakeEstimator{err: core.ErrInvalidRate}
	srv, err := NewServer(Options{Estimator: est, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	rr := do(srv, http.MethodPost, "/api/v1/income", "application/json", `{"monthly_cost":100}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestLocationsAndReadiness(t *testing.T) {
	est := &fakeEstimator{}
	srv, err := NewServer(Options{
		Estimator: est,
		Locations: fakeLocations{names: []string{"Alabama", "Alaska"}},
		Logger:    quietLogger(),
		ReadyChecks: map[string]ReadyCheck{
			"sqlite": func(context.Context) error { return errors.New("locked") },
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	rr := do(srv, http.MethodGet, "/api/v1/locations", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Alaska") {
		t.Fatalf("locations: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(srv, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "failed: locked") {
		t.Fatalf("readyz: %d %s", rr.Code, rr.Body.String())
	}
}

func TestLocationsUnavailable(t *testing.T) {
	srv, err := NewServer(Options{
		Estimator: &fakeEstimator{},
		Locations: fakeLocations{err: errors.New("down")},
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rr := do(srv, http.MethodGet, "/api/v1/locations", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	// The form still renders without suggestions.
	if rr := do(srv, http.MethodGet, "/", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestPostRateLimit(t *testing.T) {
	srv, err := NewServer(Options{Estimator: &fakeEstimator{}, Logger: quietLogger(), RateLimitPerMinute: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodPost, "/api/v1/income", "application/json", `{"monthly_cost":1}`); rr.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i+1, rr.Code)
		}
	}
	if rr := do(srv, http.MethodPost, "/api/v1/income", "application/json", `{"monthly_cost":1}`); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if srv.RateLimiter().ActiveClients() != 1 {
		t.Fatalf("expected one tracked client")
	}
}

func TestNewServerRequiresEstimator(t *testing.T) {
	if _, err := NewServer(Options{}); err == nil {
		t.Fatal("expected error without estimator")
	}
}
