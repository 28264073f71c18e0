package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"livingcost/internal/core"
	"livingcost/internal/log"
	"livingcost/internal/services"
)

const (
	locationsTimeout = 5 * time.Second
	readyTimeout     = 10 * time.Second
)

// errorStatus maps a service error to an HTTP status and a message safe to
// show to the user.
func errorStatus(err error, location string) (int, string) {
	var schemaErr *SchemaError
	switch {
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, schemaErr.Error()
	case errors.Is(err, core.ErrUnresolvedLocation):
		return http.StatusNotFound, fmt.Sprintf("Could not resolve a price index for %q. Try a full name (e.g., 'New Jersey').", location)
	case errors.Is(err, core.ErrUnsupportedCountry):
		return http.StatusUnprocessableEntity, "Only the United States (state level) is supported for now."
	case errors.Is(err, core.ErrInvalidRate):
		return http.StatusInternalServerError, "The income assumptions cannot be satisfied."
	case errors.Is(err, core.ErrInvalidAdults),
		errors.Is(err, core.ErrInvalidKids),
		errors.Is(err, core.ErrInvalidCars),
		errors.Is(err, core.ErrEmptyState),
		errors.Is(err, core.ErrInvalidOption),
		errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "Something went wrong while computing the estimate."
	}
}

func (s *Server) logFailure(ctx context.Context, status int, msg string, err error, op string) {
	if status >= http.StatusInternalServerError {
		s.events.LogError(ctx, msg, err, log.ComponentHTTP, op, nil)
		return
	}
	log.FromContext(ctx).WarnContext(ctx, msg, log.FieldError, err.Error(), log.FieldOperation, op)
}

func (s *Server) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var names []string
	if s.locations != nil {
		ctx, cancel := context.WithTimeout(r.Context(), locationsTimeout)
		defer cancel()
		var err error
		if names, err = s.locations.Locations(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Location list unavailable", log.FieldError, err.Error())
		}
	}

	body, err := s.render("index.html", newIndexView(names))
	if err != nil {
		s.events.LogError(r.Context(), "Index render failed", err, log.ComponentTemplate, log.OpRender, nil)
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// handleEstimate renders the breakdown partial for the estimator form.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError(http.MethodPost).Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Malformed request").Write(w)
		return
	}

	country := p.Get("country")
	if country != "" && !core.IsSupportedCountry(country) {
		// Matches the form: other countries are announced, not errors.
		ErrorResponse(http.StatusUnprocessableEntity,
			"Only the United States (state level) is supported for now. Other countries are coming soon.").
			TriggerWarningNotification("Unsupported country").
			Write(w)
		return
	}

	profile, err := ParseProfile(p)
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}
	req := services.EstimateRequest{Country: country, Profile: profile}
	var assumptions *core.IncomeAssumptions
	if boolField(p, "include_income") {
		a, err := ParsePercentAssumptions(p)
		if err != nil {
			ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
			return
		}
		assumptions = &a
		req.Assumptions = &a
	}

	res, err := s.estimator.Estimate(r.Context(), req)
	if err != nil {
		status, msg := errorStatus(err, profile.State)
		s.logFailure(r.Context(), status, "Estimate failed", err, log.OpEstimate)
		ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
		return
	}

	body, err := s.render("estimate.html", newEstimateView(res, assumptions))
	if err != nil {
		s.events.LogError(r.Context(), "Estimate render failed", err, log.ComponentTemplate, log.OpRender, nil)
		ErrorResponse(http.StatusInternalServerError, "Could not render the estimate").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerEstimateComputed(res.Resolution.Location, res.Breakdown.Total).
		BodyHTML(body).
		Write(w)
}

// handleIncome renders the income partial for a typed monthly cost.
func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError(http.MethodPost).Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Malformed request").Write(w)
		return
	}

	cost, err := ParseMonthlyCost(p)
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, "Enter a monthly cost such as 2,950.00").Write(w)
		return
	}
	a, err := ParsePercentAssumptions(p)
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}

	rec, err := s.estimator.RecommendIncome(r.Context(), cost, a)
	if err != nil {
		status, msg := errorStatus(err, "")
		s.logFailure(r.Context(), status, "Income recommendation failed", err, log.OpRecommend)
		ErrorResponse(status, msg).Write(w)
		return
	}

	body, err := s.render("income.html", incomeView{MonthlyCost: cost, Assumptions: a, Recommendation: rec})
	if err != nil {
		s.events.LogError(r.Context(), "Income render failed", err, log.ComponentTemplate, log.OpRender, nil)
		ErrorResponse(http.StatusInternalServerError, "Could not render the recommendation").Write(w)
		return
	}
	NewHTMXResponse().TriggerIncomeComputed(rec.GrossMonthly).BodyHTML(body).Write(w)
}

func (s *Server) handleAPIEstimate(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil || !p.IsJSON() {
		writeJSONError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	if err := validate(s.schemas.estimate, p.Raw()); err != nil {
		var schemaErr *SchemaError
		errors.As(err, &schemaErr)
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid request", schemaErr.Problems...)
		return
	}

	body := defaultAPIEstimateRequest()
	if err := json.Unmarshal(p.Raw(), &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	res, err := s.estimator.Estimate(r.Context(), body.toService())
	if err != nil {
		status, msg := errorStatus(err, body.State)
		s.logFailure(r.Context(), status, "API estimate failed", err, log.OpEstimate)
		writeJSONError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, newAPIEstimateResponse(res))
}

func (s *Server) handleAPIIncome(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil || !p.IsJSON() {
		writeJSONError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	if err := validate(s.schemas.income, p.Raw()); err != nil {
		var schemaErr *SchemaError
		errors.As(err, &schemaErr)
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid request", schemaErr.Problems...)
		return
	}

	var body apiIncomeRequest
	if err := json.Unmarshal(p.Raw(), &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	rec, err := s.estimator.RecommendIncome(r.Context(), body.MonthlyCost, body.assumptions())
	if err != nil {
		status, msg := errorStatus(err, "")
		s.logFailure(r.Context(), status, "API income recommendation failed", err, log.OpRecommend)
		writeJSONError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		writeJSON(w, http.StatusOK, map[string][]string{"locations": {}})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), locationsTimeout)
	defer cancel()

	names, err := s.locations.Locations(ctx)
	if err != nil {
		s.events.LogError(r.Context(), "Location list failed", err, log.ComponentPrices, log.OpList, nil)
		writeJSONError(w, http.StatusServiceUnavailable, "price table unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"locations": names})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every registered check and reports 503 if any fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok"}

	names := make([]string, 0, len(s.readyChecks))
	for name := range s.readyChecks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.readyChecks[name](ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"checks":         checks,
		"active_clients": s.rateLimiter.ActiveClients(),
	})
}
