// Package http serves the estimator form, its HTMX partials and the JSON
// API.
//
// This file turns form and JSON bodies into household profiles and income
// assumptions.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"livingcost/internal/core"
)

// Bounds of the estimator form. The JSON schema enforces the same limits.
const (
	maxAdults = 6
	maxKids   = 6
	maxCars   = 4

	maxBodyBytes = 64 << 10
)

// RequestBodyParser reads a body once and serves values from it whether it
// was sent as JSON or form-encoded.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. Bodies starting with '{' are JSON.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns the trimmed, sanitized value for key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if v, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(v))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	_, ok := p.formData[key]
	return ok
}

func (p *RequestBodyParser) Raw() []byte {
	return p.body
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseProfile builds a household profile from the estimator form. Missing
// fields keep the form defaults.
func ParseProfile(p *RequestBodyParser) (core.HouseholdProfile, error) {
	prof := core.DefaultProfile()
	if p.Has("state") {
		prof.State = p.Get("state")
	}

	var err error
	if prof.Adults, err = intField(p, "adults", prof.Adults, 1, maxAdults, core.ErrInvalidAdults); err != nil {
		return prof, err
	}
	if prof.Kids, err = intField(p, "kids", prof.Kids, 0, maxKids, core.ErrInvalidKids); err != nil {
		return prof, err
	}
	if prof.Cars, err = intField(p, "cars", prof.Cars, 0, maxCars, core.ErrInvalidCars); err != nil {
		return prof, err
	}

	if prof.HousingMode, err = optionField(p, "housing_mode", prof.HousingMode, core.ParseHousingMode); err != nil {
		return prof, err
	}
	if prof.Bedrooms, err = optionField(p, "bedrooms", prof.Bedrooms, core.ParseBedrooms); err != nil {
		return prof, err
	}
	if prof.Transit, err = optionField(p, "transit", prof.Transit, core.ParseLevel); err != nil {
		return prof, err
	}
	if prof.Groceries, err = optionField(p, "groceries", prof.Groceries, core.ParseGroceryStyle); err != nil {
		return prof, err
	}
	if prof.DiningOut, err = optionField(p, "dining_out", prof.DiningOut, core.ParseLevel); err != nil {
		return prof, err
	}
	if prof.Insurance, err = optionField(p, "insurance", prof.Insurance, core.ParseInsuranceLevel); err != nil {
		return prof, err
	}
	if prof.Entertainment, err = optionField(p, "entertainment", prof.Entertainment, core.ParseLevel); err != nil {
		return prof, err
	}
	if prof.Travel, err = optionField(p, "travel", prof.Travel, core.ParseTravelLevel); err != nil {
		return prof, err
	}

	prof.PremiumArea = boolField(p, "premium_area")
	prof.Gym = boolField(p, "gym")
	return prof, nil
}

// ParsePercentAssumptions reads the income form, whose rates are typed as
// percentages. Missing fields keep the defaults.
func ParsePercentAssumptions(p *RequestBodyParser) (core.IncomeAssumptions, error) {
	a := core.DefaultIncomeAssumptions()
	fields := []struct {
		key string
		dst *float64
	}{
		{"savings_pct", &a.SavingsRate},
		{"tax_pct", &a.EffectiveTaxRate},
		{"buffer_pct", &a.Buffer},
	}
	for _, f := range fields {
		v := p.Get(f.key)
		if v == "" {
			continue
		}
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil || !(pct >= 0 && pct <= 100) {
			return a, fmt.Errorf("%w: %s must be a percentage between 0 and 100", core.ErrInvalidOption, f.key)
		}
		*f.dst = pct / 100
	}
	return a, nil
}

// ParseMonthlyCost reads a typed dollar amount such as "$2,950.00".
func ParseMonthlyCost(p *RequestBodyParser) (float64, error) {
	cents, err := core.ParseDecimalToCents(p.Get("monthly_cost"))
	if err != nil {
		return 0, err
	}
	return core.Money{Cents: cents}.Dollars(), nil
}

func intField(p *RequestBodyParser, key string, def, lo, hi int, sentinel error) (int, error) {
	v := p.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s %q is not a whole number", sentinel, key, v)
	}
	if n < lo || n > hi {
		return def, fmt.Errorf("%w: %s must be between %d and %d", sentinel, key, lo, hi)
	}
	return n, nil
}

func optionField[T ~string](p *RequestBodyParser, key string, def T, parse func(string) (T, error)) (T, error) {
	v := p.Get(key)
	if v == "" {
		return def, nil
	}
	opt, err := parse(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return opt, nil
}

func boolField(p *RequestBodyParser, key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
