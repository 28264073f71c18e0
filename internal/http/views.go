package http

import (
	"fmt"
	"html/template"
	"math"
	"strconv"

	"livingcost/internal/core"
	"livingcost/internal/prices"
	"livingcost/internal/services"
)

var templateFuncs = template.FuncMap{
	"usd":   func(v float64) string { return core.MoneyFromDollars(v).WholeDollars() },
	"cents": func(v float64) string { return core.MoneyFromDollars(v).String() },
	"rpp":   func(v core.PriceIndex) string { return fmt.Sprintf("%.1f", float64(v)) },
	"pct":   formatPercent,
}

// formatPercent renders a rate as a percentage with at most two decimals,
// so 0.15 prints as 15 rather than 15.000000000000002.
func formatPercent(rate float64) string {
	return strconv.FormatFloat(math.Round(rate*1e4)/1e2, 'f', -1, 64)
}

type option struct {
	Value    string
	Selected bool
}

func options[T ~string](current T, all ...T) []option {
	out := make([]option, len(all))
	for i, o := range all {
		out[i] = option{Value: string(o), Selected: o == current}
	}
	return out
}

type indexView struct {
	Profile       core.HouseholdProfile
	Country       string
	Countries     []string
	Locations     []string
	HousingModes  []option
	Bedrooms      []option
	Transit       []option
	Groceries     []option
	DiningOut     []option
	Insurance     []option
	Entertainment []option
	Travel        []option
	Assumptions   core.IncomeAssumptions
	MaxAdults     int
	MaxKids       int
	MaxCars       int
}

func newIndexView(locations []string) indexView {
	p := core.DefaultProfile()
	return indexView{
		Profile:       p,
		Country:       core.SupportedCountry,
		Countries:     []string{core.SupportedCountry, "Other (coming soon)"},
		Locations:     locations,
		HousingModes:  options(p.HousingMode, core.Rent, core.Own),
		Bedrooms:      options(p.Bedrooms, core.Studio, core.OneBedroom, core.TwoBedroom, core.ThreePlusBed),
		Transit:       options(p.Transit, core.Low, core.Medium, core.High),
		Groceries:     options(p.Groceries, core.GroceriesBudget, core.GroceriesStandard, core.GroceriesPremium),
		DiningOut:     options(p.DiningOut, core.Low, core.Medium, core.High),
		Insurance:     options(p.Insurance, core.InsuranceBasic, core.InsuranceStandard, core.InsurancePremium),
		Entertainment: options(p.Entertainment, core.Low, core.Medium, core.High),
		Travel:        options(p.Travel, core.TravelNone, core.TravelOccasional, core.TravelFrequent),
		Assumptions:   core.DefaultIncomeAssumptions(),
		MaxAdults:     maxAdults,
		MaxKids:       maxKids,
		MaxCars:       maxCars,
	}
}

type incomeView struct {
	MonthlyCost    float64
	Assumptions    core.IncomeAssumptions
	Recommendation core.IncomeRecommendation
}

type estimateView struct {
	Result      services.EstimateResult
	Lines       []core.CategoryAmount
	Total       float64
	AnnualTotal float64
	Income      *incomeView
}

func newEstimateView(r services.EstimateResult, a *core.IncomeAssumptions) estimateView {
	v := estimateView{
		Result:      r,
		Lines:       r.Breakdown.Lines(),
		Total:       r.Breakdown.Total,
		AnnualTotal: r.Breakdown.Annual(),
	}
	if r.Income != nil && a != nil {
		v.Income = &incomeView{MonthlyCost: r.Breakdown.Total, Assumptions: *a, Recommendation: *r.Income}
	}
	return v
}

// API bodies.
type (
	apiEstimateRequest struct {
		Country       string              `json:"country"`
		State         string              `json:"state"`
		Adults        int                 `json:"adults"`
		Kids          int                 `json:"kids"`
		HousingMode   core.HousingMode    `json:"housing_mode"`
		Bedrooms      core.Bedrooms       `json:"bedrooms"`
		PremiumArea   bool                `json:"premium_area"`
		Cars          int                 `json:"cars"`
		Transit       core.Level          `json:"transit"`
		Groceries     core.GroceryStyle   `json:"groceries"`
		DiningOut     core.Level          `json:"dining_out"`
		Insurance     core.InsuranceLevel `json:"insurance"`
		Gym           bool                `json:"gym"`
		Entertainment core.Level          `json:"entertainment"`
		Travel        core.TravelLevel    `json:"travel"`
		Income        *apiAssumptions     `json:"income"`
	}

	// apiAssumptions uses pointers so omitted rates keep their defaults.
	apiAssumptions struct {
		SavingsRate      *float64 `json:"savings_rate"`
		EffectiveTaxRate *float64 `json:"effective_tax_rate"`
		Buffer           *float64 `json:"buffer"`
	}

	apiLine struct {
		Category string  `json:"category"`
		Monthly  float64 `json:"monthly"`
		Annual   float64 `json:"annual"`
	}

	apiEstimateResponse struct {
		Location     prices.Resolution          `json:"location"`
		Breakdown    core.CostBreakdown         `json:"breakdown"`
		Lines        []apiLine                  `json:"lines"`
		MonthlyTotal float64                    `json:"monthly_total"`
		AnnualTotal  float64                    `json:"annual_total"`
		Income       *core.IncomeRecommendation `json:"income,omitempty"`
	}

	apiIncomeRequest struct {
		MonthlyCost float64 `json:"monthly_cost"`
		apiAssumptions
	}
)

// defaultAPIEstimateRequest seeds decoding so omitted fields keep the form
// defaults.
func defaultAPIEstimateRequest() apiEstimateRequest {
	p := core.DefaultProfile()
	return apiEstimateRequest{
		Adults:        p.Adults,
		HousingMode:   p.HousingMode,
		Bedrooms:      p.Bedrooms,
		Transit:       p.Transit,
		Groceries:     p.Groceries,
		DiningOut:     p.DiningOut,
		Insurance:     p.Insurance,
		Entertainment: p.Entertainment,
		Travel:        p.Travel,
	}
}

func (r apiEstimateRequest) toService() services.EstimateRequest {
	req := services.EstimateRequest{
		Country: r.Country,
		Profile: core.HouseholdProfile{
			State:         r.State,
			Adults:        r.Adults,
			Kids:          r.Kids,
			HousingMode:   r.HousingMode,
			Bedrooms:      r.Bedrooms,
			PremiumArea:   r.PremiumArea,
			Cars:          r.Cars,
			Transit:       r.Transit,
			Groceries:     r.Groceries,
			DiningOut:     r.DiningOut,
			Insurance:     r.Insurance,
			Gym:           r.Gym,
			Entertainment: r.Entertainment,
			Travel:        r.Travel,
		},
	}
	if r.Income != nil {
		a := r.Income.assumptions()
		req.Assumptions = &a
	}
	return req
}

func (r apiAssumptions) assumptions() core.IncomeAssumptions {
	a := core.DefaultIncomeAssumptions()
	if r.SavingsRate != nil {
		a.SavingsRate = *r.SavingsRate
	}
	if r.EffectiveTaxRate != nil {
		a.EffectiveTaxRate = *r.EffectiveTaxRate
	}
	if r.Buffer != nil {
		a.Buffer = *r.Buffer
	}
	return a
}

func newAPIEstimateResponse(r services.EstimateResult) apiEstimateResponse {
	lines := r.Breakdown.Lines()
	out := apiEstimateResponse{
		Location:     r.Resolution,
		Breakdown:    r.Breakdown,
		Lines:        make([]apiLine, len(lines)),
		MonthlyTotal: r.Breakdown.Total,
		AnnualTotal:  r.Breakdown.Annual(),
		Income:       r.Income,
	}
	for i, l := range lines {
		out.Lines[i] = apiLine{Category: l.Name, Monthly: l.Monthly, Annual: l.Annual()}
	}
	return out
}
