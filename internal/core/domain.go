package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Rent HousingMode = "Rent"
	Own  HousingMode = "Own"

	Studio       Bedrooms = "Studio"
	OneBedroom   Bedrooms = "1BR"
	TwoBedroom   Bedrooms = "2BR"
	ThreePlusBed Bedrooms = "3BR+"

	Low    Level = "Low"
	Medium Level = "Medium"
	High   Level = "High"

	GroceriesBudget   GroceryStyle = "Budget"
	GroceriesStandard GroceryStyle = "Standard"
	GroceriesPremium  GroceryStyle = "Premium"

	InsuranceBasic    InsuranceLevel = "Basic"
	InsuranceStandard InsuranceLevel = "Standard"
	InsurancePremium  InsuranceLevel = "Premium"

	TravelNone       TravelLevel = "None"
	TravelOccasional TravelLevel = "Occasional"
	TravelFrequent   TravelLevel = "Frequent"
)

// SupportedCountry is the only country with a price index source.
const SupportedCountry = "United States"

const (
	NeutralPriceIndex PriceIndex = 100.0
	MinPriceIndex     PriceIndex = 50.0
	MaxPriceIndex     PriceIndex = 200.0
)

type (
	HousingMode    string
	Bedrooms       string
	Level          string
	GroceryStyle   string
	InsuranceLevel string
	TravelLevel    string

	// PriceIndex is a regional price parity where 100 is the national average.
	PriceIndex float64

	HouseholdProfile struct {
		State         string
		Adults        int
		Kids          int
		HousingMode   HousingMode
		Bedrooms      Bedrooms
		PremiumArea   bool
		Cars          int
		Transit       Level
		Groceries     GroceryStyle
		DiningOut     Level
		Insurance     InsuranceLevel
		Gym           bool
		Entertainment Level
		Travel        TravelLevel
	}

	// AdultBasket holds national monthly reference costs for one adult.
	AdultBasket struct {
		HousingOneBedroom float64 `json:"housing_1br"`
		Utilities         float64 `json:"utilities"`
		Groceries         float64 `json:"groceries"`
		DiningOutBase     float64 `json:"dining_out_base"`
		TransportBase     float64 `json:"transport_base"`
		Healthcare        float64 `json:"healthcare"`
		Misc              float64 `json:"misc"`
	}

	// ChildBasket holds per-child monthly add-ons.
	ChildBasket struct {
		GroceriesPerChild  float64 `json:"groceries_per_child"`
		HealthcarePerChild float64 `json:"healthcare_per_child"`
		ChildcarePerChild  float64 `json:"childcare_per_child"`
	}

	BaseBasket struct {
		Adult AdultBasket `json:"monthly_usd_single_adult"`
		Child ChildBasket `json:"child_monthly"`
	}
)

var (
	ErrUnresolvedLocation = errors.New("location not found in price table")
	ErrInvalidRate        = errors.New("savings rate must be below 1")
	ErrUnsupportedCountry = errors.New("unsupported country")
	ErrInvalidAdults      = errors.New("adults must be at least 1")
	ErrInvalidKids        = errors.New("kids cannot be negative")
	ErrInvalidCars        = errors.New("cars cannot be negative")
	ErrEmptyState         = errors.New("empty state")
	ErrInvalidOption      = errors.New("invalid option")
	ErrInvalidBasket      = errors.New("invalid base basket")
	ErrInvalidAmount      = errors.New("invalid amount")
)

// Scale returns the multiplier applied to national reference costs.
func (p PriceIndex) Scale() float64 {
	return float64(p) / 100.0
}

// InRange reports whether the index is plausible for a U.S. state.
func (p PriceIndex) InRange() bool {
	return p >= MinPriceIndex && p <= MaxPriceIndex
}

// DefaultProfile mirrors the initial state of the estimator form.
func DefaultProfile() HouseholdProfile {
	return HouseholdProfile{
		State:         "New Jersey",
		Adults:        1,
		HousingMode:   Rent,
		Bedrooms:      OneBedroom,
		Transit:       Medium,
		Groceries:     GroceriesStandard,
		DiningOut:     Medium,
		Insurance:     InsuranceStandard,
		Entertainment: Medium,
		Travel:        TravelNone,
	}
}

func (p HouseholdProfile) Validate() error {
	if strings.TrimSpace(p.State) == "" {
		return ErrEmptyState
	}
	if p.Adults < 1 {
		return ErrInvalidAdults
	}
	if p.Kids < 0 {
		return ErrInvalidKids
	}
	if p.Cars < 0 {
		return ErrInvalidCars
	}
	checks := []struct {
		field string
		ok    bool
		value string
	}{
		{"housing mode", p.HousingMode.valid(), string(p.HousingMode)},
		{"bedrooms", p.Bedrooms.valid(), string(p.Bedrooms)},
		{"transit", p.Transit.valid(), string(p.Transit)},
		{"groceries", p.Groceries.valid(), string(p.Groceries)},
		{"dining out", p.DiningOut.valid(), string(p.DiningOut)},
		{"insurance", p.Insurance.valid(), string(p.Insurance)},
		{"entertainment", p.Entertainment.valid(), string(p.Entertainment)},
		{"travel", p.Travel.valid(), string(p.Travel)},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s %q", ErrInvalidOption, c.field, c.value)
		}
	}
	return nil
}

func (b BaseBasket) Validate() error {
	values := []float64{
		b.Adult.HousingOneBedroom, b.Adult.Utilities, b.Adult.Groceries,
		b.Adult.DiningOutBase, b.Adult.TransportBase, b.Adult.Healthcare, b.Adult.Misc,
		b.Child.GroceriesPerChild, b.Child.HealthcarePerChild, b.Child.ChildcarePerChild,
	}
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("%w: negative reference cost %.2f", ErrInvalidBasket, v)
		}
	}
	return nil
}

func (h HousingMode) valid() bool {
	return h == Rent || h == Own
}

func (b Bedrooms) valid() bool {
	switch b {
	case Studio, OneBedroom, TwoBedroom, ThreePlusBed:
		return true
	}
	return false
}

func (l Level) valid() bool {
	return l == Low || l == Medium || l == High
}

func (g GroceryStyle) valid() bool {
	return g == GroceriesBudget || g == GroceriesStandard || g == GroceriesPremium
}

func (i InsuranceLevel) valid() bool {
	return i == InsuranceBasic || i == InsuranceStandard || i == InsurancePremium
}

func (t TravelLevel) valid() bool {
	return t == TravelNone || t == TravelOccasional || t == TravelFrequent
}

// matchOption returns the canonical option equal to s ignoring case and
// surrounding whitespace.
func matchOption[T ~string](s string, options ...T) (T, error) {
	s = strings.TrimSpace(s)
	for _, o := range options {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %q", ErrInvalidOption, s)
}

func ParseHousingMode(s string) (HousingMode, error) {
	return matchOption(s, Rent, Own)
}

func ParseBedrooms(s string) (Bedrooms, error) {
	return matchOption(s, Studio, OneBedroom, TwoBedroom, ThreePlusBed)
}

func ParseLevel(s string) (Level, error) {
	return matchOption(s, Low, Medium, High)
}

func ParseGroceryStyle(s string) (GroceryStyle, error) {
	return matchOption(s, GroceriesBudget, GroceriesStandard, GroceriesPremium)
}

func ParseInsuranceLevel(s string) (InsuranceLevel, error) {
	return matchOption(s, InsuranceBasic, InsuranceStandard, InsurancePremium)
}

func ParseTravelLevel(s string) (TravelLevel, error) {
	return matchOption(s, TravelNone, TravelOccasional, TravelFrequent)
}

// IsSupportedCountry reports whether estimates can be produced for country.
func IsSupportedCountry(country string) bool {
	return strings.EqualFold(strings.TrimSpace(country), SupportedCountry)
}
