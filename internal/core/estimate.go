package core

const (
	carMonthlyCost = 450.0
	gymMonthlyCost = 45.0

	premiumAreaMultiplier = 1.15
)

var (
	bedroomMultipliers = map[Bedrooms]float64{
		Studio:       0.80,
		OneBedroom:   1.00,
		TwoBedroom:   1.35,
		ThreePlusBed: 1.70,
	}
	ownershipMultipliers = map[HousingMode]float64{
		Rent: 1.00,
		Own:  0.95,
	}
	groceryStyleMultipliers = map[GroceryStyle]float64{
		GroceriesBudget:   0.85,
		GroceriesStandard: 1.00,
		GroceriesPremium:  1.25,
	}
	diningMultipliers = map[Level]float64{
		Low:    0.70,
		Medium: 1.00,
		High:   1.50,
	}
	// Heavier transit use means less spending on the generic transport base.
	transitMultipliers = map[Level]float64{
		Low:    1.10,
		Medium: 1.00,
		High:   0.85,
	}
	insuranceMultipliers = map[InsuranceLevel]float64{
		InsuranceBasic:    0.85,
		InsuranceStandard: 1.00,
		InsurancePremium:  1.25,
	}
	entertainmentMultipliers = map[Level]float64{
		Low:    0.80,
		Medium: 1.00,
		High:   1.35,
	}
	travelAddOns = map[TravelLevel]float64{
		TravelNone:       0,
		TravelOccasional: 120,
		TravelFrequent:   320,
	}
)

// multiplier returns table[key], or neutral when key is not in the table.
func multiplier[K comparable](table map[K]float64, key K, neutral float64) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return neutral
}

// Estimate computes the monthly cost breakdown for a household living in a
// location with the given price index. It never fails: unknown option
// values use the neutral multiplier.
func Estimate(p HouseholdProfile, idx PriceIndex, b BaseBasket) CostBreakdown {
	scale := idx.Scale()
	extra := float64(max(p.Adults-1, 0))
	kids := float64(p.Kids)

	grocScale := 1 + 0.70*extra
	miscScale := 1 + 0.60*extra
	healthScale := 1 + 0.55*extra
	sharedScale := 1 + 0.35*extra

	housingMult := multiplier(bedroomMultipliers, p.Bedrooms, 1.0) *
		multiplier(ownershipMultipliers, p.HousingMode, 1.0)
	if p.PremiumArea {
		housingMult *= premiumAreaMultiplier
	}

	a, c := b.Adult, b.Child
	var out CostBreakdown

	out.Housing = a.HousingOneBedroom * housingMult * scale
	out.Utilities = a.Utilities * (sharedScale + 0.20*kids) * scale
	out.Groceries = a.Groceries*grocScale*multiplier(groceryStyleMultipliers, p.Groceries, 1.0)*scale +
		c.GroceriesPerChild*kids*scale
	out.DiningOut = a.DiningOutBase * sharedScale * multiplier(diningMultipliers, p.DiningOut, 1.0) * scale
	out.Transportation = a.TransportBase*multiplier(transitMultipliers, p.Transit, 1.0)*sharedScale*scale +
		float64(p.Cars)*carMonthlyCost*scale
	out.Healthcare = a.Healthcare*healthScale*multiplier(insuranceMultipliers, p.Insurance, 1.0)*scale +
		c.HealthcarePerChild*kids*scale
	if p.Kids > 0 {
		out.Childcare = c.ChildcarePerChild * kids * scale
	}

	misc := a.Misc * miscScale * scale
	if p.Gym {
		misc += gymMonthlyCost * scale
	}
	out.Misc = misc * multiplier(entertainmentMultipliers, p.Entertainment, 1.0)
	out.Travel = multiplier(travelAddOns, p.Travel, 0) * scale

	out.Total = out.Housing + out.Utilities + out.Groceries + out.DiningOut +
		out.Transportation + out.Healthcare + out.Childcare + out.Misc + out.Travel
	return out
}
