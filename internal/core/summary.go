package core

// Category display names in breakdown order.
const (
	CategoryHousing        = "Housing"
	CategoryUtilities      = "Utilities"
	CategoryGroceries      = "Groceries"
	CategoryDiningOut      = "Dining Out"
	CategoryTransportation = "Transportation"
	CategoryHealthcare     = "Healthcare"
	CategoryChildcare      = "Childcare"
	CategoryMisc           = "Misc"
	CategoryTravel         = "Travel"
)

// CostBreakdown is a monthly budget in USD. Total is the sum of the nine
// categories in declaration order.
type CostBreakdown struct {
	Housing        float64 `json:"housing"`
	Utilities      float64 `json:"utilities"`
	Groceries      float64 `json:"groceries"`
	DiningOut      float64 `json:"dining_out"`
	Transportation float64 `json:"transportation"`
	Healthcare     float64 `json:"healthcare"`
	Childcare      float64 `json:"childcare"`
	Misc           float64 `json:"misc"`
	Travel         float64 `json:"travel"`
	Total          float64 `json:"total"`
}

// CategoryAmount is one row of a breakdown.
type CategoryAmount struct {
	Name    string  `json:"category"`
	Monthly float64 `json:"monthly"`
}

func (c CategoryAmount) Annual() float64 {
	return c.Monthly * 12
}

// Lines returns the categories in display order.
func (b CostBreakdown) Lines() []CategoryAmount {
	return []CategoryAmount{
		{CategoryHousing, b.Housing},
		{CategoryUtilities, b.Utilities},
		{CategoryGroceries, b.Groceries},
		{CategoryDiningOut, b.DiningOut},
		{CategoryTransportation, b.Transportation},
		{CategoryHealthcare, b.Healthcare},
		{CategoryChildcare, b.Childcare},
		{CategoryMisc, b.Misc},
		{CategoryTravel, b.Travel},
	}
}

func (b CostBreakdown) Annual() float64 {
	return b.Total * 12
}
