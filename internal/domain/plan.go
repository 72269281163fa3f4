package domain

// Plan describes a subscription tier in the catalog. Prices are display only,
// payments are simulated.
type Plan struct {
	Tier    PlanTier `json:"tier"`
	Name    string   `json:"name"`
	Price   string   `json:"price"`
	Credits int      `json:"credits"`
}

// Plans is the subscription catalog in display order.
var Plans = []Plan{
	{Tier: PlanFree, Name: "Free", Price: "$0", Credits: 50},
	{Tier: PlanBasic, Name: "Basic", Price: "$9.99", Credits: 500},
	{Tier: PlanPremium, Name: "Premium", Price: "$19.99", Credits: 2000},
	{Tier: PlanEnterprise, Name: "Enterprise", Price: "$49.99", Credits: 5000},
}

// LookupPlan returns the catalog entry for tier.
func LookupPlan(tier PlanTier) (Plan, error) {
	for _, p := range Plans {
		if p.Tier == tier {
			return p, nil
		}
	}
	return Plan{}, ErrUnsupportedPlan
}

// CreditPack is a one-off credit purchase.
type CreditPack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Price   string `json:"price"`
}

var CreditPacks = []CreditPack{
	{ID: "small", Name: "Small Pack", Credits: 100, Price: "$4.99"},
	{ID: "medium", Name: "Medium Pack", Credits: 250, Price: "$9.99"},
	{ID: "large", Name: "Large Pack", Credits: 600, Price: "$19.99"},
}

// LookupCreditPack returns the pack with the given id.
func LookupCreditPack(id string) (CreditPack, error) {
	for _, p := range CreditPacks {
		if p.ID == id {
			return p, nil
		}
	}
	return CreditPack{}, Validation("unknown credit pack %q", id)
}
