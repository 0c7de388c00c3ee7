package models

// Tier is one ticket category of the event. Sold is the only field that
// changes after creation and it only ever increases.
type Tier struct {
	Label       string `json:"label"`
	UnitPrice   int64  `json:"unit_price"`
	TotalSupply int64  `json:"total_supply"`
	Sold        int64  `json:"sold"`
}

// Remaining returns the number of unsold tickets in the tier.
func (t Tier) Remaining() int64 {
	return t.TotalSupply - t.Sold
}

// TierInfo is the read-model returned by the getTicketsInfo operation.
type TierInfo struct {
	Label       string `json:"label"`
	UnitPrice   int64  `json:"unit_price"`
	TotalSupply int64  `json:"total_supply"`
	Remaining   int64  `json:"remaining"`
}
