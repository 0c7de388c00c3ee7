package models

// Holding is a buyer's accumulated ticket quantity for one tier plus the
// single-use redemption flag. Quantity accumulates across repeat purchases.
type Holding struct {
	Quantity int64 `json:"quantity"`
	Used     bool  `json:"used"`
}
