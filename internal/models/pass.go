package models

import "time"

// EntryPass is the payload embedded in a holder's QR pass. Gate scanners
// decrypt it and redeem the matching holding.
type EntryPass struct {
	Buyer     string    `json:"buyer"`
	TierID    int       `json:"tier_id"`
	TierLabel string    `json:"tier_label"`
	Quantity  int64     `json:"quantity"`
	ProofHash string    `json:"proof_hash"`
	IssuedAt  time.Time `json:"issued_at"`
}
