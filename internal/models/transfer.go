package models

import (
	"encoding/hex"
)

// PurposeBuyTickets tags a token transfer that should be applied as a ticket
// purchase. Any other purpose is treated as a generic deposit.
const PurposeBuyTickets = "buyTickets"

// AddressLength is the byte length of a well-formed account identifier.
// Addresses travel as lowercase hex strings.
const AddressLength = 20

// PurchaseArgs are the extra arguments attached to a buyTickets transfer.
type PurchaseArgs struct {
	TierID    int    `json:"tier_id"`
	Quantity  int64  `json:"quantity"`
	ProofHash string `json:"proof_hash"`
}

// TransferEvent is the notification the token service sends after tokens move
// into the ledger's custody. ID is assigned by the token service and is the
// idempotency key: a given ID is applied at most once.
type TransferEvent struct {
	ID       string        `json:"id"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Amount   int64         `json:"amount"` // smallest token unit
	Purpose  string        `json:"purpose,omitempty"`
	Purchase *PurchaseArgs `json:"purchase,omitempty"`
}

// ValidAddress reports whether addr is a well-formed 20-byte hex identifier.
func ValidAddress(addr string) bool {
	raw, err := hex.DecodeString(addr)
	if err != nil {
		return false
	}
	return len(raw) == AddressLength
}
