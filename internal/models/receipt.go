package models

// PurchaseReceipt describes one applied ticket purchase. Published to Kafka
// and streamed to live subscribers after the ledger mutation commits.
type PurchaseReceipt struct {
	TransferID string `json:"transfer_id"`
	Buyer      string `json:"buyer"`
	TierID     int    `json:"tier_id"`
	TierLabel  string `json:"tier_label"`
	Quantity   int64  `json:"quantity"`
	AmountPaid int64  `json:"amount_paid"` // smallest token unit actually sent
	Price      int64  `json:"price"`       // whole tokens charged
}
