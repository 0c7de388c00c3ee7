package kvstore

import "fmt"

// Key namespace for the ledger records. Every record the system owns lives
// under one of these prefixes in the same table.
const (
	KeyTierCount   = "tiers:count"
	KeyOwnerIncome = "ownerIncome"
)

func EventKey(owner string) string {
	return "event:" + owner
}

func TierKey(id int) string {
	return fmt.Sprintf("tier:%d", id)
}

func HoldingKey(hash string) string {
	return "holding:" + hash
}

func IdentityKey(addr string) string {
	return "identity:" + addr
}

func DepositKey(addr string) string {
	return "deposit:" + addr
}

func TransferKey(id string) string {
	return "transfer:" + id
}
