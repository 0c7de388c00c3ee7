package models

// Event is the single event record owned by the deployer. It is created once
// by the deploy operation and never updated afterwards.
type Event struct {
	Name             string `json:"name"`
	StartTime        int64  `json:"start_time"`
	TotalTicketSlots int64  `json:"total_ticket_slots"`
}
