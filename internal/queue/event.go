// Package queue defines message payloads exchanged over the message broker.
package queue

// EventCreatedEvent is published when an event is successfully created. It
// carries enough for downstream consumers (notifications, analytics) to act
// without querying the primary database.
type EventCreatedEvent struct {
	EventID   uint64 `json:"event_id"`
	Title     string `json:"title"`
	Location  string `json:"location"`
	Dates     int    `json:"dates"`
	Tiers     int    `json:"tiers"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}
