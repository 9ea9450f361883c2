package model

// SeatCategory is a named pricing and capacity tier of an event
// (e.g. Premium, Standard, Economy). SeatLimit is derived from the
// category name at creation time, never supplied by the client.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event this tier belongs to.
//  Name      – tier name as submitted.
//  Price     – ticket price for this tier.
//  SeatLimit – seeded capacity per event date.
type SeatCategory struct {
	ID        uint64  // seat_categories.id
	EventID   uint64  // seat_categories.event_id
	Name      string  // seat_categories.name
	Price     float64 // seat_categories.price
	SeatLimit uint32  // seat_categories.seat_limit
}

// SeatLimits maps a category name to its seeded capacity. Names not present
// here resolve to 0, so a typo in the submitted name yields a tier nobody
// can book.
var SeatLimits = map[string]uint32{
	"Premium":  50,
	"Standard": 100,
	"Economy":  150,
}

// SeatLimitFor resolves the seeded capacity for a category name.
// Unrecognized names return 0.
func SeatLimitFor(name string) uint32 {
	return SeatLimits[name]
}
