package model

// AvailableSeats is the seed capacity for one (category, date) pair of an
// event. Exactly |categories| x |dates| rows exist per event, each starting
// at the category's seat limit. Decrementing them on purchase belongs to a
// booking subsystem outside this service.
type AvailableSeats struct {
	SeatCategoryID uint64 // available_seats.seat_category_id
	EventDateID    uint64 // available_seats.event_date_id
	AvailableSeats uint32 // available_seats.available_seats
}
