package model

import "time"

// Event is a bookable occasion listed in the public catalog. It owns one or
// more scheduled dates and one or more seat categories. Picture stores the
// relative filename of the sanitized upload; resolving it to a URL is the
// static-serving layer's job.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – event title, unique across the catalog.
//  Picture     – relative filename of the stored image.
//  Description – free-form description shown on the listing.
//  Location    – venue or address text.
//  CreatedAt   – server-assigned creation timestamp.
type Event struct {
	ID          uint64    // events.id
	Title       string    // events.title
	Picture     string    // events.picture
	Description string    // events.description
	Location    string    // events.location
	CreatedAt   time.Time // events.created_at
}

// EventListing is an Event row joined with the cheapest category price.
// LowestPrice is nil for events that have no categories yet.
type EventListing struct {
	Event
	LowestPrice *float64
}
