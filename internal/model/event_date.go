package model

// EventDate is one scheduled occurrence of an event: a calendar date plus a
// start and end time. The strings use the DB formats "2006-01-02" for the
// date and "15:04" for the times.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event this slot belongs to.
//  EventDate – calendar date ("YYYY-MM-DD").
//  StartTime – slot start ("HH:MM").
//  EndTime   – slot end ("HH:MM").
type EventDate struct {
	ID        uint64 // event_dates.id
	EventID   uint64 // event_dates.event_id
	EventDate string // event_dates.event_date
	StartTime string // event_dates.start_time
	EndTime   string // event_dates.end_time
}
