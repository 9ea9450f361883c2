// Package repository contains data access logic for the event catalog. This
// file defines the EventRepo, which owns the multi-table create sequence
// (event, seat categories, event dates, availability seeding) and the public
// listing query. All writes for one event happen inside a single
// transaction: either the fully-populated event exists afterwards or
// nothing does.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/evenio/event-ticketing/internal/model"
)

// ErrTitleExists indicates an event with the same title is already stored.
// The titles column carries a unique index, so this error is authoritative
// even when two requests race past the pre-insert check.
var ErrTitleExists = errors.New("event title already exists")

// EventRepo manages persistence for events and their dependent rows.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// TitleExists reports whether an event with the exact title is stored.
// It is a fast-path check only; the unique index on events.title is what
// actually guarantees uniqueness under concurrent creates.
func (r *EventRepo) TitleExists(ctx context.Context, title string) (bool, error) {
	const q = `SELECT id FROM events WHERE title = ? LIMIT 1`
	var id uint64
	err := r.db.QueryRowContext(ctx, q, title).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create inserts an event together with its seat categories, dates and
// seeded availability rows in one transaction. On success the generated IDs
// and the server-assigned creation timestamp are populated on the passed
// structs. A duplicate title surfaces as ErrTitleExists; any other failure
// rolls the whole sequence back.
func (r *EventRepo) Create(ctx context.Context, e *model.Event, cats []model.SeatCategory, dates []model.EventDate) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// Commit only when every step below succeeded. The named return lets
	// the deferred commit hand its error back to the caller.
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	const insEvent = `INSERT INTO events (title, picture, description, location, created_at) VALUES (?, ?, ?, ?, NOW())`
	res, err := tx.ExecContext(ctx, insEvent, e.Title, e.Picture, e.Description, e.Location)
	if err != nil {
		// MySQL 1062 = duplicate entry on the unique title index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			err = ErrTitleExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)

	const insCat = `INSERT INTO seat_categories (event_id, name, price, seat_limit) VALUES (?, ?, ?, ?)`
	for i := range cats {
		cats[i].EventID = e.ID
		cats[i].SeatLimit = model.SeatLimitFor(cats[i].Name)
		var cres sql.Result
		cres, err = tx.ExecContext(ctx, insCat, e.ID, cats[i].Name, cats[i].Price, cats[i].SeatLimit)
		if err != nil {
			return err
		}
		var cid int64
		if cid, err = cres.LastInsertId(); err != nil {
			return err
		}
		cats[i].ID = uint64(cid)
	}

	const insDate = `INSERT INTO event_dates (event_id, event_date, start_time, end_time) VALUES (?, ?, ?, ?)`
	for i := range dates {
		dates[i].EventID = e.ID
		var dres sql.Result
		dres, err = tx.ExecContext(ctx, insDate, e.ID, dates[i].EventDate, dates[i].StartTime, dates[i].EndTime)
		if err != nil {
			return err
		}
		var did int64
		if did, err = dres.LastInsertId(); err != nil {
			return err
		}
		dates[i].ID = uint64(did)
	}

	// Re-read the category and date rows just inserted so the seeding works
	// from what the database actually stored, then insert one availability
	// row per (category, date) pair.
	var storedCats []model.SeatCategory
	if storedCats, err = categoriesByEventTx(ctx, tx, e.ID); err != nil {
		return err
	}
	var storedDates []model.EventDate
	if storedDates, err = datesByEventTx(ctx, tx, e.ID); err != nil {
		return err
	}
	err = insertAvailableSeatsTx(ctx, tx, SeedAvailableSeats(storedCats, storedDates))
	if err != nil {
		return err
	}

	const sel = `SELECT created_at FROM events WHERE id = ?`
	err = tx.QueryRowContext(ctx, sel, e.ID).Scan(&e.CreatedAt)
	return err
}

// SeedAvailableSeats builds the cross-join of categories and dates, each row
// seeded to its category's seat limit. It is pure so the seeding shape can
// be verified without a database.
func SeedAvailableSeats(cats []model.SeatCategory, dates []model.EventDate) []model.AvailableSeats {
	out := make([]model.AvailableSeats, 0, len(cats)*len(dates))
	for _, c := range cats {
		for _, d := range dates {
			out = append(out, model.AvailableSeats{
				SeatCategoryID: c.ID,
				EventDateID:    d.ID,
				AvailableSeats: c.SeatLimit,
			})
		}
	}
	return out
}

// insertAvailableSeatsTx bulk-inserts availability rows in one statement.
func insertAvailableSeatsTx(ctx context.Context, tx *sql.Tx, rows []model.AvailableSeats) error {
	if len(rows) == 0 {
		return nil
	}
	query := `INSERT INTO available_seats (seat_category_id, event_date_id, available_seats) VALUES `
	args := make([]interface{}, 0, len(rows)*3)
	for i, as := range rows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, as.SeatCategoryID, as.EventDateID, as.AvailableSeats)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func categoriesByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.SeatCategory, error) {
	const q = `SELECT id, event_id, name, price, seat_limit FROM seat_categories WHERE event_id = ?`
	rows, err := tx.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatCategory
	for rows.Next() {
		var c model.SeatCategory
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name, &c.Price, &c.SeatLimit); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func datesByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.EventDate, error) {
	const q = `SELECT id, event_id, event_date, start_time, end_time FROM event_dates WHERE event_id = ?`
	rows, err := tx.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.EventDate
	for rows.Next() {
		var d model.EventDate
		if err := rows.Scan(&d.ID, &d.EventID, &d.EventDate, &d.StartTime, &d.EndTime); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListWithLowestPrice returns every event joined with the minimum category
// price, newest first. The join is a LEFT JOIN so events without categories
// still appear, with a nil LowestPrice. No pagination: the catalog is small
// and the endpoint sits behind the response cache.
func (r *EventRepo) ListWithLowestPrice(ctx context.Context) ([]model.EventListing, error) {
	const q = `SELECT e.id, e.title, e.picture, e.description, e.location, e.created_at, MIN(sc.price) AS lowest_price
               FROM events e
               LEFT JOIN seat_categories sc ON sc.event_id = e.id
               GROUP BY e.id, e.title, e.picture, e.description, e.location, e.created_at
               ORDER BY e.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.EventListing
	for rows.Next() {
		var l model.EventListing
		var lowest sql.NullFloat64
		if err := rows.Scan(&l.ID, &l.Title, &l.Picture, &l.Description, &l.Location, &l.CreatedAt, &lowest); err != nil {
			return nil, err
		}
		if lowest.Valid {
			v := lowest.Float64
			l.LowestPrice = &v
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
