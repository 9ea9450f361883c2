// Package handler exposes the HTTP handlers of the ticketing API. This file
// holds the event catalog endpoints: the admin/owner create flow and the
// public listing.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evenio/event-ticketing/internal/media"
	"github.com/evenio/event-ticketing/internal/middleware"
	"github.com/evenio/event-ticketing/internal/model"
	"github.com/evenio/event-ticketing/internal/queue"
	"github.com/evenio/event-ticketing/internal/repository"
	queue_publisher "github.com/evenio/event-ticketing/internal/service"
)

// EventStore is the persistence surface the event handlers need.
// Implemented by *repository.EventRepo; tests substitute fakes.
type EventStore interface {
	TitleExists(ctx context.Context, title string) (bool, error)
	Create(ctx context.Context, e *model.Event, cats []model.SeatCategory, dates []model.EventDate) error
	ListWithLowestPrice(ctx context.Context) ([]model.EventListing, error)
}

// ImageSaver sanitizes and stores an uploaded picture, returning its
// relative filename. Implemented by *media.Store.
type ImageSaver interface {
	SaveUpload(fh *multipart.FileHeader) (string, error)
	Remove(name string) error
}

// EventHandler bundles the dependencies of the catalog endpoints.
type EventHandler struct {
	Events EventStore
	Images ImageSaver
}

func NewEventHandler(events EventStore, images ImageSaver) *EventHandler {
	if events == nil || images == nil {
		panic("nil dependency passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Images: images}
}

// ----- request DTOs -----

// dateEntry mirrors one element of the `dates` form field:
// {"event_date":"2025-05-30","start_time":"18:00","end_time":"21:00"}.
type dateEntry struct {
	EventDate string `json:"event_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// categoryEntry mirrors one element of the `categories` form field:
// {"name":"Premium","price":300}.
type categoryEntry struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// eventListing is the public JSON shape of one catalog entry. LowestPrice
// serializes as null for events without categories.
type eventListing struct {
	EventID     uint64    `json:"event_id"`
	Title       string    `json:"title"`
	Picture     string    `json:"picture"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	LowestPrice *float64  `json:"lowest_price"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// Create handles POST /v1/events. The refresh-session middleware has
// already authenticated the caller and checked the admin/owner role before
// this handler runs, so nothing here starts before the auth gate. The flow
// is: parse + validate the multipart form, duplicate-title fast path,
// sanitize and store the picture, then one transaction inserting the event
// with its categories, dates and seeded availability. If the transaction
// fails the stored picture is removed again.
func (h *EventHandler) Create(c echo.Context) error {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "No token")
	}

	title := strings.TrimSpace(c.FormValue("title"))
	description := strings.TrimSpace(c.FormValue("description"))
	location := strings.TrimSpace(c.FormValue("location"))
	if title == "" || description == "" || location == "" {
		return fail(c, http.StatusBadRequest, "title, description and location are required")
	}

	dates, err := parseDates(c.FormValue("dates"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	cats, err := parseCategories(c.FormValue("categories"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	// Presence check: the picture must arrive as a real file part.
	fh, err := c.FormFile("picture")
	if err != nil || fh == nil {
		return fail(c, http.StatusBadRequest, "Invalid image")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// Fast-path duplicate answer; the unique index on events.title is the
	// real guarantee when two creates race.
	exists, err := h.Events.TitleExists(ctx, title)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Server error inserting event")
	}
	if exists {
		return fail(c, http.StatusBadRequest, "Event title already exists")
	}

	picture, err := h.Images.SaveUpload(fh)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrTooLarge):
			return fail(c, http.StatusBadRequest, "File size too large")
		case errors.Is(err, media.ErrNotImage):
			return fail(c, http.StatusBadRequest, "Invalid file type")
		case errors.Is(err, media.ErrUnsupportedFormat):
			return fail(c, http.StatusBadRequest, "Unsupported file format")
		default:
			return fail(c, http.StatusInternalServerError, "File write failed")
		}
	}

	ev := &model.Event{
		Title:       title,
		Picture:     picture,
		Description: description,
		Location:    location,
	}
	if err := h.Events.Create(ctx, ev, cats, dates); err != nil {
		// The ordering file-then-rows means a failed transaction leaves an
		// orphaned image, not an orphaned row; drop the file again.
		_ = h.Images.Remove(picture)
		if errors.Is(err, repository.ErrTitleExists) {
			return fail(c, http.StatusBadRequest, "Event title already exists")
		}
		c.Logger().Errorf("create event %q: %v", title, err)
		return fail(c, http.StatusInternalServerError, "Server error inserting event")
	}

	// Fire-and-forget notification; a broker outage never fails the create.
	_ = queue_publisher.PublishEventCreated(c.Request().Context(), queue.EventCreatedEvent{
		EventID:   ev.ID,
		Title:     ev.Title,
		Location:  ev.Location,
		Dates:     len(dates),
		Tiers:     len(cats),
		CreatedBy: sess.Email,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "event_id": ev.ID})
}

// List handles GET /v1/events and returns every event with its cheapest
// category price, newest first. Events without categories appear with a
// null lowest_price.
func (h *EventHandler) List(c echo.Context) error {
	listings, err := h.Events.ListWithLowestPrice(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to fetch events")
	}
	out := make([]eventListing, 0, len(listings))
	for _, l := range listings {
		out = append(out, eventListing{
			EventID:     l.ID,
			Title:       l.Title,
			Picture:     l.Picture,
			Description: l.Description,
			Location:    l.Location,
			CreatedAt:   l.CreatedAt,
			LowestPrice: l.LowestPrice,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "events": out})
}

// parseDates decodes and validates the `dates` form field. Every entry
// needs a parseable date and time window; an empty array is allowed (an
// event can be announced before its schedule is final).
func parseDates(raw string) ([]model.EventDate, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("dates is required")
	}
	var entries []dateEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, errors.New("invalid dates format")
	}
	out := make([]model.EventDate, 0, len(entries))
	for _, e := range entries {
		if _, err := time.Parse("2006-01-02", e.EventDate); err != nil {
			return nil, errors.New("invalid event_date format")
		}
		start, err := time.Parse("15:04", e.StartTime)
		if err != nil {
			return nil, errors.New("invalid start_time format")
		}
		end, err := time.Parse("15:04", e.EndTime)
		if err != nil {
			return nil, errors.New("invalid end_time format")
		}
		if !end.After(start) {
			return nil, errors.New("end_time must be after start_time")
		}
		out = append(out, model.EventDate{
			EventDate: e.EventDate,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
		})
	}
	return out, nil
}

// parseCategories decodes and validates the `categories` form field. The
// seat limit is not taken from the client; the repository resolves it from
// the category name at insert time.
func parseCategories(raw string) ([]model.SeatCategory, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("categories is required")
	}
	var entries []categoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, errors.New("invalid categories format")
	}
	out := make([]model.SeatCategory, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, errors.New("category name is required")
		}
		if e.Price < 0 {
			return nil, errors.New("category price must not be negative")
		}
		out = append(out, model.SeatCategory{Name: name, Price: e.Price})
	}
	return out, nil
}
