package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenio/event-ticketing/internal/auth"
	"github.com/evenio/event-ticketing/internal/media"
	"github.com/evenio/event-ticketing/internal/model"
	"github.com/evenio/event-ticketing/internal/repository"
)

// fakeEventStore records calls so tests can assert what reached the
// persistence layer.
type fakeEventStore struct {
	existingTitle string
	titleErr      error
	createErr     error
	listings      []model.EventListing
	listErr       error

	createCalls int
	gotEvent    *model.Event
	gotCats     []model.SeatCategory
	gotDates    []model.EventDate
}

func (f *fakeEventStore) TitleExists(_ context.Context, title string) (bool, error) {
	return f.titleErr == nil && title == f.existingTitle, f.titleErr
}

func (f *fakeEventStore) Create(_ context.Context, e *model.Event, cats []model.SeatCategory, dates []model.EventDate) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = 42
	e.CreatedAt = time.Now().UTC()
	f.gotEvent = e
	f.gotCats = cats
	f.gotDates = dates
	return nil
}

func (f *fakeEventStore) ListWithLowestPrice(context.Context) ([]model.EventListing, error) {
	return f.listings, f.listErr
}

// fakeImageSaver skips the real pipeline and hands back a fixed name.
type fakeImageSaver struct {
	name    string
	saveErr error
	saved   int
	removed []string
}

func (f *fakeImageSaver) SaveUpload(*multipart.FileHeader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved++
	return f.name, nil
}

func (f *fakeImageSaver) Remove(name string) error {
	f.removed = append(f.removed, name)
	return nil
}

// createForm builds the multipart body of a create-event request.
func createForm(t *testing.T, fields map[string]string, withPicture bool) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withPicture {
		part, err := w.CreateFormFile("picture", "poster.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"title":       "Jazz Night",
		"description": "An evening of live jazz",
		"location":    "Riverside Hall",
		"dates":       `[{"event_date":"2025-05-30","start_time":"18:00","end_time":"21:00"},{"event_date":"2025-05-31","start_time":"19:00","end_time":"22:00"}]`,
		"categories":  `[{"name":"Premium","price":300},{"name":"Standard","price":150},{"name":"Economy","price":80}]`,
	}
}

// doCreate runs the Create handler with an authenticated admin session
// unless sess overrides it.
func doCreate(t *testing.T, store *fakeEventStore, images *fakeImageSaver, fields map[string]string, withPicture bool) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := createForm(t, fields, withPicture)
	req := httptest.NewRequest(http.MethodPost, "/v1/events", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	// Stored under the same key middleware.RefreshSession uses.
	c.Set("session", auth.Session{UserID: 7, Email: "owner@example.com", Role: "admin"})

	h := NewEventHandler(store, images)
	require.NoError(t, h.Create(c))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateEventSuccess(t *testing.T) {
	store := &fakeEventStore{}
	images := &fakeImageSaver{name: "abc123.png"}

	rec := doCreate(t, store, images, validFields(), true)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(42), body["event_id"])

	require.NotNil(t, store.gotEvent)
	assert.Equal(t, "Jazz Night", store.gotEvent.Title)
	assert.Equal(t, "abc123.png", store.gotEvent.Picture)
	assert.Len(t, store.gotCats, 3)
	assert.Len(t, store.gotDates, 2)
	assert.Empty(t, images.removed)
}

func TestCreateEventDuplicateTitle(t *testing.T) {
	store := &fakeEventStore{existingTitle: "Jazz Night"}
	images := &fakeImageSaver{name: "abc123.png"}

	rec := doCreate(t, store, images, validFields(), true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Event title already exists", decodeBody(t, rec)["message"])
	// The pre-check short-circuits before any file or row is written.
	assert.Zero(t, store.createCalls)
	assert.Zero(t, images.saved)
}

func TestCreateEventDuplicateTitleFromConstraint(t *testing.T) {
	// Two requests raced past the pre-check; the unique index answered.
	store := &fakeEventStore{createErr: repository.ErrTitleExists}
	images := &fakeImageSaver{name: "abc123.png"}

	rec := doCreate(t, store, images, validFields(), true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Event title already exists", decodeBody(t, rec)["message"])
	// The already-written picture is cleaned up again.
	assert.Equal(t, []string{"abc123.png"}, images.removed)
}

func TestCreateEventMissingPicture(t *testing.T) {
	store := &fakeEventStore{}
	rec := doCreate(t, store, &fakeImageSaver{}, validFields(), false)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid image", decodeBody(t, rec)["message"])
	assert.Zero(t, store.createCalls)
}

func TestCreateEventImageRejected(t *testing.T) {
	cases := []struct {
		err error
		msg string
	}{
		{media.ErrTooLarge, "File size too large"},
		{media.ErrNotImage, "Invalid file type"},
		{media.ErrUnsupportedFormat, "Unsupported file format"},
	}
	for _, tc := range cases {
		store := &fakeEventStore{}
		rec := doCreate(t, store, &fakeImageSaver{saveErr: tc.err}, validFields(), true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, tc.msg, decodeBody(t, rec)["message"])
		assert.Zero(t, store.createCalls)
	}
}

func TestCreateEventStorageFailure(t *testing.T) {
	store := &fakeEventStore{}
	rec := doCreate(t, store, &fakeImageSaver{saveErr: errors.New("disk full")}, validFields(), true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "File write failed", decodeBody(t, rec)["message"])
	// Storage failed before the insert: no orphaned row.
	assert.Zero(t, store.createCalls)
}

func TestCreateEventInvalidDates(t *testing.T) {
	for _, dates := range []string{
		"",
		"not json",
		`[{"event_date":"30-05-2025","start_time":"18:00","end_time":"21:00"}]`,
		`[{"event_date":"2025-05-30","start_time":"21:00","end_time":"18:00"}]`,
	} {
		fields := validFields()
		fields["dates"] = dates
		store := &fakeEventStore{}
		rec := doCreate(t, store, &fakeImageSaver{}, fields, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "dates=%q", dates)
		assert.Zero(t, store.createCalls)
	}
}

func TestCreateEventInvalidCategories(t *testing.T) {
	for _, cats := range []string{
		"",
		"{",
		`[{"name":"","price":10}]`,
		`[{"name":"Premium","price":-1}]`,
	} {
		fields := validFields()
		fields["categories"] = cats
		store := &fakeEventStore{}
		rec := doCreate(t, store, &fakeImageSaver{}, fields, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "categories=%q", cats)
		assert.Zero(t, store.createCalls)
	}
}

func TestListEvents(t *testing.T) {
	lowest := 80.0
	store := &fakeEventStore{listings: []model.EventListing{
		{Event: model.Event{ID: 2, Title: "Newer", Picture: "b.png"}, LowestPrice: &lowest},
		{Event: model.Event{ID: 1, Title: "Older", Picture: "a.png"}}, // no categories yet
	}}

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	h := NewEventHandler(store, &fakeImageSaver{})
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	events, ok := body["events"].([]interface{})
	require.True(t, ok)
	require.Len(t, events, 2)

	first := events[0].(map[string]interface{})
	second := events[1].(map[string]interface{})
	// Repository ordering (newest first) passes through untouched.
	assert.Equal(t, "Newer", first["title"])
	assert.Equal(t, 80.0, first["lowest_price"])
	// An event with zero categories still appears, lowest_price null.
	assert.Equal(t, "Older", second["title"])
	assert.Nil(t, second["lowest_price"])
}

func TestListEventsDBError(t *testing.T) {
	store := &fakeEventStore{listErr: errors.New("boom")}
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	h := NewEventHandler(store, &fakeImageSaver{})
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch events", decodeBody(t, rec)["message"])
}
