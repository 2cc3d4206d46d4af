package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"flylow/handlers"
	"flylow/models"
	"flylow/services/flights"
	"flylow/services/pricing"
)

func TestAPI_RequiresSession(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/api/favorites", "/api/airports?q=lon", "/api/pricing?departureDate=2030-05-01"} {
		rec := app.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestAirportsSuggest(t *testing.T) {
	app := newTestApp(t)
	session := app.signUp(t, "ada@example.com")

	rec := app.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/airports?q=LON", nil), session))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.AirportRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "LHR", got[0].SkyID)
	assert.Equal(t, "LGW", got[1].SkyID)

	rec = app.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/airports?q=", nil), session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSearchAPI(t *testing.T) {
	app := newTestApp(t)
	session := app.signUp(t, "ada@example.com")

	app.searcher.EXPECT().
		Search(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req flights.SearchRequest) ([]models.Itinerary, error) {
			assert.Equal(t, "DUB", req.Origin.SkyID)
			assert.Equal(t, "2030-05-01", req.Date.Format(models.DateLayout))
			return []models.Itinerary{sampleItinerary("EI 154")}, nil
		}).
		Times(1)

	rec := app.do(withBearer(jsonRequest(t, http.MethodPost, "/api/search", map[string]any{
		"from":          "Dublin (DUB)",
		"to":            "London Heathrow (LHR)",
		"departureDate": "2030-05-01",
		"returnDate":    "2030-05-08",
	}), session))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Flights, 1)
	assert.Equal(t, "EI 154", result.Flights[0].FlightNumber)
	require.NotNil(t, result.Criteria.ReturnDate)
	assert.Equal(t, "2030-05-08", result.Criteria.ReturnDate.Format(models.DateLayout))
	departure, err := models.ParseDate("2030-05-01")
	require.NoError(t, err)
	want := pricing.Assess(departure, pricing.Today(time.UTC))
	assert.Equal(t, want.Score, result.Assessment.Score)
}

func TestSearchAPI_Failures(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		upErr   error
		results []models.Itinerary
		status  int
		message string
	}{
		{"unknown airport", "Atlantis", nil, nil, http.StatusUnprocessableEntity, handlers.AirportNotFoundMessage},
		{"upstream error", "Dublin (DUB)", flights.ErrUpstream, nil, http.StatusBadGateway, handlers.FlightDataMessage},
		{"no flight data", "Dublin (DUB)", flights.ErrNoFlightData, nil, http.StatusNotFound, handlers.FlightDataMessage},
		{"empty result", "Dublin (DUB)", nil, []models.Itinerary{}, http.StatusNotFound, handlers.FlightDataMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			session := app.signUp(t, "ada@example.com")
			if tt.from != "Atlantis" {
				app.searcher.EXPECT().Search(gomock.Any(), gomock.Any()).Return(tt.results, tt.upErr)
			}

			rec := app.do(withBearer(jsonRequest(t, http.MethodPost, "/api/search", map[string]any{
				"from":          tt.from,
				"to":            "London Heathrow (LHR)",
				"departureDate": "2030-05-01",
			}), session))
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestSearchAPI_InvalidCriteria(t *testing.T) {
	app := newTestApp(t)
	session := app.signUp(t, "ada@example.com")

	rec := app.do(withBearer(jsonRequest(t, http.MethodPost, "/api/search", map[string]any{
		"from": "Dublin (DUB)",
		"to":   "London Heathrow (LHR)",
	}), session))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPricingAPI(t *testing.T) {
	app := newTestApp(t)
	session := app.signUp(t, "ada@example.com")

	today := time.Now().UTC().Format(models.DateLayout)
	rec := app.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/pricing?departureDate="+today, nil), session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"score":36.2,"idealBuyDate":"Today"}`, rec.Body.String())

	rec = app.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/pricing?departureDate=soon", nil), session))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoritesAPI_AddListRemove(t *testing.T) {
	app := newTestApp(t)
	session := app.signUp(t, "ada@example.com")

	rec := app.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/favorites", nil), session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	var added []models.FavoriteFlight
	for _, number := range []string{"EI 154", "EI 156", "EI 154"} {
		rec = app.do(withBearer(jsonRequest(t, http.MethodPost, "/api/favorites", sampleItinerary(number)), session))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var fav models.FavoriteFlight
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fav))
		assert.NotEmpty(t, fav.ID)
		added = append(added, fav)
	}

	rec = app.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/favorites", nil), session))
	var list []models.FavoriteFlight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, added[0].ID, list[0].ID)
	assert.Equal(t, added[2].ID, list[2].ID)

	rec = app.do(withBearer(httptest.NewRequest(http.MethodDelete, "/api/favorites/"+added[1].ID, nil), session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":true}`, rec.Body.String())

	rec = app.do(withBearer(jsonRequest(t, http.MethodPost, "/api/favorites/remove", sampleItinerary("EI 154")), session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":true}`, rec.Body.String())

	list, err := app.favorites.List(context.Background(), session.AccountID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, added[2].ID, list[0].ID)

	rec = app.do(withBearer(httptest.NewRequest(http.MethodDelete, "/api/favorites/unknown", nil), session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":false}`, rec.Body.String())
}

func TestFavoritesAPI_ScopedToAccount(t *testing.T) {
	app := newTestApp(t)
	ada := app.signUp(t, "ada@example.com")
	bob := app.signUp(t, "bob@example.com")

	rec := app.do(withBearer(jsonRequest(t, http.MethodPost, "/api/favorites", sampleItinerary("EI 154")), ada))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/favorites", nil), bob))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// failingFs rejects file creation once fail is set.
type failingFs struct {
	afero.Fs
	fail atomic.Bool
}

func (f *failingFs) Create(name string) (afero.File, error) {
	if f.fail.Load() {
		return nil, errors.New("disk full")
	}
	return f.Fs.Create(name)
}

func TestFavoritesAPI_WriteFailureLeavesListUnchanged(t *testing.T) {
	fs := &failingFs{Fs: afero.NewMemMapFs()}
	app := newTestApp(t, withFavoritesFs(fs))
	session := app.signUp(t, "ada@example.com")

	rec := app.do(withBearer(jsonRequest(t, http.MethodPost, "/api/favorites", sampleItinerary("EI 154")), session))
	require.Equal(t, http.StatusCreated, rec.Code)

	fs.fail.Store(true)
	rec = app.do(withBearer(jsonRequest(t, http.MethodPost, "/api/favorites", sampleItinerary("EI 156")), session))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to save flight.")

	list, err := app.favorites.List(context.Background(), session.AccountID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "EI 154", list[0].Flight.FlightNumber)
}

func TestFavoritesAPI_InvalidBody(t *testing.T) {
	app := newTestApp(t)
	session := app.signUp(t, "ada@example.com")

	req := withBearer(httptest.NewRequest(http.MethodPost, "/api/favorites", nil), session)
	rec := app.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
