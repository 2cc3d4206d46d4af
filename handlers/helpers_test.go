package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"flylow/api"
	"flylow/handlers"
	"flylow/internal/auth"
	"flylow/models"
	"flylow/services/accounts"
	"flylow/services/airports"
	"flylow/services/favorites"
	"flylow/services/flights/mocks"
	"flylow/services/search"
	"flylow/services/sessions"
	"flylow/utils"
)

const dataDir = "/data"

var testAirports = []models.AirportRecord{
	{SuggestionTitle: "London Heathrow (LHR)", SkyID: "LHR", EntityID: "95565050"},
	{SuggestionTitle: "Dublin (DUB)", SkyID: "DUB", EntityID: "95673529"},
	{SuggestionTitle: "London Gatwick (LGW)", SkyID: "LGW", EntityID: "95565051"},
}

type testApp struct {
	router    *mux.Router
	accounts  *accounts.Service
	sessions  *sessions.Service
	favorites *favorites.Service
	searcher  *mocks.MockSearcher
}

type appOption func(*appConfig)

type appConfig struct {
	favoritesFs afero.Fs
}

// withFavoritesFs stores favorites on fs instead of the shared in-memory fs.
func withFavoritesFs(fs afero.Fs) appOption {
	return func(c *appConfig) { c.favoritesFs = fs }
}

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	fs := afero.NewMemMapFs()
	cfg := appConfig{favoritesFs: fs}
	for _, opt := range opts {
		opt(&cfg)
	}

	accountsSvc, err := accounts.NewService(fs, dataDir)
	require.NoError(t, err)
	sessionsSvc, err := sessions.NewService(fs, dataDir, time.Hour)
	require.NoError(t, err)
	t.Cleanup(sessionsSvc.Close)

	store, err := favorites.NewFileStore(cfg.favoritesFs, dataDir)
	require.NoError(t, err)
	favoritesSvc := favorites.NewService(store)

	ctrl := gomock.NewController(t)
	searcher := mocks.NewMockSearcher(ctrl)
	directory := airports.New(testAirports)
	searchSvc := search.NewService(directory, searcher, time.UTC)

	authHandler := handlers.NewAuthHandler(accountsSvc, sessionsSvc)
	pages, err := handlers.NewPagesHandler(authHandler, searchSvc, favoritesSvc, handlers.PagesConfig{Location: time.UTC})
	require.NoError(t, err)

	router := utils.NewRouter()
	api.RegisterRoutes(router, api.Handlers{
		Auth:      authHandler,
		Pages:     pages,
		Airports:  handlers.NewAirportsHandler(directory),
		Search:    handlers.NewSearchHandler(searchSvc),
		Favorites: handlers.NewFavoritesHandler(favoritesSvc),
		Static:    handlers.NewStaticHandler(),
	}, sessionsSvc, nil)

	return &testApp{
		router:    router,
		accounts:  accountsSvc,
		sessions:  sessionsSvc,
		favorites: favoritesSvc,
		searcher:  searcher,
	}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// signUp creates an account and returns a session token for it.
func (a *testApp) signUp(t *testing.T, email string) models.Session {
	t.Helper()
	account, err := a.accounts.SignUp(email, "secret123")
	require.NoError(t, err)
	session, err := a.sessions.Create(account.ID, "test", "127.0.0.1")
	require.NoError(t, err)
	return session
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withBearer(req *http.Request, session models.Session) *http.Request {
	req.Header.Set("Authorization", "Bearer "+session.Token)
	return req
}

func withCookie(req *http.Request, session models.Session) *http.Request {
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: session.Token})
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sampleItinerary(number string) models.Itinerary {
	return models.Itinerary{
		Airline:         "Aer Lingus",
		LogoURL:         "https://logos.example/ei.png",
		PriceDisplay:    "€89",
		DurationMinutes: 85,
		Departure:       time.Date(2030, 5, 1, 7, 30, 0, 0, time.UTC),
		Arrival:         time.Date(2030, 5, 1, 8, 55, 0, 0, time.UTC),
		StopCount:       0,
		FlightNumber:    number,
	}
}
