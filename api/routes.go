package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"flylow/handlers"
	"flylow/services/oauth"
)

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Pages     *handlers.PagesHandler
	Airports  *handlers.AirportsHandler
	Search    *handlers.SearchHandler
	Favorites *handlers.FavoritesHandler
	Static    http.Handler
	// OAuth is nil when no provider is configured.
	OAuth *oauth.Service
}

// RegisterRoutes mounts pages, the JSON API and provider routes on r.
// signInLimiter throttles credential submissions per IP.
func RegisterRoutes(r *mux.Router, h Handlers, validator SessionValidator, signInLimiter *IPRateLimiter) {
	page := PageAuthMiddleware(validator)
	optional := OptionalAuthMiddleware(validator)
	limited := func(f http.HandlerFunc) http.Handler {
		if signInLimiter == nil {
			return f
		}
		return RateLimit(signInLimiter, f)
	}

	if h.Static != nil {
		r.PathPrefix("/static/").Handler(h.Static).Methods(http.MethodGet)
	}
	if h.OAuth.Enabled() {
		r.PathPrefix("/auth/").Handler(h.OAuth.Handlers())
	}

	// Pages
	r.Handle("/", page(http.HandlerFunc(h.Pages.Landing))).Methods(http.MethodGet)
	r.HandleFunc("/search-results", h.Pages.SearchResultsRedirect).Methods(http.MethodGet)
	r.Handle("/search-results", page(http.HandlerFunc(h.Pages.SearchResults))).Methods(http.MethodPost)
	r.Handle("/signin", optional(http.HandlerFunc(h.Pages.SignIn))).Methods(http.MethodGet)
	r.Handle("/signin", limited(h.Pages.SignInSubmit)).Methods(http.MethodPost)
	r.HandleFunc("/signout", h.Pages.SignOut).Methods(http.MethodPost)
	r.Handle("/myflights", page(http.HandlerFunc(h.Pages.MyFlights))).Methods(http.MethodGet)
	r.Handle("/myflights/remove", page(http.HandlerFunc(h.Pages.MyFlightsRemove))).Methods(http.MethodPost)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/version", handlers.GetVersion).Methods(http.MethodGet)

	// Auth
	apiRouter.Handle("/auth/signup", limited(h.Auth.SignUp)).Methods(http.MethodPost)
	apiRouter.Handle("/auth/signin", limited(h.Auth.SignIn)).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/signout", h.Auth.SignOut).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/me", h.Auth.Me).Methods(http.MethodGet)
	apiRouter.HandleFunc("/auth/events", h.Auth.Events).Methods(http.MethodGet)
	if h.OAuth.Enabled() {
		apiRouter.Handle("/auth/oauth/complete", h.OAuth.Trace(http.HandlerFunc(h.Auth.OAuthComplete))).Methods(http.MethodGet)
	}

	// Signed-in API
	protected := AccountAuthMiddleware(validator)
	apiRouter.Handle("/airports", protected(http.HandlerFunc(h.Airports.Suggest))).Methods(http.MethodGet)
	apiRouter.Handle("/search", protected(http.HandlerFunc(h.Search.Search))).Methods(http.MethodPost)
	apiRouter.Handle("/pricing", protected(http.HandlerFunc(h.Search.Pricing))).Methods(http.MethodGet)
	apiRouter.Handle("/favorites", protected(http.HandlerFunc(h.Favorites.List))).Methods(http.MethodGet)
	apiRouter.Handle("/favorites", protected(http.HandlerFunc(h.Favorites.Add))).Methods(http.MethodPost)
	apiRouter.Handle("/favorites/remove", protected(http.HandlerFunc(h.Favorites.RemoveMatching))).Methods(http.MethodPost)
	apiRouter.Handle("/favorites/{id}", protected(http.HandlerFunc(h.Favorites.Remove))).Methods(http.MethodDelete)
}
