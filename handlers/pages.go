package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"flylow/internal/auth"
	"flylow/models"
	"flylow/services/accounts"
	"flylow/services/favorites"
	"flylow/services/oauth"
)

//go:embed templates/*.html
var templateFiles embed.FS

const pageTitle = "Flylow - Flight Price Tracker"

var pageNames = []string{"landing", "results", "signin", "myflights"}

// Sign-in page messages that do not come from the identity provider.
const (
	RateLimitedMessage  = "Too many attempts. Please wait a minute and try again."
	LoadFavoritesFailed = "Failed to load saved flights."
	RemoveFailedMessage = "Failed to remove flight."
)

// PagesConfig controls page rendering.
type PagesConfig struct {
	// Location renders departure and arrival clock times.
	Location      *time.Location
	GoogleEnabled bool
}

// PagesHandler renders the landing, results, sign-in and saved-flights pages.
type PagesHandler struct {
	auth          *AuthHandler
	search        searchService
	favorites     favoritesService
	templates     map[string]*template.Template
	googleEnabled bool
}

type pageData struct {
	Title      string
	SignedIn   bool
	Error      string
	Criteria   models.SearchCriteria
	Result     *models.SearchResult
	Assessment *models.PriceAssessment
	Saved      map[string]string
	Favorites  []models.FavoriteFlight
	Mode       string
	GoogleURL  string
	Next       string
}

type legView struct {
	List  []models.Itinerary
	Saved map[string]string
}

// NewPagesHandler parses the embedded templates.
func NewPagesHandler(authHandler *AuthHandler, searchSvc searchService, favoritesSvc favoritesService, cfg PagesConfig) (*PagesHandler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	funcs := template.FuncMap{
		"clock": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("15:04")
		},
		"day": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(models.DateLayout)
		},
		"deref": func(t *time.Time) time.Time {
			if t == nil {
				return time.Time{}
			}
			return *t
		},
		"legs": func(list []models.Itinerary, saved map[string]string) legView {
			return legView{List: list, Saved: saved}
		},
		"fingerprint": favorites.Fingerprint,
		"flightJSON": func(flight models.Itinerary) (string, error) {
			data, err := json.Marshal(flight)
			return string(data), err
		},
	}

	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &PagesHandler{
		auth:          authHandler,
		search:        searchSvc,
		favorites:     favoritesSvc,
		templates:     templates,
		googleEnabled: cfg.GoogleEnabled,
	}, nil
}

func (h *PagesHandler) render(w http.ResponseWriter, name string, status int, data pageData) {
	data.Title = pageTitle
	var buf bytes.Buffer
	if err := h.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("[pages] render %s: %v", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Landing renders the search form.
func (h *PagesHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, "landing", http.StatusOK, pageData{SignedIn: true})
}

// SearchResultsRedirect sends direct visits back to the form; results are
// reachable only by submitting it.
func (h *PagesHandler) SearchResultsRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SearchResults runs the submitted search and renders flights and the price assessment.
func (h *PagesHandler) SearchResults(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	nearby := r.PostForm.Get("nearbyAirports")
	criteria, err := models.ParseCriteria(
		r.PostForm.Get("from"),
		r.PostForm.Get("to"),
		r.PostForm.Get("departureDate"),
		r.PostForm.Get("returnDate"),
		nearby == "on" || nearby == "true",
	)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	assessment := h.search.Assess(criteria.DepartureDate)
	data := pageData{
		SignedIn:   true,
		Criteria:   criteria,
		Assessment: &assessment,
	}

	var (
		result    models.SearchResult
		searchErr error
		wg        conc.WaitGroup
	)
	wg.Go(func() { data.Saved = h.savedFingerprints(r) })
	wg.Go(func() { result, searchErr = h.search.Search(r.Context(), criteria) })
	wg.Wait()
	if searchErr != nil {
		_, data.Error = searchFailure(searchErr)
		log.Printf("[pages] search: %v", searchErr)
	} else {
		data.Result = &result
	}
	h.render(w, "results", http.StatusOK, data)
}

// savedFingerprints maps fingerprints of the user's favorites to their ids so
// stars render filled for flights already saved.
func (h *PagesHandler) savedFingerprints(r *http.Request) map[string]string {
	saved := map[string]string{}
	list, err := h.favorites.List(r.Context(), auth.GetAccountID(r))
	if err != nil {
		log.Printf("[pages] list favorites: %v", err)
		return saved
	}
	for _, fav := range list {
		if _, ok := saved[fav.Fingerprint]; !ok {
			saved[fav.Fingerprint] = fav.ID
		}
	}
	return saved
}

func signInMode(r *http.Request) string {
	if r.FormValue("mode") == oauth.ModeSignUp {
		return oauth.ModeSignUp
	}
	return oauth.ModeSignIn
}

// safeNext keeps post-sign-in redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (h *PagesHandler) signInData(mode, next string) pageData {
	data := pageData{Mode: mode, Next: next}
	if h.googleEnabled {
		data.GoogleURL = oauth.LoginURL(mode)
	}
	return data
}

// SignIn renders the sign-in or sign-up form. Signed-in visitors go home.
func (h *PagesHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if auth.GetAccountID(r) != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	mode := signInMode(r)
	data := h.signInData(mode, r.URL.Query().Get("next"))
	switch r.URL.Query().Get("error") {
	case "oauth":
		data.Error = oauth.FailureMessage(mode)
	case "rate":
		data.Error = RateLimitedMessage
	}
	h.render(w, "signin", http.StatusOK, data)
}

// SignInSubmit handles the email/password form for both modes.
func (h *PagesHandler) SignInSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "signin", http.StatusBadRequest, h.signInData(oauth.ModeSignIn, ""))
		return
	}
	mode := signInMode(r)
	next := r.PostForm.Get("next")

	_, session, err := h.auth.authenticate(r, mode == oauth.ModeSignUp, r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		code := accounts.Code(err)
		if code == "" {
			log.Printf("[pages] %s: %v", mode, err)
		}
		data := h.signInData(mode, next)
		data.Error = AuthMessage(code)
		h.render(w, "signin", http.StatusOK, data)
		return
	}

	auth.SetSessionCookie(w, r, session)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

// SignOut ends the session and returns to the sign-in page.
func (h *PagesHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.auth.revoke(r)
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

// MyFlights lists the user's saved flights.
func (h *PagesHandler) MyFlights(w http.ResponseWriter, r *http.Request) {
	data := pageData{SignedIn: true}
	list, err := h.favorites.List(r.Context(), auth.GetAccountID(r))
	if err != nil {
		log.Printf("[pages] list favorites: %v", err)
		data.Error = LoadFavoritesFailed
	}
	data.Favorites = list
	if r.URL.Query().Get("error") == "remove" {
		data.Error = RemoveFailedMessage
	}
	h.render(w, "myflights", http.StatusOK, data)
}

// MyFlightsRemove deletes one saved flight and reloads the list.
func (h *PagesHandler) MyFlightsRemove(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	if _, err := h.favorites.Remove(r.Context(), auth.GetAccountID(r), id); err != nil {
		if !errors.Is(err, favorites.ErrFavoriteIDRequired) {
			log.Printf("[pages] remove favorite %q: %v", id, err)
		}
		http.Redirect(w, r, "/myflights?error=remove", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/myflights", http.StatusSeeOther)
}
