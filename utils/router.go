package utils

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter constructs the base mux router with the liveness route.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.StrictSlash(true)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return r
}
