package models

// AirportRecord is one entry of the static airport directory.
type AirportRecord struct {
	SuggestionTitle string `json:"suggestionTitle"`
	SkyID           string `json:"skyId"`
	EntityID        string `json:"entityId"`
}
