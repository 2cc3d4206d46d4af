package airports

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"flylow/models"
)

var (
	ErrDataLoad        = errors.New("failed to load airport data")
	ErrAirportNotFound = errors.New("airport not found")
)

// Directory is the static airport list, loaded once and read-only afterwards.
type Directory struct {
	records []models.AirportRecord
	lowered []string
}

// lower maps to lower case without the wider folding of cases.Fold, so
// "ss" does not match "ß". Casers hold state and are not shared.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Load reads the airport JSON array at path from fs.
func Load(fs afero.Fs, path string) (*Directory, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDataLoad, path, err)
	}

	if mtype := mimetype.Detect(data); !isTextual(mtype) {
		return nil, fmt.Errorf("%w: %s has content type %s", ErrDataLoad, path, mtype.String())
	}

	var records []models.AirportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrDataLoad, path, err)
	}

	log.Printf("[airports] loaded %d airports from %s", len(records), path)
	return New(records), nil
}

// New builds a directory from records already in memory.
func New(records []models.AirportRecord) *Directory {
	d := &Directory{
		records: append([]models.AirportRecord(nil), records...),
		lowered: make([]string, len(records)),
	}
	for i, r := range d.records {
		d.lowered[i] = lower(r.SuggestionTitle)
	}
	return d
}

// Len returns the number of records.
func (d *Directory) Len() int {
	return len(d.records)
}

// Suggest returns, in directory order, every airport whose display name
// contains input case-insensitively. Empty input yields no suggestions.
func (d *Directory) Suggest(input string) []models.AirportRecord {
	suggestions := []models.AirportRecord{}
	if len(input) == 0 {
		return suggestions
	}

	needle := lower(input)
	for i, title := range d.lowered {
		if d.records[i].SuggestionTitle == "" {
			continue
		}
		if strings.Contains(title, needle) {
			suggestions = append(suggestions, d.records[i])
		}
	}
	return suggestions
}

// Lookup returns the first airport whose display name equals title exactly.
func (d *Directory) Lookup(title string) (models.AirportRecord, error) {
	for _, r := range d.records {
		if r.SuggestionTitle == title {
			return r, nil
		}
	}
	return models.AirportRecord{}, fmt.Errorf("%w: %q", ErrAirportNotFound, title)
}

// isTextual accepts JSON (and anything derived from it) or plain text; the
// JSON decoder has the final word on the latter.
func isTextual(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("application/json") || m.Is("text/plain") {
			return true
		}
	}
	return false
}
