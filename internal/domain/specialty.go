package domain

import (
	"time"

	"github.com/google/uuid"
)

type SpecialtySource string

const (
	SpecialtySourcePredefined SpecialtySource = "predefined"
	SpecialtySourceCustom     SpecialtySource = "custom"
)

// Specialty is a canonical catalog entry. Its name plus predefined and
// custom synonyms form the lookup vocabulary for the synonym registry.
type Specialty struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	Predefined   []string        `json:"predefined_synonyms"`
	Custom       []string        `json:"custom_synonyms"`
	Source       SpecialtySource `json:"source"`
	LastModified time.Time       `json:"last_modified"`
	CreatedAt    time.Time       `json:"created_at"`
}

// AllNames returns the canonical name followed by every synonym,
// preserving insertion order.
func (s *Specialty) AllNames() []string {
	names := make([]string, 0, 1+len(s.Predefined)+len(s.Custom))
	names = append(names, s.Name)
	names = append(names, s.Predefined...)
	names = append(names, s.Custom...)
	return names
}

// PercentileSet holds the percentile bundle reported by a survey vendor
// for a single compensation metric.
type PercentileSet struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// Metrics carries the aggregated compensation figures attached to an
// observation: total cash compensation, work RVUs, conversion factor.
type Metrics struct {
	TCC  *PercentileSet `json:"tcc,omitempty"`
	WRVU *PercentileSet `json:"wrvu,omitempty"`
	CF   *PercentileSet `json:"cf,omitempty"`
}

// Observation is a (specialty string, vendor) pair as it appears in an
// uploaded survey. Ephemeral: derived from survey rows, never persisted
// on its own.
type Observation struct {
	Specialty string   `json:"specialty"`
	Vendor    string   `json:"vendor"`
	Metrics   *Metrics `json:"metrics,omitempty"`
}

// Key returns the "specialty:vendor" key used in already-mapped
// exclusion sets.
func (o Observation) Key() string {
	return o.Specialty + ":" + o.Vendor
}

// Match is a single scored candidate inside a suggestion.
type Match struct {
	Specialty  Observation `json:"specialty"`
	Confidence float64     `json:"confidence"`
	Reason     string      `json:"reason"`
	Status     string      `json:"status,omitempty"`
}

// Suggestion pairs a source observation with its candidate matches from
// other vendors, sorted by confidence descending.
type Suggestion struct {
	SourceSpecialty  Observation `json:"source_specialty"`
	SuggestedMatches []Match     `json:"suggested_matches"`
}
