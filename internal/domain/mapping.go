package domain

import (
	"time"

	"github.com/google/uuid"
)

// SpecialtyMapping links a raw vendor specialty string to one or more
// canonical names within a single survey. A source specialty is unique
// among a survey's mappings: re-saving replaces rather than appends.
type SpecialtyMapping struct {
	ID                uuid.UUID `json:"id"`
	SurveyID          uuid.UUID `json:"survey_id"`
	SourceSpecialty   string    `json:"source_specialty"`
	MappedSpecialties []string  `json:"mapped_specialties"`
	Confidence        float64   `json:"confidence"`
	IsVerified        bool      `json:"is_verified"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// GroupMember is one (specialty, vendor) entry of a mapped group.
type GroupMember struct {
	Specialty string `json:"specialty"`
	Vendor    string `json:"vendor"`
}

// Key returns the member's "specialty:vendor" exclusion-set key.
func (m GroupMember) Key() string {
	return m.Specialty + ":" + m.Vendor
}

// MappedGroup is a persisted cluster of cross-vendor observations
// treated as one canonical specialty. IsSingleSource marks groups with
// no cross-vendor confirmation yet; those are excluded from connection
// statistics but still count as resolved for suggestion purposes.
type MappedGroup struct {
	ID             uuid.UUID     `json:"id"`
	Members        []GroupMember `json:"members"`
	IsSingleSource bool          `json:"is_single_source"`
	CreatedAt      time.Time     `json:"created_at"`
}
