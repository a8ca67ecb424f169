package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventManualMap      EventType = "manual_map"
	EventAutoMapApprove EventType = "auto_map_approve"
	EventAutoMapReject  EventType = "auto_map_reject"
	EventSynonymAdd     EventType = "synonym_add"
	EventSynonymRemove  EventType = "synonym_remove"
)

func ValidEventType(t string) bool {
	switch EventType(t) {
	case EventManualMap, EventAutoMapApprove, EventAutoMapReject,
		EventSynonymAdd, EventSynonymRemove:
		return true
	}
	return false
}

// PatternFlags records which structural relations held between the
// source and target strings at decision time. They drive the match type
// inferred for newly created rules.
type PatternFlags struct {
	WordMatch    bool `json:"word_match"`
	PrefixMatch  bool `json:"prefix_match"`
	SuffixMatch  bool `json:"suffix_match"`
	AcronymMatch bool `json:"acronym_match"`
}

// LearningEvent is an immutable, append-only record of a mapping
// decision. It is both the audit trail and the training signal for rule
// derivation; the store exposes no update or delete for it.
type LearningEvent struct {
	ID              uuid.UUID    `json:"id"`
	Type            EventType    `json:"type"`
	SourceSpecialty string       `json:"source_specialty"`
	TargetSpecialty string       `json:"target_specialty,omitempty"`
	Confidence      float64      `json:"confidence"`
	Reason          string       `json:"reason"`
	Vendor          string       `json:"vendor,omitempty"`
	Patterns        PatternFlags `json:"patterns"`
	CreatedAt       time.Time    `json:"created_at"`
}

type MatchType string

const (
	MatchTypeExact          MatchType = "exact"
	MatchTypePrefix         MatchType = "prefix"
	MatchTypeSuffix         MatchType = "suffix"
	MatchTypeAcronym        MatchType = "acronym"
	MatchTypeSimilar        MatchType = "similar"
	MatchTypeVendorSpecific MatchType = "vendor_specific"
)

// MatchingRule is a derived, mutable source→target pattern whose
// confidence grows with approvals (+0.1 per success, capped at 1).
// FailureCount is tracked but does not reduce confidence.
type MatchingRule struct {
	ID            uuid.UUID  `json:"id"`
	SourcePattern string     `json:"source_pattern"`
	TargetPattern string     `json:"target_pattern"`
	Confidence    float64    `json:"confidence"`
	MatchType     MatchType  `json:"match_type"`
	SuccessCount  int        `json:"success_count"`
	FailureCount  int        `json:"failure_count"`
	Examples      []string   `json:"examples"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastApplied   *time.Time `json:"last_applied,omitempty"`
}

// RuleSuggestion is a target proposal derived from rules or historical
// approvals for a given source specialty.
type RuleSuggestion struct {
	TargetSpecialty string  `json:"target_specialty"`
	Confidence      float64 `json:"confidence"`
	Reason          string  `json:"reason"`
}

// MatchingStats aggregates the learned mapping state: cross-vendor
// connection count (adjacent pairs in group chains, single-source groups
// excluded), per-vendor mapping counts, and the percentage breakdown of
// pattern types observed across group pairs.
type MatchingStats struct {
	TotalConnections int                `json:"total_connections"`
	ByVendor         map[string]int     `json:"by_vendor"`
	PatternBreakdown map[string]float64 `json:"pattern_breakdown"`
}
