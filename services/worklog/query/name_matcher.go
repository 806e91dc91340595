// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package query interprets free-text worklog questions: it resolves an
// employee identity, a concrete time window, and a query intent. All
// functions here are pure (no I/O) and never fail; absence of a match
// is a valid, expected outcome.
package query

import (
	"regexp"
	"strings"

	"github.com/itplan/worklog-assistant/services/worklog/config"
	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

// =============================================================================
// Name Matcher
// =============================================================================

// namePatterns extract capitalized word sequences from the raw query,
// longest first, for both Cyrillic and Latin alphabets. They are the
// fallback when no known name token appears directly in the query.
var namePatterns = []*regexp.Regexp{
	// Full names (three capitalized words)
	regexp.MustCompile(`([А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+)|([A-Z][a-z]+\s+[A-Z][a-z]+\s+[A-Z][a-z]+)`),
	// First + last name
	regexp.MustCompile(`([А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+)|([A-Z][a-z]+\s+[A-Z][a-z]+)`),
	// Single capitalized word
	regexp.MustCompile(`([А-ЯЁ][а-яё]{2,})|([A-Z][a-z]{2,})`),
}

// Matcher resolves a free-text substring to a known employee identity
// or to one of the sentinel outcomes (ALL, UNKNOWN_SINGLE, none).
//
// Thread Safety: Safe for concurrent use (all state is read-only after
// construction).
type Matcher struct {
	unknownSingleMarkers []string
	allMarkers           []string
}

// NewMatcher creates a Matcher using the sentinel marker lists from
// the rule table.
//
// Inputs:
//
//	cfg - The loaded intent configuration. Must not be nil.
//
// Outputs:
//
//	*Matcher - The constructed matcher. Never nil.
func NewMatcher(cfg *config.IntentConfig) *Matcher {
	m := &Matcher{}
	for _, marker := range cfg.UnknownSingleMarkers {
		m.unknownSingleMarkers = append(m.unknownSingleMarkers, strings.ToLower(marker))
	}
	for _, marker := range cfg.AllMarkers {
		m.allMarkers = append(m.allMarkers, strings.ToLower(marker))
	}
	return m
}

// Match resolves the query to an employee identity.
//
// Description:
//
//	Rules are applied in order, first match wins:
//	 1. Full display-name substring test (case-insensitive).
//	 2. Name-token (>2 chars) substring test, in employee declaration
//	    order. Ambiguity between employees sharing a token resolves to
//	    the first declared, deterministically.
//	 3. Capitalized-sequence extraction from the raw query, matched
//	    back against known names.
//	 4. Indefinite-reference markers → UNKNOWN_SINGLE.
//	 5. List/aggregate markers → ALL.
//	 6. Otherwise no employee constraint.
//
// Inputs:
//
//	queryText - The raw user query.
//	employees - Known employees in backend declaration order.
//
// Outputs:
//
//	datatypes.NameMatch - The match outcome. Never an error.
func (m *Matcher) Match(queryText string, employees []datatypes.Employee) datatypes.NameMatch {
	queryLower := strings.ToLower(queryText)

	// 1. Full display name.
	for i := range employees {
		if strings.Contains(queryLower, strings.ToLower(employees[i].DisplayName)) {
			return datatypes.NameMatch{Kind: datatypes.MatchEmployee, Employee: &employees[i]}
		}
	}

	// 2. Name tokens longer than two characters, declaration order.
	for i := range employees {
		for _, token := range strings.Fields(strings.ToLower(employees[i].DisplayName)) {
			if len([]rune(token)) > 2 && strings.Contains(queryLower, token) {
				return datatypes.NameMatch{Kind: datatypes.MatchEmployee, Employee: &employees[i]}
			}
		}
	}

	// 3. Capitalized-sequence fallback against the raw query.
	for _, pattern := range namePatterns {
		candidate := pattern.FindString(queryText)
		if candidate == "" {
			continue
		}
		candidateLower := strings.ToLower(strings.TrimSpace(candidate))
		for i := range employees {
			if strings.Contains(strings.ToLower(employees[i].DisplayName), candidateLower) {
				return datatypes.NameMatch{Kind: datatypes.MatchEmployee, Employee: &employees[i]}
			}
		}
	}

	// 4. Unidentified-individual markers take precedence over list
	// markers when both appear.
	for _, marker := range m.unknownSingleMarkers {
		if strings.Contains(queryLower, marker) {
			return datatypes.NameMatch{Kind: datatypes.MatchUnknownSingle}
		}
	}

	// 5. Whole-team markers.
	for _, marker := range m.allMarkers {
		if strings.Contains(queryLower, marker) {
			return datatypes.NameMatch{Kind: datatypes.MatchAll}
		}
	}

	return datatypes.NameMatch{Kind: datatypes.MatchNone}
}
