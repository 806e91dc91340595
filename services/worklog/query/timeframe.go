// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

// =============================================================================
// Timeframe Extractor
// =============================================================================

// monthStem maps a lowercase month-name stem to its calendar month.
// Stems cover English names and the Russian inflected forms seen in
// real queries ("сентябр" matches "сентябре", "сентября", ...).
type monthStem struct {
	stem  string
	month time.Month
}

var monthStems = []monthStem{
	{"january", time.January}, {"february", time.February},
	{"march", time.March}, {"april", time.April},
	{"may", time.May}, {"june", time.June},
	{"july", time.July}, {"august", time.August},
	{"september", time.September}, {"october", time.October},
	{"november", time.November}, {"december", time.December},
	{"январ", time.January}, {"феврал", time.February},
	{"март", time.March}, {"апрел", time.April},
	{"мая", time.May}, {"май", time.May},
	{"июн", time.June}, {"июл", time.July},
	{"август", time.August}, {"сентябр", time.September},
	{"октябр", time.October}, {"ноябр", time.November},
	{"декабр", time.December},
}

var (
	yearPattern = regexp.MustCompile(`\b(\d{4})\b`)
	lastNDaysEN = regexp.MustCompile(`last\s+(\d+)\s+days?`)
	lastNDaysRU = regexp.MustCompile(`последни[ех]\s+(\d+)\s+дн`)
)

// defaultTimeSpan is the trailing window, in days, used when the query
// names no period at all.
const defaultTimeSpan = 365

// DefaultTimeframeLabel is the label applied when no window could be
// extracted and the full available period is used.
const DefaultTimeframeLabel = "entire available period"

// ExtractTimeframe resolves a free-text query to a concrete date
// window with a human-readable label.
//
// Description:
//
//	First applicable rule wins:
//	 1. Explicit 4-digit year plus a recognized month stem → that month
//	    in that year.
//	 2. Month stem alone → same month in the current year.
//	 3. Year alone → Jan 1 to Dec 31 of that year.
//	 4. Relative keywords: today, yesterday, week (7d), month (30d),
//	    and a free-form "last N days".
//	 5. Default: the trailing 365 days, labeled "entire available period".
//
//	Month and year windows use true calendar boundaries; numeric-day
//	windows use whole calendar days ending at now. The label is
//	display-only.
//
// Inputs:
//
//	queryText - The raw user query.
//	now - The reference instant (injected for testability).
//
// Outputs:
//
//	datatypes.Timeframe - The resolved window. Never an error.
func ExtractTimeframe(queryText string, now time.Time) datatypes.Timeframe {
	queryLower := strings.ToLower(queryText)
	today := midnight(now)

	year := 0
	if m := yearPattern.FindStringSubmatch(queryLower); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil && y >= 1970 && y <= 2200 {
			year = y
		}
	}

	month, monthFound := findMonth(queryLower)

	switch {
	case monthFound && year != 0:
		start, end := monthBounds(year, month, now.Location())
		return datatypes.Timeframe{Start: start, End: end, Label: fmt.Sprintf("%s %d", month, year)}
	case monthFound:
		start, end := monthBounds(today.Year(), month, now.Location())
		return datatypes.Timeframe{Start: start, End: end, Label: fmt.Sprintf("%s %d", month, today.Year())}
	case year != 0:
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
		end := time.Date(year, time.December, 31, 0, 0, 0, 0, now.Location())
		return datatypes.Timeframe{Start: start, End: end, Label: strconv.Itoa(year)}
	}

	if strings.Contains(queryLower, "today") || strings.Contains(queryLower, "сегодня") {
		return datatypes.Timeframe{Start: today, End: today, Label: "today"}
	}
	if strings.Contains(queryLower, "yesterday") || strings.Contains(queryLower, "вчера") {
		y := today.AddDate(0, 0, -1)
		return datatypes.Timeframe{Start: y, End: y, Label: "yesterday"}
	}
	if m := lastNDaysEN.FindStringSubmatch(queryLower); m != nil {
		return lastNDays(today, m[1])
	}
	if m := lastNDaysRU.FindStringSubmatch(queryLower); m != nil {
		return lastNDays(today, m[1])
	}
	if strings.Contains(queryLower, "week") || strings.Contains(queryLower, "недел") {
		return datatypes.Timeframe{Start: today.AddDate(0, 0, -7), End: today, Label: "last 7 days"}
	}
	if strings.Contains(queryLower, "month") || strings.Contains(queryLower, "месяц") {
		return datatypes.Timeframe{Start: today.AddDate(0, 0, -30), End: today, Label: "last 30 days"}
	}

	return datatypes.Timeframe{
		Start: today.AddDate(0, 0, -defaultTimeSpan),
		End:   today,
		Label: DefaultTimeframeLabel,
	}
}

// findMonth returns the first month stem contained in the query.
func findMonth(queryLower string) (time.Month, bool) {
	for _, ms := range monthStems {
		if strings.Contains(queryLower, ms.stem) {
			return ms.month, true
		}
	}
	return 0, false
}

// monthBounds returns the first and last calendar day of a month.
func monthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// lastNDays builds a trailing window of n whole days ending today.
func lastNDays(today time.Time, digits string) datatypes.Timeframe {
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		n = 7
	}
	return datatypes.Timeframe{
		Start: today.AddDate(0, 0, -n),
		End:   today,
		Label: fmt.Sprintf("last %d days", n),
	}
}

// midnight truncates an instant to its calendar day.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
