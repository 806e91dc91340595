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
	"strings"

	"github.com/itplan/worklog-assistant/services/worklog/config"
	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

// =============================================================================
// Intent Classifier
// =============================================================================

// Classifier maps query keywords to one of the fixed query intents.
// The keyword sets live in the rule table (data, not branching code)
// so they stay extensible and testable in isolation.
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type Classifier struct {
	rules []config.IntentRule
}

// NewClassifier creates a Classifier from the rule table.
//
// Inputs:
//
//	cfg - The loaded intent configuration. Must not be nil.
//
// Outputs:
//
//	*Classifier - The constructed classifier. Never nil.
func NewClassifier(cfg *config.IntentConfig) *Classifier {
	return &Classifier{rules: cfg.Intents}
}

// Classify returns the query intent.
//
// Description:
//
//	Pure keyword-membership test. Rules are evaluated in the table's
//	priority order; the first intent whose keyword set matches wins.
//	A query matching nothing classifies as general_info.
//
// Inputs:
//
//	queryText - The raw user query.
//
// Outputs:
//
//	datatypes.Intent - The classified intent. Never an error.
func (c *Classifier) Classify(queryText string) datatypes.Intent {
	queryLower := strings.ToLower(queryText)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(queryLower, kw) {
				return datatypes.Intent(rule.Intent)
			}
		}
	}
	return datatypes.IntentGeneralInfo
}

// NeedsFor maps an intent to its record-type fetch bundle.
//
// Description:
//
//	The mapping is deterministic and total: every intent resolves to a
//	fixed Needs value. Employees are always loaded before this point
//	(they are a prerequisite for name matching), so user_list needs
//	nothing extra.
func NeedsFor(intent datatypes.Intent) datatypes.Needs {
	switch intent {
	case datatypes.IntentUserList:
		return datatypes.Needs{}
	case datatypes.IntentTaskList:
		return datatypes.Needs{Tasks: true}
	case datatypes.IntentSpecificTask:
		return datatypes.Needs{Tasks: true, TimeEntries: true}
	case datatypes.IntentTimeEntries:
		return datatypes.Needs{TimeEntries: true}
	case datatypes.IntentOverdueCheck:
		return datatypes.Needs{Tasks: true, Overdue: true}
	case datatypes.IntentProjectList:
		return datatypes.Needs{Projects: true, TimeEntries: true}
	case datatypes.IntentUserActivity:
		return datatypes.Needs{Tasks: true, TimeEntries: true}
	default:
		// general_info fetches broadly; the summarizer narrows.
		return datatypes.Needs{Tasks: true, TimeEntries: true, Projects: true}
	}
}
