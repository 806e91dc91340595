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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itplan/worklog-assistant/services/worklog/config"
	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	cfg, err := config.GetIntentConfig(context.Background())
	require.NoError(t, err)
	return NewClassifier(cfg)
}

func TestClassifyKeywordRouting(t *testing.T) {
	c := newTestClassifier(t)

	cases := []struct {
		query string
		want  datatypes.Intent
	}{
		{"list employees please", datatypes.IntentUserList},
		{"список сотрудников", datatypes.IntentUserList},
		{"show tasks for Kirill", datatypes.IntentTaskList},
		{"какие задачи у Сергея", datatypes.IntentTaskList},
		{"tell me about task named Deploy", datatypes.IntentSpecificTask},
		{"how many hours did Ivan log", datatypes.IntentTimeEntries},
		{"сколько часов отработал Кирилл", datatypes.IntentTimeEntries},
		{"is anything overdue", datatypes.IntentOverdueCheck},
		{"есть ли просроченные", datatypes.IntentOverdueCheck},
		{"which projects are active", datatypes.IntentProjectList},
		{"what did Maria do last week", datatypes.IntentUserActivity},
		{"чем занимался Иван вчера", datatypes.IntentUserActivity},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Classify(tc.query), "query: %s", tc.query)
	}
}

func TestClassifyDefaultsToGeneralInfo(t *testing.T) {
	c := newTestClassifier(t)
	assert.Equal(t, datatypes.IntentGeneralInfo, c.Classify("расскажи обо всем"))
	assert.Equal(t, datatypes.IntentGeneralInfo, c.Classify(""))
}

func TestClassifyPriorityOrderWins(t *testing.T) {
	c := newTestClassifier(t)

	// "tasks" (task_list) outranks "hours" (time_entries).
	assert.Equal(t, datatypes.IntentTaskList, c.Classify("hours per tasks breakdown"))

	// user_list is the highest priority intent.
	assert.Equal(t, datatypes.IntentUserList, c.Classify("list employees and their tasks"))

	// overdue_check outranks project_list.
	assert.Equal(t, datatypes.IntentOverdueCheck, c.Classify("overdue items in the project"))
}

func TestNeedsForCoversEveryIntent(t *testing.T) {
	cases := []struct {
		intent datatypes.Intent
		want   datatypes.Needs
	}{
		{datatypes.IntentUserList, datatypes.Needs{}},
		{datatypes.IntentTaskList, datatypes.Needs{Tasks: true}},
		{datatypes.IntentSpecificTask, datatypes.Needs{Tasks: true, TimeEntries: true}},
		{datatypes.IntentTimeEntries, datatypes.Needs{TimeEntries: true}},
		{datatypes.IntentOverdueCheck, datatypes.Needs{Tasks: true, Overdue: true}},
		{datatypes.IntentProjectList, datatypes.Needs{Projects: true, TimeEntries: true}},
		{datatypes.IntentUserActivity, datatypes.Needs{Tasks: true, TimeEntries: true}},
		{datatypes.IntentGeneralInfo, datatypes.Needs{Tasks: true, TimeEntries: true, Projects: true}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NeedsFor(tc.intent), "intent: %s", tc.intent)
	}
}
