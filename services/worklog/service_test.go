// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package worklog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/itplan/worklog-assistant/services/llm"
	"github.com/itplan/worklog-assistant/services/worklog/config"
	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
	"github.com/itplan/worklog-assistant/services/worklog/source"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIntents(t *testing.T) *config.IntentConfig {
	t.Helper()
	cfg, err := config.GetIntentConfig(context.Background())
	if err != nil {
		t.Fatalf("load intent config: %v", err)
	}
	return cfg
}

// fixtureSource serves a fixed dataset for the Ivan scenario.
type fixtureSource struct {
	failEmployees bool
}

func (f *fixtureSource) Name() string { return "fixture" }

func (f *fixtureSource) GetEmployees(_ context.Context) datatypes.Result[[]datatypes.Employee] {
	if f.failEmployees {
		return datatypes.Fail[[]datatypes.Employee]("directory down")
	}
	return datatypes.Ok([]datatypes.Employee{
		{ID: "u-ivan", DisplayName: "Ivan Petrov"},
		{ID: "u-maria", DisplayName: "Maria Tester"},
	}, "ok")
}

func (f *fixtureSource) GetTasks(_ context.Context, employeeID string, _ int) datatypes.Result[[]datatypes.Task] {
	tasks := []datatypes.Task{
		{ID: "t-1", Title: "Parser rework", DueDate: "2024-05-10", Status: "active", EmployeeID: "u-ivan", Hours: 8},
		{ID: "t-2", Title: "API integration", DueDate: "2024-05-20", Status: "active", EmployeeID: "u-ivan", Hours: 8},
		{ID: "t-3", Title: "Code review", DueDate: "2024-05-25", Status: "active", EmployeeID: "u-ivan", Hours: 4},
	}
	if employeeID != "" && employeeID != "u-ivan" {
		return datatypes.Ok([]datatypes.Task{}, "ok")
	}
	return datatypes.Ok(tasks, "ok")
}

func (f *fixtureSource) GetTimeEntries(_ context.Context, employeeID string, _, _ time.Time, _ int) datatypes.Result[[]datatypes.TimeEntry] {
	entries := []datatypes.TimeEntry{
		{ID: "e-1", EmployeeID: "u-ivan", Minutes: 480, Date: "2024-05-02", TaskID: "t-1", Description: "parsing"},
		{ID: "e-2", EmployeeID: "u-ivan", Minutes: 240, Date: "2024-05-03", TaskID: "t-1", Description: "parsing"},
		{ID: "e-3", EmployeeID: "u-ivan", Minutes: 360, Date: "2024-05-12", TaskID: "t-2", Description: "integration"},
		{ID: "e-4", EmployeeID: "u-ivan", Minutes: 90, Date: "2024-05-21", TaskID: "t-3", Description: "review"},
		{ID: "e-5", EmployeeID: "u-ivan", Minutes: 60, Date: "2024-05-30", TaskID: "t-3", Description: "meeting"},
		{ID: "e-6", EmployeeID: "u-ivan", Minutes: 480, Date: "2024-04-10", TaskID: "t-1", Description: "april"},
		{ID: "e-7", EmployeeID: "u-ivan", Minutes: 120, Date: "2024-04-28", TaskID: "t-2", Description: "april"},
	}
	if employeeID != "" && employeeID != "u-ivan" {
		return datatypes.Ok([]datatypes.TimeEntry{}, "ok")
	}
	return datatypes.Ok(entries, "ok")
}

func (f *fixtureSource) GetProjects(_ context.Context, _ string, _ int) datatypes.Result[[]datatypes.Project] {
	return datatypes.Ok([]datatypes.Project{{ID: "p-1", Name: "Assistant"}}, "ok")
}

func (f *fixtureSource) GetWorkTypes(_ context.Context) datatypes.Result[[]datatypes.WorkType] {
	return datatypes.Ok([]datatypes.WorkType{{ID: "wt-1", Name: "Development"}}, "ok")
}

func (f *fixtureSource) CheckOverdue(_ context.Context, employeeID string) datatypes.Result[*datatypes.OverdueInfo] {
	return datatypes.Ok(&datatypes.OverdueInfo{HasOverdue: false, EmployeeName: employeeID}, "ok")
}

func newFixtureService(t *testing.T, src source.RecordSource) *Service {
	t.Helper()
	return NewService(ServiceConfig{
		Source:  src,
		Intents: testIntents(t),
		Logger:  testLogger(),
		Now:     func() time.Time { return testNow },
	})
}

func TestResolveAndAggregateIvanInMay(t *testing.T) {
	s := newFixtureService(t, &fixtureSource{})

	out, err := s.ResolveAndAggregate(context.Background(), "What did Ivan do in May 2024?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.Employees) != 1 {
		t.Fatalf("expected exactly one employee summary, got %d", len(out.Employees))
	}
	ivan := out.Employees[0]
	if ivan.Name != "Ivan Petrov" {
		t.Errorf("employee = %q", ivan.Name)
	}
	if ivan.TaskCount != 3 {
		t.Errorf("taskCount = %d, want 3", ivan.TaskCount)
	}
	if len(ivan.TimeEntries) != 5 {
		t.Errorf("timeEntries = %d, want 5 (April excluded)", len(ivan.TimeEntries))
	}
	wantHours := float64(480+240+360+90+60) / 60
	if diff := ivan.TotalHours - wantHours; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("totalHours = %v, want %v", ivan.TotalHours, wantHours)
	}
	if out.Summary.DateRange != "May 2024" {
		t.Errorf("dateRange = %q", out.Summary.DateRange)
	}
}

func TestResolveAndAggregateDirectoryFailureIsFatal(t *testing.T) {
	s := newFixtureService(t, &fixtureSource{failEmployees: true})

	_, err := s.ResolveAndAggregate(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error when the directory cannot be loaded")
	}
}

func TestListAllEmployeesFallsBackToSynthetic(t *testing.T) {
	// A live source pointed at a dead address: every call fails.
	live := source.NewLiveSource(source.LiveConfig{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	synthetic := source.NewSyntheticSource(testNow)
	fallback := source.NewFallbackSource(context.Background(), live, synthetic, testLogger())

	s := newFixtureService(t, fallback)

	out, err := s.ResolveAndAggregate(context.Background(), "list all employees")
	if err != nil {
		t.Fatalf("fallback pipeline must not fail: %v", err)
	}
	syntheticCount := len(synthetic.GetEmployees(context.Background()).Data)
	if out.Summary.TotalUsers != syntheticCount {
		t.Errorf("totalUsers = %d, want the synthetic employee count %d", out.Summary.TotalUsers, syntheticCount)
	}
}

// staticFormatter returns a canned answer.
type staticFormatter struct {
	answer string
	calls  int
}

func (s *staticFormatter) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	s.calls++
	return s.answer, nil
}

func (s *staticFormatter) Chat(_ context.Context, _ []llm.Message, _ llm.GenerationParams) (string, error) {
	return s.answer, nil
}

func TestAnswerQueryUsesFormatter(t *testing.T) {
	formatter := &staticFormatter{answer: "Ivan logged 20.5 hours in May."}
	s := NewService(ServiceConfig{
		Source:    &fixtureSource{},
		Intents:   testIntents(t),
		Formatter: formatter,
		Logger:    testLogger(),
		Now:       func() time.Time { return testNow },
	})

	answer, data, err := s.AnswerQuery(context.Background(), "What did Ivan do in May 2024?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != formatter.answer {
		t.Errorf("answer = %q", answer)
	}
	if formatter.calls != 1 {
		t.Errorf("formatter calls = %d, want 1", formatter.calls)
	}
	if len(data.Employees) != 1 {
		t.Error("artifact must accompany the answer")
	}
}

func TestAnswerQueryWithoutFormatterReturnsArtifactOnly(t *testing.T) {
	s := newFixtureService(t, &fixtureSource{})

	answer, data, err := s.AnswerQuery(context.Background(), "What did Ivan do in May 2024?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "" {
		t.Errorf("no formatter configured, answer should be empty, got %q", answer)
	}
	if len(data.Employees) != 1 {
		t.Error("artifact must still be produced")
	}
}

func TestAnswerQueryRateLimitedFallsBackToArtifact(t *testing.T) {
	formatter := &staticFormatter{answer: "prose"}
	s := NewService(ServiceConfig{
		Source:               &fixtureSource{},
		Intents:              testIntents(t),
		Formatter:            formatter,
		FormatterLimitPerMin: 1,
		Logger:               testLogger(),
		Now:                  func() time.Time { return testNow },
	})

	ctx := context.Background()
	if answer, _, _ := s.AnswerQuery(ctx, "What did Ivan do in May 2024?"); answer == "" {
		t.Fatal("first call should be formatted")
	}
	answer, data, err := s.AnswerQuery(ctx, "What did Ivan do in May 2024?")
	if err != nil {
		t.Fatalf("rate-limited call must not fail: %v", err)
	}
	if answer != "" {
		t.Error("second call within the window should skip the formatter")
	}
	if len(data.Employees) != 1 {
		t.Error("artifact must still be produced when rate-limited")
	}
}
