// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the shared domain types for the worklog
// assistant: backend records (employees, tasks, time entries, projects,
// work types), the per-query context derived from free text, and the
// aggregated output handed to the LLM formatting boundary.
//
// All entities are created fresh per query and discarded once the
// response is produced. Dates are carried internally as ISO strings
// ("2006-01-02"); the packed backend wire format never leaves the
// live-source call boundary.
package datatypes

import "time"

// DateLayout is the internal ISO date layout used on all records.
// ISO dates compare correctly as strings, which the aggregator relies on.
const DateLayout = "2006-01-02"

// =============================================================================
// Backend Records
// =============================================================================

// Employee is a backend-established identity. The pipeline never mints IDs.
type Employee struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Task is a unit of assigned work. EmployeeID may be empty when the
// backend does not return ownership directly.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     string  `json:"due_date"`
	Status      string  `json:"status"`
	EmployeeID  string  `json:"employee_id,omitempty"`
	Hours       float64 `json:"hours,omitempty"`
}

// TimeEntry is a logged block of work. Minutes is the authoritative
// unit; hour values anywhere else are derived as minutes/60.
type TimeEntry struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employee_id"`
	Description string `json:"description"`
	Minutes     int    `json:"minutes"`
	Date        string `json:"date"`
	TaskID      string `json:"task_id,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	WorkTypeID  string `json:"work_type_id,omitempty"`
}

// Hours returns the entry duration in hours, rounded to two decimals.
func (e TimeEntry) Hours() float64 {
	return RoundHours(float64(e.Minutes) / 60.0)
}

// RoundHours rounds an hour value to two decimal places.
func RoundHours(h float64) float64 {
	return float64(int64(h*100+0.5)) / 100
}

// Project is a flat reference record.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkType is a flat reference record.
type WorkType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OverdueInfo is the result of the backend overdue check for one employee.
type OverdueInfo struct {
	HasOverdue   bool   `json:"has_overdue"`
	EmployeeName string `json:"employee_name,omitempty"`
	Details      string `json:"details,omitempty"`
}

// =============================================================================
// Result Envelope
// =============================================================================

// Result is the uniform envelope returned by every record-source
// operation. Expected failures (network error, non-2xx, empty match)
// travel as Success=false with the cause in Message; a genuinely empty
// result is Success=true with empty Data and must not trigger fallback.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Ok builds a successful envelope.
func Ok[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Data: data, Message: message}
}

// Fail builds a failed envelope with the zero value for Data.
func Fail[T any](message string) Result[T] {
	var zero T
	return Result[T]{Success: false, Data: zero, Message: message}
}

// =============================================================================
// Query Context
// =============================================================================

// MatchKind classifies the outcome of employee-name matching.
type MatchKind int

const (
	// MatchNone means the query carries no employee constraint.
	MatchNone MatchKind = iota

	// MatchEmployee means a concrete known employee was resolved.
	MatchEmployee

	// MatchUnknownSingle means the query asks about an unidentified
	// individual ("someone", "a person"); the loader fetches broadly so
	// the downstream summarizer can disambiguate.
	MatchUnknownSingle

	// MatchAll means the query asks about the whole team.
	MatchAll
)

// String returns the lowercase name of the match kind.
func (k MatchKind) String() string {
	switch k {
	case MatchEmployee:
		return "employee"
	case MatchUnknownSingle:
		return "unknown_single"
	case MatchAll:
		return "all"
	default:
		return "none"
	}
}

// NameMatch is the outcome of employee-name matching. Employee is
// non-nil only when Kind is MatchEmployee.
type NameMatch struct {
	Kind     MatchKind
	Employee *Employee
}

// Timeframe is a concrete date window with a human label. The label is
// display-only and never feeds further logic.
type Timeframe struct {
	Start time.Time
	End   time.Time
	Label string
}

// StartISO returns the window start as an internal ISO date string.
func (t Timeframe) StartISO() string { return t.Start.Format(DateLayout) }

// EndISO returns the window end as an internal ISO date string.
func (t Timeframe) EndISO() string { return t.End.Format(DateLayout) }

// Intent is a classified query intent. Each intent implies a fixed
// bundle of record types to fetch.
type Intent string

const (
	IntentUserList     Intent = "user_list"
	IntentTaskList     Intent = "task_list"
	IntentSpecificTask Intent = "specific_task"
	IntentTimeEntries  Intent = "time_entries"
	IntentOverdueCheck Intent = "overdue_check"
	IntentProjectList  Intent = "project_list"
	IntentUserActivity Intent = "user_activity"
	IntentGeneralInfo  Intent = "general_info"
)

// Needs flags which record types the selective loader must fetch.
type Needs struct {
	Tasks       bool
	TimeEntries bool
	Projects    bool
	Overdue     bool
}

// QueryContext is the structured interpretation of one free-text
// query. It is rebuilt per request and never persisted.
type QueryContext struct {
	Query     string
	Match     NameMatch
	Timeframe Timeframe
	Intent    Intent
	Needs     Needs
	Employees []Employee
}

// =============================================================================
// Raw Records and Aggregation Output
// =============================================================================

// RawRecords is the unfiltered record set produced by the selective
// loader. Record types that were not needed, or whose fetch failed,
// are present as empty (non-nil) slices.
type RawRecords struct {
	Employees   []Employee
	WorkTypes   []WorkType
	Tasks       []Task
	TimeEntries []TimeEntry
	Projects    []Project
	OverdueInfo *OverdueInfo
}

// TaskDetail is a task projected into an employee summary.
type TaskDetail struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Status      string  `json:"status"`
}

// EntryDetail is a time entry projected into an employee summary.
type EntryDetail struct {
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Minutes     int     `json:"minutes"`
	Description string  `json:"description"`
	TaskID      string  `json:"task_id,omitempty"`
	ProjectID   string  `json:"project_id,omitempty"`
	WorkType    string  `json:"work_type,omitempty"`
}

// EmployeeSummary accumulates one employee's records during
// aggregation. WorkTypes and Projects are deduplicated and sorted;
// everything else is append-only during aggregation and read-only after.
type EmployeeSummary struct {
	Name            string        `json:"name"`
	ID              string        `json:"id"`
	TaskCount       int           `json:"task_count"`
	TotalHours      float64       `json:"total_hours"`
	AllTasks        []TaskDetail  `json:"all_tasks"`
	WorkTypes       []string      `json:"work_types"`
	Projects        []string      `json:"projects"`
	TimeEntries     []EntryDetail `json:"time_entries"`
	HasOverdueTasks bool          `json:"has_overdue_tasks,omitempty"`
}

// Activity is one row of the recent-activity list.
type Activity struct {
	Date        string  `json:"date"`
	Employee    string  `json:"employee"`
	Task        string  `json:"task"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
}

// TaskHours is one row of the top-tasks-by-time list.
type TaskHours struct {
	Title    string  `json:"title"`
	Employee string  `json:"employee"`
	Hours    float64 `json:"hours"`
	Status   string  `json:"status"`
}

// DataSummary holds the period totals for the processed output.
type DataSummary struct {
	TotalUsers       int    `json:"total_users"`
	TotalTasks       int    `json:"total_tasks"`
	TotalTimeEntries int    `json:"total_time_entries"`
	TotalProjects    int    `json:"total_projects"`
	DateRange        string `json:"date_range"`
	HasOverdueInfo   bool   `json:"has_overdue_info,omitempty"`
}

// ProcessedData is the final aggregation artifact consumed by the LLM
// formatting boundary. It is always well-formed: every slice is
// non-nil and totals are zeroed even when every fetch failed, so the
// downstream formatter never needs null checks.
type ProcessedData struct {
	Summary        DataSummary       `json:"summary"`
	Employees      []EmployeeSummary `json:"employees"`
	RecentActivity []Activity        `json:"recent_activity"`
	TopTasks       []TaskHours       `json:"top_tasks"`
	OverdueInfo    *OverdueInfo      `json:"overdue_info,omitempty"`
}

// EmptyProcessedData returns a well-formed zero artifact for the given
// date-range label.
func EmptyProcessedData(dateRange string) ProcessedData {
	return ProcessedData{
		Summary:        DataSummary{DateRange: dateRange},
		Employees:      []EmployeeSummary{},
		RecentActivity: []Activity{},
		TopTasks:       []TaskHours{},
	}
}
