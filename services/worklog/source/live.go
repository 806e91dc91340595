// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

// =============================================================================
// Live Backend Wire Types
// =============================================================================

// The backend is inconsistent about field names across deployments, so
// every wire type carries the known aliases and the mapper takes the
// first non-empty one.

type wireUser struct {
	UserName string `json:"userName"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	UserID   string `json:"userId"`
	ID       string `json:"id"`
	GUID     string `json:"guid"`
}

type wireTask struct {
	ID          string  `json:"id"`
	TaskID      string  `json:"taskId"`
	GUID        string  `json:"guid"`
	Title       string  `json:"title"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Deadline    string  `json:"deadline"`
	DueDate     string  `json:"dueDate"`
	Status      string  `json:"status"`
	Hours       float64 `json:"hours"`
	Planned     float64 `json:"plannedHours"`
}

type wireTimeEntry struct {
	ID             string  `json:"id"`
	GUID           string  `json:"guid"`
	UserID         string  `json:"userId"`
	Description    string  `json:"description"`
	Comment        string  `json:"comment"`
	WorkDesc       string  `json:"workDescription"`
	CountOfMinutes int     `json:"countOfMinutes"`
	Minutes        int     `json:"minutes"`
	Hours          float64 `json:"hours"`
	Date           string  `json:"date"`
	WorkDate       string  `json:"workDate"`
	Created        string  `json:"created"`
	TaskID         string  `json:"taskId"`
	ProjectID      string  `json:"projectId"`
	WorkTypeID     string  `json:"workTypeId"`
}

type wireProject struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	GUID        string `json:"guid"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	ProjectName string `json:"projectName"`
}

type wireWorkType struct {
	ID         string `json:"id"`
	WorkTypeID string `json:"workTypeId"`
	GUID       string `json:"guid"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	TypeName   string `json:"workTypeName"`
}

type wireOverdue struct {
	HasOverdue bool   `json:"hasOverdue"`
	UserName   string `json:"userName"`
	Details    string `json:"details"`
}

// =============================================================================
// LiveSource
// =============================================================================

const defaultLiveTimeout = 15 * time.Second

// LiveConfig configures the live backend client.
//
// Inputs:
//
//	BaseURL - Backend root, e.g. "https://backend.example.com/api".
//	Username, Password - Static Basic Auth credential.
//	Timeout - Per-request transport timeout. Zero uses the 15s default.
//	SupportsOverdueCheck - Whether this deployment exposes the
//	    /checkOverdueTasks resource. Decided once at construction;
//	    never re-probed per call.
type LiveConfig struct {
	BaseURL              string
	Username             string
	Password             string
	Timeout              time.Duration
	SupportsOverdueCheck bool
}

// LiveSource implements RecordSource against the backend REST API
// using raw net/http.
//
// Description:
//
//	Dates are ISO YYYY-MM-DD everywhere inside the process; the packed
//	YYYYMMDDHHMMSS wire form exists only inside this client, applied
//	on the way out and stripped on the way in.
//
// Thread Safety: LiveSource is safe for concurrent use.
type LiveSource struct {
	httpClient      *http.Client
	baseURL         string
	username        string
	password        string
	supportsOverdue bool
}

// NewLiveSource creates a LiveSource from explicit configuration.
func NewLiveSource(cfg LiveConfig) *LiveSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLiveTimeout
	}
	return &LiveSource{
		httpClient:      &http.Client{Timeout: timeout},
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		username:        cfg.Username,
		password:        cfg.Password,
		supportsOverdue: cfg.SupportsOverdueCheck,
	}
}

// Name implements RecordSource.
func (l *LiveSource) Name() string { return "live" }

// GetEmployees implements RecordSource using the /users resource.
func (l *LiveSource) GetEmployees(ctx context.Context) datatypes.Result[[]datatypes.Employee] {
	var wire []wireUser
	if err := l.doGet(ctx, "/users", nil, &wire); err != nil {
		return datatypes.Fail[[]datatypes.Employee](fmt.Sprintf("backend /users: %v", err))
	}
	employees := make([]datatypes.Employee, 0, len(wire))
	for _, u := range wire {
		employees = append(employees, datatypes.Employee{
			ID:          firstNonEmpty(u.UserID, u.ID, u.GUID),
			DisplayName: firstNonEmpty(u.UserName, u.Name, u.FullName),
		})
	}
	return datatypes.Ok(employees, fmt.Sprintf("%d employees", len(employees)))
}

// GetTasks implements RecordSource using the /tasks resource.
func (l *LiveSource) GetTasks(ctx context.Context, employeeID string, limit int) datatypes.Result[[]datatypes.Task] {
	params := url.Values{}
	if employeeID != "" {
		params.Set("userId", employeeID)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var wire []wireTask
	if err := l.doGet(ctx, "/tasks", params, &wire); err != nil {
		return datatypes.Fail[[]datatypes.Task](fmt.Sprintf("backend /tasks: %v", err))
	}
	tasks := make([]datatypes.Task, 0, len(wire))
	for _, t := range wire {
		title := firstNonEmpty(t.Title, t.Name, t.Description)
		status := t.Status
		if status == "" {
			status = "active"
		}
		hours := t.Hours
		if hours == 0 {
			hours = t.Planned
		}
		tasks = append(tasks, datatypes.Task{
			ID:          firstNonEmpty(t.ID, t.TaskID, t.GUID),
			Title:       title,
			Description: firstNonEmpty(t.Description, title),
			DueDate:     unpackDate(firstNonEmpty(t.Date, t.Deadline, t.DueDate)),
			Status:      status,
			EmployeeID:  employeeID,
			Hours:       hours,
		})
	}
	return datatypes.Ok(tasks, fmt.Sprintf("%d tasks", len(tasks)))
}

// GetTimeEntries implements RecordSource using the /stufftime resource.
func (l *LiveSource) GetTimeEntries(ctx context.Context, employeeID string, start, end time.Time, limit int) datatypes.Result[[]datatypes.TimeEntry] {
	params := url.Values{}
	if employeeID != "" {
		params.Set("userId", employeeID)
	}
	if !start.IsZero() {
		params.Set("from", packDate(start, "000000"))
	}
	if !end.IsZero() {
		params.Set("to", packDate(end, "235959"))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var wire []wireTimeEntry
	if err := l.doGet(ctx, "/stufftime", params, &wire); err != nil {
		return datatypes.Fail[[]datatypes.TimeEntry](fmt.Sprintf("backend /stufftime: %v", err))
	}
	entries := make([]datatypes.TimeEntry, 0, len(wire))
	for _, e := range wire {
		minutes := e.CountOfMinutes
		if minutes == 0 {
			minutes = e.Minutes
		}
		if minutes == 0 && e.Hours > 0 {
			minutes = int(e.Hours * 60)
		}
		owner := e.UserID
		if owner == "" {
			owner = employeeID
		}
		entries = append(entries, datatypes.TimeEntry{
			ID:          firstNonEmpty(e.ID, e.GUID),
			EmployeeID:  owner,
			Description: firstNonEmpty(e.Description, e.Comment, e.WorkDesc),
			Minutes:     minutes,
			Date:        unpackDate(firstNonEmpty(e.Date, e.WorkDate, e.Created)),
			TaskID:      e.TaskID,
			ProjectID:   e.ProjectID,
			WorkTypeID:  e.WorkTypeID,
		})
	}
	return datatypes.Ok(entries, fmt.Sprintf("%d time entries", len(entries)))
}

// GetProjects implements RecordSource using the /project resource.
func (l *LiveSource) GetProjects(ctx context.Context, name string, limit int) datatypes.Result[[]datatypes.Project] {
	params := url.Values{}
	if name != "" {
		params.Set("projectName", name)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var wire []wireProject
	if err := l.doGet(ctx, "/project", params, &wire); err != nil {
		return datatypes.Fail[[]datatypes.Project](fmt.Sprintf("backend /project: %v", err))
	}
	projects := make([]datatypes.Project, 0, len(wire))
	for _, p := range wire {
		projects = append(projects, datatypes.Project{
			ID:   firstNonEmpty(p.ID, p.ProjectID, p.GUID),
			Name: firstNonEmpty(p.Name, p.Title, p.ProjectName),
		})
	}
	return datatypes.Ok(projects, fmt.Sprintf("%d projects", len(projects)))
}

// GetWorkTypes implements RecordSource using the /worktypes resource.
func (l *LiveSource) GetWorkTypes(ctx context.Context) datatypes.Result[[]datatypes.WorkType] {
	var wire []wireWorkType
	if err := l.doGet(ctx, "/worktypes", nil, &wire); err != nil {
		return datatypes.Fail[[]datatypes.WorkType](fmt.Sprintf("backend /worktypes: %v", err))
	}
	workTypes := make([]datatypes.WorkType, 0, len(wire))
	for _, w := range wire {
		workTypes = append(workTypes, datatypes.WorkType{
			ID:   firstNonEmpty(w.ID, w.WorkTypeID, w.GUID),
			Name: firstNonEmpty(w.Name, w.Title, w.TypeName),
		})
	}
	return datatypes.Ok(workTypes, fmt.Sprintf("%d work types", len(workTypes)))
}

// CheckOverdue implements RecordSource using the optional
// /checkOverdueTasks resource.
func (l *LiveSource) CheckOverdue(ctx context.Context, employeeID string) datatypes.Result[*datatypes.OverdueInfo] {
	if !l.supportsOverdue {
		return datatypes.Fail[*datatypes.OverdueInfo]("overdue check not supported by this backend")
	}
	params := url.Values{}
	params.Set("userId", employeeID)
	var wire wireOverdue
	if err := l.doGet(ctx, "/checkOverdueTasks", params, &wire); err != nil {
		return datatypes.Fail[*datatypes.OverdueInfo](fmt.Sprintf("backend /checkOverdueTasks: %v", err))
	}
	info := &datatypes.OverdueInfo{
		HasOverdue:   wire.HasOverdue,
		EmployeeName: wire.UserName,
		Details:      wire.Details,
	}
	return datatypes.Ok(info, "overdue check complete")
}

// doGet issues an authenticated GET and decodes the JSON body into out.
func (l *LiveSource) doGet(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := l.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(l.username, l.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "worklog-assistant/1.0")

	slog.Debug("live backend request", slog.String("path", path))

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// =============================================================================
// Wire Helpers
// =============================================================================

// packDate converts an internal ISO date to the backend's packed
// YYYYMMDDHHMMSS form. suffix is "000000" for start-of-day bounds and
// "235959" for end-of-day bounds.
func packDate(t time.Time, suffix string) string {
	return t.Format("20060102") + suffix
}

// unpackDate normalizes a wire date to ISO YYYY-MM-DD. It accepts the
// packed numeric form, bare ISO dates, and ISO timestamps.
func unpackDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "-") {
		if len(s) > 10 {
			return s[:10]
		}
		return s
	}
	if len(s) >= 8 && isDigits(s[:8]) {
		return s[:4] + "-" + s[4:6] + "-" + s[6:8]
	}
	return s
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// firstNonEmpty returns the first non-empty string among its arguments.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
