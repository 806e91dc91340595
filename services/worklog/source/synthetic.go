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
	"fmt"
	"strings"
	"time"

	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

// =============================================================================
// SyntheticSource
// =============================================================================

// SyntheticSource implements RecordSource over a fixed in-memory
// dataset.
//
// Description:
//
//	Used as the stand-in backend when the live source is unavailable
//	and as a stable fixture in tests. Every operation succeeds; the
//	dataset is deterministic for a given reference clock. Time-entry
//	dates are generated relative to the reference clock so that
//	"recent" queries return data no matter when the process runs.
//
// Thread Safety: SyntheticSource is read-only after construction and
// safe for concurrent use.
type SyntheticSource struct {
	employees   []datatypes.Employee
	projects    []datatypes.Project
	workTypes   []datatypes.WorkType
	tasks       []datatypes.Task
	timeEntries []datatypes.TimeEntry
}

// NewSyntheticSource builds the dataset anchored at the given clock.
//
// Inputs:
//
//	now - Reference instant; entry dates are spread over the 30 days
//	      before it. Injected for deterministic tests.
func NewSyntheticSource(now time.Time) *SyntheticSource {
	s := &SyntheticSource{
		employees: []datatypes.Employee{
			{ID: "5d99b0f7-6675-11ee-b922-b52194aab495", DisplayName: "Золотарев Сергей Александрович"},
			{ID: "7d44b0f7-3313-11ee-b922-b52194aab947", DisplayName: "Червоткин Кирилл Сергеевич"},
			{ID: "8e55c1f8-4424-22ff-c933-c63295bbc058", DisplayName: "Артем Разработчик"},
			{ID: "9f66d2f9-5535-33aa-d044-d74306ccd169", DisplayName: "Мария Тестировщик"},
			{ID: "0a77e3fa-6646-44bb-e155-e85417dde270", DisplayName: "Иван Аналитик"},
		},
		projects: []datatypes.Project{
			{ID: "745bb100-bedf-11ef-b92a-f86c91893b43", Name: "АйТи План - Подбор и развитие компетенций персонала"},
			{ID: "856cc211-cfea-22fa-c93b-a97d94bba554", Name: "Система документооборота"},
			{ID: "967dd322-daeb-33ab-da4c-ba8e05ccb665", Name: "АСКОНА ТД - Исправление характеристик в документах"},
			{ID: "a78ee433-ebfc-44bc-eb5d-cb9f16ddc776", Name: "Развитие программистов - Освоение новых технологий"},
		},
		workTypes: []datatypes.WorkType{
			{ID: "457a0f87-5250-11ea-a99d-005056905560", Name: "Административные работы"},
			{ID: "7f030f0a-524c-11ea-a99d-005056905560", Name: "Анализ/Обследование"},
			{ID: "a35f1699-642a-11ea-a9a1-005056905560", Name: "Встреча"},
			{ID: "b46f2700-753b-22eb-ba02-006067906671", Name: "Разработка"},
			{ID: "c57f3811-864c-33fc-cb13-117178a17782", Name: "Тестирование"},
			{ID: "d68f4922-975d-44ad-dc24-228289b28893", Name: "Документирование"},
		},
	}
	s.seedTasks(now)
	s.seedTimeEntries(now)
	return s
}

// seedTasks assigns two tasks to every employee with staggered due
// dates after the reference clock.
func (s *SyntheticSource) seedTasks(now time.Time) {
	titles := []string{
		"Освоение GIT и настройка CI",
		"Разработка парсера естественного языка",
		"Исправление характеристик в документах",
		"Ознакомление с новостями проекта",
		"Интеграция с внешним API",
		"Подготовка тестового стенда",
		"Ревью кода сервиса отчетов",
		"Обновление документации API",
		"Анализ требований заказчика",
		"Оптимизация запросов к базе",
	}
	for i, emp := range s.employees {
		for j := 0; j < 2; j++ {
			idx := i*2 + j
			due := now.AddDate(0, 0, 7+idx*3)
			s.tasks = append(s.tasks, datatypes.Task{
				ID:          fmt.Sprintf("task-%02d", idx+1),
				Title:       titles[idx%len(titles)],
				Description: titles[idx%len(titles)],
				DueDate:     due.Format(datatypes.DateLayout),
				Status:      "active",
				EmployeeID:  emp.ID,
				Hours:       8,
			})
		}
	}
}

// seedTimeEntries gives every employee four entries spread over the 30
// days before the reference clock, each pointing at one of that
// employee's tasks.
func (s *SyntheticSource) seedTimeEntries(now time.Time) {
	descriptions := []string{
		"Разработка и отладка",
		"Совещание по проекту",
		"Анализ требований",
		"Написание автотестов",
	}
	minuteGrid := []int{480, 120, 240, 360}
	entryID := 1
	for i, emp := range s.employees {
		for j := 0; j < 4; j++ {
			date := now.AddDate(0, 0, -(j*7 + i + 1))
			task := s.tasks[i*2+j%2]
			s.timeEntries = append(s.timeEntries, datatypes.TimeEntry{
				ID:          fmt.Sprintf("entry-%03d", entryID),
				EmployeeID:  emp.ID,
				Description: descriptions[j],
				Minutes:     minuteGrid[j],
				Date:        date.Format(datatypes.DateLayout),
				TaskID:      task.ID,
				ProjectID:   s.projects[(i+j)%len(s.projects)].ID,
				WorkTypeID:  s.workTypes[(i+j)%len(s.workTypes)].ID,
			})
			entryID++
		}
	}
}

// Name implements RecordSource.
func (s *SyntheticSource) Name() string { return "synthetic" }

// GetEmployees implements RecordSource.
func (s *SyntheticSource) GetEmployees(_ context.Context) datatypes.Result[[]datatypes.Employee] {
	out := make([]datatypes.Employee, len(s.employees))
	copy(out, s.employees)
	return datatypes.Ok(out, fmt.Sprintf("%d employees (synthetic)", len(out)))
}

// GetTasks implements RecordSource.
func (s *SyntheticSource) GetTasks(_ context.Context, employeeID string, limit int) datatypes.Result[[]datatypes.Task] {
	out := make([]datatypes.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if employeeID != "" && t.EmployeeID != employeeID {
			continue
		}
		out = append(out, t)
	}
	out = capSlice(out, limit)
	return datatypes.Ok(out, fmt.Sprintf("%d tasks (synthetic)", len(out)))
}

// GetTimeEntries implements RecordSource.
func (s *SyntheticSource) GetTimeEntries(_ context.Context, employeeID string, start, end time.Time, limit int) datatypes.Result[[]datatypes.TimeEntry] {
	var startISO, endISO string
	if !start.IsZero() {
		startISO = start.Format(datatypes.DateLayout)
	}
	if !end.IsZero() {
		endISO = end.Format(datatypes.DateLayout)
	}
	out := make([]datatypes.TimeEntry, 0, len(s.timeEntries))
	for _, e := range s.timeEntries {
		if employeeID != "" && e.EmployeeID != employeeID {
			continue
		}
		// ISO dates compare correctly as strings.
		if startISO != "" && e.Date < startISO {
			continue
		}
		if endISO != "" && e.Date > endISO {
			continue
		}
		out = append(out, e)
	}
	out = capSlice(out, limit)
	return datatypes.Ok(out, fmt.Sprintf("%d time entries (synthetic)", len(out)))
}

// GetProjects implements RecordSource.
func (s *SyntheticSource) GetProjects(_ context.Context, name string, limit int) datatypes.Result[[]datatypes.Project] {
	nameLower := strings.ToLower(name)
	out := make([]datatypes.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if nameLower != "" && !strings.Contains(strings.ToLower(p.Name), nameLower) {
			continue
		}
		out = append(out, p)
	}
	out = capSlice(out, limit)
	return datatypes.Ok(out, fmt.Sprintf("%d projects (synthetic)", len(out)))
}

// GetWorkTypes implements RecordSource.
func (s *SyntheticSource) GetWorkTypes(_ context.Context) datatypes.Result[[]datatypes.WorkType] {
	out := make([]datatypes.WorkType, len(s.workTypes))
	copy(out, s.workTypes)
	return datatypes.Ok(out, fmt.Sprintf("%d work types (synthetic)", len(out)))
}

// CheckOverdue implements RecordSource. The synthetic dataset never
// has overdue tasks: every due date is after the reference clock.
func (s *SyntheticSource) CheckOverdue(_ context.Context, employeeID string) datatypes.Result[*datatypes.OverdueInfo] {
	name := ""
	for _, emp := range s.employees {
		if emp.ID == employeeID {
			name = emp.DisplayName
			break
		}
	}
	info := &datatypes.OverdueInfo{
		HasOverdue:   false,
		EmployeeName: name,
		Details:      "no overdue tasks",
	}
	return datatypes.Ok(info, "overdue check complete (synthetic)")
}

func capSlice[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
