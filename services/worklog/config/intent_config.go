// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the embedded rule tables for the worklog query
// pipeline: intent keyword sets, sentinel markers, and the fixed
// backend-side fetch limits. Rules are data, not code, so they can be
// extended and tested in isolation.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Rules
// =============================================================================

//go:embed intent_rules.yaml
var defaultIntentRulesYAML []byte

// =============================================================================
// Rule Types
// =============================================================================

// IntentRule binds one intent to its keyword set. Keywords are
// lowercase substrings matched against the lowercased query.
type IntentRule struct {
	// Intent is the intent name (must match a datatypes.Intent value).
	Intent string `yaml:"intent"`

	// Keywords are lowercase substring patterns for this intent.
	Keywords []string `yaml:"keywords"`
}

// FetchLimits are the fixed backend-side caps per record type. They
// bound worst-case payload size and are not configurable per call.
type FetchLimits struct {
	TasksScoped         int `yaml:"tasks_scoped"`
	TasksUnscoped       int `yaml:"tasks_unscoped"`
	TimeEntriesScoped   int `yaml:"time_entries_scoped"`
	TimeEntriesUnscoped int `yaml:"time_entries_unscoped"`
	Projects            int `yaml:"projects"`
	RecentActivity      int `yaml:"recent_activity"`
	TopTasks            int `yaml:"top_tasks"`
}

// IntentConfig is the full rule table for query interpretation.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type IntentConfig struct {
	// Intents lists the intent keyword sets in priority order: when
	// several sets match, the first listed intent wins.
	Intents []IntentRule `yaml:"intents"`

	// UnknownSingleMarkers signal a question about an unidentified
	// individual. Checked before AllMarkers.
	UnknownSingleMarkers []string `yaml:"unknown_single_markers"`

	// AllMarkers signal a question about the whole team.
	AllMarkers []string `yaml:"all_markers"`

	// Limits are the fixed fetch caps.
	Limits FetchLimits `yaml:"limits"`
}

// =============================================================================
// Loading
// =============================================================================

// LoadIntentConfig parses and validates a rule table from YAML bytes.
//
// Inputs:
//
//	data - Raw YAML bytes. Must not be empty.
//
// Outputs:
//
//	*IntentConfig - The parsed configuration.
//	error - Non-nil on parse or validation failure.
func LoadIntentConfig(data []byte) (*IntentConfig, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("intent config: empty rules data")
	}

	var cfg IntentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("intent config: parse rules: %w", err)
	}

	if len(cfg.Intents) == 0 {
		return nil, fmt.Errorf("intent config: no intents defined")
	}
	for i, rule := range cfg.Intents {
		if rule.Intent == "" {
			return nil, fmt.Errorf("intent config: intents[%d] has empty intent name", i)
		}
		if len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("intent config: intent %q has no keywords", rule.Intent)
		}
	}
	if cfg.Limits.TasksScoped <= 0 || cfg.Limits.TimeEntriesScoped <= 0 {
		return nil, fmt.Errorf("intent config: fetch limits must be positive")
	}

	return &cfg, nil
}

// =============================================================================
// Singleton Accessor
// =============================================================================

var (
	intentConfigMu      sync.RWMutex
	cachedIntentConfig  *IntentConfig
	intentConfigLoadErr error
)

// GetIntentConfig returns the cached rule table, loading the embedded
// defaults on first call.
//
// Inputs:
//
//	ctx - Context for future tracing hooks. Must not be nil.
//
// Outputs:
//
//	*IntentConfig - The loaded configuration. Never nil on success.
//	error - Non-nil if loading or validation failed.
//
// Thread Safety: Safe for concurrent use.
func GetIntentConfig(ctx context.Context) (*IntentConfig, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetIntentConfig: ctx must not be nil")
	}

	intentConfigMu.RLock()
	if cachedIntentConfig != nil || intentConfigLoadErr != nil {
		cfg, err := cachedIntentConfig, intentConfigLoadErr
		intentConfigMu.RUnlock()
		return cfg, err
	}
	intentConfigMu.RUnlock()

	intentConfigMu.Lock()
	defer intentConfigMu.Unlock()

	if cachedIntentConfig == nil && intentConfigLoadErr == nil {
		cachedIntentConfig, intentConfigLoadErr = LoadIntentConfig(defaultIntentRulesYAML)
	}
	return cachedIntentConfig, intentConfigLoadErr
}

// ResetIntentConfig clears the cached rule table so tests can reload
// with different data.
func ResetIntentConfig() {
	intentConfigMu.Lock()
	defer intentConfigMu.Unlock()
	cachedIntentConfig = nil
	intentConfigLoadErr = nil
}
