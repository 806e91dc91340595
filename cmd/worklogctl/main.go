// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command worklogctl is the CLI for the worklog assistant server.
//
// Usage:
//
//	worklogctl ask "What did Ivan do in May 2024?"
//	worklogctl ask --raw "list all employees"
//	worklogctl mode synthetic
//	worklogctl mode live
//	worklogctl status
//
// The server address comes from WORKLOG_SERVER_URL and defaults to
// http://localhost:8080.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// rawOutput holds the --raw flag for the ask command.
var rawOutput bool

var rootCmd = &cobra.Command{
	Use:   "worklogctl",
	Short: "Ask the worklog assistant about employee work activity",
	Long: `worklogctl talks to a running worklog assistant server.

It sends free-text questions about employee work activity (who worked
on what, logged hours, overdue tasks) and prints the answer, and it
controls the live/synthetic backend switch.`,
}

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask a free-text question about employee work activity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAskCommand,
}

var modeCmd = &cobra.Command{
	Use:   "mode {live|synthetic}",
	Short: "Switch the backend between live and synthetic data",
	Args:  cobra.ExactArgs(1),
	RunE:  runModeCommand,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current backend mode and availability",
	Args:  cobra.NoArgs,
	RunE:  runStatusCommand,
}

func init() {
	askCmd.Flags().BoolVar(&rawOutput, "raw", false, "Print the full JSON response instead of the answer")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(statusCmd)
}

func runAskCommand(_ *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	client := newServerClient()

	resp, raw, err := client.Query(question)
	if err != nil {
		return err
	}
	if rawOutput {
		fmt.Println(string(raw))
		return nil
	}

	if resp.Answer != "" {
		fmt.Println(resp.Answer)
		return nil
	}
	printArtifact(resp)
	return nil
}

func runModeCommand(_ *cobra.Command, args []string) error {
	mode := args[0]
	if mode != "live" && mode != "synthetic" {
		return fmt.Errorf("mode must be \"live\" or \"synthetic\", got %q", mode)
	}

	status, err := newServerClient().SetMode(mode)
	if err != nil {
		return err
	}
	if status.Mode != mode {
		fmt.Printf("Requested %q, server stayed on %q (live backend unavailable)\n", mode, status.Mode)
		return nil
	}
	fmt.Printf("Backend mode: %s\n", status.Mode)
	return nil
}

func runStatusCommand(_ *cobra.Command, _ []string) error {
	status, err := newServerClient().Status()
	if err != nil {
		return err
	}
	fmt.Printf("Mode:                %s\n", status.Mode)
	fmt.Printf("Live available:      %v\n", status.LiveAvailable)
	fmt.Printf("Synthetic available: %v\n", status.SyntheticAvailable)
	return nil
}

// printArtifact renders the structured aggregation when the server has
// no LLM formatter configured.
func printArtifact(resp *queryResponse) {
	s := resp.Data.Summary
	fmt.Printf("Period: %s\n", s.DateRange)
	fmt.Printf("Employees: %d, tasks: %d, time entries: %d, projects: %d\n",
		s.TotalUsers, s.TotalTasks, s.TotalTimeEntries, s.TotalProjects)
	for _, e := range resp.Data.Employees {
		fmt.Printf("\n%s: %d tasks, %.2f hours\n", e.Name, e.TaskCount, e.TotalHours)
		for _, task := range e.AllTasks {
			fmt.Printf("  - %s (%s, due %s)\n", task.Title, task.Status, task.Date)
		}
	}
	if resp.Data.OverdueInfo != nil {
		if resp.Data.OverdueInfo.HasOverdue {
			fmt.Printf("\nOverdue tasks found for %s\n", resp.Data.OverdueInfo.EmployeeName)
		} else {
			fmt.Println("\nNo overdue tasks")
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
