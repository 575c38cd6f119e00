package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
	"github.com/felixgeelhaar/eemetrics/pkg/sonarcloud"
)

var sonarOrg string

var sonarcloudCmd = &cobra.Command{
	Use:   "sonarcloud",
	Short: "Query and manage a SonarCloud organisation",
}

func withSonar() (*sonarcloud.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	org, err := orgOrDefault(sonarOrg, cfg.Sonarcloud.Org)
	if err != nil {
		return nil, "", err
	}
	client, err := newSonarClient(cfg)
	if err != nil {
		return nil, "", err
	}
	return client, org, nil
}

var sonarProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List project names in the organisation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, org, err := withSonar()
		if err != nil {
			return err
		}
		names, err := client.Projects(cmd.Context(), org)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d projects in %s\n", len(names), org)
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	},
}

var sonarGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List user groups in the organisation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, org, err := withSonar()
		if err != nil {
			return err
		}
		groups, err := client.Groups(cmd.Context(), org)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(groups))
		for _, g := range groups {
			rows = append(rows, table.Row{g.Name, fmt.Sprintf("%d", g.MembersCount), boolStr(g.Default), g.Description})
		}
		printTable(cmd.OutOrStdout(), fmt.Sprintf("Groups in %s (%d)", org, len(rows)), []table.Column{
			{Title: "Name", Width: 30},
			{Title: "Members", Width: 8},
			{Title: "Default", Width: 8},
			{Title: "Description", Width: 40},
		}, rows)
		return nil
	},
}

var createGroupDryRun bool

var sonarCreateGroupCmd = &cobra.Command{
	Use:   "create-group <name>",
	Short: "Create a user group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, org, err := withSonar()
		if err != nil {
			return err
		}
		name, err := client.CreateGroup(cmd.Context(), args[0], org, createGroupDryRun)
		if err != nil {
			return err
		}
		if createGroupDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Would create group %s in %s\n", name, org)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created group %s in %s\n", name, org)
		return nil
	},
}

var sonarMeasuresCmd = &cobra.Command{
	Use:   "measures <project-key>",
	Short: "Show quality measures and the coverage score of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newSonarClient(cfg)
		if err != nil {
			return err
		}
		m, err := client.ProjectMeasures(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printMeasures(cmd, args[0], m.Scored())
		return nil
	},
}

func printMeasures(cmd *cobra.Command, key string, m metrics.SonarcloudMeasures) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project: %s\n", key)
	rows := []table.Row{
		{"Coverage", floatOrNA(m.CodeCoverage)},
		{"Lines of code", intOrNA(m.LinesOfCode)},
		{"Bugs", intOrNA(m.Bugs)},
		{"Code smells", intOrNA(m.CodeSmells)},
		{"Duplicated lines", floatOrNA(m.DuplicatedLinesDensity)},
		{"Reliability rating", ratingOrNA(m.ReliabilityRating)},
		{"Security rating", ratingOrNA(m.SecurityRating)},
		{"Maintainability rating", ratingOrNA(m.SqaleRating)},
	}
	fmt.Fprintln(out, renderTable([]table.Column{{Title: "Measure", Width: 24}, {Title: "Value", Width: 12}}, rows))
	fmt.Fprintf(out, "Code coverage: %s\n", statusText(out, m.CodeCoverageScore))
}

func init() {
	sonarcloudCmd.PersistentFlags().StringVar(&sonarOrg, "org", "", "SonarCloud organisation (default sonarcloud.org from config)")
	sonarCreateGroupCmd.Flags().BoolVar(&createGroupDryRun, "dry-run", false, "log the request without sending it")

	sonarcloudCmd.AddCommand(sonarProjectsCmd, sonarGroupsCmd, sonarCreateGroupCmd, sonarMeasuresCmd)
	RootCmd.AddCommand(sonarcloudCmd)
}
