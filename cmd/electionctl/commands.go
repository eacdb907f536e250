// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/models"
	"github.com/danielhkuo/campus-ballot/report"
)

func newIssueCodesCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "issue-codes",
		Short: "Generate a batch of voter codes, one per line",
		Args:  cobra.NoArgs,
	}
	scope := scopeFlag(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of codes to generate")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		s, err := scope()
		if err != nil {
			return err
		}
		svc, err := a.service(cmd.Context())
		if err != nil {
			return err
		}
		voters, err := svc.IssueCodes(cmd.Context(), s, count)
		if err != nil {
			return err
		}
		for _, v := range voters {
			fmt.Fprintln(cmd.OutOrStdout(), v.Code)
		}
		return nil
	}
	return cmd
}

func newCreateClubCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create-club NAME",
		Short: "Create a club election and print its admin key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.salt == "" {
				return errors.New("ADMIN_KEY_SALT required to print the club admin key")
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			club, err := svc.CreateClub(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			scope := models.ClubScope(club.ID)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created club %q\n", club.Name)
			fmt.Fprintf(out, "Scope:     %s\n", scope.Key())
			fmt.Fprintf(out, "Admin key: %s\n", auth.GenerateAdminKey(scope.Key(), a.salt))
			return nil
		},
	}
}

func newDeleteClubCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete-club ID",
		Short: "Delete a club election and all of its data",
		Long: `Delete a club election with its voters, candidates, likes and votes.
Once votes are recorded the deletion is refused unless --force is given.
Audit entries are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteClub(cmd.Context(), args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted club %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Delete even if votes were recorded")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	var (
		org, title            string
		resultsPublic, hidden bool
		start                 string
		clearStart            bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change a scope's settings",
		Long: `Without flags, print the scope's settings. Each flag given changes one
setting; the rest are left alone.`,
		Args: cobra.NoArgs,
	}
	scope := scopeFlag(cmd)
	cmd.Flags().StringVar(&org, "org", "", "Organisation name")
	cmd.Flags().StringVar(&title, "title", "", "Election title")
	cmd.Flags().BoolVar(&resultsPublic, "results-public", false, "Publish results")
	cmd.Flags().BoolVar(&hidden, "ballot-hidden", false, "Close voting")
	cmd.Flags().StringVar(&start, "start", "", "Start date (RFC 3339)")
	cmd.Flags().BoolVar(&clearStart, "clear-start", false, "Remove the start date")
	cmd.MarkFlagsMutuallyExclusive("start", "clear-start")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		s, err := scope()
		if err != nil {
			return err
		}

		var patch models.ConfigPatch
		flags := cmd.Flags()
		if flags.Changed("org") {
			patch.OrgName = &org
		}
		if flags.Changed("title") {
			patch.ElectionTitle = &title
		}
		if flags.Changed("results-public") {
			patch.IsResultsPublic = &resultsPublic
		}
		if flags.Changed("ballot-hidden") {
			patch.IsBallotHidden = &hidden
		}
		if flags.Changed("start") {
			t, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			patch.StartDate = &t
		}
		patch.ClearStartDate = clearStart

		svc, err := a.service(cmd.Context())
		if err != nil {
			return err
		}

		var cfg models.ElectionConfig
		if patch.Empty() {
			cfg, err = svc.GetConfig(cmd.Context(), s)
		} else {
			cfg, err = svc.UpdateConfig(cmd.Context(), s, patch)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models.ElectionInfoResponse{
			Config:     cfg,
			Visibility: election.VisibilityAt(cfg, time.Now()),
		})
	}
	return cmd
}

func newTallyCmd(a *app) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Print the current tally, or write it as a spreadsheet",
		Args:  cobra.NoArgs,
	}
	scope := scopeFlag(cmd)
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write an XLSX report to this path instead of printing")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		s, err := scope()
		if err != nil {
			return err
		}
		svc, err := a.service(cmd.Context())
		if err != nil {
			return err
		}

		if xlsxPath != "" {
			cfg, t, err := svc.Report(cmd.Context(), s)
			if err != nil {
				return err
			}
			data, err := report.TallyWorkbook(cfg, t)
			if err != nil {
				return err
			}
			if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", xlsxPath)
			return nil
		}

		t, err := svc.Tally(cmd.Context(), s)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), renderTally(t))
		return nil
	}
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func styled(row, col int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}

func renderTally(t models.Tally) string {
	positions := make([]string, 0, len(t.Positions))
	for p := range t.Positions {
		positions = append(positions, p)
	}
	sort.Strings(positions)

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(styled).
		Headers("Position", "Rank", "Candidate", "Votes", "Winner")
	for _, p := range positions {
		pt := t.Positions[p]
		for _, c := range pt.Candidates {
			winner := ""
			if c.Winner {
				winner = "yes"
				if pt.Tied {
					winner = "tied"
				}
			}
			tbl.Row(p, strconv.Itoa(c.Rank), c.CandidateName, strconv.Itoa(c.VoteCount), winner)
		}
	}
	return fmt.Sprintf("%s\nBallots cast: %d\n", tbl.String(), t.TotalBallots)
}

func newAuditCmd(a *app) *cobra.Command {
	var (
		rawScope string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter election.AuditFilter
			if rawScope != "" {
				s, err := models.ParseScope(rawScope)
				if err != nil {
					return fmt.Errorf("%w: %q", err, rawScope)
				}
				filter.Scope = s
			}
			filter.Limit = limit

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := svc.AuditLog(cmd.Context(), filter)
			if err != nil {
				return err
			}

			tbl := table.New().
				Border(lipgloss.NormalBorder()).
				StyleFunc(styled).
				Headers("Time", "Scope", "Action", "Details")
			for _, e := range entries {
				tbl.Row(e.CreatedAt.UTC().Format(time.RFC3339), e.Scope, e.ActionType, e.Details)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&rawScope, "scope", "s", "", "Only this scope (default: all)")
	cmd.Flags().IntVarP(&limit, "limit", "n", election.DefaultAuditLimit, "Maximum entries")
	return cmd
}

func newAdminKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin-key",
		Short: "Print the admin key for a scope",
		Args:  cobra.NoArgs,
	}
	scope := scopeFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		s, err := scope()
		if err != nil {
			return err
		}
		if a.salt == "" {
			return errors.New("ADMIN_KEY_SALT required (use --admin-salt or env)")
		}
		fmt.Fprintln(cmd.OutOrStdout(), auth.GenerateAdminKey(s.Key(), a.salt))
		return nil
	}
	return cmd
}
