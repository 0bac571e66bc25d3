package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jobprep/interviewd/internal/config"
	"github.com/jobprep/interviewd/internal/evaluation"
	"github.com/jobprep/interviewd/internal/session"
)

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage interview sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's interview sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			return fmt.Errorf("--email is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions?email="+url.QueryEscape(email))
		if err != nil {
			return err
		}

		var result struct {
			Sessions []session.Meta `json:"sessions"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		for _, meta := range result.Sessions {
			fmt.Printf("  %s  %-20s  %s\n", meta.ID, meta.State, meta.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete a user's oldest sessions beyond the retention count",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		keep, _ := cmd.Flags().GetInt("keep")
		if email == "" {
			return fmt.Errorf("--email is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions/prune", map[string]any{"email": email, "keep": keep})
		if err != nil {
			return err
		}

		var result struct {
			Deleted int `json:"deleted"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted %d session(s)", result.Deleted)
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().String("email", "", "user email")
	sessionsPruneCmd.Flags().String("email", "", "user email")
	sessionsPruneCmd.Flags().Int("keep", 10, "number of most recent sessions to keep")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
}

// --- evaluate ---

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <session-id>",
	Short: "Audit a session's generated output and print the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/interview/"+args[0]+"/evaluate", nil)
		if err != nil {
			return err
		}

		var report evaluation.Report
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		printStatus("Overall", "%.2f", report.OverallScore)
		printStatus("Question consistency", "%.2f / 5", report.ComponentScores.QuestionConsistency)
		printStatus("Hallucination score", "%.2f (lower is better)", report.ComponentScores.HallucinationScore)
		printStatus("Scoring consistency", "%.2f / 5", report.ComponentScores.ScoringConsistency)
		printStatus("Feedback quality", "%.2f / 5", report.ComponentScores.FeedbackQuality)

		if len(report.IssuesFound) > 0 {
			fmt.Println("Issues:")
			for _, issue := range report.IssuesFound {
				printWarning("%s", issue)
			}
		}
		for _, rec := range report.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
