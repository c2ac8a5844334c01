package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/zoomfetch/internal/zoom"
)

func newRecordingsCmd() *cobra.Command {
	var (
		fromDate string
		toDate   string
		scope    string
		user     string
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "recordings [meeting-id]",
		Short: "List recordings for a meeting or a date range",
		Long: `List cloud recordings.

With a meeting id argument, lists every recorded instance of that meeting
(recurring meetings have several). With --from/--to, lists all recordings in
the date range for the resolved scope (account-wide for Server-to-Server
credentials, per-user otherwise).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			client, err := newAPIClient(cfg, logger)
			if err != nil {
				return err
			}
			fetcher := zoom.NewFetcher(client, logger, false)
			ctx := cmd.Context()

			if len(args) == 1 {
				meetingID := args[0]
				if err := validateMeetingID(meetingID); err != nil {
					return err
				}
				instances, err := fetcher.ListMeeting(ctx, meetingID)
				if err != nil {
					return err
				}
				return printInstances(cmd, instances, jsonMode, nil)
			}

			if fromDate == "" || toDate == "" {
				return fmt.Errorf("either a meeting id or both --from and --to are required")
			}
			from, err := parseDate("--from", fromDate)
			if err != nil {
				return err
			}
			to, err := parseDate("--to", toDate)
			if err != nil {
				return err
			}

			target, err := resolveTarget(ctx, cfg, client.Auth(), scope, user)
			if err != nil {
				return err
			}

			result, err := fetcher.ListRange(ctx, target, from, to)
			if err != nil {
				return err
			}
			zoom.SortNewestFirst(result.Instances)
			return printInstances(cmd, result.Instances, jsonMode, result.WindowErrors)
		},
	}

	cmd.Flags().StringVar(&fromDate, "from", "", "Start date for range listing (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDate, "to", "", "End date for range listing (YYYY-MM-DD)")
	cmd.Flags().StringVar(&scope, "scope", "auto", "Listing scope: auto, account or user")
	cmd.Flags().StringVar(&user, "user", "", "User id or email for user scope")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Machine-readable JSON output")

	return cmd
}

// instanceSummary is the JSON listing shape for one recording instance.
type instanceSummary struct {
	UUID      string   `json:"uuid"`
	MeetingID int64    `json:"meeting_id"`
	Topic     string   `json:"topic"`
	StartTime string   `json:"start_time"`
	Duration  int      `json:"duration"`
	Ready     bool     `json:"ready"`
	Files     []string `json:"files"`
}

func printInstances(cmd *cobra.Command, instances []zoom.RecordingInstance, jsonMode bool, windowErrors []zoom.WindowError) error {
	if jsonMode {
		summaries := make([]instanceSummary, 0, len(instances))
		for _, inst := range instances {
			s := instanceSummary{
				UUID:      inst.UUID,
				MeetingID: inst.ID,
				Topic:     inst.Topic,
				StartTime: inst.StartTime,
				Duration:  inst.Duration,
				Ready:     inst.Ready(),
				Files:     make([]string, 0, len(inst.RecordingFiles)),
			}
			for _, f := range inst.RecordingFiles {
				s.Files = append(s.Files, f.RecordingType)
			}
			summaries = append(summaries, s)
		}

		listingErrors := make([]string, 0, len(windowErrors))
		for _, we := range windowErrors {
			listingErrors = append(listingErrors, we.Err.Error())
		}

		out, err := json.MarshalIndent(map[string]any{
			"status":         "success",
			"total":          len(summaries),
			"instances":      summaries,
			"listing_errors": listingErrors,
		}, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	}

	if len(instances) == 0 {
		cmd.Println("No recordings found.")
	}
	for _, inst := range instances {
		status := "processing"
		if inst.Ready() {
			status = "ready"
		}
		cmd.Printf("%s  %s  %dmin  %-10s  %s (uuid %s)\n",
			inst.StartTime, status, inst.Duration, fmt.Sprintf("%d files", len(inst.RecordingFiles)), inst.Topic, inst.UUID)
	}
	for _, we := range windowErrors {
		cmd.PrintErrf("warning: window %s..%s failed: %v\n", we.Window.From.Format("2006-01-02"), we.Window.To.Format("2006-01-02"), we.Err)
	}
	return nil
}
