package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/zoomfetch/internal/batch"
	"github.com/teemow/zoomfetch/internal/config"
	"github.com/teemow/zoomfetch/internal/diarize"
	"github.com/teemow/zoomfetch/internal/download"
	"github.com/teemow/zoomfetch/internal/zoom"
)

func newDownloadCmd() *cobra.Command {
	var (
		fromDate    string
		toDate      string
		recordingID string
		outputDir   string
		outputName  string
		scope       string
		user        string
		waitMinutes int
		overwrite   bool
		failFast    bool
		jsonMode    bool

		skipTranscript bool
		skipChat       bool
		skipTimeline   bool
		skipSpeakers   bool

		speakersMode   string
		minSegmentSec  float64
		mergeGapSec    float64
		includeUnknown bool
	)

	cmd := &cobra.Command{
		Use:   "download [meeting-id]",
		Short: "Download recording artifacts and derive speaker diarization",
		Long: `Download the best audio artifact of a recording plus its transcript, chat
log and timeline sidecars, then derive a speaker diarization file (STJ) from
the timeline.

With a meeting id argument, downloads the most recent recording instance of
that meeting (or a specific one via --recording-id). With --from/--to, runs a
batch download over every recording in the date range, newest first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			mode := diarize.SpeakersMode(speakersMode)
			if mode != diarize.SpeakersFirst && mode != diarize.SpeakersMultiple {
				return fmt.Errorf("invalid --speakers-mode %q: expected first or multiple", speakersMode)
			}

			client, err := newAPIClient(cfg, logger)
			if err != nil {
				return err
			}
			fetcher := zoom.NewFetcher(client, logger, failFast)

			if outputDir == "" {
				outputDir = cfg.OutputDir
			}
			engine, err := download.NewEngine(outputDir, client.Auth().AccessToken, logger,
				download.WithOverwrite(overwrite))
			if err != nil {
				return err
			}

			pipeline := &batch.Pipeline{
				Engine: engine,
				Selection: download.Selection{
					SkipTranscript: skipTranscript,
					SkipChat:       skipChat,
					SkipTimeline:   skipTimeline,
				},
				SkipSpeakers: skipSpeakers,
				Diarize: diarize.Options{
					Mode:           mode,
					MinSegmentSec:  minSegmentSec,
					MergeGapSec:    mergeGapSec,
					IncludeUnknown: includeUnknown,
					ToolVersion:    version,
				},
				AccountID: cfg.ZoomAccountID,
				Logger:    logger,
			}

			ctx := cmd.Context()

			if fromDate != "" || toDate != "" {
				if len(args) == 1 {
					return fmt.Errorf("a meeting id and --from/--to are mutually exclusive")
				}
				if fromDate == "" || toDate == "" {
					return fmt.Errorf("batch downloads require both --from and --to")
				}
				target, err := resolveTarget(ctx, cfg, client.Auth(), scope, user)
				if err != nil {
					return err
				}
				pipeline.Target = target
				return runBatchDownload(ctx, cmd, fetcher, pipeline, target, fromDate, toDate)
			}

			if len(args) == 0 {
				return fmt.Errorf("either a meeting id or --from/--to is required")
			}
			meetingID := args[0]
			if err := validateMeetingID(meetingID); err != nil {
				return err
			}

			// Single downloads only need scope validation when the caller
			// asked for a specific one.
			if scope != "auto" && scope != "" || user != "" {
				target, err := resolveTarget(ctx, cfg, client.Auth(), scope, user)
				if err != nil {
					return err
				}
				pipeline.Target = target
			} else {
				pipeline.Target = inferTarget(cfg, client.Auth())
			}

			return runSingleDownload(ctx, cmd, fetcher, pipeline,
				meetingID, recordingID, outputName, waitMinutes, jsonMode)
		},
	}

	cmd.Flags().StringVar(&fromDate, "from", "", "Start date for batch downloads (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDate, "to", "", "End date for batch downloads (YYYY-MM-DD)")
	cmd.Flags().StringVar(&recordingID, "recording-id", "", "Select a specific recording instance by UUID")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory (default from config)")
	cmd.Flags().StringVarP(&outputName, "output-name", "n", "", "Base filename for output files (default: meeting id)")
	cmd.Flags().StringVar(&scope, "scope", "auto", "Listing scope: auto, account or user")
	cmd.Flags().StringVar(&user, "user", "", "User id or email for user scope")
	cmd.Flags().IntVar(&waitMinutes, "wait", 0, "Wait for recording processing (timeout in minutes)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Re-download artifacts that already exist")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Abort batch listing on the first window failure")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Machine-readable JSON output")

	cmd.Flags().BoolVar(&skipTranscript, "skip-transcript", false, "Skip transcript download")
	cmd.Flags().BoolVar(&skipChat, "skip-chat", false, "Skip chat log download")
	cmd.Flags().BoolVar(&skipTimeline, "skip-timeline", false, "Skip timeline download")
	cmd.Flags().BoolVar(&skipSpeakers, "skip-speakers", false, "Skip speaker diarization derivation")

	cmd.Flags().StringVar(&speakersMode, "speakers-mode", "first", "Attribution when a timestamp lists several speakers: first or multiple")
	cmd.Flags().Float64Var(&minSegmentSec, "stj-min-segment-sec", diarize.DefaultMinSegmentSec, "Minimum diarization segment duration in seconds")
	cmd.Flags().Float64Var(&mergeGapSec, "stj-merge-gap-sec", diarize.DefaultMergeGapSec, "Maximum gap merged between same-speaker segments in seconds")
	cmd.Flags().BoolVar(&includeUnknown, "include-unknown", false, "Keep segments whose speaker could not be identified")

	return cmd
}

// inferTarget derives the metadata target without scope validation: service
// credentials imply account scope, user credentials imply self.
func inferTarget(cfg *config.Config, auth zoom.Auth) zoom.Target {
	if auth.Type() == zoom.CredentialService {
		return zoom.Target{Mode: zoom.ModeAccount, Subject: cfg.ZoomAccountID}
	}
	return zoom.Target{Mode: zoom.ModeUser, Subject: "me"}
}

func runBatchDownload(ctx context.Context, cmd *cobra.Command, fetcher *zoom.Fetcher, pipeline *batch.Pipeline, target zoom.Target, fromDate, toDate string) error {
	from, err := parseDate("--from", fromDate)
	if err != nil {
		return err
	}
	to, err := parseDate("--to", toDate)
	if err != nil {
		return err
	}

	orchestrator := batch.NewOrchestrator(fetcher, pipeline, pipeline.Logger)
	summary, err := orchestrator.Run(ctx, target, from, to)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))

	if summary.HasFailures() {
		return fmt.Errorf("batch completed with failures: %d of %d meetings failed",
			summary.Failed, summary.Total)
	}
	return nil
}

func runSingleDownload(ctx context.Context, cmd *cobra.Command, fetcher *zoom.Fetcher, pipeline *batch.Pipeline, meetingID, recordingID, outputName string, waitMinutes int, jsonMode bool) error {
	instances, err := fetcher.ListMeeting(ctx, meetingID)
	if err != nil {
		return err
	}

	var inst *zoom.RecordingInstance
	if recordingID != "" {
		inst = zoom.FilterByUUID(instances, recordingID)
		if inst == nil {
			return zoom.NewError(zoom.CodeRecordingNotFound,
				fmt.Sprintf("no recording instance with uuid %s", recordingID),
				"use 'zoomfetch recordings' to list available instances")
		}
	} else {
		inst = zoom.MostRecentInstance(instances)
		if inst == nil {
			return zoom.NewError(zoom.CodeRecordingNotFound,
				"no recordings found for this meeting", "")
		}
	}
	current := *inst

	if !current.Ready() {
		probe := func(ctx context.Context) (bool, error) {
			latest, err := fetcher.ListMeeting(ctx, meetingID)
			if err != nil {
				return false, err
			}
			if refreshed := zoom.FilterByUUID(latest, current.UUID); refreshed != nil {
				current = *refreshed
			}
			return current.Ready(), nil
		}
		maxWait := time.Duration(waitMinutes) * time.Minute
		if err := download.WaitUntilReady(ctx, probe, maxWait, pipeline.Logger); err != nil {
			return err
		}
	}

	base := outputName
	if base == "" {
		base = strconv.FormatInt(current.ID, 10)
	}

	outcome, err := pipeline.Run(ctx, current, base)
	if err != nil {
		return err
	}

	if jsonMode {
		out, err := json.MarshalIndent(map[string]any{
			"status":     "success",
			"meeting_id": current.ID,
			"uuid":       current.UUID,
			"topic":      current.Topic,
			"files": map[string]string{
				"audio":      outcome.Artifacts.Audio,
				"transcript": outcome.Artifacts.Transcript,
				"chat":       outcome.Artifacts.Chat,
				"timeline":   outcome.Artifacts.Timeline,
				"speakers":   outcome.Speakers,
			},
		}, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	}

	cmd.Printf("Downloaded recording of %q (%s)\n", current.Topic, current.StartTime)
	printArtifact(cmd, "audio", outcome.Artifacts.Audio)
	printArtifact(cmd, "transcript", outcome.Artifacts.Transcript)
	printArtifact(cmd, "chat", outcome.Artifacts.Chat)
	printArtifact(cmd, "timeline", outcome.Artifacts.Timeline)
	printArtifact(cmd, "speakers", outcome.Speakers)
	return nil
}

func printArtifact(cmd *cobra.Command, kind, path string) {
	if path == "" {
		return
	}
	cmd.Printf("  %-10s %s\n", kind, path)
}
