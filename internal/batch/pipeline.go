package batch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/teemow/zoomfetch/internal/diarize"
	"github.com/teemow/zoomfetch/internal/download"
	"github.com/teemow/zoomfetch/internal/logging"
	"github.com/teemow/zoomfetch/internal/zoom"
)

// Pipeline downloads one recording instance and derives the diarization
// file from its timeline artifact. It is the Processor used by both the
// single-meeting download command and batch runs.
type Pipeline struct {
	Engine    *download.Engine
	Selection download.Selection
	// SkipSpeakers disables diarization even when a timeline was fetched.
	SkipSpeakers bool
	Diarize      diarize.Options
	Target       zoom.Target
	AccountID    string
	Logger       *slog.Logger
}

// Outcome reports what one meeting produced.
type Outcome struct {
	Artifacts *download.Artifacts
	// Speakers is the diarization output path, empty when skipped or no
	// timeline was available.
	Speakers string
}

// Process implements Processor. The meeting id becomes the output base name
// so batch runs produce collision-free files.
func (p *Pipeline) Process(ctx context.Context, inst zoom.RecordingInstance) error {
	_, err := p.Run(ctx, inst, strconv.FormatInt(inst.ID, 10))
	return err
}

// Run executes the pipeline with an explicit output base name.
func (p *Pipeline) Run(ctx context.Context, inst zoom.RecordingInstance, base string) (*Outcome, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	artifacts, err := p.Engine.DownloadInstance(ctx, inst, base, p.Selection)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Artifacts: artifacts}

	if p.SkipSpeakers || artifacts.Timeline == "" {
		return outcome, nil
	}

	opts := p.Diarize
	if opts.DurationSec == 0 && inst.Duration > 0 {
		opts.DurationSec = float64(inst.Duration) * 60
	}
	src := diarize.SourceInfo{
		MeetingID:    inst.ID,
		MeetingUUID:  inst.UUID,
		Topic:        inst.Topic,
		HostEmail:    inst.HostEmail,
		HostID:       inst.HostID,
		StartTime:    inst.StartTime,
		Timezone:     inst.Timezone,
		ScopeMode:    string(p.Target.Mode),
		ScopeSubject: p.Target.Subject,
		AccountID:    p.AccountID,
		SourceURI:    filepath.Base(artifacts.Timeline),
	}

	speakersPath := filepath.Join(filepath.Dir(artifacts.Timeline), base+"_speakers.json")
	if err := diarize.BuildFile(artifacts.Timeline, speakersPath, src, opts); err != nil {
		return nil, err
	}
	outcome.Speakers = speakersPath

	logger.Info("diarization written",
		logging.MeetingID(inst.ID),
		logging.File(filepath.Base(speakersPath)),
	)
	return outcome, nil
}
