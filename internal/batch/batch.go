// Package batch drives the per-meeting download pipeline across a date
// range. Meetings are processed sequentially, newest first, and every
// failure is recorded per meeting rather than aborting sibling work.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teemow/zoomfetch/internal/logging"
	"github.com/teemow/zoomfetch/internal/zoom"
)

// Status classifies a whole run or one of its items.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusError          Status = "error"
)

// ItemError is the serializable failure detail of one meeting.
type ItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Result is the outcome of one meeting in a run.
type Result struct {
	MeetingID    int64      `json:"meeting_id"`
	MeetingUUID  string     `json:"meeting_uuid,omitempty"`
	MeetingTopic string     `json:"meeting_topic"`
	StartTime    string     `json:"start_time,omitempty"`
	Status       Status     `json:"status"`
	Error        *ItemError `json:"error,omitempty"`
}

// Summary aggregates a run. Failed counts both meeting failures and chunk
// windows that could not be listed; any failure makes the run non-successful
// so automated callers can detect partial outcomes.
type Summary struct {
	Status        Status   `json:"status"`
	FromDate      string   `json:"from_date"`
	ToDate        string   `json:"to_date"`
	ListingErrors []string `json:"listing_errors,omitempty"`
	Total         int      `json:"total_meetings"`
	Successful    int      `json:"successful"`
	Failed        int      `json:"failed"`
	Results       []Result `json:"results"`
}

// HasFailures reports whether any part of the run failed.
func (s *Summary) HasFailures() bool {
	return s.Failed > 0 || len(s.ListingErrors) > 0
}

func (s *Summary) finalize() {
	switch {
	case s.Failed == 0 && len(s.ListingErrors) == 0:
		s.Status = StatusSuccess
	case s.Successful > 0:
		s.Status = StatusPartialSuccess
	default:
		s.Status = StatusError
	}
}

// Processor handles one recording instance end to end.
type Processor interface {
	Process(ctx context.Context, instance zoom.RecordingInstance) error
}

// rangeLister is the slice of the fetcher the orchestrator needs.
type rangeLister interface {
	ListRange(ctx context.Context, target zoom.Target, from, to time.Time) (*zoom.ListResult, error)
}

// Orchestrator lists recordings over a date range and feeds each instance to
// the processor.
type Orchestrator struct {
	fetcher   rangeLister
	processor Processor
	logger    *slog.Logger
}

func NewOrchestrator(fetcher rangeLister, processor Processor, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{fetcher: fetcher, processor: processor, logger: logger}
}

// Run processes every recording of the target within [from, to], newest
// first. Meetings are handled one at a time to respect provider rate limits.
// The returned error covers only infrastructure failures; per-meeting
// failures land in the summary.
func (o *Orchestrator) Run(ctx context.Context, target zoom.Target, from, to time.Time) (*Summary, error) {
	summary := &Summary{
		FromDate: from.Format("2006-01-02"),
		ToDate:   to.Format("2006-01-02"),
		Results:  []Result{},
	}

	listing, err := o.fetcher.ListRange(ctx, target, from, to)
	if err != nil {
		return nil, err
	}
	for _, we := range listing.WindowErrors {
		summary.ListingErrors = append(summary.ListingErrors, we.Err.Error())
	}

	instances := listing.Instances
	zoom.SortNewestFirst(instances)
	summary.Total = len(instances)

	for _, inst := range instances {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := Result{
			MeetingID:    inst.ID,
			MeetingUUID:  inst.UUID,
			MeetingTopic: inst.Topic,
			StartTime:    inst.StartTime,
			Status:       StatusSuccess,
		}

		o.logger.Info("processing meeting",
			logging.MeetingID(inst.ID),
			slog.String("topic", inst.Topic),
		)

		if err := o.processor.Process(ctx, inst); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil, err
			}
			summary.Failed++
			result.Status = StatusError
			result.Error = itemError(err)
			o.logger.Error("meeting failed",
				logging.MeetingID(inst.ID),
				logging.Err(err),
			)
		} else {
			summary.Successful++
		}
		summary.Results = append(summary.Results, result)
	}

	summary.finalize()
	return summary, nil
}

func itemError(err error) *ItemError {
	ie := &ItemError{Code: zoom.ErrorCode(err), Message: err.Error()}
	var zerr *zoom.Error
	if errors.As(err, &zerr) {
		ie.Message = zerr.Message
		ie.Details = zerr.Details
	}
	return ie
}
