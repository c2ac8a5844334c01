package zoom

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/zoomfetch/internal/logging"
)

// lister is the subset of Client the Fetcher needs.
type lister interface {
	GetMeetingRecordings(ctx context.Context, meetingID string) ([]RecordingInstance, error)
	ListUserRecordings(ctx context.Context, userID, from, to, pageToken string) (*RecordingPage, error)
	ListAccountRecordings(ctx context.Context, accountID, from, to, pageToken string) (*RecordingPage, error)
}

// WindowError records a listing failure for one chunk window.
type WindowError struct {
	Window Window
	Err    error
}

// ListResult accumulates instances across chunk windows. WindowErrors holds
// per-window failures when fail-fast is off.
type ListResult struct {
	Instances    []RecordingInstance
	WindowErrors []WindowError
}

// Fetcher performs date-chunked, paginated recording listings against a
// resolved target.
type Fetcher struct {
	client   lister
	logger   *slog.Logger
	failFast bool
}

// NewFetcher creates a Fetcher. With failFast set, the first window failure
// aborts the whole range query.
func NewFetcher(client lister, logger *slog.Logger, failFast bool) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger, failFast: failFast}
}

// ListRange lists all recordings of the target within [from, to], inclusive
// dates. The range is partitioned into chunk windows which are queried in
// order; inside each window pagination follows the continuation token until
// exhausted.
func (f *Fetcher) ListRange(ctx context.Context, target Target, from, to time.Time) (*ListResult, error) {
	windows, err := Windows(from, to)
	if err != nil {
		return nil, err
	}

	result := &ListResult{}
	for _, w := range windows {
		instances, err := f.listWindow(ctx, target, w)
		if err != nil {
			if f.failFast || ctx.Err() != nil {
				return nil, err
			}
			f.logger.Warn("window listing failed, continuing with remaining windows",
				slog.String("from", w.FromDate()),
				slog.String("to", w.ToDate()),
				logging.Err(err),
			)
			result.WindowErrors = append(result.WindowErrors, WindowError{Window: w, Err: err})
			continue
		}
		result.Instances = append(result.Instances, instances...)
	}
	return result, nil
}

func (f *Fetcher) listWindow(ctx context.Context, target Target, w Window) ([]RecordingInstance, error) {
	var instances []RecordingInstance
	token := ""
	for {
		var (
			page *RecordingPage
			err  error
		)
		if target.Mode == ModeAccount {
			page, err = f.client.ListAccountRecordings(ctx, target.Subject, w.FromDate(), w.ToDate(), token)
		} else {
			page, err = f.client.ListUserRecordings(ctx, target.Subject, w.FromDate(), w.ToDate(), token)
		}
		if err != nil {
			return nil, err
		}

		instances = append(instances, page.Meetings...)
		token = page.NextPageToken
		if token == "" {
			return instances, nil
		}
	}
}

// ListMeeting returns all recording instances of a single meeting id or
// UUID, bypassing chunking.
func (f *Fetcher) ListMeeting(ctx context.Context, meetingID string) ([]RecordingInstance, error) {
	return f.client.GetMeetingRecordings(ctx, meetingID)
}
