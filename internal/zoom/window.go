package zoom

import "time"

// maxWindowDays is the provider's maximum span for a single listing query,
// counted in calendar dates because the from/to parameters are inclusive
// dates.
const maxWindowDays = 30

// dateFormat is the wire format of listing date parameters.
const dateFormat = "2006-01-02"

// Window is one inclusive date sub-range of a listing query.
type Window struct {
	From time.Time
	To   time.Time
}

// FromDate returns the window start in API wire format.
func (w Window) FromDate() string { return w.From.Format(dateFormat) }

// ToDate returns the window end in API wire format.
func (w Window) ToDate() string { return w.To.Format(dateFormat) }

// Windows partitions an inclusive date range into consecutive windows
// covering at most maxWindowDays dates each. The windows have no gaps and no
// overlaps, and their union is exactly the input range.
func Windows(from, to time.Time) ([]Window, error) {
	from = truncateToDate(from)
	to = truncateToDate(to)
	if to.Before(from) {
		return nil, NewError(CodeInvalidConfig, "invalid date range",
			"--to must not be before --from")
	}

	var windows []Window
	cur := from
	for {
		end := cur.AddDate(0, 0, maxWindowDays-1)
		if end.After(to) {
			end = to
		}
		windows = append(windows, Window{From: cur, To: end})
		if !end.Before(to) {
			return windows, nil
		}
		cur = end.AddDate(0, 0, 1)
	}
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
