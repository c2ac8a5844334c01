package zoom

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister serves canned pages keyed by "from|token" and records the calls
// it receives.
type fakeLister struct {
	pages    map[string]*RecordingPage
	failFrom map[string]error
	calls    []string
	mode     Mode
	meetings map[string][]RecordingInstance
}

func (f *fakeLister) GetMeetingRecordings(ctx context.Context, meetingID string) ([]RecordingInstance, error) {
	f.calls = append(f.calls, "meeting:"+meetingID)
	if m, ok := f.meetings[meetingID]; ok {
		return m, nil
	}
	return nil, NewError(CodeRecordingNotFound, "no recording files found", "")
}

func (f *fakeLister) list(mode Mode, subject, from, token string) (*RecordingPage, error) {
	f.mode = mode
	f.calls = append(f.calls, fmt.Sprintf("%s|%s", from, token))
	if err, ok := f.failFrom[from]; ok {
		return nil, err
	}
	if page, ok := f.pages[from+"|"+token]; ok {
		return page, nil
	}
	return &RecordingPage{}, nil
}

func (f *fakeLister) ListUserRecordings(ctx context.Context, userID, from, to, token string) (*RecordingPage, error) {
	return f.list(ModeUser, userID, from, token)
}

func (f *fakeLister) ListAccountRecordings(ctx context.Context, accountID, from, to, token string) (*RecordingPage, error) {
	return f.list(ModeAccount, accountID, from, token)
}

func TestListRangeIteratesWindowsInOrder(t *testing.T) {
	lister := &fakeLister{pages: map[string]*RecordingPage{
		"2024-01-01|": {Meetings: []RecordingInstance{{UUID: "a"}}},
		"2024-01-31|": {Meetings: []RecordingInstance{{UUID: "b"}}},
		"2024-03-01|": {Meetings: []RecordingInstance{{UUID: "c"}}},
		"2024-03-31|": {Meetings: []RecordingInstance{{UUID: "d"}}},
	}}
	f := NewFetcher(lister, nil, false)

	result, err := f.ListRange(t.Context(), Target{Mode: ModeUser, Subject: "me"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, result.Instances, 4)
	assert.Equal(t, "a", result.Instances[0].UUID)
	assert.Equal(t, "d", result.Instances[3].UUID)
	assert.Empty(t, result.WindowErrors)
	assert.Equal(t, []string{"2024-01-01|", "2024-01-31|", "2024-03-01|", "2024-03-31|"}, lister.calls)
}

func TestListRangeFollowsPaginationWithinWindow(t *testing.T) {
	lister := &fakeLister{pages: map[string]*RecordingPage{
		"2024-01-01|":   {Meetings: []RecordingInstance{{UUID: "p1"}}, NextPageToken: "t2"},
		"2024-01-01|t2": {Meetings: []RecordingInstance{{UUID: "p2"}}, NextPageToken: "t3"},
		"2024-01-01|t3": {Meetings: []RecordingInstance{{UUID: "p3"}}},
	}}
	f := NewFetcher(lister, nil, false)

	result, err := f.ListRange(t.Context(), Target{Mode: ModeUser, Subject: "me"},
		date(2024, time.January, 1), date(2024, time.January, 10))
	require.NoError(t, err)

	require.Len(t, result.Instances, 3)
	assert.Equal(t, []string{"2024-01-01|", "2024-01-01|t2", "2024-01-01|t3"}, lister.calls)
}

func TestListRangeRecordsWindowFailureAndContinues(t *testing.T) {
	boom := errors.New("listing failed")
	lister := &fakeLister{
		pages: map[string]*RecordingPage{
			"2024-01-01|": {Meetings: []RecordingInstance{{UUID: "a"}}},
			"2024-03-01|": {Meetings: []RecordingInstance{{UUID: "c"}}},
		},
		failFrom: map[string]error{"2024-01-31": boom},
	}
	f := NewFetcher(lister, nil, false)

	result, err := f.ListRange(t.Context(), Target{Mode: ModeUser, Subject: "me"},
		date(2024, time.January, 1), date(2024, time.March, 15))
	require.NoError(t, err)

	assert.Len(t, result.Instances, 2)
	require.Len(t, result.WindowErrors, 1)
	assert.Equal(t, "2024-01-31", result.WindowErrors[0].Window.FromDate())
	assert.ErrorIs(t, result.WindowErrors[0].Err, boom)
}

func TestListRangeFailFastAborts(t *testing.T) {
	boom := errors.New("listing failed")
	lister := &fakeLister{
		failFrom: map[string]error{"2024-01-31": boom},
		pages: map[string]*RecordingPage{
			"2024-01-01|": {Meetings: []RecordingInstance{{UUID: "a"}}},
		},
	}
	f := NewFetcher(lister, nil, true)

	_, err := f.ListRange(t.Context(), Target{Mode: ModeUser, Subject: "me"},
		date(2024, time.January, 1), date(2024, time.March, 15))
	require.ErrorIs(t, err, boom)
	// The third window is never queried.
	assert.Equal(t, []string{"2024-01-01|", "2024-01-31|"}, lister.calls)
}

func TestListRangeAccountModeUsesAccountSurface(t *testing.T) {
	lister := &fakeLister{}
	f := NewFetcher(lister, nil, false)

	_, err := f.ListRange(t.Context(), Target{Mode: ModeAccount, Subject: "acct-1"},
		date(2024, time.January, 1), date(2024, time.January, 5))
	require.NoError(t, err)
	assert.Equal(t, ModeAccount, lister.mode)
}

func TestListMeetingBypassesChunking(t *testing.T) {
	lister := &fakeLister{meetings: map[string][]RecordingInstance{
		"123": {{UUID: "a"}, {UUID: "b"}},
	}}
	f := NewFetcher(lister, nil, false)

	instances, err := f.ListMeeting(t.Context(), "123")
	require.NoError(t, err)
	assert.Len(t, instances, 2)
	assert.Equal(t, []string{"meeting:123"}, lister.calls)
}
