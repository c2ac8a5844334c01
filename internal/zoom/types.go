package zoom

import "time"

// Recording file types as reported by the API.
const (
	FileTypeAudioOnly  = "audio_only"
	FileTypeMP4        = "MP4"
	FileTypeM4A        = "M4A"
	FileTypeTranscript = "TRANSCRIPT"
	FileTypeCC         = "CC"
	FileTypeChat       = "CHAT"
	FileTypeTimeline   = "TIMELINE"
)

// FileStatusCompleted marks a recording file as fully processed and
// downloadable.
const FileStatusCompleted = "completed"

// RecordingFile is one downloadable artifact of a recording instance.
type RecordingFile struct {
	ID             string `json:"id"`
	MeetingID      string `json:"meeting_id"`
	RecordingType  string `json:"recording_type"`
	FileType       string `json:"file_type"`
	FileExtension  string `json:"file_extension"`
	FileSize       int64  `json:"file_size"`
	DownloadURL    string `json:"download_url"`
	Status         string `json:"status"`
	RecordingStart string `json:"recording_start,omitempty"`
	RecordingEnd   string `json:"recording_end,omitempty"`
}

// Completed reports whether the file finished server-side processing.
func (f RecordingFile) Completed() bool {
	return f.Status == FileStatusCompleted
}

// RecordingInstance is one recorded occurrence of a meeting. Recurring and
// PMI meetings produce several instances under one meeting id.
type RecordingInstance struct {
	UUID           string          `json:"uuid"`
	ID             int64           `json:"id"`
	Topic          string          `json:"topic"`
	StartTime      string          `json:"start_time"`
	Duration       int             `json:"duration"`
	Timezone       string          `json:"timezone,omitempty"`
	HostID         string          `json:"host_id,omitempty"`
	HostEmail      string          `json:"host_email,omitempty"`
	TotalSize      int64           `json:"total_size,omitempty"`
	RecordingFiles []RecordingFile `json:"recording_files"`
}

// StartedAt parses the instance start time. Returns the zero time when the
// value is missing or malformed.
func (r RecordingInstance) StartedAt() time.Time {
	t, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Ready reports whether every file of the instance finished processing.
func (r RecordingInstance) Ready() bool {
	if len(r.RecordingFiles) == 0 {
		return false
	}
	for _, f := range r.RecordingFiles {
		if !f.Completed() {
			return false
		}
	}
	return true
}

// meetingRecordingsResponse is the per-meeting recordings payload. Single
// instances arrive flattened at the top level, recurring meetings arrive as
// a meetings array.
type meetingRecordingsResponse struct {
	RecordingInstance
	Meetings []RecordingInstance `json:"meetings"`
}

// Instances normalizes the two response shapes into a list.
func (r meetingRecordingsResponse) Instances() []RecordingInstance {
	if len(r.Meetings) > 0 {
		return r.Meetings
	}
	if len(r.RecordingFiles) > 0 {
		return []RecordingInstance{r.RecordingInstance}
	}
	return nil
}

// RecordingPage is one page of a user or account recordings listing.
type RecordingPage struct {
	From          string              `json:"from"`
	To            string              `json:"to"`
	PageSize      int                 `json:"page_size"`
	TotalRecords  int                 `json:"total_records"`
	NextPageToken string              `json:"next_page_token"`
	Meetings      []RecordingInstance `json:"meetings"`
}

// User is the authenticated Zoom identity.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
	AccountID   string `json:"account_id"`
	Type        int    `json:"type"`
}

// PastMeeting holds details about a finished meeting.
type PastMeeting struct {
	UUID             string `json:"uuid"`
	ID               int64  `json:"id"`
	Topic            string `json:"topic"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Duration         int    `json:"duration"`
	ParticipantCount int    `json:"participants_count"`
	HostID           string `json:"host_id"`
	UserEmail        string `json:"user_email"`
}

// Participant is one attendee of a past meeting.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserEmail string `json:"user_email"`
	JoinTime  string `json:"join_time"`
	LeaveTime string `json:"leave_time"`
	Duration  int    `json:"duration"`
}

type participantsPage struct {
	PageSize      int           `json:"page_size"`
	TotalRecords  int           `json:"total_records"`
	NextPageToken string        `json:"next_page_token"`
	Participants  []Participant `json:"participants"`
}

// apiError is the provider's JSON error body.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
