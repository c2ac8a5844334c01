package diarize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Timeline channel names recorded in the output metadata.
const (
	ChannelRefined = "timeline_refine"
	ChannelRaw     = "timeline"
)

// Timeline is the provider's timeline artifact. Meetings may carry a refined
// event channel, a raw one, or both.
type Timeline struct {
	Refined []Event `json:"timeline_refine"`
	Raw     []Event `json:"timeline"`
}

// Events returns the preferred event channel and its name. The refined
// channel wins when it is non-empty.
func (t *Timeline) Events() ([]Event, string) {
	if len(t.Refined) > 0 {
		return t.Refined, ChannelRefined
	}
	if len(t.Raw) > 0 {
		return t.Raw, ChannelRaw
	}
	return nil, ""
}

// Event is one speaking-activity sample: a clock timestamp and the
// participants active at that moment.
type Event struct {
	TS    string `json:"ts"`
	Users []User `json:"users"`
}

// User identifies a participant as the timeline reports it. Fields are
// frequently missing or empty.
type User struct {
	Username   string `json:"username"`
	UserID     flexID `json:"user_id"`
	ZoomUserID string `json:"zoom_userid"`
}

// flexID tolerates the provider emitting ids as either strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

var clockPattern = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})(?:\.(\d{1,3}))?$`)

// ParseClock converts an HH:MM:SS timestamp, with an optional millisecond
// fraction of one to three digits, into seconds.
func ParseClock(ts string) (float64, error) {
	m := clockPattern.FindStringSubmatch(ts)
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	ss, _ := strconv.Atoi(m[3])
	sec := float64(h*3600 + mm*60 + ss)
	if m[4] != "" {
		frac, err := strconv.ParseFloat("0."+m[4], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", ts)
		}
		sec += frac
	}
	return sec, nil
}
