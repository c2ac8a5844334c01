// Package diarize derives a speaker-diarization file from a meeting
// timeline artifact. The output is a structured transcript JSON whose
// segments carry speaker attribution but no text, suitable as input for a
// later transcription pass. Output is deterministic: regenerating from the
// same timeline with the same parameters produces identical bytes.
package diarize

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"
)

// Defaults for the segment pipeline.
const (
	DefaultMinSegmentSec = 1.0
	DefaultMergeGapSec   = 1.5
)

// epsilon keeps a segment whose duration equals the minimum despite float
// arithmetic landing infinitesimally below it.
const epsilon = 1e-9

// SpeakersMode controls how an event listing several simultaneous speakers
// is attributed.
type SpeakersMode string

const (
	// SpeakersFirst attributes the interval to the first listed speaker.
	SpeakersFirst SpeakersMode = "first"
	// SpeakersMultiple emits one segment per listed speaker.
	SpeakersMultiple SpeakersMode = "multiple"
)

// Options parameterize the segment pipeline.
type Options struct {
	Mode          SpeakersMode
	MinSegmentSec float64
	MergeGapSec   float64
	// IncludeUnknown attributes events without participant identity to the
	// reserved unknown speaker instead of dropping them, and exempts those
	// segments from the minimum-duration filter.
	IncludeUnknown bool
	// DurationSec closes the final event's segment; zero leaves it
	// zero-length.
	DurationSec float64
	// ToolVersion is recorded in the transcriber metadata.
	ToolVersion string
	// Now supplies the created_at timestamp. Injectable for reproducible
	// output in tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = SpeakersFirst
	}
	if o.MinSegmentSec == 0 {
		o.MinSegmentSec = DefaultMinSegmentSec
	}
	if o.MergeGapSec == 0 {
		o.MergeGapSec = DefaultMergeGapSec
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// SourceInfo links the output document back to the meeting it came from.
type SourceInfo struct {
	MeetingID    int64
	MeetingUUID  string
	Topic        string
	HostEmail    string
	HostID       string
	StartTime    string
	Timezone     string
	ScopeMode    string
	ScopeSubject string
	AccountID    string
	SourceURI    string
}

// span is a working segment before rounding.
type span struct {
	start, end float64
	speaker    string
}

// Build converts a timeline into a diarization document.
func Build(tl *Timeline, src SourceInfo, opts Options) *Document {
	opts = opts.withDefaults()

	events, channel := tl.Events()

	reg := newRegistry()
	reg.ingest(events)

	used := make(map[string]bool)
	var raw []span
	for i, ev := range events {
		start, err := ParseClock(ev.TS)
		if err != nil {
			continue
		}
		end := start
		if i+1 < len(events) {
			if next, err := ParseClock(events[i+1].TS); err == nil {
				end = next
			}
		} else if opts.DurationSec > 0 {
			end = opts.DurationSec
		}

		for _, id := range speakerIDs(reg, ev.Users, opts) {
			raw = append(raw, span{start: start, end: end, speaker: id})
			used[id] = true
		}
	}

	spans := pipeline(raw, opts)

	var segments []Segment
	for _, sp := range spans {
		start := round3(sp.start)
		end := round3(sp.end)
		if end <= start {
			continue
		}
		segments = append(segments, Segment{Start: start, End: end, SpeakerID: sp.speaker})
	}
	if segments == nil {
		segments = []Segment{}
	}
	speakers := reg.speakersFor(used)
	if speakers == nil {
		speakers = []Speaker{}
	}

	return &Document{STJ: Body{
		Version:  Version,
		Metadata: buildMetadata(src, channel, len(events) > 0, opts),
		Transcript: Transcript{
			Speakers: speakers,
			Segments: segments,
		},
	}}
}

// BuildFile reads a timeline artifact and writes the diarization document
// next to it.
func BuildFile(timelinePath, outputPath string, src SourceInfo, opts Options) error {
	data, err := os.ReadFile(timelinePath)
	if err != nil {
		return fmt.Errorf("failed to read timeline %s: %w", timelinePath, err)
	}
	var tl Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return fmt.Errorf("failed to parse timeline %s: %w", timelinePath, err)
	}
	return Build(&tl, src, opts).WriteFile(outputPath)
}

// speakerIDs resolves an event's participants to speaker ids according to
// the speakers mode.
func speakerIDs(reg *registry, users []User, opts Options) []string {
	if len(users) == 0 {
		if opts.IncludeUnknown {
			return []string{SpeakerUnknown}
		}
		return nil
	}
	if opts.Mode == SpeakersMultiple {
		seen := make(map[string]bool, len(users))
		var ids []string
		for _, u := range users {
			id := reg.idFor(u)
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		return ids
	}
	return []string{reg.idFor(users[0])}
}

// pipeline runs merge and minimum-duration filtering. In first mode the
// timeline is a single sequential track; in multiple mode each speaker forms
// an independent track so simultaneous speech merges per speaker.
func pipeline(raw []span, opts Options) []span {
	if opts.Mode != SpeakersMultiple {
		sortSpans(raw)
		return mergeAndFilter(raw, opts)
	}

	tracks := make(map[string][]span)
	var order []string
	for _, sp := range raw {
		if _, ok := tracks[sp.speaker]; !ok {
			order = append(order, sp.speaker)
		}
		tracks[sp.speaker] = append(tracks[sp.speaker], sp)
	}

	var out []span
	for _, speaker := range order {
		track := tracks[speaker]
		sortSpans(track)
		out = append(out, mergeAndFilter(track, opts)...)
	}
	sortSpans(out)
	return out
}

func sortSpans(spans []span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		if spans[i].end != spans[j].end {
			return spans[i].end < spans[j].end
		}
		return spans[i].speaker < spans[j].speaker
	})
}

// mergeAndFilter merges consecutive same-speaker spans separated by at most
// the merge gap, then drops spans shorter than the minimum duration. A short
// span fuses into an adjacent same-speaker neighbor instead of being dropped
// when one exists. Short unknown-speaker spans survive when IncludeUnknown
// is set.
func mergeAndFilter(spans []span, opts Options) []span {
	var merged []span
	for _, sp := range spans {
		if sp.end <= sp.start {
			continue
		}
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.speaker == sp.speaker && sp.start-last.end <= opts.MergeGapSec {
				if sp.end > last.end {
					last.end = sp.end
				}
				continue
			}
		}
		merged = append(merged, sp)
	}

	var result []span
	for i, sp := range merged {
		if sp.end-sp.start+epsilon >= opts.MinSegmentSec {
			result = append(result, sp)
			continue
		}
		if opts.IncludeUnknown && sp.speaker == SpeakerUnknown {
			result = append(result, sp)
			continue
		}
		if n := len(result); n > 0 && result[n-1].speaker == sp.speaker {
			if sp.end > result[n-1].end {
				result[n-1].end = sp.end
			}
			continue
		}
		if i+1 < len(merged) && merged[i+1].speaker == sp.speaker {
			next := &merged[i+1]
			if sp.start < next.start {
				next.start = sp.start
			}
			if sp.end > next.end {
				next.end = sp.end
			}
			continue
		}
		// No same-speaker neighbor; the span is dropped.
	}
	return result
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func buildMetadata(src SourceInfo, channel string, hasTimeline bool, opts Options) Metadata {
	source := Source{
		URI:       src.SourceURI,
		Languages: []string{"und"},
		Extensions: SourceExtensions{Zoom: ZoomSource{
			HasTimeline:     hasTimeline,
			TimelineChannel: channel,
			MeetingID:       src.MeetingID,
			MeetingUUID:     src.MeetingUUID,
			Scope:           src.ScopeMode,
			ScopeSubject:    src.ScopeSubject,
			AccountID:       src.AccountID,
		}},
	}
	if opts.DurationSec > 0 {
		d := opts.DurationSec
		source.Duration = &d
	}

	var host *Host
	if src.HostEmail != "" || src.HostID != "" {
		host = &Host{Email: src.HostEmail, ID: src.HostID}
	}

	return Metadata{
		Transcriber: Transcriber{Name: "zoomfetch", Version: opts.ToolVersion},
		CreatedAt:   opts.Now().UTC().Format(time.RFC3339),
		Source:      source,
		Extensions: ToolExtensions{Zoomfetch: ZoomfetchMeta{
			Mode:                 "diarization_only",
			TranscriptionPending: true,
			Topic:                src.Topic,
			Host:                 host,
			StartTime:            src.StartTime,
			Timezone:             src.Timezone,
		}},
	}
}
