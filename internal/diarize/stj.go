package diarize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Version is the structured transcript format version this package emits.
const Version = "0.6.0"

// Document is the top-level structured transcript file. Only diarization
// segments are emitted; segment text stays empty for a downstream
// transcription pass.
type Document struct {
	STJ Body `json:"stj"`
}

type Body struct {
	Version    string     `json:"version"`
	Metadata   Metadata   `json:"metadata"`
	Transcript Transcript `json:"transcript"`
}

type Metadata struct {
	Transcriber Transcriber    `json:"transcriber"`
	CreatedAt   string         `json:"created_at"`
	Source      Source         `json:"source"`
	Extensions  ToolExtensions `json:"extensions"`
}

type Transcriber struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Source describes where the segments came from.
type Source struct {
	URI        string           `json:"uri,omitempty"`
	Duration   *float64         `json:"duration,omitempty"`
	Languages  []string         `json:"languages"`
	Extensions SourceExtensions `json:"extensions"`
}

type SourceExtensions struct {
	Zoom ZoomSource `json:"zoom"`
}

// ZoomSource links the output back to the provider-side identifiers.
type ZoomSource struct {
	HasTimeline     bool   `json:"has_timeline"`
	TimelineChannel string `json:"timeline_source,omitempty"`
	MeetingID       int64  `json:"meeting_id,omitempty"`
	MeetingUUID     string `json:"meeting_uuid,omitempty"`
	Scope           string `json:"scope,omitempty"`
	ScopeSubject    string `json:"scope_user_id,omitempty"`
	AccountID       string `json:"account_id,omitempty"`
}

type ToolExtensions struct {
	Zoomfetch ZoomfetchMeta `json:"zoomfetch"`
}

// ZoomfetchMeta records run context useful when auditing a batch of outputs.
type ZoomfetchMeta struct {
	Mode                 string `json:"mode"`
	TranscriptionPending bool   `json:"transcription_pending"`
	Topic                string `json:"topic,omitempty"`
	Host                 *Host  `json:"host,omitempty"`
	StartTime            string `json:"start_time,omitempty"`
	Timezone             string `json:"timezone,omitempty"`
}

type Host struct {
	Email string `json:"email,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
}

type Transcript struct {
	Speakers []Speaker `json:"speakers"`
	Segments []Segment `json:"segments"`
}

type Speaker struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Extensions *SpeakerExtensions `json:"extensions,omitempty"`
}

type SpeakerExtensions struct {
	Zoom SpeakerZoom `json:"zoom"`
}

type SpeakerZoom struct {
	ParticipantID string `json:"participant_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
}

// Segment is one speaker-attributed interval. Text is always present and
// always empty.
type Segment struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speaker_id"`
	Text      string  `json:"text"`
}

// Encode renders the document as indented JSON with a trailing newline.
// Field order is fixed by the struct definitions, so identical documents
// encode to identical bytes.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteFile writes the document to path, creating parent directories.
func (d *Document) WriteFile(path string) error {
	data, err := d.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode diarization output: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write diarization output: %w", err)
	}
	return nil
}
