package batch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/zoomfetch/internal/diarize"
	"github.com/teemow/zoomfetch/internal/download"
	"github.com/teemow/zoomfetch/internal/zoom"
)

const timelineBody = `{
  "timeline_refine": [
    {"ts": "00:00:00.000", "users": [{"username": "Alice", "zoom_userid": "z-1"}]},
    {"ts": "00:00:10.000", "users": []}
  ]
}`

func newPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	engine, err := download.NewEngine(dir,
		func(ctx context.Context) (string, error) { return "tok", nil },
		nil,
		download.WithHostCheck(func(string) bool { return true }),
	)
	require.NoError(t, err)

	return &Pipeline{
		Engine: engine,
		Diarize: diarize.Options{
			ToolVersion: "1.0.0",
			Now:         func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) },
		},
		Target: zoom.Target{Mode: zoom.ModeUser, Subject: "me"},
	}, dir
}

func recordingInstance(srv *httptest.Server, withTimeline bool) zoom.RecordingInstance {
	files := []zoom.RecordingFile{
		{FileType: zoom.FileTypeAudioOnly, FileExtension: "M4A", FileSize: 5, DownloadURL: srv.URL + "/audio", Status: "completed"},
	}
	if withTimeline {
		files = append(files, zoom.RecordingFile{
			FileType: zoom.FileTypeTimeline, FileExtension: "JSON",
			FileSize: int64(len(timelineBody)), DownloadURL: srv.URL + "/timeline", Status: "completed",
		})
	}
	return zoom.RecordingInstance{
		UUID:           "uuid-1",
		ID:             12345,
		Topic:          "Weekly Sync",
		StartTime:      "2024-03-10T10:00:00Z",
		Duration:       30,
		RecordingFiles: files,
	}
}

func artifactServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/timeline" {
			_, _ = w.Write([]byte(timelineBody))
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPipelineProducesSpeakersFile(t *testing.T) {
	srv := artifactServer(t)
	p, dir := newPipeline(t)

	outcome, err := p.Run(t.Context(), recordingInstance(srv, true), "12345")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "12345.m4a"), outcome.Artifacts.Audio)
	assert.Equal(t, filepath.Join(dir, "12345_timeline.json"), outcome.Artifacts.Timeline)
	require.Equal(t, filepath.Join(dir, "12345_speakers.json"), outcome.Speakers)

	data, err := os.ReadFile(outcome.Speakers)
	require.NoError(t, err)

	var doc diarize.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, diarize.Version, doc.STJ.Version)
	require.Len(t, doc.STJ.Transcript.Segments, 1)
	assert.Equal(t, "alice", doc.STJ.Transcript.Segments[0].SpeakerID)
	assert.Equal(t, int64(12345), doc.STJ.Metadata.Source.Extensions.Zoom.MeetingID)
	assert.Equal(t, "user", doc.STJ.Metadata.Source.Extensions.Zoom.Scope)
}

func TestPipelineSkipSpeakers(t *testing.T) {
	srv := artifactServer(t)
	p, dir := newPipeline(t)
	p.SkipSpeakers = true

	outcome, err := p.Run(t.Context(), recordingInstance(srv, true), "12345")
	require.NoError(t, err)
	assert.Empty(t, outcome.Speakers)
	assert.NoFileExists(t, filepath.Join(dir, "12345_speakers.json"))
}

func TestPipelineNoTimelineNoDiarization(t *testing.T) {
	srv := artifactServer(t)
	p, _ := newPipeline(t)

	outcome, err := p.Run(t.Context(), recordingInstance(srv, false), "12345")
	require.NoError(t, err)
	assert.Empty(t, outcome.Artifacts.Timeline)
	assert.Empty(t, outcome.Speakers)
}

func TestPipelineNoAudioFails(t *testing.T) {
	srv := artifactServer(t)
	p, _ := newPipeline(t)

	inst := recordingInstance(srv, true)
	inst.RecordingFiles = inst.RecordingFiles[1:]

	_, err := p.Run(t.Context(), inst, "12345")
	require.Error(t, err)
	assert.True(t, zoom.IsCode(err, zoom.CodeNoAudioAvailable))
}

func TestPipelineProcessUsesMeetingIDAsBaseName(t *testing.T) {
	srv := artifactServer(t)
	p, dir := newPipeline(t)

	require.NoError(t, p.Process(t.Context(), recordingInstance(srv, true)))
	assert.FileExists(t, filepath.Join(dir, "12345.m4a"))
	assert.FileExists(t, filepath.Join(dir, "12345_speakers.json"))
}
