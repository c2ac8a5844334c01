package download

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/zoomfetch/internal/zoom"
)

// newInstanceEngine builds an engine without a backing server; the file
// descriptors carry their own URLs.
func newInstanceEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	e, err := NewEngine(dir, staticToken("tok-1"), nil,
		WithRetryPolicy(testPolicy()),
		WithHostCheck(func(string) bool { return true }),
	)
	require.NoError(t, err)
	return e, dir
}

func instanceWithFiles(files ...zoom.RecordingFile) zoom.RecordingInstance {
	return zoom.RecordingInstance{
		UUID:           "uuid-1",
		ID:             12345,
		Topic:          "Weekly Sync",
		RecordingFiles: files,
	}
}

// sidecarServer serves any path with a body equal to the last path segment.
func sidecarServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		parts := strings.Split(r.URL.Path, "/")
		_, _ = w.Write([]byte(parts[len(parts)-1]))
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestDownloadInstanceFetchesAudioAndSidecars(t *testing.T) {
	srv, paths := sidecarServer(t)

	inst := instanceWithFiles(
		zoom.RecordingFile{FileType: zoom.FileTypeAudioOnly, FileExtension: "M4A", FileSize: 5, DownloadURL: srv.URL + "/audio", Status: "completed"},
		zoom.RecordingFile{FileType: zoom.FileTypeTranscript, FileExtension: "VTT", FileSize: 10, DownloadURL: srv.URL + "/transcript", Status: "completed"},
		zoom.RecordingFile{FileType: zoom.FileTypeChat, FileExtension: "TXT", FileSize: 4, DownloadURL: srv.URL + "/chat", Status: "completed"},
		zoom.RecordingFile{FileType: zoom.FileTypeTimeline, FileExtension: "JSON", FileSize: 8, DownloadURL: srv.URL + "/timeline", Status: "completed"},
	)

	e, dir := newInstanceEngine(t)

	got, err := e.DownloadInstance(t.Context(), inst, "base", Selection{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "base.m4a"), got.Audio)
	assert.Equal(t, filepath.Join(dir, "base_transcript.vtt"), got.Transcript)
	assert.Equal(t, filepath.Join(dir, "base_chat.txt"), got.Chat)
	assert.Equal(t, filepath.Join(dir, "base_timeline.json"), got.Timeline)
	assert.Len(t, *paths, 4)
}

func TestDownloadInstanceNoAudio(t *testing.T) {
	inst := instanceWithFiles(
		zoom.RecordingFile{FileType: zoom.FileTypeTranscript, FileExtension: "VTT", DownloadURL: "https://zoom.us/t", Status: "completed"},
	)

	e, _ := newInstanceEngine(t)

	_, err := e.DownloadInstance(t.Context(), inst, "base", Selection{})
	require.Error(t, err)
	assert.True(t, zoom.IsCode(err, zoom.CodeNoAudioAvailable))
}

func TestDownloadInstanceSkipsSelectedSidecars(t *testing.T) {
	srv, paths := sidecarServer(t)

	inst := instanceWithFiles(
		zoom.RecordingFile{FileType: zoom.FileTypeAudioOnly, FileExtension: "M4A", FileSize: 5, DownloadURL: srv.URL + "/audio", Status: "completed"},
		zoom.RecordingFile{FileType: zoom.FileTypeTranscript, FileExtension: "VTT", FileSize: 10, DownloadURL: srv.URL + "/transcript", Status: "completed"},
		zoom.RecordingFile{FileType: zoom.FileTypeChat, FileExtension: "TXT", FileSize: 4, DownloadURL: srv.URL + "/chat", Status: "completed"},
		zoom.RecordingFile{FileType: zoom.FileTypeTimeline, FileExtension: "JSON", FileSize: 8, DownloadURL: srv.URL + "/timeline", Status: "completed"},
	)

	e, _ := newInstanceEngine(t)

	got, err := e.DownloadInstance(t.Context(), inst, "base", Selection{
		SkipTranscript: true,
		SkipChat:       true,
		SkipTimeline:   true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, got.Audio)
	assert.Empty(t, got.Transcript)
	assert.Empty(t, got.Chat)
	assert.Empty(t, got.Timeline)
	assert.Equal(t, []string{"/audio"}, *paths)
}

func TestDownloadInstanceSidecarFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/transcript" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	t.Cleanup(srv.Close)

	inst := instanceWithFiles(
		zoom.RecordingFile{FileType: zoom.FileTypeAudioOnly, FileExtension: "M4A", FileSize: 5, DownloadURL: srv.URL + "/audio", Status: "completed"},
		zoom.RecordingFile{FileType: zoom.FileTypeTranscript, FileExtension: "VTT", FileSize: 10, DownloadURL: srv.URL + "/transcript", Status: "completed"},
	)

	e, dir := newInstanceEngine(t)

	got, err := e.DownloadInstance(t.Context(), inst, "base", Selection{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "base.m4a"), got.Audio)
	assert.Empty(t, got.Transcript)
}

func TestDownloadInstanceAudioFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	inst := instanceWithFiles(
		zoom.RecordingFile{FileType: zoom.FileTypeAudioOnly, FileExtension: "M4A", FileSize: 5, DownloadURL: srv.URL + "/audio", Status: "completed"},
	)

	e, _ := newInstanceEngine(t)

	_, err := e.DownloadInstance(t.Context(), inst, "base", Selection{})
	require.Error(t, err)
	assert.True(t, zoom.IsCode(err, zoom.CodeDownloadFailed))
}
