package download

import (
	"context"
	"log/slog"
	"strings"

	"github.com/teemow/zoomfetch/internal/logging"
	"github.com/teemow/zoomfetch/internal/zoom"
)

// Artifacts holds the local paths produced for one recording instance.
// Unset paths mean the artifact was skipped or unavailable.
type Artifacts struct {
	Audio      string
	Transcript string
	Chat       string
	Timeline   string
}

// Selection controls which artifact classes DownloadInstance fetches.
type Selection struct {
	SkipTranscript bool
	SkipChat       bool
	SkipTimeline   bool
}

// DownloadInstance fetches the preferred audio artifact plus the transcript,
// chat and timeline sidecars of a recording instance. Sidecar failures are
// logged and leave the corresponding path empty; a missing or failed audio
// artifact fails the whole call.
func (e *Engine) DownloadInstance(ctx context.Context, instance zoom.RecordingInstance, base string, sel Selection) (*Artifacts, error) {
	files := instance.RecordingFiles

	audio := zoom.SelectBestAudio(files)
	if audio == nil {
		return nil, zoom.NewError(zoom.CodeNoAudioAvailable, "no audio available",
			"no suitable audio or video files found for this recording")
	}

	artifacts := &Artifacts{}

	path, err := e.Download(ctx, *audio, base)
	if err != nil {
		return nil, err
	}
	artifacts.Audio = path

	for _, f := range files {
		ext := strings.ToUpper(f.FileExtension)
		switch {
		case ext == "VTT":
			if sel.SkipTranscript {
				continue
			}
			artifacts.Transcript = e.downloadSidecar(ctx, f, base, "transcript")
		case ext == "TXT":
			if sel.SkipChat {
				continue
			}
			artifacts.Chat = e.downloadSidecar(ctx, f, base, "chat")
		case f.FileType == zoom.FileTypeTimeline || (ext == "JSON" && f.FileType != zoom.FileTypeChat):
			if sel.SkipTimeline {
				continue
			}
			artifacts.Timeline = e.downloadSidecar(ctx, f, base, "timeline")
		}
	}

	return artifacts, nil
}

// downloadSidecar downloads a non-essential artifact, returning "" on
// failure.
func (e *Engine) downloadSidecar(ctx context.Context, f zoom.RecordingFile, base, kind string) string {
	path, err := e.Download(ctx, f, base)
	if err != nil {
		e.logger.Warn("sidecar download failed",
			slog.String("kind", kind),
			logging.Err(err),
		)
		return ""
	}
	return path
}
