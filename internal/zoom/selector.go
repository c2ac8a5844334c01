package zoom

import "sort"

// SelectBestAudio picks the preferred audio artifact from a file list.
// Priority: audio_only of any format, then any M4A, then MP4 video as a
// fallback. Returns nil when no suitable file exists.
func SelectBestAudio(files []RecordingFile) *RecordingFile {
	for i := range files {
		if files[i].FileType == FileTypeAudioOnly {
			return &files[i]
		}
	}
	for i := range files {
		if files[i].FileExtension == FileTypeM4A {
			return &files[i]
		}
	}
	for i := range files {
		if files[i].FileExtension == FileTypeMP4 {
			return &files[i]
		}
	}
	return nil
}

// MostRecentInstance returns the instance with the latest start time.
func MostRecentInstance(instances []RecordingInstance) *RecordingInstance {
	if len(instances) == 0 {
		return nil
	}
	sorted := make([]RecordingInstance, len(instances))
	copy(sorted, instances)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime > sorted[j].StartTime
	})
	return &sorted[0]
}

// FilterByUUID finds the instance with the given recording UUID, or nil.
func FilterByUUID(instances []RecordingInstance, uuid string) *RecordingInstance {
	for i := range instances {
		if instances[i].UUID == uuid {
			return &instances[i]
		}
	}
	return nil
}

// SortNewestFirst orders instances by start time, newest first. Used by
// batch processing so recent meetings are handled before older ones.
func SortNewestFirst(instances []RecordingInstance) {
	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].StartTime > instances[j].StartTime
	})
}
