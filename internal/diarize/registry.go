package diarize

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const maxSpeakerIDLen = 64

// Reserved speaker ids. SpeakerUnknown attributes events without any
// participant identity; real participants never receive these ids.
const (
	SpeakerUnknown  = "unknown"
	SpeakerMultiple = "multiple"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// slugify reduces a display name to a lowercase id fragment.
func slugify(name string) string {
	s := nonAlnum.ReplaceAllString(name, "-")
	s = strings.Trim(s, "-")
	s = strings.ToLower(s)
	if s == "" {
		return "speaker"
	}
	return s
}

// identityKey gives each participant a stable key across events, preferring
// the strongest identifier available.
func identityKey(u User) string {
	if zid := strings.TrimSpace(u.ZoomUserID); zid != "" {
		return "zoom:" + zid
	}
	if uid := strings.TrimSpace(string(u.UserID)); uid != "" {
		return "uid:" + uid
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		return "name:" + strings.ToLower(name)
	}
	fingerprint := fmt.Sprintf("%s|%s|%s", u.Username, u.UserID, u.ZoomUserID)
	digest := sha1.Sum([]byte(fingerprint))
	return "anon:" + hex.EncodeToString(digest[:])
}

func displayName(u User) string {
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	if zid := strings.TrimSpace(u.ZoomUserID); zid != "" {
		return zid
	}
	if uid := strings.TrimSpace(string(u.UserID)); uid != "" {
		return uid
	}
	return "Speaker"
}

func speakerExtensions(u User) *SpeakerExtensions {
	zoom := SpeakerZoom{
		ParticipantID: strings.TrimSpace(u.ZoomUserID),
		UserID:        strings.TrimSpace(string(u.UserID)),
	}
	if zoom.ParticipantID == "" && zoom.UserID == "" {
		return nil
	}
	return &SpeakerExtensions{Zoom: zoom}
}

// registry assigns stable slug ids to participants in order of first
// appearance.
type registry struct {
	identityToID map[string]string
	slugCounts   map[string]int
	speakers     map[string]Speaker
}

func newRegistry() *registry {
	r := &registry{
		identityToID: make(map[string]string),
		slugCounts:   make(map[string]int),
		speakers:     make(map[string]Speaker),
	}
	// Reserve both special slugs so participant names cannot shadow them.
	r.slugCounts[SpeakerUnknown] = 1
	r.slugCounts[SpeakerMultiple] = 1
	r.speakers[SpeakerUnknown] = Speaker{ID: SpeakerUnknown, Name: "Unknown"}
	return r
}

// ingest registers every participant before segment construction so that id
// numbering follows first appearance in the timeline.
func (r *registry) ingest(events []Event) {
	for _, ev := range events {
		for _, u := range ev.Users {
			r.idFor(u)
		}
	}
}

func (r *registry) idFor(u User) string {
	key := identityKey(u)
	if id, ok := r.identityToID[key]; ok {
		return id
	}
	name := displayName(u)
	slug := r.reserveSlug(slugify(name))
	r.speakers[slug] = Speaker{ID: slug, Name: name, Extensions: speakerExtensions(u)}
	r.identityToID[key] = slug
	return slug
}

// reserveSlug deduplicates colliding slugs with -2, -3 suffixes, keeping ids
// within the length limit.
func (r *registry) reserveSlug(base string) string {
	if len(base) > maxSpeakerIDLen {
		base = base[:maxSpeakerIDLen]
	}
	count := r.slugCounts[base] + 1
	r.slugCounts[base] = count
	if count == 1 {
		return base
	}
	suffix := fmt.Sprintf("-%d", count)
	maxBase := maxSpeakerIDLen - len(suffix)
	if maxBase < 1 {
		maxBase = 1
	}
	trimmed := base
	if len(trimmed) > maxBase {
		trimmed = trimmed[:maxBase]
	}
	trimmed = strings.TrimRight(trimmed, "-")
	if trimmed == "" {
		trimmed = "speaker"
	}
	return trimmed + suffix
}

// speakersFor returns the referenced speakers sorted by lowercase name then
// id, independent of map iteration order.
func (r *registry) speakersFor(used map[string]bool) []Speaker {
	var selected []Speaker
	for id, sp := range r.speakers {
		if used[id] {
			selected = append(selected, sp)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		ni, nj := strings.ToLower(selected[i].Name), strings.ToLower(selected[j].Name)
		if ni != nj {
			return ni < nj
		}
		return selected[i].ID < selected[j].ID
	})
	return selected
}
