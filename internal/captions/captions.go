// Package captions describes the caption tracks a provider offers for a video.
package captions

import (
	"iter"
	"slices"
	"strings"
)

// Format is a caption file format as named by the provider.
type Format string

const (
	FormatVTT   Format = "vtt"
	FormatSRV1  Format = "srv1"
	FormatSRV2  Format = "srv2"
	FormatSRV3  Format = "srv3"
	FormatTTML  Format = "ttml"
	FormatOther Format = "other"
)

// accepted lists the formats the transcript reducer can work with, in order
// of preference.
var accepted = []Format{FormatVTT, FormatSRV3, FormatSRV2, FormatSRV1, FormatTTML}

// ParseFormat maps a provider extension to a Format. Unknown names become FormatOther.
func ParseFormat(s string) Format {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if f.Accepted() {
		return f
	}
	return FormatOther
}

// Accepted reports whether f can be reduced to a transcript.
func (f Format) Accepted() bool {
	return slices.Contains(accepted, f)
}

// AcceptedFormats returns the accepted formats, most preferred first.
func AcceptedFormats() []Format {
	return slices.Clone(accepted)
}

// Track is one caption language.
type Track struct {
	Language  string
	Name      string
	Formats   []Format
	Automatic bool
}

// Preferred returns the most preferred accepted format of t.
func (t Track) Preferred() (Format, bool) {
	for _, f := range accepted {
		if slices.Contains(t.Formats, f) {
			return f, true
		}
	}
	return "", false
}

// TrackSet is an ordered, immutable mapping of language code to formats.
// The zero value is an empty set.
type TrackSet struct {
	tracks []Track
}

// NewTrackSet builds a set in the given order. Tracks repeating a language are
// merged into the first occurrence; their formats are unioned.
func NewTrackSet(tracks ...Track) TrackSet {
	var ts TrackSet
	index := make(map[string]int, len(tracks))
	for _, t := range tracks {
		if t.Language == "" {
			continue
		}
		i, ok := index[t.Language]
		if !ok {
			index[t.Language] = len(ts.tracks)
			t.Formats = dedupe(nil, t.Formats)
			ts.tracks = append(ts.tracks, t)
			continue
		}
		merged := &ts.tracks[i]
		merged.Formats = dedupe(merged.Formats, t.Formats)
		if merged.Name == "" {
			merged.Name = t.Name
		}
		merged.Automatic = merged.Automatic && t.Automatic
	}
	return ts
}

func dedupe(dst, src []Format) []Format {
	out := slices.Clone(dst)
	for _, f := range src {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func (ts TrackSet) Len() int { return len(ts.tracks) }

func (ts TrackSet) Empty() bool { return len(ts.tracks) == 0 }

// Languages returns the language codes in set order.
func (ts TrackSet) Languages() []string {
	langs := make([]string, len(ts.tracks))
	for i, t := range ts.tracks {
		langs[i] = t.Language
	}
	return langs
}

// Track returns the track for lang.
func (ts TrackSet) Track(lang string) (Track, bool) {
	for _, t := range ts.tracks {
		if t.Language == lang {
			t.Formats = slices.Clone(t.Formats)
			return t, true
		}
	}
	return Track{}, false
}

// Formats returns the formats offered for lang, nil when absent.
func (ts TrackSet) Formats(lang string) []Format {
	t, ok := ts.Track(lang)
	if !ok {
		return nil
	}
	return t.Formats
}

// All iterates the tracks in order.
func (ts TrackSet) All() iter.Seq[Track] {
	return func(yield func(Track) bool) {
		for _, t := range ts.tracks {
			t.Formats = slices.Clone(t.Formats)
			if !yield(t) {
				return
			}
		}
	}
}

// Usable returns a new set keeping only accepted formats and dropping
// languages left without any.
func (ts TrackSet) Usable() TrackSet {
	var out TrackSet
	for _, t := range ts.tracks {
		var formats []Format
		for _, f := range t.Formats {
			if f.Accepted() {
				formats = append(formats, f)
			}
		}
		if len(formats) == 0 {
			continue
		}
		t.Formats = formats
		out.tracks = append(out.tracks, t)
	}
	return out
}
