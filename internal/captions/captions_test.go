package captions

import (
	"slices"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"vtt", FormatVTT},
		{"VTT", FormatVTT},
		{".srv3", FormatSRV3},
		{"srv1", FormatSRV1},
		{"srv2", FormatSRV2},
		{"ttml", FormatTTML},
		{"json3", FormatOther},
		{"", FormatOther},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUsable_FiltersLanguagesWithoutAcceptedFormats(t *testing.T) {
	ts := NewTrackSet(
		Track{Language: "en", Formats: []Format{FormatVTT}},
		Track{Language: "fr", Formats: []Format{FormatTTML}},
		Track{Language: "de", Formats: []Format{FormatOther}},
	)

	usable := ts.Usable()
	if got := usable.Languages(); !slices.Equal(got, []string{"en", "fr"}) {
		t.Fatalf("expected [en fr], got %v", got)
	}
	if ts.Len() != 3 {
		t.Errorf("original set must be unchanged, has %d tracks", ts.Len())
	}
}

func TestUsable_DropsOtherFormats(t *testing.T) {
	ts := NewTrackSet(Track{Language: "en", Formats: []Format{FormatOther, FormatSRV3, FormatVTT}})
	if got := ts.Usable().Formats("en"); !slices.Equal(got, []Format{FormatSRV3, FormatVTT}) {
		t.Errorf("unexpected formats %v", got)
	}
}

func TestUsable_EmptyIsNotAnError(t *testing.T) {
	ts := NewTrackSet(Track{Language: "de", Formats: []Format{FormatOther}})
	if !ts.Usable().Empty() {
		t.Error("expected empty usable set")
	}
	if !(TrackSet{}).Usable().Empty() {
		t.Error("zero value must be empty")
	}
}

func TestNewTrackSet_MergesDuplicates(t *testing.T) {
	ts := NewTrackSet(
		Track{Language: "en", Formats: []Format{FormatVTT}, Automatic: true},
		Track{Language: "es", Formats: []Format{FormatTTML}},
		Track{Language: "en", Name: "English", Formats: []Format{FormatVTT, FormatSRV3}},
		Track{Language: "", Formats: []Format{FormatVTT}},
	)

	if got := ts.Languages(); !slices.Equal(got, []string{"en", "es"}) {
		t.Fatalf("unexpected order %v", got)
	}
	en, _ := ts.Track("en")
	if !slices.Equal(en.Formats, []Format{FormatVTT, FormatSRV3}) {
		t.Errorf("unexpected merged formats %v", en.Formats)
	}
	if en.Name != "English" {
		t.Errorf("expected name to be filled from duplicate, got %q", en.Name)
	}
	if en.Automatic {
		t.Error("a manual duplicate should make the merged track manual")
	}
}

func TestTrackSet_ReturnsCopies(t *testing.T) {
	ts := NewTrackSet(Track{Language: "en", Formats: []Format{FormatVTT}})
	formats := ts.Formats("en")
	formats[0] = FormatOther

	if ts.Formats("en")[0] != FormatVTT {
		t.Error("track set was mutated through a returned slice")
	}
	for tr := range ts.All() {
		tr.Formats[0] = FormatOther
	}
	if ts.Formats("en")[0] != FormatVTT {
		t.Error("track set was mutated through the iterator")
	}
}

func TestTrack_Preferred(t *testing.T) {
	tr := Track{Formats: []Format{FormatTTML, FormatSRV1, FormatVTT}}
	if f, ok := tr.Preferred(); !ok || f != FormatVTT {
		t.Errorf("expected vtt, got %q (%v)", f, ok)
	}
	if _, ok := (Track{Formats: []Format{FormatOther}}).Preferred(); ok {
		t.Error("expected no preferred format")
	}
}
