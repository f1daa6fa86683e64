package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeFileNameReplacesInvalidCharacters(t *testing.T) {
	cases := map[string]string{
		"s1-b4_16:9_v01.png": "s1-b4_16_9_v01.png",
		"beat<one>.png":      "beat_one_.png",
		`a/b\c.png`:          "a_b_c.png",
		"what?.png":          "what_.png",
		"quote\"pipe|.png":   "quote_pipe_.png",
		"star*glob.png":      "star_glob.png",
		"  padded.png  ":     "padded.png",
		"trailing dots...":   "trailing dots",
		"":                   "unnamed",
	}
	for input, want := range cases {
		if got := SanitizeFileName(input); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeFileNameNeverKeepsAspectRatioColon(t *testing.T) {
	got := SanitizeFileName("s3-b2_wide_16:9.png")
	if strings.Contains(got, ":") {
		t.Fatalf("sanitized name still contains colon: %q", got)
	}
}

func TestSanitizeFileNameReservedDeviceNames(t *testing.T) {
	if got := SanitizeFileName("CON.png"); got != "_CON.png" {
		t.Fatalf("expected reserved name to be prefixed, got %q", got)
	}
	if got := SanitizeFileName("lpt3"); got != "_lpt3" {
		t.Fatalf("expected reserved name to be prefixed, got %q", got)
	}
	if got := SanitizeFileName("console.png"); got != "console.png" {
		t.Fatalf("non-reserved name should be untouched, got %q", got)
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	long := strings.Repeat("a", 400) + ".png"
	got := SanitizeFileName(long)
	if len(got) > maxFileNameBytes {
		t.Fatalf("sanitized name exceeds cap: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, ".png") {
		t.Fatalf("extension lost during truncation: %q", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("The Harbor: Part II"); got != "the_harbor___part_ii" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken(""); got != "unknown" {
		t.Fatalf("expected fallback token, got %q", got)
	}
}

func TestSanitizePathSegmentCollapsesSeparators(t *testing.T) {
	if got := SanitizePathSegment("The  Harbor: Part II"); got != "The_Harbor_Part_II" {
		t.Fatalf("unexpected segment %q", got)
	}
}
