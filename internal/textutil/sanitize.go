package textutil

import (
	"path/filepath"
	"strings"
)

// maxFileNameBytes caps sanitized filenames well below common filesystem
// limits (255) to leave headroom for version suffixes added later.
const maxFileNameBytes = 180

// reservedDeviceNames are Windows device names that cannot be used as a
// filename stem regardless of extension.
var reservedDeviceNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// SanitizeFileName makes name safe for cross-platform use. Characters invalid
// on Windows (and path separators) become underscores, control characters are
// dropped, reserved device names are prefixed with an underscore, and the
// result is capped at maxFileNameBytes preserving the extension.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			// drop control characters
		case r == '<' || r == '>' || r == ':' || r == '"' || r == '|' ||
			r == '?' || r == '*' || r == '/' || r == '\\':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "unnamed"
	}

	ext := filepath.Ext(out)
	stem := strings.TrimSuffix(out, ext)
	if _, reserved := reservedDeviceNames[strings.ToLower(stem)]; reserved {
		stem = "_" + stem
	}

	if len(stem)+len(ext) > maxFileNameBytes {
		budget := maxFileNameBytes - len(ext)
		if budget < 1 {
			budget = 1
		}
		stem = truncateRunes(stem, budget)
	}
	return stem + ext
}

// SanitizeToken converts a value to a lowercase filesystem-safe token for use
// inside directory names. Letters are lowercased, digits and hyphens and
// underscores are kept, everything else becomes an underscore.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// SanitizePathSegment makes a single directory-name segment safe, collapsing
// runs of whitespace and underscores so titles read cleanly in the tree.
func SanitizePathSegment(segment string) string {
	sanitized := SanitizeFileName(segment)
	fields := strings.FieldsFunc(sanitized, func(r rune) bool {
		return r == ' ' || r == '_'
	})
	if len(fields) == 0 {
		return "unnamed"
	}
	return strings.Join(fields, "_")
}

func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !isRuneStart(s, maxBytes) {
		maxBytes--
	}
	return s[:maxBytes]
}

func isRuneStart(s string, i int) bool {
	return i >= len(s) || (s[i]&0xc0) != 0x80
}
