package facematch

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics, spaces for dashes and underscores).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// IdentityName turns an enrollment directory name into a display name.
// Underscores become spaces.
func IdentityName(base string) string {
	base = strings.ReplaceAll(filepath.Base(base), "_", " ")
	return norm.NFC.String(strings.TrimSpace(base))
}

// DirName is the enrollment directory name for a display name.
func DirName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), "_")
}

// Slug is the flat-store file stem for a display name ("Bob Smith" -> "bob_smith").
func Slug(name string) string {
	return strings.ToLower(DirName(name))
}

// FileIdentityName is IdentityName for a flat-store photo; the extension is dropped.
func FileIdentityName(path string) string {
	base := filepath.Base(path)
	return IdentityName(strings.TrimSuffix(base, filepath.Ext(base)))
}
