package classifier

import (
	"path/filepath"
	"strings"
)

// ProtectedSet is the immutable compile-time deny-list: paths matching it
// must never be deleted regardless of user intent or cleanup level. Mutating
// this set requires a code change, not a configuration change (§3).
var ProtectedSet = []string{
	"/System",
	"/Library/Apple",
	"/Library/Keychains",
	"/Library/Preferences",
	"/Library/Application Support/com.apple.TCC",
	"/private/var/db",
	"/bin",
	"/sbin",
	"/usr/bin",
	"/usr/sbin",
	"/usr/lib",
	"/boot",
	"/etc",
	"/proc",
	"/sys",
	"/dev",
}

// homeRelativeProtected are ProtectedSet entries expressed relative to the
// caller's home directory; ExpandedProtectedSet resolves them against a
// concrete home before matching.
var homeRelativeProtected = []string{
	"Library/Keychains",
	"Library/Preferences",
	"Library/Application Support/com.apple.TCC",
}

// ExpandedProtectedSet returns ProtectedSet plus the home-relative entries
// resolved against home, ready for prefix matching.
func ExpandedProtectedSet(home string) []string {
	out := make([]string, 0, len(ProtectedSet)+len(homeRelativeProtected))
	out = append(out, ProtectedSet...)
	if home != "" {
		for _, rel := range homeRelativeProtected {
			out = append(out, filepath.Join(home, rel))
		}
	}
	return out
}

// MatchesProtected reports whether path is, or is a descendant of, any
// protected prefix. Tie-break per §4.1: longer (more specific) prefixes
// still just need one match — protection is a union, not a priority order.
func MatchesProtected(path string, protected []string) bool {
	path = filepath.Clean(path)
	for _, p := range protected {
		if isPathOrChild(path, filepath.Clean(p)) {
			return true
		}
	}
	return false
}

// isPathOrChild returns true if path == base or path is a descendant of
// base, without the classic prefix bug ("/data/a" must not match
// "/data/abc").
func isPathOrChild(path, base string) bool {
	if base == string(filepath.Separator) {
		return path == base
	}
	if path == base {
		return true
	}
	withSep := base
	if !strings.HasSuffix(withSep, string(filepath.Separator)) {
		withSep += string(filepath.Separator)
	}
	return strings.HasPrefix(path, withSep)
}
