package classifier

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Symlink containment reasons, exported so callers (the executor's
// execute-time TOCTOU re-check) can branch on the specific failure.
const (
	ReasonOK              = "ok"
	ReasonOutsideRoot     = "outside_root"
	ReasonSymlinkAncestor = "symlink_ancestor"
	ReasonSymlinkSelf     = "symlink_self"
	ReasonStatError       = "stat_error"
	ReasonInvalidArgs     = "invalid_args"
)

// ContainmentVerdict is the result of an ancestor-symlink containment check.
type ContainmentVerdict struct {
	Allowed bool
	Reason  string
}

// AncestorSymlinkContainment blocks when candidate resolves outside root, or
// when any path component from root to candidate is itself a symlink. It
// never follows symlinks — that is the point: a scanner-discovered path is
// re-verified immediately before deletion using only Lstat.
func AncestorSymlinkContainment(root, candidate string) ContainmentVerdict {
	root = strings.TrimSpace(root)
	candidate = strings.TrimSpace(candidate)
	if root == "" || candidate == "" {
		return ContainmentVerdict{Reason: ReasonInvalidArgs}
	}

	rootAbs, err := absClean(root)
	if err != nil {
		return ContainmentVerdict{Reason: fmt.Sprintf("%s:root:%v", ReasonStatError, err)}
	}
	candAbs, err := absClean(candidate)
	if err != nil {
		return ContainmentVerdict{Reason: fmt.Sprintf("%s:candidate:%v", ReasonStatError, err)}
	}

	rel, err := filepath.Rel(rootAbs, candAbs)
	if err != nil {
		return ContainmentVerdict{Reason: fmt.Sprintf("%s:rel:%v", ReasonStatError, err)}
	}
	if rel == "." {
		return ContainmentVerdict{Allowed: true, Reason: ReasonOK}
	}
	if relIsOutside(rel) {
		return ContainmentVerdict{Reason: ReasonOutsideRoot}
	}

	parts := splitRel(rel)
	cur := rootAbs
	for i, p := range parts {
		cur = filepath.Join(cur, p)
		isLink, linkErr := isSymlink(cur)
		if linkErr != nil {
			return ContainmentVerdict{Reason: fmt.Sprintf("%s:%v", ReasonStatError, linkErr)}
		}
		if isLink {
			if i == len(parts)-1 {
				return ContainmentVerdict{Reason: fmt.Sprintf("%s:%s", ReasonSymlinkSelf, cur)}
			}
			return ContainmentVerdict{Reason: fmt.Sprintf("%s:%s", ReasonSymlinkAncestor, cur)}
		}
	}

	return ContainmentVerdict{Allowed: true, Reason: ReasonOK}
}

func absClean(p string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", err
	}
	return abs, nil
}

func relIsOutside(rel string) bool {
	rel = filepath.Clean(rel)
	if rel == ".." {
		return true
	}
	return strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func splitRel(rel string) []string {
	rel = filepath.Clean(rel)
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(rel, string(filepath.Separator))
}

func isSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("lstat:not_exist:%s", path)
		}
		return false, fmt.Errorf("lstat:%s:%w", path, err)
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}
