// Package version implements semantic-version tracking for style guide
// content files: a JSON manifest, markdown frontmatter stamping, and a
// change-scope heuristic driven by git diffs.
package version

import (
	"fmt"
	"regexp"
	"strconv"
)

// Increment is a semantic-version increment type.
type Increment string

const (
	// IncrementPatch covers bug fixes and typo corrections.
	IncrementPatch Increment = "patch"
	// IncrementMinor covers new content and additions.
	IncrementMinor Increment = "minor"
	// IncrementMajor covers structural changes.
	IncrementMajor Increment = "major"
)

// ValidIncrement reports whether s names a known increment type.
func ValidIncrement(s string) bool {
	switch Increment(s) {
	case IncrementPatch, IncrementMinor, IncrementMajor:
		return true
	}
	return false
}

var semverRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)

// Semver holds the parsed components of a version string.
type Semver struct {
	Major int
	Minor int
	Patch int
	Raw   string
}

// ParseVersion parses a strict MAJOR.MINOR.PATCH string.
func ParseVersion(s string) (Semver, error) {
	m := semverRe.FindStringSubmatch(s)
	if m == nil {
		return Semver{}, fmt.Errorf("invalid semantic version: %q", s)
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	return Semver{Major: major, Minor: minor, Patch: patch, Raw: s}, nil
}

// FormatVersion renders components as MAJOR.MINOR.PATCH.
func FormatVersion(major, minor, patch int) string {
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}

// IsValidVersion reports whether s is a strict MAJOR.MINOR.PATCH string.
func IsValidVersion(s string) bool {
	return semverRe.MatchString(s)
}

// IncrementVersion bumps v by the given increment type. An unknown
// increment returns v unchanged.
func IncrementVersion(v string, inc Increment) (string, error) {
	parsed, err := ParseVersion(v)
	if err != nil {
		return "", err
	}

	switch inc {
	case IncrementMajor:
		return FormatVersion(parsed.Major+1, 0, 0), nil
	case IncrementMinor:
		return FormatVersion(parsed.Major, parsed.Minor+1, 0), nil
	case IncrementPatch:
		return FormatVersion(parsed.Major, parsed.Minor, parsed.Patch+1), nil
	}
	return v, nil
}

// CompareVersions returns -1 if a < b, 0 if equal, 1 if a > b.
func CompareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}

	if va.Major != vb.Major {
		return cmp(va.Major, vb.Major), nil
	}
	if va.Minor != vb.Minor {
		return cmp(va.Minor, vb.Minor), nil
	}
	if va.Patch != vb.Patch {
		return cmp(va.Patch, vb.Patch), nil
	}
	return 0, nil
}

func cmp(a, b int) int {
	if a > b {
		return 1
	}
	return -1
}

// LatestVersion returns the highest valid version in the list, or "" when
// none is valid.
func LatestVersion(versions []string) string {
	latest := ""
	for _, v := range versions {
		if !IsValidVersion(v) {
			continue
		}
		if latest == "" {
			latest = v
			continue
		}
		if c, err := CompareVersions(v, latest); err == nil && c > 0 {
			latest = v
		}
	}
	return latest
}
