package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"styleguides/internal/logger"
)

// Change-scope thresholds: structural edits or large diffs bump major,
// list/quote/code edits or medium diffs bump minor, everything else patch.
const (
	majorLineThreshold = 50
	minorLineThreshold = 10
)

var (
	majorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[+-]\s*#{1,3}\s`),
		regexp.MustCompile(`^[+-]\s*\*\*.*\*\*`),
	}
	minorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[+-]\s*\*\s`),
		regexp.MustCompile(`^[+-]\s*\d+\.\s`),
		regexp.MustCompile(`^[+-]\s*-\s`),
		regexp.MustCompile(`^[+-]\s*>\s`),
		regexp.MustCompile("^[+-]\\s*```"),
	}
)

// AnalyzeChangeScope classifies a unified diff into an increment type. An
// empty diff is a patch.
func AnalyzeChangeScope(diff string) Increment {
	if diff == "" {
		return IncrementPatch
	}

	lines := strings.Split(diff, "\n")
	added, removed := 0, 0
	structural := false
	minorMarker := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			added++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			removed++
		default:
			continue
		}

		for _, re := range majorPatterns {
			if re.MatchString(line) {
				structural = true
				break
			}
		}
		for _, re := range minorPatterns {
			if re.MatchString(line) {
				minorMarker = true
				break
			}
		}
	}

	if structural || added > majorLineThreshold || removed > majorLineThreshold {
		return IncrementMajor
	}
	if added > minorLineThreshold || removed > minorLineThreshold || minorMarker {
		return IncrementMinor
	}
	return IncrementPatch
}

// GenerateChangeNotes builds a human-readable note for an increment,
// enriched with specifics found in the diff.
func GenerateChangeNotes(diff string, inc Increment) string {
	base := map[Increment]string{
		IncrementMajor: "Major structural changes and updates",
		IncrementMinor: "Content additions and improvements",
		IncrementPatch: "Minor corrections and fixes",
	}[inc]
	if base == "" {
		base = "Minor corrections and fixes"
	}

	if diff == "" {
		return base
	}

	var specifics []string
	lines := strings.Split(diff, "\n")
	added, removed := 0, 0
	headings, code := false, false
	for _, line := range lines {
		if strings.Contains(line, "# ") || strings.Contains(line, "## ") {
			headings = true
		}
		if strings.Contains(line, "```") {
			code = true
		}
		if strings.HasPrefix(line, "+") {
			added++
		}
		if strings.HasPrefix(line, "-") {
			removed++
		}
	}
	if headings {
		specifics = append(specifics, "Updated section headings")
	}
	if code {
		specifics = append(specifics, "Modified code examples")
	}
	if added > removed {
		specifics = append(specifics, "Added new content")
	}

	if len(specifics) == 0 {
		return base
	}
	return base + ": " + strings.Join(specifics, ", ")
}

// ChangeResult describes the outcome of change detection for one file.
type ChangeResult struct {
	Filename         string
	Slug             string
	HasChanged       bool
	HashChanged      bool
	IncrementType    Increment
	SuggestedVersion string
	ChangeNotes      string
}

// Manager runs the version-tracking pipeline over a style guide directory
// and its JSON manifest.
type Manager struct {
	StyleguideDir string
	ManifestPath  string
	GitEnabled    bool
	IgnoredFiles  []string

	log *logger.Logger
}

// NewManager creates a manager with the default ignore list.
func NewManager(styleguideDir, manifestPath string, log *logger.Logger) *Manager {
	return &Manager{
		StyleguideDir: styleguideDir,
		ManifestPath:  manifestPath,
		GitEnabled:    true,
		IgnoredFiles:  []string{"README.md", "LICENSE"},
		log:           log,
	}
}

// StyleguideFiles lists the markdown files under the style guide directory,
// minus the ignore list, in sorted order.
func (m *Manager) StyleguideFiles() ([]string, error) {
	entries, err := os.ReadDir(m.StyleguideDir)
	if err != nil {
		return nil, fmt.Errorf("read styleguide dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || m.ignored(name) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Manager) ignored(name string) bool {
	for _, ig := range m.IgnoredFiles {
		if ig == name {
			return true
		}
	}
	return false
}

// FileHash computes the SHA-256 hex digest of a file's content.
func FileHash(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

// gitDiff returns the uncommitted diff for a tracked file, or "" when the
// file is untracked, unchanged, or git is unavailable.
func (m *Manager) gitDiff(path string) string {
	track := exec.Command("git", "ls-files", "--error-unmatch", path)
	track.Dir = m.StyleguideDir
	if err := track.Run(); err != nil {
		return ""
	}

	diff := exec.Command("git", "diff", "HEAD", "--", path)
	diff.Dir = m.StyleguideDir
	out, err := diff.Output()
	if err != nil {
		return ""
	}
	return string(out)
}

// DetectChanges checks one file against the manifest: git diff first, hash
// comparison as fallback. A file without a manifest entry yields nil.
func (m *Manager) DetectChanges(filename string, manifest *Manifest) (*ChangeResult, error) {
	slug := Slug(filename)
	entry := manifest.Styleguides[slug]
	if entry == nil {
		m.log.Warn().Str("file", filename).Msg("no manifest entry")
		return nil, nil
	}

	path := filepath.Join(m.StyleguideDir, filename)

	if m.GitEnabled {
		if diff := m.gitDiff(path); strings.TrimSpace(diff) != "" {
			inc := AnalyzeChangeScope(diff)
			suggested, err := IncrementVersion(entry.Version, inc)
			if err != nil {
				return nil, fmt.Errorf("increment %s: %w", filename, err)
			}
			return &ChangeResult{
				Filename:         filename,
				Slug:             slug,
				HasChanged:       true,
				IncrementType:    inc,
				SuggestedVersion: suggested,
				ChangeNotes:      GenerateChangeNotes(diff, inc),
			}, nil
		}
	}

	hash, err := FileHash(path)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", filename, err)
	}
	if entry.ContentHash != "" && hash != entry.ContentHash {
		return &ChangeResult{Filename: filename, Slug: slug, HasChanged: true, HashChanged: true}, nil
	}

	return &ChangeResult{Filename: filename, Slug: slug}, nil
}

// CheckForChanges runs change detection over every style guide file and
// returns the changed ones.
func (m *Manager) CheckForChanges() ([]*ChangeResult, error) {
	manifest, err := LoadManifest(m.ManifestPath)
	if err != nil {
		return nil, err
	}

	files, err := m.StyleguideFiles()
	if err != nil {
		return nil, err
	}

	var changes []*ChangeResult
	for _, f := range files {
		result, err := m.DetectChanges(f, manifest)
		if err != nil {
			return nil, err
		}
		if result != nil && result.HasChanged {
			changes = append(changes, result)
		}
	}
	return changes, nil
}

// UpdateContentHashes recomputes and stores the content hash of every
// style guide, reporting how many entries changed.
func (m *Manager) UpdateContentHashes() (int, error) {
	manifest, err := LoadManifest(m.ManifestPath)
	if err != nil {
		return 0, err
	}

	files, err := m.StyleguideFiles()
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, f := range files {
		entry := manifest.Styleguides[Slug(f)]
		if entry == nil {
			m.log.Warn().Str("file", f).Msg("no manifest entry")
			continue
		}

		hash, err := FileHash(filepath.Join(m.StyleguideDir, f))
		if err != nil {
			m.log.Error().Err(err).Str("file", f).Msg("hash file")
			continue
		}
		if entry.ContentHash != hash {
			entry.ContentHash = hash
			updated++
		}
	}

	if updated > 0 {
		if err := manifest.Save(m.ManifestPath); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// UpdateVersion bumps one style guide: frontmatter is rewritten, then the
// manifest entry, its history, and the content hash are updated. The
// manifest is not saved; callers batch saves.
func (m *Manager) UpdateVersion(filename string, inc Increment, notes string, manifest *Manifest) error {
	slug := Slug(filename)
	entry := manifest.Styleguides[slug]
	if entry == nil {
		return fmt.Errorf("no manifest entry for %s", filename)
	}

	newVersion, err := IncrementVersion(entry.Version, inc)
	if err != nil {
		return err
	}

	path := filepath.Join(m.StyleguideDir, filename)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	updated, err := UpdateFrontmatter(string(content), map[string]string{
		"version":     newVersion,
		"lastUpdated": CurrentDate(),
		"changeNotes": notes,
	})
	if err != nil {
		return fmt.Errorf("frontmatter %s: %w", filename, err)
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}

	entry.Bump(newVersion, notes)
	if hash, err := FileHash(path); err == nil {
		entry.ContentHash = hash
	}

	m.log.Info().Str("file", filename).Str("version", newVersion).Msg("version updated")
	return nil
}

// ApplyUpdates detects changes and applies the suggested version bumps,
// returning how many guides were updated.
func (m *Manager) ApplyUpdates() (int, error) {
	manifest, err := LoadManifest(m.ManifestPath)
	if err != nil {
		return 0, err
	}

	changes, err := m.CheckForChanges()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, change := range changes {
		if change.IncrementType == "" {
			m.log.Warn().Str("file", change.Filename).Msg("skipping, no increment type determined")
			continue
		}
		if err := m.UpdateVersion(change.Filename, change.IncrementType, change.ChangeNotes, manifest); err != nil {
			return applied, err
		}
		applied++
	}

	if applied > 0 {
		if err := manifest.Save(m.ManifestPath); err != nil {
			return applied, err
		}
	}
	return applied, nil
}

// BumpSingle manually bumps one guide. Empty notes get a generated default
// for the increment type.
func (m *Manager) BumpSingle(filename string, inc Increment, notes string) error {
	manifest, err := LoadManifest(m.ManifestPath)
	if err != nil {
		return err
	}

	if notes == "" {
		notes = GenerateChangeNotes("", inc)
	}
	if err := m.UpdateVersion(filename, inc, notes, manifest); err != nil {
		return err
	}
	return manifest.Save(m.ManifestPath)
}

// CheckIssue is one problem found by the post-build validation.
type CheckIssue struct {
	Filename string
	Problem  string
}

// PostBuildCheck validates every manifest entry: the file must exist, the
// version must be well-formed, and the frontmatter must carry a version.
func (m *Manager) PostBuildCheck() ([]CheckIssue, error) {
	manifest, err := LoadManifest(m.ManifestPath)
	if err != nil {
		return nil, err
	}

	var issues []CheckIssue
	for _, slug := range manifest.Slugs() {
		entry := manifest.Styleguides[slug]
		path := filepath.Join(m.StyleguideDir, entry.Filename)

		content, err := os.ReadFile(path)
		if err != nil {
			issues = append(issues, CheckIssue{Filename: entry.Filename, Problem: "file not found"})
			continue
		}
		if !IsValidVersion(entry.Version) {
			issues = append(issues, CheckIssue{Filename: entry.Filename, Problem: fmt.Sprintf("invalid version format (%s)", entry.Version)})
		}
		fm := ParseFrontmatter(string(content))
		if fm == nil || fm["version"] == "" {
			issues = append(issues, CheckIssue{Filename: entry.Filename, Problem: "missing version in frontmatter"})
		}
	}
	return issues, nil
}
