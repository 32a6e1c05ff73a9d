package version

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// HistoryEntry is one released version of a style guide.
type HistoryEntry struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Notes   string `json:"notes"`
}

// Entry is the manifest record for a single style guide file.
type Entry struct {
	Filename    string         `json:"filename"`
	Title       string         `json:"title"`
	Version     string         `json:"version"`
	LastUpdated string         `json:"lastUpdated"`
	ChangeNotes string         `json:"changeNotes"`
	ContentHash string         `json:"contentHash"`
	History     []HistoryEntry `json:"history"`
}

// Schema describes the manifest format itself.
type Schema struct {
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Manifest maps style guide slugs to their version records.
type Manifest struct {
	Styleguides map[string]*Entry `json:"styleguides"`
	Schema      Schema            `json:"schema"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Styleguides == nil {
		m.Styleguides = make(map[string]*Entry)
	}
	return &m, nil
}

// Save writes the manifest back to path with stable indentation.
func (m *Manifest) Save(path string) error {
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// Entry looks an entry up by slug or by filename.
func (m *Manifest) Entry(identifier string) *Entry {
	if e, ok := m.Styleguides[identifier]; ok {
		return e
	}
	for _, e := range m.Styleguides {
		if e.Filename == identifier {
			return e
		}
	}
	return nil
}

// Slugs returns the manifest's slugs in sorted order.
func (m *Manifest) Slugs() []string {
	out := make([]string, 0, len(m.Styleguides))
	for slug := range m.Styleguides {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// NewEntry creates a manifest entry with an initial history record.
func NewEntry(filename, title, version, notes string) *Entry {
	date := CurrentDate()
	return &Entry{
		Filename:    filename,
		Title:       title,
		Version:     version,
		LastUpdated: date,
		ChangeNotes: notes,
		History:     []HistoryEntry{{Version: version, Date: date, Notes: notes}},
	}
}

// Bump records a new version on the entry and appends it to the history.
func (e *Entry) Bump(newVersion, notes string) {
	date := CurrentDate()
	e.Version = newVersion
	e.LastUpdated = date
	e.ChangeNotes = notes
	e.History = append(e.History, HistoryEntry{Version: newVersion, Date: date, Notes: notes})
}

// SortedHistory returns the entry's history newest-version first.
func (e *Entry) SortedHistory() []HistoryEntry {
	out := make([]HistoryEntry, len(e.History))
	copy(out, e.History)
	sort.SliceStable(out, func(i, j int) bool {
		c, err := CompareVersions(out[i].Version, out[j].Version)
		if err != nil {
			return false
		}
		return c > 0
	})
	return out
}

// HasVersion reports whether version appears in the entry's history.
func (e *Entry) HasVersion(version string) bool {
	for _, h := range e.History {
		if h.Version == version {
			return true
		}
	}
	return false
}

// umlauts transliterates the German vowels that appear in guide filenames.
var umlauts = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue")

// Slug derives the manifest key from a markdown filename: lowercased,
// extension stripped, whitespace collapsed to hyphens, umlauts
// transliterated.
func Slug(filename string) string {
	s := strings.ToLower(filename)
	s = strings.TrimSuffix(s, ".md")
	s = strings.Join(strings.Fields(s), "-")
	return umlauts.Replace(s)
}

// CurrentDate returns today's date as YYYY-MM-DD.
func CurrentDate() string {
	return time.Now().Format("2006-01-02")
}

// FormatDateGerman renders an ISO date as DD.MM.YYYY, falling back to the
// input on parse failure.
func FormatDateGerman(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02.01.2006")
}
