package version

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BundleResult summarizes a generated distribution package.
type BundleResult struct {
	OutputDir   string
	PackageName string
	FileCount   int
}

const bundleReadmeName = "00-README-ZUERST-LESEN.md"

// GenerateBundle assembles the distributable package: a German README, the
// version manifest, and every style guide file, under outputDir. The
// suggested archive name encodes the latest update date and the version
// spread.
func (m *Manager) GenerateBundle(outputDir string) (*BundleResult, error) {
	manifest, err := LoadManifest(m.ManifestPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	latest := latestUpdate(manifest)

	readme := bundleReadme(manifest, latest)
	if err := os.WriteFile(filepath.Join(outputDir, bundleReadmeName), []byte(readme), 0o644); err != nil {
		return nil, err
	}

	if err := manifest.Save(filepath.Join(outputDir, filepath.Base(m.ManifestPath))); err != nil {
		return nil, err
	}

	files, err := m.StyleguideFiles()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := copyFile(filepath.Join(m.StyleguideDir, f), filepath.Join(outputDir, f)); err != nil {
			return nil, fmt.Errorf("copy %s: %w", f, err)
		}
	}

	return &BundleResult{
		OutputDir:   outputDir,
		PackageName: packageName(manifest, latest, len(files)),
		FileCount:   len(files),
	}, nil
}

// latestUpdate returns the most recent lastUpdated date across entries.
func latestUpdate(m *Manifest) time.Time {
	var latest time.Time
	for _, e := range m.Styleguides {
		t, err := time.Parse("2006-01-02", e.LastUpdated)
		if err != nil {
			continue
		}
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}

// packageName derives the archive name: date, guide count, and how many
// guides sit at major/minor/patch levels.
func packageName(m *Manifest, latest time.Time, fileCount int) string {
	major, minor, patch := 0, 0, 0
	for _, e := range m.Styleguides {
		v, err := ParseVersion(e.Version)
		if err != nil {
			continue
		}
		switch {
		case v.Major > 1:
			major++
		case v.Minor > 0:
			minor++
		default:
			patch++
		}
	}

	var parts []string
	if major > 0 {
		parts = append(parts, fmt.Sprintf("%dmajor", major))
	}
	if minor > 0 {
		parts = append(parts, fmt.Sprintf("%dminor", minor))
	}
	if patch > 0 {
		parts = append(parts, fmt.Sprintf("%dpatch", patch))
	}

	suffix := ""
	if len(parts) > 0 {
		suffix = "-" + strings.Join(parts, "-")
	}
	return fmt.Sprintf("ki-styleguides-%s-%dguides%s", latest.Format("2006-01-02"), fileCount, suffix)
}

func bundleReadme(m *Manifest, latest time.Time) string {
	slugs := m.Slugs()
	var fileList strings.Builder
	for _, slug := range slugs {
		e := m.Styleguides[slug]
		fmt.Fprintf(&fileList, "- %s (v%s - %s)\n", e.Filename, e.Version, e.LastUpdated)
	}

	today := time.Now().Format("02.01.2006")
	schemaVersion := m.Schema.Version
	if schemaVersion == "" {
		schemaVersion = "1.0"
	}

	return fmt.Sprintf(`# KI-Styleguides Komplettpaket

Vielen Dank für das Herunterladen!

## Enthaltene Dateien mit Versionen

%s
## Versionsinformationen

- **Paket erstellt am:** %s
- **Letzte Aktualisierung:** %s
- **Gesamtanzahl Styleguides:** %d

## Verwendung

1. Wählen Sie den passenden Styleguide für Ihr Projekt
2. Kopieren Sie den Inhalt in Ihr KI-Tool (Claude Projects, ChatGPT Custom Instructions, etc.)
3. Schreiben Sie bessere Texte mit konsistenter Qualität

## Weitere Informationen

- Website: https://cs-style-guides.vercel.app
- Anleitung: https://cs-style-guides.vercel.app/anwendung/
- GitHub: https://github.com/chrisschwer/CS-Style-Guides

## Lizenz

Alle Inhalte stehen unter der CC BY 4.0 Lizenz.
- Kostenlose Nutzung für private und kommerzielle Zwecke
- Bearbeitung und Weiterverteilung erlaubt
- Namensnennung erforderlich

**Attribution-Beispiel:**
Basierend auf "KI-Styleguides" von Christoph Schwerdtfeger, CC BY 4.0

---
Generiert am: %s
Paket-Version: %s
`, fileList.String(), today, latest.Format("02.01.2006"), len(slugs), today, schemaVersion)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
