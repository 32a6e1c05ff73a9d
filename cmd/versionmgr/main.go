// Command versionmgr manages semantic versions for the style guide content
// files: change detection, version bumps, history, and the distributable
// bundle.
package main

import (
	"flag"
	"fmt"
	"os"

	"styleguides/internal/logger"
	"styleguides/internal/version"
)

const usage = `usage: versionmgr [flags] <command> [args]

Commands:
  check                       Check for changes in style guide files
  init-hashes                 Initialize content hashes for all files
  apply                       Apply version updates for detected changes
  bump <file> <type> [notes]  Bump one file (type: patch|minor|major)
  history [file]              Show version history
  post-build                  Validate versions after a build
  bundle [dir]                Assemble the distributable package

Flags:
`

func main() {
	styleguideDir := flag.String("dir", "Styleguides", "style guide directory")
	manifestPath := flag.String("manifest", "versions.json", "version manifest file")
	noGit := flag.Bool("no-git", false, "disable git-based change detection")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	mgr := version.NewManager(*styleguideDir, *manifestPath, logger.New("versionmgr"))
	mgr.GitEnabled = !*noGit

	args := flag.Args()
	if err := run(mgr, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "versionmgr: %v\n", err)
		os.Exit(1)
	}
}

func run(mgr *version.Manager, command string, args []string) error {
	switch command {
	case "check":
		return runCheck(mgr)
	case "init-hashes":
		updated, err := mgr.UpdateContentHashes()
		if err != nil {
			return err
		}
		if updated == 0 {
			fmt.Println("All content hashes are up to date.")
		} else {
			fmt.Printf("Updated %d content hash(es).\n", updated)
		}
		return nil
	case "apply":
		applied, err := mgr.ApplyUpdates()
		if err != nil {
			return err
		}
		if applied == 0 {
			fmt.Println("No changes to apply.")
		} else {
			fmt.Printf("Updated %d style guide(s).\n", applied)
		}
		return nil
	case "bump":
		return runBump(mgr, args)
	case "history":
		return runHistory(mgr, args)
	case "post-build":
		return runPostBuild(mgr)
	case "bundle":
		outDir := "dist/zip-package"
		if len(args) > 0 {
			outDir = args[0]
		}
		result, err := mgr.GenerateBundle(outDir)
		if err != nil {
			return err
		}
		fmt.Printf("Package prepared in %s (%d files).\n", result.OutputDir, result.FileCount)
		fmt.Printf("Suggested archive name: %s.zip\n", result.PackageName)
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}

func runCheck(mgr *version.Manager) error {
	changes, err := mgr.CheckForChanges()
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Println("No changes detected in style guide files.")
		return nil
	}

	fmt.Printf("Found changes in %d file(s):\n", len(changes))
	for _, c := range changes {
		if c.IncrementType != "" {
			fmt.Printf("  - %s (%s: %s)\n", c.Filename, c.IncrementType, c.SuggestedVersion)
		} else {
			fmt.Printf("  - %s (content hash changed)\n", c.Filename)
		}
	}
	fmt.Println("\nRun 'versionmgr apply' to apply these updates.")
	return nil
}

func runBump(mgr *version.Manager, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: bump <filename> <patch|minor|major> [notes]")
	}
	filename, incType := args[0], args[1]
	if !version.ValidIncrement(incType) {
		return fmt.Errorf("increment type must be patch, minor, or major")
	}
	notes := ""
	if len(args) > 2 {
		notes = args[2]
	}
	return mgr.BumpSingle(filename, version.Increment(incType), notes)
}

func runHistory(mgr *version.Manager, args []string) error {
	manifest, err := version.LoadManifest(mgr.ManifestPath)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		for _, slug := range manifest.Slugs() {
			e := manifest.Styleguides[slug]
			fmt.Printf("%s\n", e.Title)
			fmt.Printf("  Current: v%s (%s)\n", e.Version, e.LastUpdated)
			fmt.Printf("  Versions: %d\n", len(e.History))
			fmt.Printf("  Latest: %s\n\n", e.ChangeNotes)
		}
		return nil
	}

	entry := manifest.Entry(version.Slug(args[0]))
	if entry == nil {
		entry = manifest.Entry(args[0])
	}
	if entry == nil {
		return fmt.Errorf("no manifest entry for %s", args[0])
	}

	fmt.Printf("Version history: %s\n", entry.Title)
	fmt.Printf("Current version: %s (%s)\n\n", entry.Version, entry.LastUpdated)
	for _, h := range entry.SortedHistory() {
		fmt.Printf("  v%s (%s)\n    %s\n", h.Version, h.Date, h.Notes)
	}
	fmt.Printf("\nTotal versions: %d\n", len(entry.History))
	return nil
}

func runPostBuild(mgr *version.Manager) error {
	issues, err := mgr.PostBuildCheck()
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Println("All version checks passed.")
		return nil
	}

	for _, issue := range issues {
		fmt.Printf("  %s: %s\n", issue.Filename, issue.Problem)
	}
	return fmt.Errorf("%d version check(s) failed", len(issues))
}
