package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"styleguides/internal/cache"
	"styleguides/internal/domain"
	"styleguides/internal/logger"
)

// GitHubAPI is the slice of the GitHub client the contributor pipeline
// depends on.
type GitHubAPI interface {
	Owner() string
	ListContributors(ctx context.Context) ([]domain.Contributor, error)
	FirstCommitDate(ctx context.Context, login string) (*time.Time, error)
	SearchIssues(ctx context.Context, qualifiers string) ([]domain.Issue, error)
	GetFileContent(ctx context.Context, path string) (string, error)
}

// ExclusionSet is a deduplicated, lower-cased set of usernames to hide from
// the contributors listing.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from the given logins.
func NewExclusionSet(logins ...string) ExclusionSet {
	s := make(ExclusionSet, len(logins))
	for _, l := range logins {
		s.Add(l)
	}
	return s
}

// Add inserts a login, trimmed and lower-cased. Empty strings are ignored.
func (s ExclusionSet) Add(login string) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login != "" {
		s[login] = struct{}{}
	}
}

// Contains reports membership, case-insensitively.
func (s ExclusionSet) Contains(login string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(login))]
	return ok
}

// Merge adds every member of other into s.
func (s ExclusionSet) Merge(other ExclusionSet) {
	for l := range other {
		s[l] = struct{}{}
	}
}

// Sorted returns the members in lexical order.
func (s ExclusionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Conventional locations checked for repository opt-out files.
var optOutFilePaths = []string{
	".github/CONTRIBUTORS_OPTOUT.md",
	".github/contributors-optout.txt",
	"CONTRIBUTORS_OPTOUT.md",
	"CONTRIBUTORS_OPT_OUT.md",
	".contributors-optout",
	"OPTOUT.md",
	"OPT_OUT.md",
	"docs/CONTRIBUTORS_OPTOUT.md",
}

// README filenames scanned for an opt-out section; only the first one found
// is parsed.
var readmeFilenames = []string{"README.md", "README", "readme.md", "Readme.md"}

var (
	optOutHeadingRe = regexp.MustCompile(`(?i)contributors?[ -]opt[ -]?out|opted[ -]out contributors|excluded contributors`)
	headingRe       = regexp.MustCompile(`^(#{1,6})\s`)
)

// Default issue-search configuration.
var (
	defaultOptOutLabels   = []string{"opt-out", "contributor-opt-out"}
	defaultOptOutKeywords = []string{"opt out", "opt-out"}
)

// OptOutPredicate decides whether a keyword-matched issue is a genuine
// opt-out request rather than an unrelated mention.
type OptOutPredicate func(issue domain.Issue, keyword string) bool

// DefaultOptOutPredicate accepts an issue when its title or body combines
// the keyword with an opt-out verb and the word "contributor". Inherently
// approximate.
func DefaultOptOutPredicate(issue domain.Issue, keyword string) bool {
	text := strings.ToLower(issue.Title + "\n" + issue.Body)
	if !strings.Contains(text, strings.ToLower(keyword)) {
		return false
	}
	hasVerb := strings.Contains(text, "opt out") ||
		strings.Contains(text, "opt-out") ||
		strings.Contains(text, "remove") ||
		strings.Contains(text, "exclude")
	return hasVerb && strings.Contains(text, "contributor")
}

// ContributorsService produces the contributors listing: fetch, enrich with
// first-commit dates, order, apply opt-out exclusions, and cache the result.
type ContributorsService struct {
	github        GitHubAPI
	cache         *cache.FileCache
	cacheTTL      time.Duration
	sourceTimeout time.Duration
	labels        []string
	keywords      []string
	log           *logger.Logger

	// MatchOptOut classifies keyword-matched issues. Replaceable so the
	// heuristic can be tuned and tested independently of the pipeline.
	MatchOptOut OptOutPredicate
}

// NewContributorsService creates the service. fc may be nil to disable
// caching.
func NewContributorsService(gh GitHubAPI, fc *cache.FileCache, cacheTTL time.Duration, log *logger.Logger) *ContributorsService {
	return &ContributorsService{
		github:        gh,
		cache:         fc,
		cacheTTL:      cacheTTL,
		sourceTimeout: 30 * time.Second,
		labels:        defaultOptOutLabels,
		keywords:      defaultOptOutKeywords,
		log:           log,
		MatchOptOut:   DefaultOptOutPredicate,
	}
}

// ReadExclusionsFile reads the static exclusions file: one username per
// line, `#` comments and blank lines ignored, results trimmed, lower-cased
// and deduplicated in first-seen order. A missing file is an empty result;
// other I/O errors are logged and degrade to empty.
func (s *ContributorsService) ReadExclusionsFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", path).Msg("read exclusions file")
		}
		return nil
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var out []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		login := strings.ToLower(line)
		if _, dup := seen[login]; dup {
			continue
		}
		seen[login] = struct{}{}
		out = append(out, login)
	}
	if err := scanner.Err(); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("scan exclusions file")
	}
	return out
}

// SearchOptOutIssues queries the issue tracker once per configured label
// (exact match) and once per keyword (full-text), collecting issue author
// logins. Keyword hits must pass the opt-out predicate. Failures are
// per-query: logged, and the remaining queries continue.
func (s *ContributorsService) SearchOptOutIssues(ctx context.Context) ExclusionSet {
	set := make(ExclusionSet)

	for _, label := range s.labels {
		issues, err := s.searchWithTimeout(ctx, fmt.Sprintf("label:%q", label))
		if err != nil {
			s.log.Warn().Err(err).Str("label", label).Msg("opt-out label search failed")
			continue
		}
		for _, issue := range issues {
			set.Add(issue.AuthorLogin)
		}
	}

	for _, keyword := range s.keywords {
		issues, err := s.searchWithTimeout(ctx, fmt.Sprintf("%q in:title,body", keyword))
		if err != nil {
			s.log.Warn().Err(err).Str("keyword", keyword).Msg("opt-out keyword search failed")
			continue
		}
		for _, issue := range issues {
			if s.MatchOptOut(issue, keyword) {
				set.Add(issue.AuthorLogin)
			}
		}
	}
	return set
}

func (s *ContributorsService) searchWithTimeout(ctx context.Context, qualifiers string) ([]domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()
	return s.github.SearchIssues(ctx, qualifiers)
}

// ScanRepositoryOptOutFiles fetches each conventional opt-out file and
// parses its entries, then scans the first README found for an opt-out
// section. A 404 on any path is expected and silent; other errors are
// logged and that path skipped.
func (s *ContributorsService) ScanRepositoryOptOutFiles(ctx context.Context) ExclusionSet {
	set := make(ExclusionSet)

	for _, path := range optOutFilePaths {
		content, err := s.fetchWithTimeout(ctx, path)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.log.Warn().Err(err).Str("path", path).Msg("opt-out file fetch failed")
			}
			continue
		}
		for _, login := range parseOptOutLines(content, false) {
			set.Add(login)
		}
	}

	for _, name := range readmeFilenames {
		content, err := s.fetchWithTimeout(ctx, name)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.log.Warn().Err(err).Str("path", name).Msg("readme fetch failed")
			}
			continue
		}
		for _, login := range parseReadmeOptOutSection(content) {
			set.Add(login)
		}
		// Only the first README found is considered.
		break
	}
	return set
}

func (s *ContributorsService) fetchWithTimeout(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()
	return s.github.GetFileContent(ctx, path)
}

// parseOptOutLines extracts usernames from list-like content. Lines may be
// bare usernames or carry a leading `-`, `*` or `@` marker; `#` comments
// and blanks are skipped. When listOnly is set, lines without a marker are
// ignored (README sections parse only list-formatted lines).
func parseOptOutLines(content string, listOnly bool) []string {
	var out []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		marked := false
		for _, marker := range []string{"- ", "* "} {
			if strings.HasPrefix(line, marker) {
				line = strings.TrimSpace(strings.TrimPrefix(line, marker))
				marked = true
				break
			}
		}
		if strings.HasPrefix(line, "@") {
			line = strings.TrimPrefix(line, "@")
			marked = true
		}
		if listOnly && !marked {
			continue
		}

		// A username is a single token; anything with spaces is prose.
		if line == "" || strings.ContainsAny(line, " \t") {
			continue
		}
		out = append(out, strings.ToLower(line))
	}
	return out
}

// parseReadmeOptOutSection finds a heading whose text matches the opt-out
// phrasing and parses list entries until the next heading of equal or
// higher level.
func parseReadmeOptOutSection(content string) []string {
	lines := strings.Split(content, "\n")

	start, level := -1, 0
	for i, line := range lines {
		m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if optOutHeadingRe.MatchString(line) {
			start, level = i, len(m[1])
			break
		}
	}
	if start == -1 {
		return nil
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		m := headingRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m != nil && len(m[1]) <= level {
			end = i
			break
		}
	}

	return parseOptOutLines(strings.Join(lines[start+1:end], "\n"), true)
}

// AllOptOutExclusions unions the three sources: local exclusions file,
// issue search, and repository file scan. Each source is independently
// toggleable and degrades to an empty contribution on failure.
func (s *ContributorsService) AllOptOutExclusions(ctx context.Context, exclusionsFile string, searchIssues, scanRepoFiles bool) ExclusionSet {
	set := make(ExclusionSet)

	if exclusionsFile != "" {
		for _, login := range s.ReadExclusionsFile(exclusionsFile) {
			set.Add(login)
		}
	}
	if searchIssues {
		set.Merge(s.SearchOptOutIssues(ctx))
	}
	if scanRepoFiles {
		set.Merge(s.ScanRepositoryOptOutFiles(ctx))
	}
	return set
}

// FilterExcludedContributors retains contributors whose login is absent
// from the exclusion set. Identity when the set is empty.
func FilterExcludedContributors(contributors []domain.ContributorWithFirstCommit, exclusions ExclusionSet) []domain.ContributorWithFirstCommit {
	if len(exclusions) == 0 {
		return contributors
	}

	out := make([]domain.ContributorWithFirstCommit, 0, len(contributors))
	for _, c := range contributors {
		if !exclusions.Contains(c.Login) {
			out = append(out, c)
		}
	}
	return out
}

// SortContributors orders the listing: the repository owner first, then
// ascending first-commit date, contributors without a known date after
// those with one, ties broken by numeric id.
func (s *ContributorsService) SortContributors(contributors []domain.ContributorWithFirstCommit) {
	owner := strings.ToLower(s.github.Owner())
	sort.SliceStable(contributors, func(i, j int) bool {
		a, b := contributors[i], contributors[j]
		if strings.EqualFold(a.Login, owner) != strings.EqualFold(b.Login, owner) {
			return strings.EqualFold(a.Login, owner)
		}
		switch {
		case a.FirstCommitDate != nil && b.FirstCommitDate != nil:
			if !a.FirstCommitDate.Equal(*b.FirstCommitDate) {
				return a.FirstCommitDate.Before(*b.FirstCommitDate)
			}
		case a.FirstCommitDate != nil:
			return true
		case b.FirstCommitDate != nil:
			return false
		}
		return a.ID < b.ID
	})
}

// FetchContributors lists the repository contributors and enriches each
// with its first-commit date. Enrichment failures leave the date unknown.
func (s *ContributorsService) FetchContributors(ctx context.Context) ([]domain.ContributorWithFirstCommit, error) {
	contributors, err := s.github.ListContributors(ctx)
	if err != nil {
		return nil, err
	}

	enriched := make([]domain.ContributorWithFirstCommit, 0, len(contributors))
	for _, c := range contributors {
		date, err := s.github.FirstCommitDate(ctx, c.Login)
		if err != nil {
			s.log.Debug().Err(err).Str("login", c.Login).Msg("first commit date lookup failed")
			date = nil
		}
		enriched = append(enriched, domain.ContributorWithFirstCommit{Contributor: c, FirstCommitDate: date})
	}

	s.SortContributors(enriched)
	return enriched, nil
}

// ToDisplay transforms contributors into the display shape, marking the
// repository owner.
func (s *ContributorsService) ToDisplay(contributors []domain.ContributorWithFirstCommit) []domain.ContributorDisplay {
	owner := s.github.Owner()
	out := make([]domain.ContributorDisplay, 0, len(contributors))
	for _, c := range contributors {
		out = append(out, domain.ContributorDisplay{
			Login:           c.Login,
			Name:            c.Login,
			AvatarURL:       c.AvatarURL,
			HTMLURL:         c.HTMLURL,
			Contributions:   c.Contributions,
			FirstCommitDate: c.FirstCommitDate,
			IsOwner:         strings.EqualFold(c.Login, owner),
		})
	}
	return out
}

// ContributorsForDisplay produces the final cached listing with exclusions
// applied. When the upstream fetch fails entirely, the listing degrades to
// the repository owner alone.
func (s *ContributorsService) ContributorsForDisplay(ctx context.Context, exclusionsFile string, searchIssues, scanRepoFiles bool) ([]domain.ContributorDisplay, error) {
	build := func() ([]domain.ContributorDisplay, error) {
		contributors, err := s.FetchContributors(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("contributor fetch failed, falling back to owner")
			contributors = []domain.ContributorWithFirstCommit{{
				Contributor: domain.Contributor{
					ID:            1,
					Login:         s.github.Owner(),
					AvatarURL:     fmt.Sprintf("https://github.com/%s.png", s.github.Owner()),
					HTMLURL:       fmt.Sprintf("https://github.com/%s", s.github.Owner()),
					Contributions: 1,
					Type:          "User",
				},
			}}
		}

		exclusions := s.AllOptOutExclusions(ctx, exclusionsFile, searchIssues, scanRepoFiles)
		contributors = FilterExcludedContributors(contributors, exclusions)
		return s.ToDisplay(contributors), nil
	}

	if s.cache == nil {
		return build()
	}
	return cache.GetOrSet(s.cache, "contributors-display", s.cacheTTL, build)
}
