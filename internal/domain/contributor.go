package domain

import (
	"errors"
	"time"
)

// ErrNotFound reports that an upstream resource does not exist. Adapters
// wrap it so services can branch on absence without knowing the transport.
var ErrNotFound = errors.New("not found")

// Contributor is a GitHub contributor as returned by the repository
// contributors listing.
type Contributor struct {
	ID            int64
	Login         string
	AvatarURL     string
	HTMLURL       string
	Contributions int
	Type          string
}

// ContributorWithFirstCommit carries the date of the contributor's earliest
// known commit, when one could be determined.
type ContributorWithFirstCommit struct {
	Contributor
	FirstCommitDate *time.Time
}

// Issue is the slice of an issue-tracker item the opt-out aggregator needs.
type Issue struct {
	ID          int64
	Title       string
	Body        string
	AuthorLogin string
	Labels      []string
}

// ContributorDisplay is the shape rendered on the contributors page.
type ContributorDisplay struct {
	Login           string     `json:"login"`
	Name            string     `json:"name,omitempty"`
	AvatarURL       string     `json:"avatar_url"`
	HTMLURL         string     `json:"html_url"`
	Contributions   int        `json:"contributions"`
	FirstCommitDate *time.Time `json:"first_commit_date,omitempty"`
	IsOwner         bool       `json:"isOwner"`
}
