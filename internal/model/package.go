// Package model holds the immutable value objects shared across the
// analysis pipeline: package identity, repository facts, vulnerability
// history, supply-chain findings, and the scores computed from them.
package model

import "time"

// Ecosystem identifies the package manager a PackageRef belongs to.
type Ecosystem string

const (
	EcosystemNPM      Ecosystem = "npm"
	EcosystemPyPI     Ecosystem = "pypi"
	EcosystemHomebrew Ecosystem = "homebrew"
	EcosystemCrates   Ecosystem = "crates"
)

// PackageRef is the stable identity of a package within an ecosystem.
type PackageRef struct {
	Ecosystem Ecosystem
	Name      string
}

func (r PackageRef) String() string {
	return string(r.Ecosystem) + "/" + r.Name
}

// Platform identifies the code host a RepoRef points at.
type Platform string

const (
	PlatformGitHub    Platform = "github"
	PlatformGitLab    Platform = "gitlab"
	PlatformBitbucket Platform = "bitbucket"
	PlatformOther     Platform = "other"
)

// RepoRef is the canonical source-repository reference derived once per
// package. CanonicalURL is a pure function of the fields, never stored.
type RepoRef struct {
	Platform Platform
	Owner    string
	Repo     string
	Subpath  string
}

// CanonicalURL returns the normalized https URL for the repository.
func (r RepoRef) CanonicalURL() string {
	if r.Owner == "" || r.Repo == "" {
		return ""
	}
	host := "github.com"
	switch r.Platform {
	case PlatformGitLab:
		host = "gitlab.com"
	case PlatformBitbucket:
		host = "bitbucket.org"
	case PlatformOther:
		host = ""
	}
	if host == "" {
		return ""
	}
	url := "https://" + host + "/" + r.Owner + "/" + r.Repo
	if r.Subpath != "" {
		url += "/" + r.Subpath
	}
	return url
}

// Provenance flags whether a numeric field was measured directly or
// synthesized by the adapter from a shorter measurement window.
type Provenance string

const (
	ProvenanceMeasured  Provenance = "measured"
	ProvenanceEstimated Provenance = "estimated"
)

// PackageMetadata is the ecosystem-normalized metadata for a package.
type PackageMetadata struct {
	Name           string
	Description    string
	Version        string
	Homepage       string
	RepositoryURL  string
	License        string
	Keywords       []string
	Dependencies   []string

	// npm extensions
	Maintainers     []string
	MaintainerCount int
	HasTypes        bool
	IsScoped        bool

	// PyPI extensions
	Author         string
	AuthorEmail    string
	RequiresPython string
}

// InstallStats holds download/dependent counts. The 90d/365d windows may
// be estimated from the 30d figure by adapters that only expose one
// window; Provenance90d/Provenance365d record that explicitly rather than
// letting the caller mistake an estimate for a measurement.
type InstallStats struct {
	DownloadsLast30d     *int64
	DownloadsLast90d     *int64
	Provenance90d        Provenance
	DownloadsLast365d    *int64
	Provenance365d       Provenance
	DependentPackages    *int64
}

// DataAvailability is a sealed sum type: only Available and PartialForge
// carry a non-nil Scores via Analysis.Scores. The kind field is
// unexported, so other packages can only obtain the variants built by
// the constructor functions below.
type DataAvailability struct {
	kind   availabilityKind
	reason string
}

type availabilityKind int

const (
	availUnset availabilityKind = iota
	availAvailable
	availNoRepo
	availRepoNotFound
	availPrivateRepo
	availNotGitHub
	availPartialForge
)

func Available() DataAvailability      { return DataAvailability{kind: availAvailable} }
func PartialForge() DataAvailability   { return DataAvailability{kind: availPartialForge} }
func NoRepo(reason string) DataAvailability {
	return DataAvailability{kind: availNoRepo, reason: reason}
}
func RepoNotFound(reason string) DataAvailability {
	return DataAvailability{kind: availRepoNotFound, reason: reason}
}
func PrivateRepo(reason string) DataAvailability {
	return DataAvailability{kind: availPrivateRepo, reason: reason}
}
func NotGitHub(reason string) DataAvailability {
	return DataAvailability{kind: availNotGitHub, reason: reason}
}

// Scorable reports whether this availability admits a Scores value.
func (a DataAvailability) Scorable() bool {
	return a.kind == availAvailable || a.kind == availPartialForge
}

// String renders the wire-level tag used in the persisted artifact.
func (a DataAvailability) String() string {
	switch a.kind {
	case availAvailable:
		return "available"
	case availNoRepo:
		return "no_repo"
	case availRepoNotFound:
		return "repo_not_found"
	case availPrivateRepo:
		return "private_repo"
	case availNotGitHub:
		return "not_github"
	case availPartialForge:
		return "partial_forge"
	default:
		return "unset"
	}
}

// Reason returns the unavailable_reason text, empty when Scorable.
func (a DataAvailability) Reason() string { return a.reason }

// Promote upgrades not_github to partial_forge once aggregator data
// is found for a non-GitHub forge.
func (a DataAvailability) Promote() DataAvailability {
	if a.kind == availNotGitHub {
		return PartialForge()
	}
	return a
}

// AnalyzedAt / FetchedAt are carried on the persisted artifact, not on
// any individual sub-record, since sub-records are themselves immutable
// value objects produced at a single point in time.
type Timestamps struct {
	AnalyzedAt  time.Time
	FetchedAt   time.Time
}
