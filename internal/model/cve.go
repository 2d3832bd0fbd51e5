package model

import "time"

// Severity is the normalized CVE severity band used for scoring.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityUnknown  Severity = "UNKNOWN"
)

// Rank orders severities for sorting, most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// CVEDetail is a single vulnerability affecting a package or its repo.
type CVEDetail struct {
	ID              string
	Aliases         []string
	Severity        Severity
	CVSSScore       float64
	CVSSKnown       bool
	Summary         string
	PublishedAt     time.Time
	FixedVersion    string
	AffectedVersion string
	PatchReleaseAt  time.Time
	DaysToPatch     int
	DaysToPatchKnown bool
	Withdrawn       bool
}

// CVEHistory is the set of vulnerabilities known for a package, most
// severe first and newest first within a severity once sorted by the
// fetcher.
type CVEHistory struct {
	Items []CVEDetail
}

// CountBySeverity returns the number of non-withdrawn CVEs whose severity
// is exactly sev.
func (h CVEHistory) CountBySeverity(sev Severity) int {
	n := 0
	for _, c := range h.Items {
		if c.Withdrawn {
			continue
		}
		if c.Severity == sev {
			n++
		}
	}
	return n
}

// Count returns the number of non-withdrawn entries.
func (h CVEHistory) Count() int {
	n := 0
	for _, c := range h.Items {
		if !c.Withdrawn {
			n++
		}
	}
	return n
}

// HasUnpatched reports whether any non-withdrawn CVE has no fixed
// version.
func (h CVEHistory) HasUnpatched() bool {
	for _, c := range h.Items {
		if !c.Withdrawn && c.FixedVersion == "" {
			return true
		}
	}
	return false
}

// AvgDaysToPatch averages DaysToPatch across entries where it is known.
func (h CVEHistory) AvgDaysToPatch() (float64, bool) {
	var sum, n int
	for _, c := range h.Items {
		if c.DaysToPatchKnown {
			sum += c.DaysToPatch
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// OldestUnpatchedAge returns the age of the oldest unpatched, non-
// withdrawn CVE (by published date), or false if there is none.
func (h CVEHistory) OldestUnpatchedAge(now time.Time) (time.Duration, bool) {
	var oldest time.Time
	found := false
	for _, c := range h.Items {
		if c.Withdrawn || c.FixedVersion != "" || c.PublishedAt.IsZero() {
			continue
		}
		if !found || c.PublishedAt.Before(oldest) {
			oldest = c.PublishedAt
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return now.Sub(oldest), true
}
