// Package adapters implements the registry-specific fetchers that turn a
// package name into ecosystem-normalized metadata, install counts, and a
// best-guess source repository reference. Each ecosystem's registry has
// its own shape; the Adapter interface is the seam the rest of the
// pipeline programs against instead of the registry's wire format.
package adapters

import (
	"context"

	"github.com/pkgrisk/analyzer/internal/model"
)

// Adapter fetches package data from one ecosystem's registry.
type Adapter interface {
	Ecosystem() model.Ecosystem

	// ListPackages returns package names ordered most-significant-first
	// (most depended-upon or most downloaded, depending on what the
	// registry exposes). limit <= 0 means no limit.
	ListPackages(ctx context.Context, limit int) ([]string, error)

	// GetPackageMetadata fetches registry metadata for name. Returns a
	// *github.com/pkgrisk/analyzer/pkg/common/errors.PackageNotFound when
	// the registry has no such package.
	GetPackageMetadata(ctx context.Context, name string) (model.PackageMetadata, error)

	// GetInstallStats fetches download/install counts for name. A nil
	// error with zero-value stats means the registry has no usable stats
	// for this package, not that the fetch failed.
	GetInstallStats(ctx context.Context, name string) (model.InstallStats, error)

	// GetSourceRepo derives a RepoRef from already-fetched metadata. It
	// performs no I/O; adapters override the shared ParseRepoURL fallback
	// only where their registry's repository field needs bespoke cleanup.
	GetSourceRepo(metadata model.PackageMetadata) (model.RepoRef, bool)
}
