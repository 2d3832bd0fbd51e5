// Package pipeline orchestrates the ten-stage per-package analysis: registry
// metadata, availability classification, repo facts, vulnerability history,
// supply-chain scanning, cross-forge aggregation, LLM qualitative
// assessment, composite scoring, summary synthesis, and persistence. Every stage after metadata fetch
// degrades gracefully on failure rather than aborting the package — a
// GitHub outage should cost a package its repo-derived signals, not the
// whole analysis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkgrisk/analyzer/pkg/common/errors"

	"github.com/pkgrisk/analyzer/internal/adapters"
	"github.com/pkgrisk/analyzer/internal/aggregator"
	"github.com/pkgrisk/analyzer/internal/llmorch"
	"github.com/pkgrisk/analyzer/internal/metrics"
	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/internal/repohost"
	"github.com/pkgrisk/analyzer/internal/scorer"
	"github.com/pkgrisk/analyzer/internal/storage"
	"github.com/pkgrisk/analyzer/internal/supplychain"
	"github.com/pkgrisk/analyzer/internal/vuln"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

// Pipeline wires together every fetcher the per-package analysis needs.
type Pipeline struct {
	Adapters   map[model.Ecosystem]adapters.Adapter
	RepoHost   *repohost.Client
	Vuln       *vuln.Fetcher
	Aggregator *aggregator.Fetcher
	LLM        *llmorch.Orchestrator
	Store      *storage.Store
	Metrics    *metrics.Collector
	Logger     observability.Logger

	LLMMaxFilesSampled int
}

// New builds a Pipeline from the adapter set, indexing the adapters by
// ecosystem; a later adapter for the same ecosystem replaces an earlier one.
func New(adapterList []adapters.Adapter, rh *repohost.Client, v *vuln.Fetcher, agg *aggregator.Fetcher, llm *llmorch.Orchestrator, store *storage.Store, mc *metrics.Collector, logger observability.Logger) *Pipeline {
	byEco := make(map[model.Ecosystem]adapters.Adapter, len(adapterList))
	for _, a := range adapterList {
		byEco[a.Ecosystem()] = a
	}
	return &Pipeline{
		Adapters:   byEco,
		RepoHost:   rh,
		Vuln:       v,
		Aggregator: agg,
		LLM:        llm,
		Store:      store,
		Metrics:    mc,
		Logger:     logger,
	}
}

// Analyze runs the full ten-stage pipeline for one package and persists
// the resulting artifact. The returned error is non-nil only when
// metadata could not be fetched at all or persistence failed — every
// other sub-stage failure is recorded and degrades gracefully.
func (p *Pipeline) Analyze(ctx context.Context, ref model.PackageRef) (model.Analysis, error) {
	adapter, ok := p.Adapters[ref.Ecosystem]
	if !ok {
		return model.Analysis{}, fmt.Errorf("pipeline: no adapter registered for ecosystem %q", ref.Ecosystem)
	}
	if p.Metrics != nil {
		p.Metrics.SetCurrentPackage(ref.String())
	}

	analysis := model.Analysis{Package: ref}
	now := time.Now()
	analysis.Timestamps.FetchedAt = now

	// Stage 1: registry metadata. Fatal — nothing downstream can run
	// without knowing what the package even is.
	_, err := p.timed(ctx, ref, "metadata", func(ctx context.Context) error {
		m, err := adapter.GetPackageMetadata(ctx, ref.Name)
		analysis.Metadata = m
		return err
	})
	if err != nil {
		var notFound *pkgerrors.PackageNotFound
		if errors.As(err, &notFound) || pkgerrors.IsNotFound(err) {
			return model.Analysis{}, fmt.Errorf("pipeline: %s: package not found: %w", ref, err)
		}
		return model.Analysis{}, fmt.Errorf("pipeline: %s: fetching metadata: %w", ref, err)
	}

	if installs, err := adapter.GetInstallStats(ctx, ref.Name); err != nil {
		p.recordError(ref, "install_stats", err)
	} else {
		analysis.Installs = installs
	}

	// Stage 2: availability classification.
	repoRef, hasRepo := adapter.GetSourceRepo(analysis.Metadata)
	analysis.Repo = repoRef
	analysis.Availability = classifyAvailability(repoRef, hasRepo)

	var tree map[string]bool
	hasRepoFacts := false

	// Stage 3: repo facts, GitHub repositories only.
	if analysis.Availability.String() == "available" {
		_, _ = p.timed(ctx, ref, "repo_facts", func(ctx context.Context) error {
			facts, err := p.RepoHost.FetchRepoFacts(ctx, repoRef)
			if err != nil {
				switch {
				case isRepoNotFound(err):
					analysis.Availability = model.RepoNotFound(err.Error())
				case isRepoPrivate(err):
					analysis.Availability = model.PrivateRepo(err.Error())
				}
				return err
			}
			analysis.RepoFacts = facts
			hasRepoFacts = true
			return nil
		})
		if hasRepoFacts {
			if t, err := p.RepoHost.FetchRepoTree(ctx, repoRef); err != nil {
				p.recordError(ref, "repo_tree", err)
			} else {
				tree = t
			}
		}
	}

	// Stage 4: CVE history. Failure leaves Vulns at its zero value.
	if p.Vuln != nil {
		_, _ = p.timed(ctx, ref, "vuln", func(ctx context.Context) error {
			var releaseDates map[string]time.Time
			if hasRepoFacts {
				releaseDates = analysis.RepoFacts.ReleaseDates
			}
			history, err := p.Vuln.FetchCVEHistory(ctx, ref, repoRef, releaseDates)
			if err != nil {
				return err
			}
			analysis.Vulns = history
			if hasRepoFacts {
				analysis.RepoFacts.Security.CVEs = history
			}
			return nil
		})
	}

	// Stage 5: supply-chain scanning, npm only.
	if ref.Ecosystem == model.EcosystemNPM {
		if npmAdapter, ok := adapter.(*adapters.NpmAdapter); ok {
			_, _ = p.timed(ctx, ref, "supply_chain", func(ctx context.Context) error {
				data, err := supplychain.Analyze(ctx, npmAdapter, ref.Name, tree, p.Logger)
				if err != nil {
					return err
				}
				analysis.SupplyChain = data
				return nil
			})
		}
	}

	// Stage 6: cross-forge aggregator data. A successful fetch for a
	// non-GitHub repo promotes not_github to partial_forge.
	if p.Aggregator != nil {
		_, _ = p.timed(ctx, ref, "aggregator", func(ctx context.Context) error {
			analysis.Aggregator = p.Aggregator.Fetch(ctx, ref, analysis.Metadata.Version, repoRef)
			if analysis.Aggregator.Basic.Known || analysis.Aggregator.Scorecard.Known {
				analysis.Availability = analysis.Availability.Promote()
			}
			return nil
		})
	}

	scorable := analysis.Availability.Scorable()

	// Stage 7: LLM qualitative assessment, only when repo facts exist
	// and the endpoint is actually reachable.
	var llmResult *model.LLMAssessment
	if scorable && hasRepoFacts && p.LLM != nil {
		_, _ = p.timed(ctx, ref, "llm", func(ctx context.Context) error {
			if !p.LLM.Available(ctx) {
				llmResult = &model.LLMAssessment{Skipped: true}
				return nil
			}
			result := p.LLM.Run(ctx, repoRef, analysis.RepoFacts, tree)
			llmResult = &result
			return nil
		})
		analysis.LLM = llmResult
	}

	// Stage 8: composite scoring, only for scorable availability states.
	if scorable {
		age := time.Duration(0)
		if hasRepoFacts && !analysis.RepoFacts.Info.CreatedAt.IsZero() {
			age = now.Sub(analysis.RepoFacts.Info.CreatedAt)
		}
		scores := scorer.Score(scorer.Input{
			HasRepoFacts: hasRepoFacts,
			Facts:        analysis.RepoFacts,
			Vulns:        analysis.Vulns,
			LLM:          analysis.LLM,
			Installs:     analysis.Installs,
			Ecosystem:    ref.Ecosystem,
			Metadata:     analysis.Metadata,
			SupplyChain:  analysis.SupplyChain,
			Aggregator:   analysis.Aggregator,
			PackageAge:   age,
			Now:          now,
		}, p.Logger)
		analysis.Scores = &scores
		if p.Metrics != nil {
			p.Metrics.RecordScored(ref, scores)
		}
	} else if p.Metrics != nil {
		p.Metrics.RecordUnavailable(ref, analysis.Availability.String())
	}

	// Stage 9: summary synthesis.
	analysis.Summary = buildSummary(analysis)

	// Stage 10: persistence.
	analysis.Timestamps.AnalyzedAt = time.Now()
	if err := p.Store.Save(analysis); err != nil {
		p.recordError(ref, "persist", err)
		return analysis, fmt.Errorf("pipeline: %s: persisting: %w", ref, err)
	}

	return analysis, nil
}

func (p *Pipeline) timed(ctx context.Context, ref model.PackageRef, stage string, fn func(context.Context) error) (time.Duration, error) {
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	if p.Metrics != nil {
		p.Metrics.RecordStageTiming(stage, d)
	}
	if err != nil {
		p.recordError(ref, stage, err)
	}
	return d, err
}

func (p *Pipeline) recordError(ref model.PackageRef, stage string, err error) {
	if p.Logger != nil {
		p.Logger.Warnf("pipeline: %s stage %q: %v", ref, stage, err)
	}
	if p.Metrics != nil && ref.Name != "" {
		p.Metrics.RecordError(ref, stage, err)
	}
}

func classifyAvailability(ref model.RepoRef, hasRepo bool) model.DataAvailability {
	if !hasRepo || (ref.Owner == "" && ref.Repo == "") {
		return model.NoRepo("no source repository could be resolved from registry metadata")
	}
	if ref.Platform != model.PlatformGitHub {
		return model.NotGitHub(fmt.Sprintf("source repository is hosted on %s, not GitHub", ref.Platform))
	}
	return model.Available()
}

func isRepoNotFound(err error) bool {
	return errors.Is(err, repohost.ErrRepoNotFound)
}

func isRepoPrivate(err error) bool {
	return errors.Is(err, repohost.ErrRepoPrivate)
}
