// Package publish periodically commits and pushes the analyzed-artifact
// tree to a git remote, so a dashboard or downstream consumer tracking
// that remote sees new analyses without needing access to the daemon's
// own filesystem.
package publish

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pkgrisk/analyzer/internal/config"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

// Publisher commits every pending change under RepoDir and pushes to
// Remote/Branch. It is a no-op when disabled in config.
type Publisher struct {
	cfg    config.PublishConfig
	token  string
	logger observability.Logger
}

func New(cfg config.PublishConfig, githubToken string, logger observability.Logger) *Publisher {
	return &Publisher{cfg: cfg, token: githubToken, logger: logger}
}

// Publish stages every change in RepoDir, commits it (skipping the
// commit+push entirely if nothing changed), and pushes to the
// configured remote/branch.
func (p *Publisher) Publish(ctx context.Context) error {
	if !p.cfg.Enabled {
		return nil
	}

	repo, err := git.PlainOpen(p.cfg.RepoDir)
	if err != nil {
		return fmt.Errorf("publish: opening %s: %w", p.cfg.RepoDir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("publish: worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("publish: status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	if err := wt.AddGlob("."); err != nil {
		return fmt.Errorf("publish: staging changes: %w", err)
	}

	commitMsg := fmt.Sprintf("chore: update analyzed package data (%s)", time.Now().UTC().Format(time.RFC3339))
	_, err = wt.Commit(commitMsg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "pkgrisk-analyzer",
			Email: "pkgrisk-analyzer@users.noreply.github.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("publish: committing: %w", err)
	}

	pushOpts := &git.PushOptions{RemoteName: p.cfg.Remote}
	if p.token != "" {
		pushOpts.Auth = &http.BasicAuth{Username: "pkgrisk-analyzer", Password: p.token}
	}
	if err := repo.PushContext(ctx, pushOpts); err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("publish: pushing to %s: %w", p.cfg.Remote, err)
	}

	if p.logger != nil {
		p.logger.Infof("publish: pushed artifact update to %s/%s", p.cfg.Remote, p.cfg.Branch)
	}
	return nil
}

// EnsureBranch checks out Branch, creating it from the current HEAD if
// it doesn't exist yet. Called once at daemon startup.
func (p *Publisher) EnsureBranch() error {
	if !p.cfg.Enabled {
		return nil
	}
	repo, err := git.PlainOpen(p.cfg.RepoDir)
	if err != nil {
		return fmt.Errorf("publish: opening %s: %w", p.cfg.RepoDir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("publish: worktree: %w", err)
	}

	ref := plumbingBranchRef(p.cfg.Branch)
	err = wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: false})
	if err == nil {
		return nil
	}
	if _, statErr := os.Stat(p.cfg.RepoDir); statErr != nil {
		return fmt.Errorf("publish: %s does not exist: %w", p.cfg.RepoDir, statErr)
	}
	return wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: true})
}

func plumbingBranchRef(branch string) plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(branch)
}
