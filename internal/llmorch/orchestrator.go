// Package llmorch fans prompts out to a local LLM endpoint to produce
// seven independent qualitative assessments of a package's repository:
// readme quality, community sentiment, maintainer communication,
// maintenance health, changelog quality, governance/succession risk,
// and a source-sample security review. Each assessment is fetched and
// scored with per-task error isolation — one failing never blocks or
// invalidates the others.
package llmorch

import (
	"context"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/internal/resilience"
)

const (
	requestTimeout = 300 * time.Second
	temperature    = 0.1
)

// Mode selects sequential (strictly ordered fetch-then-prompt per
// assessment) or parallel (phase-1 fetch all, then phase-2 prompt all)
// execution.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// Orchestrator runs the seven assessments against a local LLM endpoint.
type Orchestrator struct {
	client  *openai.Client
	model   string
	fetcher ContentFetcher
	mode    Mode
}

type Config struct {
	EndpointURL string
	APIKey      string // most local endpoints accept any non-empty value
	Model       string
	Mode        Mode
}

func New(cfg Config, fetcher ContentFetcher) *Orchestrator {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "local"
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.EndpointURL != "" {
		clientCfg.BaseURL = cfg.EndpointURL
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeParallel
	}
	return &Orchestrator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		fetcher: fetcher,
		mode:    mode,
	}
}

// Available performs a lightweight completion to confirm the endpoint
// is reachable before the pipeline commits to a full LLM stage.
func (o *Orchestrator) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "ping"}},
		MaxTokens:   1,
		Temperature: temperature,
	})
	return err == nil
}

// Run produces a full LLMAssessment for ref, using facts and tree
// (from repohost.FetchRepoTree) to build the phase-1 content. Per the
// spec, mode selection decides whether assessments run strictly
// sequentially or as two concurrent phases.
func (o *Orchestrator) Run(ctx context.Context, ref model.RepoRef, facts model.RepoFacts, tree map[string]bool) model.LLMAssessment {
	result := model.LLMAssessment{Model: o.model}

	if o.mode == ModeSequential {
		o.runSequential(ctx, ref, facts, tree, &result)
	} else {
		o.runParallel(ctx, ref, facts, tree, &result)
	}
	return result
}

func (o *Orchestrator) runSequential(ctx context.Context, ref model.RepoRef, facts model.RepoFacts, tree map[string]bool, result *model.LLMAssessment) {
	for _, a := range All {
		content := fetchContent(ctx, o.fetcher, ref, facts, tree)
		score, err := o.assess(ctx, a, content)
		if err == nil {
			assign(result, a, score)
		}
	}
}

func (o *Orchestrator) runParallel(ctx context.Context, ref model.RepoRef, facts model.RepoFacts, tree map[string]bool, result *model.LLMAssessment) {
	// Phase 1: a single content fetch covers every assessment's input
	// needs, issued once rather than per-assessment, since the
	// underlying repohost fetch methods are already per-resource
	// (README once, issues once, etc.) regardless of which assessments
	// consume them.
	content := fetchContent(ctx, o.fetcher, ref, facts, tree)

	// Phase 2: all seven prompts concurrently, per-task isolated.
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, a := range All {
		wg.Add(1)
		go func(a Assessment) {
			defer wg.Done()
			score, err := o.assess(ctx, a, content)
			if err != nil {
				return
			}
			mu.Lock()
			assign(result, a, score)
			mu.Unlock()
		}(a)
	}
	wg.Wait()
}

// assess runs one assessment's prompt and parses its response into a
// QualitativeScore, folding assessment-specific sub-fields into
// Signals so the scorer can read them without a type switch back to
// the internal schema types.
func (o *Orchestrator) assess(ctx context.Context, a Assessment, content Content) (model.QualitativeScore, error) {
	system, user := prompt(a, content)
	if user == "" {
		return model.QualitativeScore{}, errEmptyPrompt
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	raw, err := o.complete(reqCtx, system, user)
	if err != nil {
		return model.QualitativeScore{}, err
	}

	return parseAssessment(a, raw)
}

func (o *Orchestrator) complete(ctx context.Context, system, user string) (string, error) {
	result, err := resilience.ExecuteWithCircuitBreaker(ctx, resilience.LLMCircuitBreaker, resilience.CircuitBreakerConfig{}, func() (interface{}, error) {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			Temperature: temperature,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errNoChoices
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
