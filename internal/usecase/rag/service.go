package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/domain"
	"github.com/savealife-cloud/lifeline/internal/metrics"
)

// SummaryPolicy controls what happens when summarization fails after a
// successful retrieval.
type SummaryPolicy int

const (
	// PolicyFail wraps the generation failure in ErrSummarization and fails
	// the whole call.
	PolicyFail SummaryPolicy = iota
	// PolicyFallback logs the failure and substitutes FallbackSummary.
	PolicyFallback
)

// FallbackSummary is returned under PolicyFallback when generation fails.
const FallbackSummary = "AI summary temporarily unavailable. Please review the retrieved guides directly."

// Options configure one orchestrator instance. Each served collection gets
// its own instance with its own limits and failure policy.
type Options struct {
	Collection string
	// Subject names the retrieved material in the grounding prompt,
	// e.g. "repair guides" or "best practices".
	Subject  string
	MinScore float64
	Limit    int
	Policy   SummaryPolicy
}

// Service orchestrates the retrieval-augmented answer pipeline:
// embed, KNN search, relevance filter, grounded summarization.
type Service struct {
	search SearchRepository
	embed  Embedder
	gen    Generator
	opts   Options
	logger *zap.Logger
}

// New creates a RAG orchestrator for a single collection.
func New(search SearchRepository, embed Embedder, gen Generator, opts Options, logger *zap.Logger) *Service {
	return &Service{search: search, embed: embed, gen: gen, opts: opts, logger: logger}
}

// Collection returns the collection this orchestrator serves.
func (s *Service) Collection() string {
	return s.opts.Collection
}

// Answer runs the full pipeline for a user query.
// An empty filtered set short-circuits: no summary is generated and
// Answer.Summary stays nil.
func (s *Service) Answer(ctx context.Context, query string) (domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Answer{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	embRes, err := s.embed.Embed(ctx, query)
	if err != nil {
		return domain.Answer{}, err
	}

	results, err := s.search.KNN(ctx, s.opts.Collection, embRes.Embedding, s.opts.Limit)
	if err != nil {
		return domain.Answer{}, err
	}

	filtered := s.filterByScore(results)

	answer := domain.Answer{Results: filtered}
	if len(filtered) == 0 {
		return answer, nil
	}

	summary, err := s.gen.Generate(ctx, buildPrompt(query, s.opts.Subject, filtered))
	if err != nil {
		if s.opts.Policy == PolicyFallback {
			s.logger.Warn("summarization failed, using fallback",
				zap.String("collection", s.opts.Collection),
				zap.Error(err))
			fallback := FallbackSummary
			answer.Summary = &fallback
			return answer, nil
		}
		return domain.Answer{}, fmt.Errorf("%w: %w", domain.ErrSummarization, err)
	}

	answer.Summary = &summary
	return answer, nil
}

// filterByScore drops results below the relevance threshold and fixes the
// order: descending score, document ID ascending on ties.
func (s *Service) filterByScore(results []domain.SearchResult) []domain.SearchResult {
	filtered := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= s.opts.MinScore {
			filtered = append(filtered, r)
		}
	}

	if dropped := len(results) - len(filtered); dropped > 0 {
		metrics.SearchResultsFiltered.WithLabelValues(s.opts.Collection).Add(float64(dropped))
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].ID < filtered[j].ID
	})

	return filtered
}

// buildPrompt composes the grounding prompt: context blocks in rank order,
// then the instruction to answer only from the retrieved material.
func buildPrompt(query, subject string, results []domain.SearchResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("Title: %s\nContent: %s", r.Title, r.Content)
	}

	heading := headingFor(subject)

	return fmt.Sprintf(
		"Use the following %s to answer the question.\n"+
			"If the %s don't contain relevant information, say so.\n\n"+
			"%s:\n%s\n\n"+
			"Question: %s\n\n"+
			"Provide a clear, concise answer based only on the information in the %s.",
		subject, subject, heading, strings.Join(blocks, "\n\n"), query, subject,
	)
}

// headingFor upper-cases the first letter of the subject for the heading line.
func headingFor(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
