package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"wsaddon/internal/domain"
	"wsaddon/internal/retry"
)

const (
	DefaultMaxStreams = 20
	// maxConcurrentQueries caps fan-out; plans rarely exceed four queries.
	maxConcurrentQueries = 8
)

type Searcher interface {
	Search(ctx context.Context, session domain.Session, query string) ([]domain.SearchCandidate, error)
}

type Aggregator struct {
	searcher   Searcher
	maxStreams int
	policy     retry.Policy
	logger     *slog.Logger
}

type AggregatorOption func(*Aggregator)

func WithMaxStreams(limit int) AggregatorOption {
	return func(a *Aggregator) {
		if limit > 0 {
			a.maxStreams = limit
		}
	}
}

func WithRetryPolicy(policy retry.Policy) AggregatorOption {
	return func(a *Aggregator) {
		a.policy = policy
	}
}

func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// DefaultRetryPolicy retries a query once on transient failures.
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 2,
		Backoff:     retry.Linear(time.Second),
		Retryable:   retry.IsTransient,
	}
}

func NewAggregator(searcher Searcher, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		searcher:   searcher,
		maxStreams: DefaultMaxStreams,
		policy:     DefaultRetryPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Search runs every query concurrently and ranks the merged, scored results.
// A failing query contributes nothing; when every query fails the result is
// empty rather than an error.
func (a *Aggregator) Search(ctx context.Context, queries []string, session domain.Session) []domain.RankedStream {
	if len(queries) == 0 {
		return []domain.RankedStream{}
	}

	perQuery := make([][]domain.SearchCandidate, len(queries))
	var g errgroup.Group
	g.SetLimit(maxConcurrentQueries)
	for i, query := range queries {
		g.Go(func() error {
			perQuery[i] = a.searchOne(ctx, query, session)
			return nil
		})
	}
	_ = g.Wait()

	ranked := Rank(perQuery, a.maxStreams)
	streams := make([]domain.RankedStream, 0, len(ranked))
	for _, candidate := range ranked {
		streams = append(streams, toRankedStream(candidate))
	}
	a.logger.Debug("search aggregated",
		slog.Int("queries", len(queries)),
		slog.Int("ranked", len(streams)),
	)
	return streams
}

func (a *Aggregator) searchOne(ctx context.Context, query string, session domain.Session) []domain.SearchCandidate {
	started := time.Now()
	raw, err := retry.DoValue(ctx, a.policy, func(ctx context.Context, _ int) ([]domain.SearchCandidate, error) {
		return a.searcher.Search(ctx, session, query)
	})
	if err != nil {
		a.logger.Warn("search query failed",
			slog.String("query", query),
			slog.Int64("durationMs", time.Since(started).Milliseconds()),
			slog.String("error", err.Error()),
		)
		return nil
	}
	scored := ScoreCandidates(query, raw)
	a.logger.Debug("search query done",
		slog.String("query", query),
		slog.Int("results", len(raw)),
		slog.Int("matching", len(scored)),
		slog.Int64("durationMs", time.Since(started).Milliseconds()),
	)
	return scored
}

// ScoreCandidates drops password-protected files, scores the rest against
// query and drops those with no matching token.
func ScoreCandidates(query string, candidates []domain.SearchCandidate) []domain.SearchCandidate {
	tokens := queryTokens(query)
	scored := make([]domain.SearchCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.IsPasswordProtected {
			continue
		}
		candidate.MatchScore = scoreTokens(tokens, foldText(candidate.DisplayName))
		if candidate.MatchScore <= 0 {
			continue
		}
		scored = append(scored, candidate)
	}
	return scored
}

// Rank merges scored per-query results in query order, keeps the best
// scoring copy of each file id, sorts by score, positive votes and size
// (all descending) and truncates to limit.
func Rank(perQuery [][]domain.SearchCandidate, limit int) []domain.SearchCandidate {
	merged := make([]domain.SearchCandidate, 0)
	indexByID := make(map[string]int)
	for _, results := range perQuery {
		for _, candidate := range results {
			if idx, ok := indexByID[candidate.ID]; ok {
				if candidate.MatchScore > merged[idx].MatchScore {
					merged[idx] = candidate
				}
				continue
			}
			indexByID[candidate.ID] = len(merged)
			merged = append(merged, candidate)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		left, right := merged[i], merged[j]
		if left.MatchScore != right.MatchScore {
			return left.MatchScore > right.MatchScore
		}
		if left.PositiveVotes != right.PositiveVotes {
			return left.PositiveVotes > right.PositiveVotes
		}
		return left.SizeBytes > right.SizeBytes
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func toRankedStream(candidate domain.SearchCandidate) domain.RankedStream {
	release := parseRelease(candidate.DisplayName)
	return domain.RankedStream{
		ID:          candidate.ID,
		Description: candidate.DisplayName,
		Label:       streamLabel(candidate.SizeBytes, candidate.PositiveVotes, candidate.NegativeVotes),
		SizeBytes:   candidate.SizeBytes,
		Quality:     release.Summary(),
		BingeGroup:  bingeGroup(release),
	}
}
