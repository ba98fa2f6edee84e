package manager

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"scoopbox/internal/progress"
)

// IsSearchCached reports whether Search would answer term without running
// the tool.
func (s *Scoop) IsSearchCached(term string) bool {
	return s.cache.HasSearch(strings.TrimSpace(term))
}

// Search returns the sorted package names matching term. Results are cached
// per trimmed term for good; a cached term never reaches the tool again.
func (s *Scoop) Search(ctx context.Context, term string, n progress.Notifier) ([]string, error) {
	op := progress.Start(n)
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinSearchLen {
		return nil, &ValidationError{Term: term, Min: MinSearchLen}
	}

	if names, ok := s.cache.Search(term); ok {
		op.Info(fmt.Sprintf("Searching for '%s' (cached)...", term))
		return names, nil
	}

	if err := s.EnsureAvailable(ctx, op); err != nil {
		return nil, err
	}
	s.EnsureCommonBuckets(ctx, op)

	op.Info(fmt.Sprintf("Searching for '%s' (first search, results will be cached)...", term))
	res, err := s.runner.Run(ctx, "search", term)
	if err != nil {
		return nil, &SearchError{Term: term, Detail: detailOf(err), Err: err}
	}

	parsed := ParseSearch(res.Stdout)
	if len(parsed.Names) == 0 {
		return nil, &SearchEmptyError{Term: term}
	}

	s.cache.PutSearch(term, parsed.Names)
	s.cache.MergeBuckets(parsed.Buckets)
	s.logger.Debug("search cached", zap.String("term", term), zap.Int("results", len(parsed.Names)))

	op.Done(fmt.Sprintf("%d app(s) found.", len(parsed.Names)))
	return parsed.Names, nil
}
