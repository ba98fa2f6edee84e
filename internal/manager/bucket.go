package manager

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"scoopbox/internal/progress"
)

// DiscoverBucket finds the bucket that provides pkg. The cache answers
// first; otherwise the tool is searched and, when several buckets provide
// the package, the alphabetically first one is chosen and cached. ok is
// false when no bucket could be determined, which is not an error.
func (s *Scoop) DiscoverBucket(ctx context.Context, pkg string, n progress.Notifier) (bucket string, ok bool) {
	op := progress.Start(n)
	if b, hit := s.cache.Bucket(pkg); hit {
		op.Stage(progress.StageResolving, pkg, fmt.Sprintf("Bucket for %s (cached): %s", pkg, b))
		return b, true
	}

	res, err := s.runner.Run(ctx, "search", pkg)
	if err != nil {
		s.logger.Debug("bucket search failed", zap.String("package", pkg), zap.Error(err))
		return "", false
	}

	target := strings.ToLower(pkg)
	found := make(map[string]struct{})
	for _, e := range searchEntries(res.Stdout) {
		if e.Bucket != "" && strings.ToLower(e.Name) == target {
			found[strings.ToLower(e.Bucket)] = struct{}{}
		}
	}
	if len(found) == 0 {
		return "", false
	}

	candidates := make([]string, 0, len(found))
	for b := range found {
		candidates = append(candidates, b)
	}
	sort.Strings(candidates)
	chosen := candidates[0]
	if len(candidates) > 1 {
		s.logger.Info("package offered by several buckets",
			zap.String("package", pkg),
			zap.Strings("buckets", candidates),
			zap.String("chosen", chosen),
		)
	}

	s.cache.PutBucket(pkg, chosen)
	op.Stage(progress.StageResolving, pkg, fmt.Sprintf("Bucket for %s found: %s", pkg, chosen))
	return chosen, true
}

// EnsureBucket registers bucket unless it is already known to be
// registered. Repeated calls issue at most one add per bucket.
func (s *Scoop) EnsureBucket(ctx context.Context, bucket string, n progress.Notifier) error {
	op := progress.Start(n)
	s.bucketMu.Lock()
	defer s.bucketMu.Unlock()

	if err := s.loadBucketListLocked(ctx, strings.ToLower(strings.TrimSpace(bucket))); err != nil {
		return err
	}
	return s.addBucketLocked(ctx, bucket, op)
}

// loadBucketListLocked fills the registered set from the tool the first
// time it is needed, unless a previous run already persisted one. bucket
// names the bucket being checked in the returned error.
func (s *Scoop) loadBucketListLocked(ctx context.Context, bucket string) error {
	if s.cache.BucketListLoaded() {
		return nil
	}
	res, err := s.runner.Run(ctx, "bucket", "list")
	if err != nil {
		return &BucketError{Bucket: bucket, Listing: true, Detail: detailOf(err), Err: err}
	}
	s.cache.SetBucketList(ParseBucketList(res.Stdout))
	return nil
}

func (s *Scoop) addBucketLocked(ctx context.Context, bucket string, op *progress.Op) error {
	name := strings.ToLower(strings.TrimSpace(bucket))
	if s.cache.HasBucket(name) {
		return nil
	}
	op.Stage(progress.StageRegistering, "", fmt.Sprintf("Adding bucket '%s'...", name))
	if _, err := s.runner.Run(ctx, "bucket", "add", name); err != nil {
		return &BucketError{Bucket: name, Detail: detailOf(err), Err: err}
	}
	s.cache.AddBucket(name)
	s.logger.Info("bucket added", zap.String("bucket", name))
	return nil
}

// EnsureCommonBuckets registers the default buckets once per process.
// Buckets that cannot be added are skipped. If the registered set cannot
// be read the pass is left undone so a later call retries.
func (s *Scoop) EnsureCommonBuckets(ctx context.Context, n progress.Notifier) {
	op := progress.Start(n)
	s.commonMu.Lock()
	defer s.commonMu.Unlock()
	if s.commonDone {
		return
	}

	s.bucketMu.Lock()
	defer s.bucketMu.Unlock()

	if err := s.loadBucketListLocked(ctx, ""); err != nil {
		s.logger.Warn("default buckets skipped", zap.Error(err))
		return
	}
	for _, b := range s.defaultBuckets {
		if err := s.addBucketLocked(ctx, b, op); err != nil {
			s.logger.Warn("default bucket not added", zap.String("bucket", b), zap.Error(err))
		}
	}
	s.commonDone = true
}
