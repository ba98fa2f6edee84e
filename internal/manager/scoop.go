package manager

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"scoopbox/internal/cache"
	"scoopbox/internal/progress"
)

// MinSearchLen is the shortest trimmed term sent to the tool.
const MinSearchLen = 2

// DefaultBuckets are registered before the first search of a run so searches
// cover more than the main bucket.
var DefaultBuckets = []string{"extras", "versions", "java", "games"}

type Options struct {
	// Tool is the name used in messages; the Runner decides what actually runs.
	Tool           string
	DefaultBuckets []string
	Policy         Policy
	Logger         *zap.Logger
}

// Scoop orchestrates the scoop CLI: it resolves and registers buckets,
// caches searches and sequences install and uninstall batches.
type Scoop struct {
	runner Runner
	cache  *cache.Manager
	logger *zap.Logger

	tool           string
	defaultBuckets []string
	policy         Policy

	// bucketMu serializes loading the registered bucket set and adding
	// buckets so concurrent installs never add the same bucket twice.
	bucketMu sync.Mutex

	commonMu   sync.Mutex
	commonDone bool
}

func New(runner Runner, c *cache.Manager, opts Options) *Scoop {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tool == "" {
		opts.Tool = "scoop"
	}
	if opts.DefaultBuckets == nil {
		opts.DefaultBuckets = DefaultBuckets
	}
	return &Scoop{
		runner:         runner,
		cache:          c,
		logger:         opts.Logger.Named("scoop"),
		tool:           opts.Tool,
		defaultBuckets: opts.DefaultBuckets,
		policy:         opts.Policy,
	}
}

func (s *Scoop) Name() string {
	return s.tool
}

// Cache exposes the cache the manager reads and writes.
func (s *Scoop) Cache() *cache.Manager {
	return s.cache
}

func (s *Scoop) IsAvailable(ctx context.Context) bool {
	_, err := s.runner.Run(ctx, "--version")
	return err == nil
}

// EnsureAvailable probes the tool and fails with a *ToolUnavailableError if
// it cannot be run.
func (s *Scoop) EnsureAvailable(ctx context.Context, n progress.Notifier) error {
	op := progress.Start(n)
	op.Info(fmt.Sprintf("Checking for %s...", s.tool))
	if _, err := s.runner.Run(ctx, "--version"); err != nil {
		s.logger.Warn("tool probe failed", zap.Error(err))
		return &ToolUnavailableError{Tool: s.tool, Err: err}
	}
	return nil
}

// ListInstalled returns installed package names in the order the tool
// prints them.
func (s *Scoop) ListInstalled(ctx context.Context, n progress.Notifier) ([]string, error) {
	op := progress.Start(n)
	if err := s.EnsureAvailable(ctx, op); err != nil {
		return nil, err
	}
	op.Info("Listing installed apps...")
	res, err := s.runner.Run(ctx, "list")
	if err != nil {
		return nil, &ListError{Detail: detailOf(err), Err: err}
	}
	names := ParseInstalled(res.Stdout)
	op.Done(fmt.Sprintf("%d installed app(s) found.", len(names)))
	return names, nil
}
