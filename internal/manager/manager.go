package manager

import (
	"context"

	"scoopbox/internal/progress"
)

// PackageManager is what the front-end drives. Every method blocks until
// the external commands it needs have finished and reports along the way
// to the given notifier, which may be nil.
type PackageManager interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	IsSearchCached(term string) bool
	Search(ctx context.Context, term string, n progress.Notifier) ([]string, error)
	Install(ctx context.Context, packages []string, n progress.Notifier) error
	Uninstall(ctx context.Context, packages []string, n progress.Notifier) error
	ListInstalled(ctx context.Context, n progress.Notifier) ([]string, error)
}

var _ PackageManager = (*Scoop)(nil)
