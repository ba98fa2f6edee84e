package manager

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"scoopbox/internal/progress"
)

// Policy decides what a batch does after one package fails.
type Policy int

const (
	// FailFast stops at the first failing package.
	FailFast Policy = iota
	// ContinueOnError attempts every package and reports all failures
	// together; multierr.Errors splits them again.
	ContinueOnError
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fail-fast":
		return FailFast, nil
	case "continue":
		return ContinueOnError, nil
	}
	return FailFast, fmt.Errorf("unknown batch policy %q", s)
}

func (p Policy) String() string {
	if p == ContinueOnError {
		return "continue"
	}
	return "fail-fast"
}

// Install installs packages one after another in the given order. Before
// each install the package's bucket is resolved and registered when known.
func (s *Scoop) Install(ctx context.Context, packages []string, n progress.Notifier) error {
	if len(packages) == 0 {
		return nil
	}
	op := progress.Start(n)
	if err := s.EnsureAvailable(ctx, op); err != nil {
		return err
	}
	return s.runBatch(op, packages, "installed", func(pkg string) error {
		op.Stage(progress.StageResolving, pkg, fmt.Sprintf("Resolving bucket for %s...", pkg))
		if bucket, ok := s.DiscoverBucket(ctx, pkg, op); ok {
			if err := s.EnsureBucket(ctx, bucket, op); err != nil {
				return err
			}
		}
		op.Stage(progress.StageExecuting, pkg, fmt.Sprintf("Installing %s...", pkg))
		if _, err := s.runner.Run(ctx, "install", pkg); err != nil {
			return &PackageError{Op: OpInstall, Package: pkg, Detail: detailOf(err), Err: err}
		}
		return nil
	})
}

// Uninstall removes packages one after another in the given order.
func (s *Scoop) Uninstall(ctx context.Context, packages []string, n progress.Notifier) error {
	if len(packages) == 0 {
		return nil
	}
	op := progress.Start(n)
	if err := s.EnsureAvailable(ctx, op); err != nil {
		return err
	}
	return s.runBatch(op, packages, "uninstalled", func(pkg string) error {
		op.Stage(progress.StageExecuting, pkg, fmt.Sprintf("Uninstalling %s...", pkg))
		if _, err := s.runner.Run(ctx, "uninstall", pkg); err != nil {
			return &PackageError{Op: OpUninstall, Package: pkg, Detail: detailOf(err), Err: err}
		}
		return nil
	})
}

// runBatch applies step to each package in order, never in parallel, and
// applies the configured policy to failures.
func (s *Scoop) runBatch(op *progress.Op, packages []string, verb string, step func(pkg string) error) error {
	var errs error
	failed := 0
	for _, pkg := range packages {
		if err := step(pkg); err != nil {
			op.Stage(progress.StageFailed, pkg, err.Error())
			if s.policy == FailFast {
				return err
			}
			errs = multierr.Append(errs, err)
			failed++
			continue
		}
		op.Stage(progress.StageSucceeded, pkg, fmt.Sprintf("✓ %s %s.", pkg, verb))
	}

	if errs != nil {
		op.Done(fmt.Sprintf("%d of %d app(s) %s.", len(packages)-failed, len(packages), verb))
		return errs
	}
	op.Done(fmt.Sprintf("All selected apps %s.", verb))
	return nil
}
