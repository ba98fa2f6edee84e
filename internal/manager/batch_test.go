package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"scoopbox/internal/progress"
)

func TestInstallEmptyRunsNothing(t *testing.T) {
	r := newFakeRunner()
	s, _ := newTestScoop(t, r, FailFast)

	require.NoError(t, s.Install(context.Background(), nil, nil))
	require.NoError(t, s.Uninstall(context.Background(), []string{}, nil))
	assert.Empty(t, r.Calls())
}

func TestInstallResolvesAndRegistersBucket(t *testing.T) {
	r := newFakeRunner().
		on("search vscode", response{stdout: "extras/vscode 1.95\n"}).
		on("bucket list", response{stdout: "main\n"})
	s, _ := newTestScoop(t, r, FailFast)

	require.NoError(t, s.Install(context.Background(), []string{"vscode"}, nil))

	assert.Equal(t, []string{
		"--version",
		"search vscode",
		"bucket list",
		"bucket add extras",
		"install vscode",
	}, r.Calls())
}

func TestInstallUnknownBucketStillInstalls(t *testing.T) {
	r := newFakeRunner().on("search localapp", response{stdout: "localapp 1.0\n"})
	s, _ := newTestScoop(t, r, FailFast)

	require.NoError(t, s.Install(context.Background(), []string{"localapp"}, nil))

	assert.Equal(t, []string{"--version", "search localapp", "install localapp"}, r.Calls())
}

func TestInstallFailFast(t *testing.T) {
	r := newFakeRunner().on("install b", response{stderr: "hash check failed", code: 1})
	s, _ := newTestScoop(t, r, FailFast)
	for _, p := range []string{"a", "b", "c"} {
		s.Cache().PutBucket(p, "main")
	}
	s.Cache().SetBucketList([]string{"main"})

	err := s.Install(context.Background(), []string{"a", "b", "c"}, nil)

	var perr *PackageError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, OpInstall, perr.Op)
	assert.Equal(t, "b", perr.Package)
	assert.Equal(t, "hash check failed", perr.Detail)
	assert.Equal(t, 1, r.count("install a"))
	assert.Equal(t, 1, r.count("install b"))
	assert.Equal(t, 0, r.count("install c"))
	assert.Equal(t, 0, r.count("search c"))
}

func TestInstallBucketFailureAbortsBatch(t *testing.T) {
	r := newFakeRunner().
		on("bucket list", response{stdout: "main\n"}).
		on("bucket add broken", response{stderr: "clone failed", code: 1})
	s, _ := newTestScoop(t, r, FailFast)
	s.Cache().PutBucket("a", "broken")

	err := s.Install(context.Background(), []string{"a", "b"}, nil)

	var berr *BucketError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, 0, r.count("install a"))
	assert.Equal(t, 0, r.count("install b"))
}

func TestInstallContinueOnError(t *testing.T) {
	r := newFakeRunner().
		on("install a", response{stderr: "a broke", code: 1}).
		on("install c", response{stdout: "c broke", code: 2})
	s, _ := newTestScoop(t, r, ContinueOnError)
	for _, p := range []string{"a", "b", "c"} {
		s.Cache().PutBucket(p, "main")
	}
	s.Cache().SetBucketList([]string{"main"})

	var events []progress.Event
	ch := progress.NewChannel(64)
	err := s.Install(context.Background(), []string{"a", "b", "c"}, ch)
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	var first, second *PackageError
	require.True(t, errors.As(errs[0], &first))
	require.True(t, errors.As(errs[1], &second))
	assert.Equal(t, "a", first.Package)
	assert.Equal(t, "c", second.Package)
	assert.Equal(t, "c broke", second.Detail)
	assert.Equal(t, 1, r.count("install b"))

	for len(ch.Events()) > 0 {
		events = append(events, <-ch.Events())
	}
	last := events[len(events)-1]
	assert.Equal(t, progress.StageDone, last.Stage)
	assert.Equal(t, "1 of 3 app(s) installed.", last.Message)
}

func TestInstallToolUnavailable(t *testing.T) {
	r := newFakeRunner().on("--version", response{code: 1})
	s, _ := newTestScoop(t, r, FailFast)

	err := s.Install(context.Background(), []string{"git"}, nil)

	var terr *ToolUnavailableError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, []string{"--version"}, r.Calls())
}

func TestInstallEmitsStagesAndSummary(t *testing.T) {
	r := newFakeRunner()
	s, _ := newTestScoop(t, r, FailFast)
	s.Cache().PutBucket("git", "main")
	s.Cache().SetBucketList([]string{"main"})

	ch := progress.NewChannel(32)
	require.NoError(t, s.Install(context.Background(), []string{"git"}, ch))

	var stages []progress.Stage
	var opID string
	for len(ch.Events()) > 0 {
		e := <-ch.Events()
		if opID == "" {
			opID = e.OpID
		}
		assert.Equal(t, opID, e.OpID)
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []progress.Stage{
		progress.StageInfo,
		progress.StageResolving,
		progress.StageResolving,
		progress.StageExecuting,
		progress.StageSucceeded,
		progress.StageDone,
	}, stages)
}

func TestUninstallFailureDetail(t *testing.T) {
	r := newFakeRunner().on("uninstall ghost-app", response{stderr: "app not found", code: 1})
	s, _ := newTestScoop(t, r, FailFast)

	err := s.Uninstall(context.Background(), []string{"ghost-app"}, nil)

	var perr *PackageError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, OpUninstall, perr.Op)
	assert.Equal(t, "ghost-app", perr.Package)
	assert.Equal(t, "app not found", perr.Detail)
	assert.EqualError(t, err, "uninstall ghost-app failed: app not found")
}

func TestUninstallInOrderWithoutBucketWork(t *testing.T) {
	r := newFakeRunner()
	s, _ := newTestScoop(t, r, FailFast)

	var msgs []string
	require.NoError(t, s.Uninstall(context.Background(), []string{"b", "a"},
		progress.Func(func(m string) { msgs = append(msgs, m) })))

	assert.Equal(t, []string{"--version", "uninstall b", "uninstall a"}, r.Calls())
	assert.Equal(t, "All selected apps uninstalled.", msgs[len(msgs)-1])
}

func TestListInstalled(t *testing.T) {
	out := "Installed apps:\n\nName Version Source\n---- ------- ------\n7zip 24.08 main\ngit 2.47 main\n"
	r := newFakeRunner().on("list", response{stdout: out})
	s, _ := newTestScoop(t, r, FailFast)

	names, err := s.ListInstalled(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"7zip", "git"}, names)
	assert.Equal(t, []string{"--version", "list"}, r.Calls())
}

func TestListInstalledFailure(t *testing.T) {
	r := newFakeRunner().on("list", response{code: 1})
	s, _ := newTestScoop(t, r, FailFast)

	_, err := s.ListInstalled(context.Background(), nil)

	var lerr *ListError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, "unknown error", lerr.Detail)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("continue")
	require.NoError(t, err)
	assert.Equal(t, ContinueOnError, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)

	_, err = ParsePolicy("maybe")
	assert.Error(t, err)
}
