package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverBucketCacheHit(t *testing.T) {
	r := newFakeRunner()
	s, _ := newTestScoop(t, r, FailFast)
	s.Cache().PutBucket("vscode", "extras")

	b, ok := s.DiscoverBucket(context.Background(), "VSCode", nil)
	require.True(t, ok)
	assert.Equal(t, "extras", b)
	assert.Empty(t, r.Calls())
}

func TestDiscoverBucketPicksSmallest(t *testing.T) {
	out := "Results from local buckets...\nversions/Python 3.8\nmain/python 3.13\nextras/python-tools 1.0\n"
	r := newFakeRunner().on("search python", response{stdout: out})
	s, _ := newTestScoop(t, r, FailFast)

	b, ok := s.DiscoverBucket(context.Background(), "python", nil)
	require.True(t, ok)
	assert.Equal(t, "main", b)

	cached, ok := s.Cache().Bucket("python")
	require.True(t, ok)
	assert.Equal(t, "main", cached)

	// Second lookup is served from the cache.
	_, _ = s.DiscoverBucket(context.Background(), "python", nil)
	assert.Equal(t, 1, r.count("search python"))
}

func TestDiscoverBucketUnknown(t *testing.T) {
	r := newFakeRunner().
		on("search ghost", response{stdout: "ghost 1.0\n"}).
		on("search broken", response{stderr: "boom", code: 1})
	s, _ := newTestScoop(t, r, FailFast)

	_, ok := s.DiscoverBucket(context.Background(), "ghost", nil)
	assert.False(t, ok)
	_, ok = s.DiscoverBucket(context.Background(), "broken", nil)
	assert.False(t, ok)
	_, ok = s.Cache().Bucket("ghost")
	assert.False(t, ok)
}

func TestEnsureBucketIdempotent(t *testing.T) {
	r := newFakeRunner().on("bucket list", response{stdout: "main\n"})
	s, _ := newTestScoop(t, r, FailFast)
	ctx := context.Background()

	require.NoError(t, s.EnsureBucket(ctx, "extras", nil))
	require.NoError(t, s.EnsureBucket(ctx, "Extras", nil))

	assert.Equal(t, 1, r.count("bucket list"))
	assert.Equal(t, 1, r.count("bucket add extras"))
}

func TestEnsureBucketAlreadyRegistered(t *testing.T) {
	table := "Name   Source  Updated  Manifests\n----   ------  -------  ---------\nmain   https://x  2024  1\nextras https://y  2024  2\n"
	r := newFakeRunner().on("bucket list", response{stdout: table})
	s, _ := newTestScoop(t, r, FailFast)

	require.NoError(t, s.EnsureBucket(context.Background(), "extras", nil))
	assert.Equal(t, []string{"bucket list"}, r.Calls())
}

func TestEnsureBucketUsesPersistedList(t *testing.T) {
	r := newFakeRunner()
	s, _ := newTestScoop(t, r, FailFast)
	s.Cache().SetBucketList([]string{"main", "extras"})

	require.NoError(t, s.EnsureBucket(context.Background(), "extras", nil))
	assert.Empty(t, r.Calls())
}

func TestEnsureBucketAddFails(t *testing.T) {
	r := newFakeRunner().
		on("bucket list", response{stdout: "main\n"}).
		on("bucket add nonportable", response{stderr: "repository not found", code: 128})
	s, _ := newTestScoop(t, r, FailFast)

	err := s.EnsureBucket(context.Background(), "nonportable", nil)

	var berr *BucketError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, "nonportable", berr.Bucket)
	assert.Equal(t, "repository not found", berr.Detail)
	assert.EqualError(t, err, `bucket "nonportable" could not be added: repository not found`)
	assert.False(t, s.Cache().HasBucket("nonportable"))
}

func TestEnsureBucketListFails(t *testing.T) {
	r := newFakeRunner().on("bucket list", response{stderr: "git missing", code: 1})
	s, _ := newTestScoop(t, r, FailFast)

	err := s.EnsureBucket(context.Background(), "extras", nil)

	var berr *BucketError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, "extras", berr.Bucket)
	assert.True(t, berr.Listing)
	assert.EqualError(t, err, `bucket "extras" could not be checked: registered buckets could not be listed: git missing`)
	assert.Equal(t, 0, r.count("bucket add extras"))
}

func TestEnsureBucketSurvivesClearDuringAdd(t *testing.T) {
	r := newFakeRunner().on("bucket list", response{stdout: "main\nextras\n"})
	s, _ := newTestScoop(t, r, FailFast)
	r.onCall("bucket add games", func() { s.Cache().Clear() })
	ctx := context.Background()

	require.NoError(t, s.EnsureBucket(ctx, "games", nil))
	assert.False(t, s.Cache().BucketListLoaded())

	// The cleared set is read again instead of trusting a one-bucket list.
	require.NoError(t, s.EnsureBucket(ctx, "main", nil))
	assert.Equal(t, 2, r.count("bucket list"))
	assert.Equal(t, 0, r.count("bucket add main"))
}
