package localcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dgellow/research-hub/internal/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	_, ok, err := store.Get(ctx, hub.SessionKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, hub.SessionKey, `{"provider":"orcid"}`))
	require.NoError(t, store.Set(ctx, hub.SessionKey, `{"provider":"orcid","orcid":"0000-0002-1825-0097"}`))

	value, ok, err := store.Get(ctx, hub.SessionKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"provider":"orcid","orcid":"0000-0002-1825-0097"}`, value)

	require.NoError(t, store.Delete(ctx, hub.SessionKey))
	_, ok, err = store.Get(ctx, hub.SessionKey)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, store.Delete(ctx, "missing"), "deleting an absent key is not an error")
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store, path := openTestStore(t)
	require.NoError(t, store.Set(ctx, hub.ProfileKey("0000-0002-1825-0097"), `{"orcidId":"0000-0002-1825-0097"}`))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, hub.ProfileKey("0000-0002-1825-0097"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, value, "0000-0002-1825-0097")
}

func TestStore_Keys(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	require.NoError(t, store.Set(ctx, hub.ProfileKey("0000-0002-1825-0097"), "{}"))
	require.NoError(t, store.Set(ctx, hub.ProfileKey("0000-0001-5109-3700"), "{}"))
	require.NoError(t, store.Set(ctx, hub.SessionKey, "{}"))

	keys, err := store.Keys(ctx, "orcid_profile_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"orcid_profile_0000-0002-1825-0097",
		"orcid_profile_0000-0001-5109-3700",
	}, keys)
}

func TestStore_BacksProfileStore(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	require.NoError(t, store.Set(ctx, hub.ProfileKey("0000-0002-1825-0097"), "not json"))

	profiles := hub.NewProfileStore(unreachableRemote{}, store)
	record, err := profiles.Load(ctx, "0000-0002-1825-0097")
	require.NoError(t, err)
	assert.Equal(t, hub.OriginLocal, record.Origin)

	_, ok, err := store.Get(ctx, hub.ProfileKey("0000-0002-1825-0097"))
	require.NoError(t, err)
	assert.False(t, ok, "corrupted snapshot is discarded")
}

type unreachableRemote struct{}

func (unreachableRemote) LoadProfile(context.Context, string) (*hub.RemoteProfile, bool, error) {
	return nil, false, assert.AnError
}

func (unreachableRemote) SaveProfile(context.Context, hub.SaveProfileRequest) error {
	return assert.AnError
}
