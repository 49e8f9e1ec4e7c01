package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testORCID = "0000-0002-1825-0097"

func TestMemoryStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	_, err := store.GetProfile(ctx, testORCID)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	doc := NewProfileDocument(testORCID, ProfileFields{
		ResearchInterests: "ceramics",
		Institution:       "Brown University",
		Department:        "Psychoceramics",
	}, map[string]any{"name": "Josiah Carberry"}, now)
	require.NoError(t, store.PutProfile(ctx, doc))

	got, err := store.GetProfile(ctx, testORCID)
	require.NoError(t, err)
	assert.Equal(t, doc.AdditionalData, got.AdditionalData)
	assert.Equal(t, "Josiah Carberry", got.UserInfo["name"])
	assert.Equal(t, ProfileVersion, got.Metadata.Version)
	assert.Equal(t, ProfileSource, got.Metadata.Source)
	assert.True(t, now.Equal(got.Metadata.LastUpdated))

	// Mutating the returned copy does not touch the store.
	got.AdditionalData.Institution = "Elsewhere"
	again, err := store.GetProfile(ctx, testORCID)
	require.NoError(t, err)
	assert.Equal(t, "Brown University", again.AdditionalData.Institution)
}

func TestMemoryStorage_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	now := time.Now()

	require.NoError(t, store.PutProfile(ctx, NewProfileDocument(testORCID, ProfileFields{Institution: "A", Department: "X"}, nil, now)))
	require.NoError(t, store.PutProfile(ctx, NewProfileDocument(testORCID, ProfileFields{Institution: "B"}, nil, now)))

	got, err := store.GetProfile(ctx, testORCID)
	require.NoError(t, err)
	assert.Equal(t, ProfileFields{Institution: "B"}, got.AdditionalData, "save replaces the whole document")
}

func TestMemoryStorage_Corrupted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	store.putRaw(testORCID, []byte("{broken"))

	_, err := store.GetProfile(ctx, testORCID)
	assert.ErrorIs(t, err, ErrCorruptedProfile)

	docs, err := store.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryStorage_ListProfiles(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	for _, id := range []string{"0000-0002-1825-0097", "0000-0001-5109-3700"} {
		require.NoError(t, store.PutProfile(ctx, NewProfileDocument(id, ProfileFields{}, nil, time.Now())))
	}

	docs, err := store.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "0000-0001-5109-3700", docs[0].ORCID)
}

func TestMemoryStorage_PutRequiresID(t *testing.T) {
	assert.Error(t, NewMemoryStorage().PutProfile(context.Background(), &ProfileDocument{}))
	assert.Error(t, NewMemoryStorage().PutProfile(context.Background(), nil))
}
