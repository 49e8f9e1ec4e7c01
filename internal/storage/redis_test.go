package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedisRejectsBadURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), RedisConfig{URL: "not-a-redis-url"})
	assert.ErrorIs(t, err, ErrFailedToParseRedisURL)
}

func TestConnectRedisGivesUp(t *testing.T) {
	_, err := ConnectRedis(context.Background(), RedisConfig{
		URL:            "redis://127.0.0.1:1/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: 2 * time.Second,
	})
	assert.ErrorIs(t, err, ErrRedisNotReady)
}

// Runs against a real server when RESEARCH_HUB_TEST_REDIS_URL is set.
func TestRedisStorage(t *testing.T) {
	url := os.Getenv("RESEARCH_HUB_TEST_REDIS_URL")
	if url == "" {
		t.Skip("RESEARCH_HUB_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := ConnectRedis(ctx, RedisConfig{URL: url})
	require.NoError(t, err)

	prefix := "research-hub-test:" + time.Now().Format("150405.000000") + ":"
	store := NewRedisStorage(client, prefix)
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = store.Close()
	})

	_, err = store.GetProfile(ctx, testORCID)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	doc := NewProfileDocument(testORCID, ProfileFields{Institution: "Brown University"}, nil, time.Now())
	require.NoError(t, store.PutProfile(ctx, doc))

	got, err := store.GetProfile(ctx, testORCID)
	require.NoError(t, err)
	assert.Equal(t, "Brown University", got.AdditionalData.Institution)

	require.NoError(t, client.Set(ctx, prefix+"0000-0001-5109-3700", "{oops", 0).Err())
	_, err = store.GetProfile(ctx, "0000-0001-5109-3700")
	assert.ErrorIs(t, err, ErrCorruptedProfile)

	docs, err := store.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, testORCID, docs[0].ORCID)
}
