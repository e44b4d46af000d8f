package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/cache"
	"ai-budtender-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenClient struct{}

func (brokenClient) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (brokenClient) Delete(ctx context.Context, key string) error {
	return errors.New("connection refused")
}

func (brokenClient) Close() error { return nil }

func newTestManager(client cache.Client) *Manager {
	return NewManager(client, DefaultConfig(), logger.NewNopLogger())
}

func TestGetOrRestoreCreatesWithGeneratedID(t *testing.T) {
	m := newTestManager(cache.NewMemoryClient(time.Minute))

	sess := m.GetOrRestore(context.Background(), "")
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.IsRestored)
}

func TestSaveAndLoadActiveSession(t *testing.T) {
	m := newTestManager(cache.NewMemoryClient(time.Minute))
	ctx := context.Background()

	sess := m.GetOrRestore(ctx, "abc")
	sess.Language = "es"
	sess.AppendRecommendation([]int64{3, 1, 2})
	require.True(t, m.Save(ctx, sess))

	loaded := m.GetOrRestore(ctx, "abc")
	assert.Equal(t, "es", loaded.Language)
	assert.Equal(t, []int64{3, 1, 2}, loaded.LastGroup())
	assert.False(t, loaded.IsRestored)
}

func TestRestoreFromPreferenceBackup(t *testing.T) {
	m := newTestManager(cache.NewMemoryClient(time.Minute))
	ctx := context.Background()

	sess := m.GetOrRestore(ctx, "u1")
	sess.Language = "es"
	sess.RememberPreference(store.PrefDesiredEffect, "Relaxed", "Sleepy")
	sess.AppendRecommendation([]int64{7})
	require.True(t, m.Save(ctx, sess))

	require.NoError(t, m.Delete(ctx, "u1"))

	restored := m.GetOrRestore(ctx, "u1")
	assert.True(t, restored.IsRestored)
	assert.Equal(t, "es", restored.Language)
	assert.Equal(t, []string{"Relaxed", "Sleepy"}, restored.Preferences[store.PrefDesiredEffect])
	assert.Empty(t, restored.RecommendationHistory)
}

func TestBackupNotWrittenWithoutPreferences(t *testing.T) {
	client := cache.NewMemoryClient(time.Minute)
	m := newTestManager(client)
	ctx := context.Background()

	require.True(t, m.Save(ctx, m.GetOrRestore(ctx, "plain")))

	_, err := client.Get(ctx, backupPrefix+"plain")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestCacheFailureDegradesToEphemeralSession(t *testing.T) {
	m := newTestManager(brokenClient{})
	ctx := context.Background()

	sess := m.GetOrRestore(ctx, "x")
	require.NotNil(t, sess)
	assert.Equal(t, "x", sess.ID)
	assert.False(t, sess.IsRestored)

	sess.RememberPreference(store.PrefFlavor, "Citrus")
	assert.False(t, m.Save(ctx, sess))
	assert.Error(t, m.Delete(ctx, "x"))
}

func TestSaveTouchesLastActivity(t *testing.T) {
	m := newTestManager(cache.NewMemoryClient(time.Minute))
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	sess := m.GetOrRestore(context.Background(), "t")
	m.now = func() time.Time { return start.Add(5 * time.Minute) }
	m.Save(context.Background(), sess)

	assert.Equal(t, start.Add(5*time.Minute), sess.LastActivity)
	assert.Equal(t, start, sess.CreatedAt)
}
