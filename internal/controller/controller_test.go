package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/backend/internal/blob"
	"github.com/atelierhq/atelier/backend/internal/kv"
	"github.com/atelierhq/atelier/backend/internal/model/session"
)

// countingStore wraps a kv.Store and counts reads, so hydration behavior
// is observable.
type countingStore struct {
	kv.Store
	gets int
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets++
	return s.Store.Get(ctx, key)
}

// failingStore rejects writes after a configurable number of successes.
type failingStore struct {
	kv.Store
	allowed int
}

var errWriteRejected = errors.New("simulated write failure")

func (s *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if s.allowed <= 0 {
		return errWriteRejected
	}
	s.allowed--
	return s.Store.Put(ctx, key, value)
}

func newTestController(store kv.Store) *Controller {
	ctrl := New("test", store, nil, "", nil)
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	ctrl.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	return ctrl
}

func TestListSessionsOrderedByLastActive(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(kv.NewMemoryStore())

	for _, id := range []string{"a", "b", "c"} {
		_, err := ctrl.AddSession(ctx, id, "")
		require.NoError(t, err)
	}

	sessions, err := ctrl.ListSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, ids(sessions))

	// Touching a session moves it to the front.
	require.NoError(t, ctrl.TouchSession(ctx, "a"))
	sessions, err = ctrl.ListSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", sessions[0].ID)
}

func TestHydrationHappensOnce(t *testing.T) {
	ctx := context.Background()
	spy := &countingStore{Store: kv.NewMemoryStore()}
	ctrl := newTestController(spy)

	_, err := ctrl.AddSession(ctx, "s1", "first")
	require.NoError(t, err)
	afterFirst := spy.gets

	_, err = ctrl.AddSession(ctx, "s2", "second")
	require.NoError(t, err)
	_, err = ctrl.ListSessions(ctx)
	require.NoError(t, err)

	require.Equal(t, afterFirst, spy.gets, "subsequent operations must not re-read the durable store")
}

func TestHydrationSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	first := newTestController(store)
	_, err := first.AddSession(ctx, "s1", "kept")
	require.NoError(t, err)
	_, err = first.SaveProject(ctx, "s1", "p1", `{"objects":[]}`, "Poster")
	require.NoError(t, err)

	// A fresh instance over the same store sees the persisted mappings.
	second := newTestController(store)
	sessions, err := second.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "kept", sessions[0].Title)

	project, err := second.LoadProject(ctx, "s1", "p1")
	require.NoError(t, err)
	require.Equal(t, "Poster", project.Title)
}

func TestPersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: kv.NewMemoryStore(), allowed: 1}
	ctrl := newTestController(store)

	_, err := ctrl.AddSession(ctx, "s1", "kept")
	require.NoError(t, err)

	_, err = ctrl.AddSession(ctx, "s2", "rejected")
	require.ErrorIs(t, err, errWriteRejected)

	// The failed mutation must not be observable afterwards.
	sessions, err := ctrl.ListSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, ids(sessions))

	// Same contract for deletions.
	_, err = ctrl.RemoveSession(ctx, "s1")
	require.ErrorIs(t, err, errWriteRejected)
	sessions, err = ctrl.ListSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, ids(sessions))
}

func TestRemoveSessionPersistsOnlyOnDeletion(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(kv.NewMemoryStore())

	deleted, err := ctrl.RemoveSession(ctx, "missing")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = ctrl.AddSession(ctx, "s1", "")
	require.NoError(t, err)
	deleted, err = ctrl.RemoveSession(ctx, "s1")
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestRenameSession(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(kv.NewMemoryStore())

	updated, err := ctrl.RenameSession(ctx, "missing", "nope")
	require.NoError(t, err)
	require.False(t, updated)

	_, err = ctrl.AddSession(ctx, "s1", "old")
	require.NoError(t, err)
	updated, err = ctrl.RenameSession(ctx, "s1", "new")
	require.NoError(t, err)
	require.True(t, updated)

	sessions, err := ctrl.ListSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", sessions[0].Title)
}

func TestClearSessionsReportsCount(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(kv.NewMemoryStore())

	for _, id := range []string{"a", "b", "c"} {
		_, err := ctrl.AddSession(ctx, id, "")
		require.NoError(t, err)
	}

	count, err := ctrl.ClearSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	sessions, err := ctrl.ListSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestProjectCompositeKeyIsolation(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(kv.NewMemoryStore())

	_, err := ctrl.SaveProject(ctx, "a", "p1", "state-a", "A's poster")
	require.NoError(t, err)
	_, err = ctrl.SaveProject(ctx, "b", "p1", "state-b", "B's poster")
	require.NoError(t, err)

	fromA, err := ctrl.LoadProject(ctx, "a", "p1")
	require.NoError(t, err)
	require.Equal(t, "state-a", fromA.DocumentState)

	fromB, err := ctrl.LoadProject(ctx, "b", "p1")
	require.NoError(t, err)
	require.Equal(t, "state-b", fromB.DocumentState)

	// Deleting one side leaves the other untouched.
	deleted, err := ctrl.DeleteProject(ctx, "a", "p1")
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = ctrl.LoadProject(ctx, "a", "p1")
	require.ErrorIs(t, err, ErrProjectNotFound)
	_, err = ctrl.LoadProject(ctx, "b", "p1")
	require.NoError(t, err)
}

func TestSaveProjectTitleFallback(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(kv.NewMemoryStore())

	// No title anywhere: placeholder from the truncated id.
	record, err := ctrl.SaveProject(ctx, "s", "0123456789abcdef", "v1", "")
	require.NoError(t, err)
	require.Equal(t, "Project 01234567", record.Title)

	// Overwrite without a title keeps the existing one.
	_, err = ctrl.SaveProject(ctx, "s", "0123456789abcdef", "v2", "Named")
	require.NoError(t, err)
	record, err = ctrl.SaveProject(ctx, "s", "0123456789abcdef", "v3", "")
	require.NoError(t, err)
	require.Equal(t, "Named", record.Title)
	require.Equal(t, "v3", record.DocumentState)
}

func TestListProjectsOrderedByLastModified(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(kv.NewMemoryStore())

	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := ctrl.SaveProject(ctx, "s", id, "state", "")
		require.NoError(t, err)
	}

	projects, err := ctrl.ListProjects(ctx, "s")
	require.NoError(t, err)
	require.Len(t, projects, 3)
	require.Equal(t, "p3", projects[0].ID)
	require.Equal(t, "p1", projects[2].ID)
}

func TestAssetsRequireConfiguredStore(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(kv.NewMemoryStore())

	_, err := ctrl.UploadAsset(ctx, "s", "a.png", []byte{1}, "image/png")
	require.ErrorIs(t, err, blob.ErrNotConfigured)
	_, err = ctrl.ListAssets(ctx, "s")
	require.ErrorIs(t, err, blob.ErrNotConfigured)
}

func TestAssetRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctrl := New("test", kv.NewMemoryStore(), blob.NewMemoryStore(), "https://cdn.example.com", nil)

	url, err := ctrl.UploadAsset(ctx, "s1", "poster.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/assets/s1/poster.png", url)

	urls, err := ctrl.ListAssets(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, []string{url}, urls)

	// Another session sees nothing.
	urls, err = ctrl.ListAssets(ctx, "s2")
	require.NoError(t, err)
	require.Empty(t, urls)

	require.NoError(t, ctrl.DeleteAsset(ctx, "s1", "poster.png"))
	urls, err = ctrl.ListAssets(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, urls)
}

func TestRegistryPartitionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(kv.NewMemoryStore(), nil, "", nil)

	one := registry.Get("tenant-1")
	two := registry.Get("tenant-2")
	require.NotSame(t, one, two)
	require.Same(t, one, registry.Get("tenant-1"))

	_, err := one.AddSession(ctx, "s", "only in tenant-1")
	require.NoError(t, err)

	sessions, err := two.ListSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func ids(records []session.Record) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.ID)
	}
	return out
}
