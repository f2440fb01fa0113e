package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"coach-planner/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	versions map[string]*Record
	// beforeSave runs between the existence check and the conditional write.
	beforeSave func()
	loadErr    error
}

func newMemStore(versionIDs ...string) *memStore {
	m := &memStore{versions: map[string]*Record{}}
	for _, id := range versionIDs {
		m.versions[id] = nil
	}
	return m
}

func (m *memStore) LoadSnapshot(_ context.Context, versionID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	rec := m.versions[versionID]
	if rec == nil {
		return nil, nil
	}
	c := *rec
	return &c, nil
}

func (m *memStore) SaveSnapshotIfAbsent(_ context.Context, versionID string, rec Record) (bool, error) {
	if m.beforeSave != nil {
		m.beforeSave()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, known := m.versions[versionID]
	if !known || existing != nil {
		return false, nil
	}
	m.versions[versionID] = &rec
	return true, nil
}

func builtSnapshot(t *testing.T, status Status) Snapshot {
	t.Helper()
	in := input(scenarioPayload(1), scenarioOverrides())
	in.Status = status
	snap, err := NewBuilder(testCatalog()).Build(in)
	require.NoError(t, err)
	return snap
}

func TestPersistIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	p := NewPersister(newMemStore("v1"), NewSealer("s3cret"), nil)

	first := builtSnapshot(t, StatusLocked)
	second := builtSnapshot(t, StatusExpired)

	kept, wrote, err := p.Persist(ctx, "v1", first)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, StatusLocked, kept.Status)

	kept, wrote, err = p.Persist(ctx, "v1", second)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, StatusLocked, kept.Status)

	stored, err := p.Fetch(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, StatusLocked, stored.Status)
	assert.Equal(t, first.WeeklyPlan.Days[0].Plan.TotalMacros, stored.WeeklyPlan.Days[0].Plan.TotalMacros)
	assert.Len(t, stored.Metadata.OverridesApplied, 2)
}

func TestPersistLosesRaceGracefully(t *testing.T) {
	ctx := context.Background()
	store := newMemStore("v1")
	p := NewPersister(store, nil, nil)

	winner := builtSnapshot(t, StatusExpired)
	store.beforeSave = func() {
		store.beforeSave = nil
		_, wrote, err := p.Persist(ctx, "v1", winner)
		require.NoError(t, err)
		require.True(t, wrote)
	}

	kept, wrote, err := p.Persist(ctx, "v1", builtSnapshot(t, StatusLocked))
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, StatusExpired, kept.Status)
}

func TestPersistUnknownVersion(t *testing.T) {
	p := NewPersister(newMemStore(), nil, nil)
	_, _, err := p.Persist(context.Background(), "missing", builtSnapshot(t, StatusLocked))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFetchAbsentAndFailures(t *testing.T) {
	ctx := context.Background()
	store := newMemStore("v1")
	p := NewPersister(store, nil, nil)

	snap, err := p.Fetch(ctx, "v1")
	require.NoError(t, err)
	assert.Nil(t, snap)

	store.loadErr = errors.New("locked database")
	_, err = p.Fetch(ctx, "v1")
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestFetchDetectsTampering(t *testing.T) {
	ctx := context.Background()
	store := newMemStore("v1")
	p := NewPersister(store, NewSealer("s3cret"), nil)

	_, _, err := p.Persist(ctx, "v1", builtSnapshot(t, StatusLocked))
	require.NoError(t, err)

	store.versions["v1"].Data = []byte(`{"status":"EXPIRED"}`)
	_, err = p.Fetch(ctx, "v1")
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.ErrorIs(t, err, ErrSealMismatch)
}
