package cache

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-testsight/pkg/types"
)

func sampleRecords() []*types.ModuleRecord {
	return []*types.ModuleRecord{
		{
			ID:   "billing.service",
			Path: "billing/service.py",
			Imports: []types.ImportRef{
				{Target: "billing.models"},
				{Raw: "requests"},
			},
		},
		{
			ID:     "tests.test_service",
			Path:   "tests/test_service.py",
			IsTest: true,
			Imports: []types.ImportRef{
				{Target: "billing.service"},
			},
		},
	}
}

func TestStoreAndLoad(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Store("key-1", sampleRecords()))

	records, ok := store.Load("key-1")
	require.True(t, ok)
	require.Len(t, records, 2)
	assert.Equal(t, types.ModuleID("billing.service"), records[0].ID)
	assert.Equal(t, "billing/service.py", records[0].Path)
	require.Len(t, records[0].Imports, 2)
	assert.True(t, records[0].Imports[0].IsResolved())
	assert.Equal(t, "requests", records[0].Imports[1].Raw)
	assert.True(t, records[1].IsTest)
}

func TestLoadMissesOnStaleKey(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Store("key-1", sampleRecords()))

	_, ok := store.Load("key-2")
	assert.False(t, ok, "a changed fingerprint must invalidate the snapshot")
}

func TestLoadMissesWhenEmpty(t *testing.T) {
	store := NewStore(t.TempDir())
	_, ok := store.Load("key-1")
	assert.False(t, ok)
}

func TestStoreOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Store("key-1", sampleRecords()))
	require.NoError(t, store.Store("key-2", sampleRecords()[:1]))

	_, ok := store.Load("key-1")
	assert.False(t, ok)
	records, ok := store.Load("key-2")
	require.True(t, ok)
	assert.Len(t, records, 1)
}

func TestLoadMissesOnCorruptFile(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("not msgpack"), 0o644))

	_, ok := store.Load("key-1")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Store("key-1", sampleRecords()))
	require.NoError(t, store.Clear())

	_, ok := store.Load("key-1")
	assert.False(t, ok)

	// Clearing an already-empty store is not an error.
	require.NoError(t, store.Clear())
}
