package cachestore_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/adapters/cachestore"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

var fp = domain.NewFingerprint([]domain.FileFingerprint{{Path: "core/a.go", MtimeNanos: 10, SizeBytes: 3}})

func key(tool, dom string) domain.CacheKey {
	return domain.CacheKey{Tool: tool, Domain: dom, ConfigSignature: "cfg", ToolVersionHash: "v1"}
}

func newStore(t *testing.T) (*cachestore.Store, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	return cachestore.NewStore(log), log
}

func TestStore_PutGet(t *testing.T) {
	root := t.TempDir()
	store, _ := newStore(t)

	_, reason := store.Get(root, key("imports", "core"), fp)
	assert.Equal(t, domain.MissAbsent, reason)

	require.NoError(t, store.Put(root, domain.CacheEntry{
		Key:         key("imports", "core"),
		Fingerprint: fp,
		Payload:     json.RawMessage(`{"unused":0}`),
		Status:      domain.RunSuccess,
	}))

	payload, reason := store.Get(root, key("imports", "core"), fp)
	assert.Equal(t, domain.MissNone, reason)
	assert.JSONEq(t, `{"unused":0}`, string(payload))

	// Unrelated domains are unaffected.
	_, reason = store.Get(root, key("imports", "ui"), fp)
	assert.Equal(t, domain.MissAbsent, reason)
}

func TestStore_InvalidationRules(t *testing.T) {
	root := t.TempDir()
	store, _ := newStore(t)

	require.NoError(t, store.Put(root, domain.CacheEntry{
		Key: key("imports", "core"), Fingerprint: fp, Payload: json.RawMessage(`1`), Status: domain.RunSuccess,
	}))

	changedKey := key("imports", "core")
	changedKey.ConfigSignature = "cfg2"
	_, reason := store.Get(root, changedKey, fp)
	assert.Equal(t, domain.MissConfig, reason)

	changedKey = key("imports", "core")
	changedKey.ToolVersionHash = "v2"
	_, reason = store.Get(root, changedKey, fp)
	assert.Equal(t, domain.MissToolVersion, reason)

	touched := domain.NewFingerprint([]domain.FileFingerprint{{Path: "core/a.go", MtimeNanos: 11, SizeBytes: 3}})
	_, reason = store.Get(root, key("imports", "core"), touched)
	assert.Equal(t, domain.MissFingerprint, reason)
}

func TestStore_FailedEntriesAreNeverServed(t *testing.T) {
	root := t.TempDir()
	store, _ := newStore(t)

	for _, status := range []domain.RunStatus{domain.RunFailed, domain.RunError} {
		require.NoError(t, store.Put(root, domain.CacheEntry{
			Key: key("coverage", "core"), Fingerprint: fp, Status: status,
		}))
		_, reason := store.Get(root, key("coverage", "core"), fp)
		assert.Equal(t, domain.MissStatus, reason)

		peeked, err := store.Peek(root, "coverage", "core")
		require.NoError(t, err)
		require.NotNil(t, peeked)
		assert.Equal(t, status, peeked.Status)
		assert.JSONEq(t, "null", string(peeked.Payload))
	}
}

func TestStore_PutRequiresToolVersion(t *testing.T) {
	store, _ := newStore(t)
	k := key("imports", "core")
	k.ToolVersionHash = ""
	err := store.Put(t.TempDir(), domain.CacheEntry{Key: k, Status: domain.RunSuccess})
	assert.ErrorContains(t, err, domain.ErrMissingToolVersion.Error())
}

func TestStore_CorruptEntryIsAMiss(t *testing.T) {
	root := t.TempDir()
	store, log := newStore(t)

	path := store.Filename(root, "imports", "core")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 1, "key": `), 0o600))

	log.EXPECT().Warn(gomock.Any()).Times(2)

	_, reason := store.Get(root, key("imports", "core"), fp)
	assert.Equal(t, domain.MissCorrupt, reason)

	entries, err := store.Entries(root, "imports")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_EntriesToolsClear(t *testing.T) {
	root := t.TempDir()
	store, _ := newStore(t)
	store.SetNow(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) })

	for _, k := range []domain.CacheKey{key("coverage", "ui"), key("coverage", "core"), key("docs", domain.GlobalScope)} {
		require.NoError(t, store.Put(root, domain.CacheEntry{Key: k, Status: domain.RunSuccess}))
	}

	entries, err := store.Entries(root, "coverage")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "core", entries[0].Key.Domain)
	assert.Equal(t, "ui", entries[1].Key.Domain)
	assert.Equal(t, 2026, entries[0].CreatedAt.Year())
	assert.Equal(t, domain.CacheSchemaVersion, entries[0].Version)

	tools, err := store.Tools(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"coverage", "docs"}, tools)

	require.NoError(t, store.ClearTool(root, "coverage"))
	entries, err = store.Entries(root, "coverage")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Clear(root))
	tools, err = store.Tools(root)
	require.NoError(t, err)
	assert.Empty(t, tools)
}

func TestStore_ConcurrentPutsNeverExposePartialWrites(t *testing.T) {
	root := t.TempDir()
	store, _ := newStore(t)
	k := key("imports", "core")

	big := make([]int, 5000)
	payload, err := json.Marshal(big)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_ = store.Put(root, domain.CacheEntry{Key: k, Fingerprint: fp, Payload: payload, Status: domain.RunSuccess})
		})
		wg.Go(func() {
			got, reason := store.Get(root, k, fp)
			if reason == domain.MissNone {
				assert.JSONEq(t, string(payload), string(got))
			} else {
				assert.Equal(t, domain.MissAbsent, reason)
			}
		})
	}
	wg.Wait()
}
