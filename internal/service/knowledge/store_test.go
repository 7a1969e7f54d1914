package knowledge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const sheet = "question_en,answer_en,question_es,answer_es\nWhen is lunch?,11:30,¿Cuándo es el almuerzo?,11:30\nBus?,Yes,,\n"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]string)}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.sets++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func newSheetServer(t *testing.T, hits *atomic.Int32, body *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		text, _ := body.Load().(string)
		if text == "" {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, text)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStoreCachesUntilTTL(t *testing.T) {
	var hits atomic.Int32
	var body atomic.Value
	body.Store(sheet)
	srv := newSheetServer(t, &hits, &body)

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewStore(StoreConfig{Source: srv.URL, TTL: 5 * time.Minute, Now: clock.Now})
	ctx := context.Background()

	first := store.Context(ctx)
	if first.Count("en") != 2 || first.Count("es") != 1 {
		t.Fatalf("unexpected counts en=%d es=%d", first.Count("en"), first.Count("es"))
	}

	clock.Advance(4 * time.Minute)
	if again := store.Context(ctx); again.Version != first.Version {
		t.Fatal("snapshot reloaded before TTL expired")
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 fetch, got %d", hits.Load())
	}

	clock.Advance(2 * time.Minute)
	if reloaded := store.Context(ctx); reloaded.Version == first.Version {
		t.Fatal("snapshot not reloaded after TTL")
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 fetches, got %d", hits.Load())
	}
}

func TestStoreKeepsPreviousSnapshotOnFailure(t *testing.T) {
	var hits atomic.Int32
	var body atomic.Value
	body.Store(sheet)
	srv := newSheetServer(t, &hits, &body)

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewStore(StoreConfig{Source: srv.URL, TTL: time.Minute, Now: clock.Now})
	ctx := context.Background()

	first := store.Context(ctx)

	body.Store("")
	clock.Advance(2 * time.Minute)
	got := store.Context(ctx)
	if got.Version != first.Version || got.Count("en") != 2 {
		t.Fatalf("expected previous snapshot after failed reload, got %+v", got)
	}

	// Within the backoff window nothing is refetched.
	store.Context(ctx)
	if hits.Load() != 2 {
		t.Fatalf("expected 2 fetches, got %d", hits.Load())
	}
}

func TestStoreEmptySource(t *testing.T) {
	store := NewStore(StoreConfig{TTL: time.Minute})
	snapshot := store.Context(context.Background())
	if !snapshot.Empty() || snapshot.LoadedAt.IsZero() {
		t.Fatalf("expected empty loaded snapshot, got %+v", snapshot)
	}
}

func TestStoreSharedCache(t *testing.T) {
	var hits atomic.Int32
	var body atomic.Value
	body.Store(sheet)
	srv := newSheetServer(t, &hits, &body)
	cache := newMemoryCache()
	ctx := context.Background()

	replicaA := NewStore(StoreConfig{Source: srv.URL, TTL: time.Minute, Cache: cache})
	replicaB := NewStore(StoreConfig{Source: srv.URL, TTL: time.Minute, Cache: cache})

	if replicaA.Context(ctx).Count("en") != 2 || replicaB.Context(ctx).Count("en") != 2 {
		t.Fatal("replicas should see the same sheet")
	}
	if hits.Load() != 1 || cache.sets != 1 {
		t.Fatalf("expected a single shared fetch, got hits=%d sets=%d", hits.Load(), cache.sets)
	}

	if err := replicaA.Flush(ctx); err != nil {
		t.Fatalf("Flush err: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, srv.URL); ok {
		t.Fatal("flush should drop the shared entry")
	}
}

func TestStoreFlushForcesReload(t *testing.T) {
	var hits atomic.Int32
	var body atomic.Value
	body.Store(sheet)
	srv := newSheetServer(t, &hits, &body)

	store := NewStore(StoreConfig{Source: srv.URL, TTL: time.Hour})
	ctx := context.Background()

	store.Context(ctx)
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush err: %v", err)
	}
	if store.Context(ctx).Count("en") != 2 {
		t.Fatal("expected reloaded snapshot after flush")
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 fetches, got %d", hits.Load())
	}
}

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faq.csv")
	if err := os.WriteFile(path, []byte("question,answer\nA?,B\xff\n"), 0o644); err != nil {
		t.Fatalf("write sheet: %v", err)
	}
	fetcher := NewFetcher(nil)
	ctx := context.Background()

	for _, source := range []string{path, "file://" + path, `"` + path + `"`} {
		text, err := fetcher.Fetch(ctx, source)
		if err != nil {
			t.Fatalf("Fetch(%q) err: %v", source, err)
		}
		if text != "question,answer\nA?,B\uFFFD\n" {
			t.Fatalf("Fetch(%q) = %q", source, text)
		}
	}
}

func TestFetchErrors(t *testing.T) {
	fetcher := NewFetcher(nil)
	ctx := context.Background()

	if _, err := fetcher.Fetch(ctx, "ftp://example.com/faq.csv"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme, got %v", err)
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := fetcher.Fetch(ctx, srv.URL); err == nil {
		t.Fatal("expected error for 404 sheet")
	}

	if _, err := fetcher.Fetch(ctx, filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
