package resultcache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lectern/internal/resultcache"
	"lectern/internal/services"
	"lectern/internal/testsupport"
)

func newStore(t *testing.T, ttl time.Duration) *resultcache.Store {
	t.Helper()
	db := testsupport.MustOpenDB(t, testsupport.NewConfig(t))
	return resultcache.NewStore(db, ttl)
}

func TestLookupAfterStoreHits(t *testing.T) {
	store := newStore(t, 0)
	ctx := context.Background()

	if err := store.Store(ctx, "fp-1", `{"transcript":"hello"}`); err != nil {
		t.Fatalf("Store: %v", err)
	}
	entry, ok, err := store.Lookup(ctx, "fp-1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if entry.ResultPayload != `{"transcript":"hello"}` {
		t.Fatalf("unexpected payload %q", entry.ResultPayload)
	}
	if !entry.Active {
		t.Fatal("expected active entry")
	}
	if entry.ExpiresAt != nil {
		t.Fatal("zero ttl should not set expiry")
	}
}

func TestLookupMissesUnknownFingerprint(t *testing.T) {
	store := newStore(t, 0)

	_, ok, err := store.Lookup(context.Background(), "fp-missing")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestStoreConflictKeepsFirstWriter(t *testing.T) {
	store := newStore(t, 0)
	ctx := context.Background()

	if err := store.Store(ctx, "fp-dup", `{"winner":1}`); err != nil {
		t.Fatalf("Store: %v", err)
	}
	err := store.Store(ctx, "fp-dup", `{"winner":2}`)
	if !errors.Is(err, services.ErrCacheConflict) {
		t.Fatalf("expected cache conflict, got %v", err)
	}

	entry, ok, err := store.Lookup(ctx, "fp-dup")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if entry.ResultPayload != `{"winner":1}` {
		t.Fatalf("first writer should win, got %q", entry.ResultPayload)
	}
}

func TestConcurrentStoreProducesSingleRow(t *testing.T) {
	store := newStore(t, 0)
	ctx := context.Background()

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Store(ctx, "fp-race", `{"payload":true}`)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, services.ErrCacheConflict):
				conflicts++
			default:
				t.Errorf("Store: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one winning writer, got %d (conflicts %d)", succeeded, conflicts)
	}
	if conflicts != writers-1 {
		t.Fatalf("expected %d conflicts, got %d", writers-1, conflicts)
	}
}

func TestInvalidatedEntryMisses(t *testing.T) {
	store := newStore(t, 0)
	ctx := context.Background()

	if err := store.Store(ctx, "fp-gone", `{}`); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := store.Invalidate(ctx, "fp-gone"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	_, ok, err := store.Lookup(ctx, "fp-gone")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("invalidated entry should miss")
	}
}

func TestExpiredEntryMissesAndPrunes(t *testing.T) {
	store := newStore(t, time.Millisecond)
	ctx := context.Background()

	if err := store.Store(ctx, "fp-ttl", `{}`); err != nil {
		t.Fatalf("Store: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Lookup(ctx, "fp-ttl")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expired entry should miss")
	}

	pruned, err := store.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", pruned)
	}
}

func TestRecordAccessIncrementsCounter(t *testing.T) {
	store := newStore(t, 0)
	ctx := context.Background()

	if err := store.Store(ctx, "fp-hits", `{}`); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := store.RecordAccess(ctx, "fp-hits", resultcache.AccessCreate, "alice"); err != nil {
		t.Fatalf("RecordAccess create: %v", err)
	}
	if err := store.RecordAccess(ctx, "fp-hits", resultcache.AccessReuse, "bob"); err != nil {
		t.Fatalf("RecordAccess reuse: %v", err)
	}

	count, err := store.AccessCount(ctx, "fp-hits")
	if err != nil {
		t.Fatalf("AccessCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 accesses, got %d", count)
	}
}
