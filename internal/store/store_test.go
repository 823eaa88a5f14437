package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen(t *testing.T) {
	st := openTest(t)

	// Verify tables exist by querying them
	var name string
	err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='analyses'").Scan(&name)
	if err != nil {
		t.Fatalf("analyses table not created: %v", err)
	}
	if name != "analyses" {
		t.Errorf("expected table name 'analyses', got %q", name)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	if err := st.Save(ctx, Record{Key: "k", Kind: "single", EntryID: "e", Language: "ko", Result: "{}"}); err != nil {
		t.Fatal(err)
	}
	st.Close()

	// Reopen and read back.
	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st.Close()
	if _, found, _ := st.Get(ctx, "k"); !found {
		t.Error("record should persist across reopen")
	}
}

func TestSaveAndGet(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := Record{
		Key:       "abc",
		Kind:      "compare",
		EntryID:   "https://example.com/a",
		OtherID:   "https://example.com/b",
		Language:  "ko",
		Model:     "gemini-2.5-flash",
		Result:    `{"core_difference":"x"}`,
		CreatedAt: created,
	}
	if err := st.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, found, err := st.Get(ctx, "abc")
	if err != nil || !found {
		t.Fatalf("Get = %v, %v", found, err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	got.CreatedAt = rec.CreatedAt
	if got != rec {
		t.Errorf("Get = %+v, want %+v", got, rec)
	}

	if _, found, err := st.Get(ctx, "missing"); found || err != nil {
		t.Errorf("missing key: found=%v err=%v", found, err)
	}
}

func TestSaveReplaces(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	st.Save(ctx, Record{Key: "k", Kind: "single", EntryID: "e", Language: "ko", Result: "old"})
	st.Save(ctx, Record{Key: "k", Kind: "single", EntryID: "e", Language: "ko", Result: "new"})

	got, _, _ := st.Get(ctx, "k")
	if got.Result != "new" {
		t.Errorf("expected replaced result, got %q", got.Result)
	}
	recent, _ := st.Recent(ctx, 10)
	if len(recent) != 1 {
		t.Errorf("expected 1 row after replace, got %d", len(recent))
	}
}

func TestSaveRejectsEmptyKey(t *testing.T) {
	st := openTest(t)
	if err := st.Save(context.Background(), Record{}); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		st.Save(ctx, Record{
			Key:       fmt.Sprintf("k%d", i),
			Kind:      "single",
			EntryID:   fmt.Sprintf("e%d", i),
			Language:  "en",
			Result:    "{}",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	recent, err := st.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}
	for i, want := range []string{"k4", "k3", "k2"} {
		if recent[i].Key != want {
			t.Errorf("recent[%d] = %s, want %s", i, recent[i].Key, want)
		}
	}
}

func TestForEntry(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	st.Save(ctx, Record{Key: "1", Kind: "single", EntryID: "a", Language: "ko", Result: "{}"})
	st.Save(ctx, Record{Key: "2", Kind: "compare", EntryID: "b", OtherID: "a", Language: "ko", Result: "{}"})
	st.Save(ctx, Record{Key: "3", Kind: "single", EntryID: "c", Language: "ko", Result: "{}"})

	got, err := st.ForEntry(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records mentioning a, got %d", len(got))
	}
}

func TestPruneBefore(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	st.Save(ctx, Record{Key: "old", Kind: "single", EntryID: "a", Language: "ko", Result: "{}", CreatedAt: cutoff.Add(-time.Hour)})
	st.Save(ctx, Record{Key: "new", Kind: "single", EntryID: "b", Language: "ko", Result: "{}", CreatedAt: cutoff.Add(time.Hour)})

	n, err := st.PruneBefore(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if _, found, _ := st.Get(ctx, "old"); found {
		t.Error("old record should be gone")
	}
	if _, found, _ := st.Get(ctx, "new"); !found {
		t.Error("new record should remain")
	}
}

func TestConcurrentSaves(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := st.Save(ctx, Record{Key: fmt.Sprintf("k%d", i), Kind: "single", EntryID: "e", Language: "en", Result: "{}"}); err != nil {
				t.Errorf("save %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	recent, _ := st.Recent(ctx, 100)
	if len(recent) != 20 {
		t.Errorf("expected 20 records, got %d", len(recent))
	}
}
