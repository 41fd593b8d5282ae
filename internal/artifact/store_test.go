package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"authorship/internal/logging"
)

type samplePayload struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "artifacts"), logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.statfs = func(string) (uint64, uint64, error) { return 1000, 250, nil }
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	payload := samplePayload{IDs: []string{"a", "b"}, Count: 2}

	if err := SaveJSON(ctx, store, "split", "abc123", KindSplit, payload); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	got, ok, err := LoadJSON[samplePayload](store, "split", "abc123", KindSplit)
	if err != nil || !ok {
		t.Fatalf("LoadJSON ok=%v err=%v", ok, err)
	}
	if got.Count != 2 || len(got.IDs) != 2 || got.IDs[1] != "b" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if !store.Has("split", "abc123") {
		t.Fatal("expected Has to report stored artifact")
	}
}

func TestLoadMissingIsNotAnError(t *testing.T) {
	store := newTestStore(t)
	env, ok, err := store.Load("vocabulary", "deadbeef")
	if err != nil {
		t.Fatalf("expected nil error for missing artifact, got %v", err)
	}
	if ok || env.Name != "" {
		t.Fatalf("expected missing artifact, got %+v", env)
	}
}

func TestLoadMismatchedEnvelopeReportsMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Save(ctx, "vocabulary", "aaaa", KindVocabulary, map[string]int{"x": 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(store.Path("vocabulary", "aaaa"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path("vocabulary", "bbbb"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := store.Load("vocabulary", "bbbb"); ok || err != nil {
		t.Fatalf("expected mismatched envelope to load as missing, ok=%v err=%v", ok, err)
	}
}

func TestCheckMatchesLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Save(ctx, "vocabulary", "aaaa", KindVocabulary, map[string]int{"x": 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(store.Path("vocabulary", "aaaa"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path("vocabulary", "bbbb"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path("vocabulary", "cccc"), data[:len(data)/2], 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		fingerprint string
		kind        Kind
		want        bool
		wantErr     bool
	}{
		{name: "stored", fingerprint: "aaaa", kind: KindVocabulary, want: true},
		{name: "wrong kind", fingerprint: "aaaa", kind: KindRanking},
		{name: "foreign envelope", fingerprint: "bbbb", kind: KindVocabulary},
		{name: "truncated", fingerprint: "cccc", kind: KindVocabulary, wantErr: true},
		{name: "absent", fingerprint: "dddd", kind: KindVocabulary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Check("vocabulary", tt.fingerprint, tt.kind)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Check = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadJSONRejectsWrongKind(t *testing.T) {
	store := newTestStore(t)
	if err := SaveJSON(context.Background(), store, "label-map", "f1", KindLabels, []string{"A"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadJSON[[]string](store, "label-map", "f1", KindRanking); err == nil {
		t.Fatal("expected kind mismatch error")
	}
}

func TestArchitectureQualifiedNamesCoexist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"model/baseline", "model/cnn"} {
		if err := SaveJSON(ctx, store, name, "same", KindModel, name); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	for _, name := range []string{"model/baseline", "model/cnn"} {
		got, ok, err := LoadJSON[string](store, name, "same", KindModel)
		if err != nil || !ok || got != name {
			t.Fatalf("load %s: got %q ok=%v err=%v", name, got, ok, err)
		}
	}
	if !strings.HasPrefix(store.Path("model/cnn", "same"), filepath.Join(store.Root(), "model", "cnn")) {
		t.Fatalf("unexpected path layout %s", store.Path("model/cnn", "same"))
	}
}

func TestSaveOverwritesIdempotently(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for range 3 {
		if err := SaveJSON(ctx, store, "ranking", "r1", KindRanking, []int{3, 1, 2}); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry after repeated saves, got %d", len(entries))
	}
}

func TestFingerprintChain(t *testing.T) {
	type params struct {
		Seed int64     `json:"seed"`
		P    []float64 `json:"p"`
	}
	base, err := Fingerprint(params{Seed: 7, P: []float64{0.5, 0.25, 0.25}}, "corpus-hash")
	if err != nil {
		t.Fatal(err)
	}
	same, _ := Fingerprint(params{Seed: 7, P: []float64{0.5, 0.25, 0.25}}, "corpus-hash")
	if base != same {
		t.Fatal("fingerprint is not deterministic")
	}
	seed, _ := Fingerprint(params{Seed: 8, P: []float64{0.5, 0.25, 0.25}}, "corpus-hash")
	upstream, _ := Fingerprint(params{Seed: 7, P: []float64{0.5, 0.25, 0.25}}, "other-hash")
	if seed == base || upstream == base {
		t.Fatal("expected parameter and upstream changes to alter the fingerprint")
	}
	swapped, _ := Fingerprint(nil, "a", "b")
	ordered, _ := Fingerprint(nil, "b", "a")
	if swapped == ordered {
		t.Fatal("expected upstream order to matter")
	}
	if len(base) != 64 || len(Short(base)) != 12 {
		t.Fatalf("unexpected fingerprint length %d", len(base))
	}
}

func TestPruneKeepsNewestPerName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	for _, fp := range []string{"old", "mid", "new"} {
		if err := SaveJSON(ctx, store, "vocabulary", fp, KindVocabulary, fp); err != nil {
			t.Fatal(err)
		}
		clock = clock.Add(time.Minute)
	}
	if err := SaveJSON(ctx, store, "label-map", "only", KindLabels, "x"); err != nil {
		t.Fatal(err)
	}

	result, err := store.Prune(ctx, 1, map[string]string{"vocabulary": "old"})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(result.Removed) != 1 || result.Removed[0].Fingerprint != "mid" {
		t.Fatalf("expected only mid removed, got %+v", result.Removed)
	}
	for _, fp := range []string{"old", "new"} {
		if !store.Has("vocabulary", fp) {
			t.Fatalf("expected %s retained", fp)
		}
	}
	if !store.Has("label-map", "only") {
		t.Fatal("expected unrelated artifact retained")
	}
	if _, err := store.Prune(ctx, 0, nil); err == nil {
		t.Fatal("expected error when keeping zero entries")
	}
}

func TestPruneRemovesStaleTempFiles(t *testing.T) {
	store := newTestStore(t)
	tmp := filepath.Join(store.Root(), "split", ".abc.json.123.tmp")
	if err := os.MkdirAll(filepath.Dir(tmp), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tmp, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(tmp, old, old); err != nil {
		t.Fatal(err)
	}
	result, err := store.Prune(context.Background(), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.TempFiles != 1 {
		t.Fatalf("expected one temp file removed, got %d", result.TempFiles)
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = SaveJSON(ctx, store, "split", "s1", KindSplit, []string{"a"})
	_ = SaveJSON(ctx, store, "metrics/baseline", "m1", KindMetrics, map[string]float64{"accuracy": 1})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 2 || stats.Names != 2 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.FreeRatio != 0.25 {
		t.Fatalf("unexpected free ratio %v", stats.FreeRatio)
	}
	if stats.ByKind[KindSplit] == 0 || stats.TotalBytes == 0 {
		t.Fatalf("expected byte accounting, got %+v", stats)
	}
}

func TestLockIsExclusive(t *testing.T) {
	store := newTestStore(t)
	unlock, err := store.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := store.Lock(); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	again, err := store.Lock()
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	_ = again()
}
