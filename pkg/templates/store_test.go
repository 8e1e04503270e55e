package templates

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(protocol.SchemaDDL); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return NewStore(db)
}

func TestStore_LookupPrefersWeightThenRecency(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SaveObserved(ctx, "CT CHEST WO", "observed-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveObserved(ctx, "CT CHEST WO", "observed-2"); err != nil {
		t.Fatal(err)
	}

	// Among equal weights the newest row wins.
	body, found, err := s.Lookup(ctx, "CT CHEST WO")
	if err != nil || !found {
		t.Fatalf("lookup: %v found=%v", err, found)
	}
	if body != "observed-2" {
		t.Fatalf("body = %q, want newest observed", body)
	}

	// A curated entry outranks any observed one regardless of age.
	if err := s.Save(ctx, "CT CHEST WO", "curated", WeightCurated); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveObserved(ctx, "CT CHEST WO", "observed-3"); err != nil {
		t.Fatal(err)
	}
	body, _, err = s.Lookup(ctx, "CT CHEST WO")
	if err != nil {
		t.Fatal(err)
	}
	if body != "curated" {
		t.Fatalf("body = %q, want curated", body)
	}
}

func TestStore_LookupMissingDescription(t *testing.T) {
	s := newTestStore(t)
	_, found, err := s.Lookup(context.Background(), "NO SUCH")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("missing description must report not found")
	}
}

func TestStore_SaveRejectsEmptyDescription(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(context.Background(), "", "body", WeightCurated); err == nil {
		t.Fatal("empty description must be rejected")
	}
}

func TestStore_ListOneRowPerDescription(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_ = s.SaveObserved(ctx, "CT CHEST WO", "a")
	_ = s.Save(ctx, "CT CHEST WO", "b", WeightCurated)
	_ = s.SaveObserved(ctx, "XR HAND", "c")

	all, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(all))
	}
	for _, tpl := range all {
		if tpl.Description == "CT CHEST WO" && tpl.Body != "b" {
			t.Fatalf("best row for CT CHEST WO = %q, want curated", tpl.Body)
		}
	}
}
