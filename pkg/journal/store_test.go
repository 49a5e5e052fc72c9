package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hemoflow/hemoflow/pkg/blood"
)

func testBatch() []blood.TransactionRecord {
	return []blood.TransactionRecord{
		{
			Date:      time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
			City:      blood.Delhi,
			BloodType: blood.OPos,
			Kind:      blood.Donation,
			Units:     40,
			Weather:   "rainy",
			Urgency:   "low",
		},
		{
			Date:      time.Date(2025, time.February, 2, 0, 0, 0, 0, time.UTC),
			City:      blood.Mumbai,
			BloodType: blood.APos,
			Kind:      blood.Request,
			Units:     25,
			Urgency:   "high",
		},
	}
}

func TestAppendAndAll(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "realtime.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if err := store.Append(testBatch()); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	want := testBatch()
	if len(got) != len(want) {
		t.Fatalf("expected %d records got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d mismatch: wrote %+v read %+v", i, want[i], got[i])
		}
	}
}

func TestCountAccumulates(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "realtime.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	for round := 1; round <= 3; round++ {
		if err := store.Append(testBatch()); err != nil {
			t.Fatalf("append round %d: %v", round, err)
		}
		n, err := store.Count()
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != round*2 {
			t.Fatalf("after round %d expected %d rows got %d", round, round*2, n)
		}
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realtime.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Append(testBatch()); err != nil {
		t.Fatalf("append: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows after reopen got %d", n)
	}
}
