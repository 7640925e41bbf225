package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	big := make([]string, 2000)
	for i := range big {
		big[i] = "order-with-a-long-identifier"
	}
	rec := Record{Timestamp: time.Now(), Outcome: model.OutcomeCompleted, Unassigned: big}
	for i := 0; i < 40; i++ {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	files, _ := filepath.Glob(filepath.Join(dir, "runs*"))
	if len(files) < 2 {
		t.Fatalf("expected rotated files, got %v", files)
	}
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	dir := t.TempDir()
	store, err := NewRotatingJSONLStore(filepath.Join(dir, "nested", "runs.jsonl"), 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()

	empty, err := store.Query(context.Background(), Query{})
	if err != nil {
		t.Fatalf("query before first write: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no records")
	}

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	recs := []Record{
		{Timestamp: base, Outcome: model.OutcomeCompleted, ResultID: "r1"},
		{Timestamp: base.Add(time.Minute), Outcome: model.OutcomeInvalidInput, Error: "bad"},
		{Timestamp: base.Add(2 * time.Minute), Outcome: model.OutcomeCompleted, ResultID: "r2"},
	}
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	out, err := store.Query(context.Background(), Query{Outcome: model.OutcomeCompleted})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 || out[0].ResultID != "r1" || out[1].ResultID != "r2" {
		t.Fatalf("unexpected records %+v", out)
	}
	out, _ = store.Query(context.Background(), Query{Start: base.Add(30 * time.Second), End: base.Add(90 * time.Second)})
	if len(out) != 1 || out[0].Outcome != model.OutcomeInvalidInput {
		t.Fatalf("time filter failed: %+v", out)
	}
	out, _ = store.Query(context.Background(), Query{Limit: 1})
	if len(out) != 1 || out[0].ResultID != "r2" {
		t.Fatalf("limit should keep the latest record: %+v", out)
	}
}
