package testsrun

import (
	"testing"
	"time"
)

func TestRecordAndSummary(t *testing.T) {
	store := NewStore()
	store.Record("go test ./...", 0, 2*time.Second, "ok", "")
	store.Record("go test ./...", 1, time.Second, "", "FAIL")

	summary := store.Summary()
	if summary.TotalRuns != 2 || summary.Passed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.LastStatus != "failed" {
		t.Fatalf("expected last status failed, got %s", summary.LastStatus)
	}
}

func TestHistoryOrderingAndLimit(t *testing.T) {
	store := NewStore()
	store.Record("cmd1", 0, 0, "", "")
	store.Record("cmd2", 0, 0, "", "")
	store.Record("cmd3", 0, 0, "", "")

	history := store.History(2)
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Command != "cmd3" {
		t.Fatalf("expected most recent first, got %s", history[0].Command)
	}
}
