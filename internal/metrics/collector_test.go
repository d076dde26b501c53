package metrics

import (
	"testing"
	"time"
)

func TestSnapshotEmpty(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot()

	if snap.Extract != nil || snap.StoreLoad != nil || snap.StoreSave != nil {
		t.Error("empty collector should yield nil operation snapshots")
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("uptime should be non-negative, got %f", snap.UptimeSeconds)
	}
}

func TestRecordTimingAggregates(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpStoreSave, 10*time.Millisecond)
	c.RecordTiming(OpStoreSave, 30*time.Millisecond)

	snap := c.Snapshot().StoreSave
	if snap == nil {
		t.Fatal("expected store save snapshot")
	}
	if snap.Count != 2 {
		t.Errorf("count = %d, want 2", snap.Count)
	}
	if snap.TotalTimeMs != 40 {
		t.Errorf("total = %dms, want 40", snap.TotalTimeMs)
	}
	if snap.MinTimeMs != 10 || snap.MaxTimeMs != 30 {
		t.Errorf("min/max = %d/%d, want 10/30", snap.MinTimeMs, snap.MaxTimeMs)
	}
	if snap.AvgTimeMs != 20 {
		t.Errorf("avg = %f, want 20", snap.AvgTimeMs)
	}
	if snap.TotalInputTokens != nil {
		t.Error("timing-only operations carry no token stats")
	}
}

func TestRecordExtractionTokens(t *testing.T) {
	c := NewCollector()
	c.RecordExtraction(100*time.Millisecond, 250, 80)
	c.RecordExtraction(200*time.Millisecond, 300, 120)

	snap := c.Snapshot().Extract
	if snap == nil {
		t.Fatal("expected extract snapshot")
	}
	if snap.Count != 2 {
		t.Errorf("count = %d, want 2", snap.Count)
	}
	if snap.TotalInputTokens == nil || *snap.TotalInputTokens != 550 {
		t.Errorf("input tokens = %v, want 550", snap.TotalInputTokens)
	}
	if snap.TotalOutputTokens == nil || *snap.TotalOutputTokens != 200 {
		t.Errorf("output tokens = %v, want 200", snap.TotalOutputTokens)
	}
}

func TestRecordExtractionWithoutUsage(t *testing.T) {
	c := NewCollector()
	c.RecordExtraction(50*time.Millisecond, 0, 0)

	snap := c.Snapshot().Extract
	if snap == nil {
		t.Fatal("expected extract snapshot")
	}
	if snap.TotalInputTokens != nil {
		t.Error("zero usage should omit token stats")
	}
}
