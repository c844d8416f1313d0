package main

import (
	"testing"
	"time"
)

// TestBatch_CoalescesLabels tests that repeated labels within one window
// flush as a single count in first-push order.
func TestBatch_CoalescesLabels(t *testing.T) {
	var b batch
	window := 250 * time.Millisecond
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	b.push("click", t0, window)
	b.push("click", t0.Add(50*time.Millisecond), window)
	b.push("hold", t0.Add(80*time.Millisecond), window)
	b.push("click", t0.Add(120*time.Millisecond), window)

	counts := b.tryFlush(t0.Add(window))
	if len(counts) != 2 {
		t.Fatalf("expected 2 entries, got %v", counts)
	}
	if counts[0].Label != "click" || counts[0].Count != 3 {
		t.Errorf("expected {click 3} first, got %v", counts[0])
	}
	if counts[1].Label != "hold" || counts[1].Count != 1 {
		t.Errorf("expected {hold 1} second, got %v", counts[1])
	}
}

// TestBatch_WindowIsFixed tests that the deadline is armed by the first push
// and not extended by later pushes.
func TestBatch_WindowIsFixed(t *testing.T) {
	var b batch
	window := 250 * time.Millisecond
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	b.push("click", t0, window)
	// A push just before the deadline must not push the deadline out.
	b.push("click", t0.Add(240*time.Millisecond), window)

	if counts := b.tryFlush(t0.Add(249 * time.Millisecond)); counts != nil {
		t.Errorf("expected no flush before deadline, got %v", counts)
	}
	counts := b.tryFlush(t0.Add(window))
	if len(counts) != 1 || counts[0].Count != 2 {
		t.Errorf("expected {click 2} at the original deadline, got %v", counts)
	}
}

// TestBatch_EmptyFlush tests that an empty batch never flushes.
func TestBatch_EmptyFlush(t *testing.T) {
	var b batch
	if counts := b.tryFlush(time.Now()); counts != nil {
		t.Errorf("expected nil from empty batch, got %v", counts)
	}
}

// TestBatch_RearmsAfterFlush tests that a flush fully resets the batch so the
// next push starts a fresh window.
func TestBatch_RearmsAfterFlush(t *testing.T) {
	var b batch
	window := 250 * time.Millisecond
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	b.push("click", t0, window)
	b.tryFlush(t0.Add(window))

	t1 := t0.Add(time.Second)
	b.push("click", t1, window)
	if counts := b.tryFlush(t1.Add(100 * time.Millisecond)); counts != nil {
		t.Errorf("expected fresh window after flush, got early flush %v", counts)
	}
	counts := b.tryFlush(t1.Add(window))
	if len(counts) != 1 || counts[0].Count != 1 {
		t.Errorf("expected {click 1} in second window, got %v", counts)
	}
}
