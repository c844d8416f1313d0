package main

import "time"

// LabelCount is one flushed batch entry: a semantic event label and how many
// times it was pushed during the window.
type LabelCount struct {
	Label string `json:"label"`
	Count uint32 `json:"count"`
}

// batch coalesces bursts of identical semantic event labels before they are
// handed to telemetry. The window is fixed, not sliding: the first push after
// the batch is empty arms the flush deadline, and every later push in that
// window rides along.
//
// Single owner, single consumer: the batch lives inside DialState and is only
// touched by the reducer.
type batch struct {
	labels   []string
	deadline time.Time
}

// push appends a label, arming the flush deadline if the batch was empty.
func (b *batch) push(label string, now time.Time, window time.Duration) {
	if b.deadline.IsZero() {
		b.deadline = now.Add(window)
	}
	b.labels = append(b.labels, label)
}

// tryFlush returns the accumulated per-label counts if the deadline has
// elapsed, clearing the batch. It returns nil while the window is still open
// or the batch is empty. Counts preserve first-push order.
func (b *batch) tryFlush(now time.Time) []LabelCount {
	if b.deadline.IsZero() || now.Before(b.deadline) {
		return nil
	}

	counts := make([]LabelCount, 0, 2)
	index := make(map[string]int, 2)
	for _, label := range b.labels {
		if i, ok := index[label]; ok {
			counts[i].Count++
			continue
		}
		index[label] = len(counts)
		counts = append(counts, LabelCount{Label: label, Count: 1})
	}

	b.labels = nil
	b.deadline = time.Time{}
	return counts
}
