package queue

import (
	"context"
	"sync"
	"time"
)

const dayFormat = "2006-01-02"

// memoryAllocator issues ticket numbers from in-process counters keyed by
// dispensary and day. Suitable for single-instance deployments and tests;
// multi-instance deployments use the Redis-backed allocator.
type memoryAllocator struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewMemoryAllocator builds a process-local ticket number allocator.
func NewMemoryAllocator() NumberAllocator {
	return &memoryAllocator{counters: make(map[string]int)}
}

func (a *memoryAllocator) Next(_ context.Context, dispensaryID string, day time.Time) (int, error) {
	key := dispensaryID + ":" + day.Format(dayFormat)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[key]++
	return a.counters[key], nil
}

// SequenceKey renders the canonical dispensary-day counter key shared by
// allocator implementations.
func SequenceKey(dispensaryID string, day time.Time) string {
	return dispensaryID + ":" + day.Format(dayFormat)
}
