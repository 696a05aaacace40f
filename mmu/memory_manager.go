package mmu

import (
	"errors"
	"fmt"
)

// ErrUnknownPolicy is returned for a replacement policy name other than fifo or lru.
var ErrUnknownPolicy = errors.New("unknown page replacement policy")

// Policy is an interface for different page replacement implementations.
// Two are available: FIFO and LRU.
type Policy interface {

	// Victim returns the frame the next page goes to. A free frame is
	// always preferred. Frames rejected by avoid are skipped; avoid may be nil.
	Victim(ipt InvertedPageTable, avoid func(frame int) bool) int

	// Loaded tells the policy that frame got new content outside of Victim.
	Loaded(frame int)

	// Name returns the selector the policy answers to.
	Name() string
}

// NewPolicy returns the policy for name, which is matched exactly. recency is the per-frame
// last access stamp, read by LRU.
func NewPolicy(name string, recency []int) (Policy, error) {
	switch name {
	case "fifo":
		return NewFIFO(), nil
	case "lru":
		return NewLRU(recency), nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownPolicy)
}

// FIFO replaces frames in load order. The victim goes back to the tail of
// the queue, so frames are reused round robin.
type FIFO struct {
	queue  []int
	queued map[int]bool
}

// NewFIFO returns an empty FIFO policy
func NewFIFO() *FIFO {
	return &FIFO{queued: make(map[int]bool)}
}

// Name returns "fifo"
func (f *FIFO) Name() string { return "fifo" }

// Loaded appends frame to the queue unless it is queued already.
func (f *FIFO) Loaded(frame int) {
	if f.queued[frame] {
		return
	}
	f.queued[frame] = true
	f.queue = append(f.queue, frame)
}

// Victim returns a free frame or the queue head, which is requeued.
func (f *FIFO) Victim(ipt InvertedPageTable, avoid func(int) bool) int {
	if frame := ipt.FirstFree(avoid); frame >= 0 {
		f.Loaded(frame)
		return frame
	}
	for range f.queue {
		frame := f.queue[0]
		f.queue = append(f.queue[1:], frame)
		if !rejected(avoid, frame) {
			return frame
		}
	}
	return fallback(ipt)
}

// LRU replaces the frame with the oldest access stamp.
type LRU struct {
	recency []int
}

// NewLRU returns a policy reading the given recency stamps.
func NewLRU(recency []int) *LRU {
	return &LRU{recency: recency}
}

// Name returns "lru"
func (l *LRU) Name() string { return "lru" }

// Loaded is a no-op, the recency stamps carry all LRU needs.
func (l *LRU) Loaded(int) {}

// Victim returns a free frame or the least recently used one.
// Ties go to the lowest frame.
func (l *LRU) Victim(ipt InvertedPageTable, avoid func(int) bool) int {
	if frame := ipt.FirstFree(avoid); frame >= 0 {
		return frame
	}
	victim := -1
	for frame := range ipt {
		if rejected(avoid, frame) {
			continue
		}
		if victim < 0 || l.recency[frame] < l.recency[victim] {
			victim = frame
		}
	}
	if victim < 0 {
		return fallback(ipt)
	}
	return victim
}

// fallback ignores avoid. It only happens when every frame is rejected.
func fallback(ipt InvertedPageTable) int {
	if frame := ipt.FirstFree(nil); frame >= 0 {
		return frame
	}
	return 0
}
