package mmu

import "fmt"

// StackPID is the owner id of a frame reserved for a process stack.
// Process ids start at 1.
const StackPID = 0

// Owner identifies what occupies a physical frame.
type Owner struct {
	PID   int
	Page  int
	Valid bool
}

// InvertedPageTable is indexed by physical frame. It is the only place the
// OS looks to find whose page table must change on eviction.
type InvertedPageTable []Owner

// NewInvertedPageTable returns a table of free frames.
func NewInvertedPageTable(frames int) InvertedPageTable {
	return make(InvertedPageTable, frames)
}

// Assign records that page of process pid now lives in frame.
func (ipt InvertedPageTable) Assign(frame, pid, page int) {
	ipt[frame] = Owner{PID: pid, Page: page, Valid: true}
}

// Reserve marks frame as taken by a stack.
func (ipt InvertedPageTable) Reserve(frame int) {
	ipt[frame] = Owner{PID: StackPID, Valid: true}
}

// Release marks frame free.
func (ipt InvertedPageTable) Release(frame int) {
	ipt[frame] = Owner{}
}

// Reserved reports whether frame holds stack data.
func (ipt InvertedPageTable) Reserved(frame int) bool {
	return ipt[frame].Valid && ipt[frame].PID == StackPID
}

// Free reports whether nothing lives in frame.
func (ipt InvertedPageTable) Free(frame int) bool {
	return !ipt[frame].Valid
}

// FirstFree returns the lowest free frame not rejected by avoid, or -1.
func (ipt InvertedPageTable) FirstFree(avoid func(int) bool) int {
	for f := range ipt {
		if ipt.Free(f) && !rejected(avoid, f) {
			return f
		}
	}
	return -1
}

func (o Owner) String() string {
	switch {
	case !o.Valid:
		return "free"
	case o.PID == StackPID:
		return "stack"
	}
	return fmt.Sprintf("pid %d page %d", o.PID, o.Page)
}

func rejected(avoid func(int) bool, frame int) bool {
	return avoid != nil && avoid(frame)
}
