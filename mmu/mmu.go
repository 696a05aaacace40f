package mmu

import (
	"errors"
	"fmt"

	"vmos/machine"
)

// ErrPageOutOfRange is returned for a page past the end of a process' page table.
var ErrPageOutOfRange = errors.New("page out of range")

// Fault is the translation result of an unmapped logical address.
const Fault = -1

// Entry maps one logical page.
type Entry struct {
	Frame    int
	Valid    bool
	Modified bool
}

// PageTable maps a process' logical pages to physical frames.
// The VM runs on a copy of it (the TLB), installed before every slice.
type PageTable []Entry

// NewPageTable returns a table large enough for an object file of the given
// number of lines. All entries start invalid.
func NewPageTable(lines int) PageTable {
	pages := (lines + machine.PageSize - 1) / machine.PageSize
	if pages > machine.MaxPage+1 {
		pages = machine.MaxPage + 1
	}
	return make(PageTable, pages)
}

// PageOf returns the logical page holding a logical address.
func PageOf(logical int) int {
	return logical / machine.PageSize
}

// Check returns ErrPageOutOfRange when page is not part of the table.
func (pt PageTable) Check(page int) error {
	if page < 0 || page >= len(pt) {
		return fmt.Errorf("page %d of %d: %w", page, len(pt), ErrPageOutOfRange)
	}
	return nil
}

// Translate maps a logical address to a physical one. It returns (Fault, false)
// for an invalid or out of range page, regardless of the offset.
func (pt PageTable) Translate(logical int) (int, bool) {
	page := PageOf(logical)
	if logical < 0 || page >= len(pt) || !pt[page].Valid {
		return Fault, false
	}
	return pt[page].Frame*machine.FrameSize + logical%machine.PageSize, true
}

// Map marks page resident in frame. The page starts clean.
func (pt PageTable) Map(page, frame int) {
	pt[page] = Entry{Frame: frame, Valid: true}
}

// Invalidate drops the mapping of page.
func (pt PageTable) Invalidate(page int) {
	pt[page] = Entry{}
}

// MarkModified flags page as dirty.
func (pt PageTable) MarkModified(page int) {
	pt[page].Modified = true
}

// Clone returns an independent copy of the table.
func (pt PageTable) Clone() PageTable {
	c := make(PageTable, len(pt))
	copy(c, pt)
	return c
}

// Resident returns the pages currently mapped to a frame, in page order.
func (pt PageTable) Resident() []int {
	var pages []int
	for p, e := range pt {
		if e.Valid {
			pages = append(pages, p)
		}
	}
	return pages
}
