package machine

// hardware constants
const (
	MemSize       = 256
	FrameSize     = 8
	PageSize      = FrameSize
	RegisterCount = 4
	MaxPage       = 1023
	Frames        = MemSize / FrameSize

	// Unused marks a memory cell past the end of a program's last page.
	Unused = -1
)

// Machine is the hardware shared by all processes: physical memory, the
// per-frame recency stamps used by LRU, and the virtual clock.
// The scheduler owns it and lends it to the VM for the duration of a slice.
type Machine struct {
	Memory  [MemSize]int
	Recency [Frames]int
	Clock   int
}

// New returns a machine with every memory cell unused.
func New() *Machine {
	m := &Machine{}
	for i := range m.Memory {
		m.Memory[i] = Unused
	}
	return m
}

// LoadFrame copies words into frame, pads the rest with Unused
// and stamps the frame with the current clock.
func (m *Machine) LoadFrame(frame int, words []int) {
	base := frame * FrameSize
	for i := 0; i < FrameSize; i++ {
		if i < len(words) {
			m.Memory[base+i] = words[i]
		} else {
			m.Memory[base+i] = Unused
		}
	}
	m.Touch(frame)
}

// Frame returns a copy of the frame contents.
func (m *Machine) Frame(frame int) []int {
	words := make([]int, FrameSize)
	copy(words, m.Memory[frame*FrameSize:(frame+1)*FrameSize])
	return words
}

// Touch stamps frame with the current clock.
func (m *Machine) Touch(frame int) {
	m.Recency[frame] = m.Clock
}

// FrameOf returns the frame holding a physical address.
func FrameOf(address int) int {
	return address / FrameSize
}
