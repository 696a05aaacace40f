package system

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"vmos/asm"
	"vmos/machine"
	"vmos/mmu"
	"vmos/pcb"
	"vmos/psw"
	"vmos/vm"
)

const haltWord = "49152"

var _ = Describe("Scheduler", func() {
	var (
		mockCtrl *gomock.Controller
		cpu      *MockProcessor
		m        *machine.Machine
		sys      *System
		dir      string
	)

	// exit returns a Run implementation taking ticks and leaving with st.
	exit := func(ticks int, st psw.Status, edit func(ctx *vm.Context)) func(*vm.Context) psw.Status {
		return func(ctx *vm.Context) psw.Status {
			m.Clock += ticks
			if edit != nil {
				edit(ctx)
			}
			ctx.Status = st
			return st
		}
	}
	halt := psw.Status{}.Exit(psw.Halt)
	timeslice := psw.Status{}.Exit(psw.Timeslice)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		cpu = NewMockProcessor(mockCtrl)
		cpu.EXPECT().Hits().Return(10).AnyTimes()
		m = machine.New()
		dir = GinkgoT().TempDir()

		var err error
		sys, err = New(m, cpu, Options{Policy: "fifo"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should reject an unknown policy", func() {
		_, err := New(m, cpu, Options{Policy: "clock"})
		Expect(errors.Is(err, mmu.ErrUnknownPolicy)).To(BeTrue())
	})

	It("should refuse to boot with a missing program", func() {
		ok := writeObject(dir, "ok", haltWord)
		err := sys.Boot([]string{ok, dir + "/missing"})
		Expect(errors.Is(err, ErrMissingProgram)).To(BeTrue())
		Expect(sys.Jobs()).To(BeEmpty())
	})

	It("should refuse to boot with a program that does not assemble", func() {
		bad := writeProgram(dir, "bad", "loadi 7 1\n", "")
		err := sys.Boot([]string{bad})
		Expect(errors.Is(err, asm.ErrSyntax)).To(BeTrue())
		Expect(sys.Jobs()).To(BeEmpty())
	})

	It("should load the first page at admission", func() {
		Expect(sys.Boot([]string{writeObject(dir, "a", haltWord), writeObject(dir, "b", haltWord)})).To(Succeed())

		frames := sys.Frames()
		Expect(frames[0]).To(Equal(mmu.Owner{PID: 1, Page: 0, Valid: true}))
		Expect(frames[1]).To(Equal(mmu.Owner{PID: 2, Page: 0, Valid: true}))
		Expect(m.Memory[0]).To(Equal(49152))
		Expect(m.Memory[1]).To(Equal(machine.Unused))
		for _, p := range sys.Jobs() {
			Expect(p.PageFaults).To(BeZero())
			Expect(p.State).To(Equal(pcb.Ready))
		}
	})

	It("should requeue at the end of a slice", func() {
		Expect(sys.Boot([]string{writeObject(dir, "a", haltWord), writeObject(dir, "b", haltWord)})).To(Succeed())

		var order []int
		runs := map[int]int{}
		cpu.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx *vm.Context) psw.Status {
			order = append(order, ctx.PID)
			runs[ctx.PID]++
			if runs[ctx.PID] == 1 {
				return exit(vm.TimeSlice, timeslice, nil)(ctx)
			}
			return exit(vm.TimeSlice, halt, nil)(ctx)
		}).Times(4)

		Expect(sys.Run()).To(Succeed())
		Expect(order).To(Equal([]int{1, 2, 1, 2}))

		a, b := sys.Jobs()[0], sys.Jobs()[1]
		Expect(a.CPUTime).To(Equal(30))
		Expect(b.CPUTime).To(Equal(30))
		Expect(a.WaitTime).To(Equal(25))
		Expect(b.WaitTime).To(Equal(45))
		Expect(a.Turnaround).To(Equal(55))
		Expect(b.Turnaround).To(Equal(75))
		Expect(sys.Clock()).To(Equal(80))
	})

	It("should page in the pending data address", func() {
		words := make([]string, 16)
		for i := range words {
			words[i] = haltWord
		}
		Expect(sys.Boot([]string{writeObject(dir, "a", words...)})).To(Succeed())

		var tlb mmu.PageTable
		gomock.InOrder(
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(3, psw.Status{}.Fault(psw.Timeslice), func(ctx *vm.Context) {
				ctx.PC = 2
				ctx.PendingAddress = 9
			})),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx *vm.Context) psw.Status {
				tlb = ctx.PageTable.Clone()
				Expect(ctx.PC).To(Equal(2))
				return exit(1, halt, nil)(ctx)
			}),
		)

		Expect(sys.Run()).To(Succeed())

		p := sys.Jobs()[0]
		Expect(tlb[1].Valid).To(BeTrue())
		Expect(tlb[1].Frame).To(Equal(1))
		Expect(p.PageFaults).To(Equal(1))
		Expect(p.IOTime).To(BeZero())
		Expect(p.PendingAddress).To(Equal(vm.NoAddress))
		// 3 ticks, 35 waiting for the page, 5 for the switch, 1 for halt
		Expect(p.Turnaround).To(Equal(44))
	})

	It("should stamp a paged in frame with the clock of the fault", func() {
		words := make([]string, 16)
		for i := range words {
			words[i] = haltWord
		}
		Expect(sys.Boot([]string{writeObject(dir, "a", words...)})).To(Succeed())
		Expect(m.Recency[0]).To(BeZero())

		gomock.InOrder(
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(3, psw.Status{}.Fault(psw.Timeslice), func(ctx *vm.Context) {
				ctx.PC = 9
			})),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx *vm.Context) psw.Status {
				Expect(ctx.PageTable[1].Frame).To(Equal(1))
				Expect(m.Recency[1]).To(Equal(3))
				Expect(m.Clock).To(BeNumerically(">", 3))
				return exit(1, halt, nil)(ctx)
			}),
		)

		Expect(sys.Run()).To(Succeed())
	})

	It("should suspend a program with a fault past its page table", func() {
		Expect(sys.Boot([]string{writeObject(dir, "a", haltWord)})).To(Succeed())
		cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(4, psw.Status{}.Fault(psw.Timeslice), func(ctx *vm.Context) {
			ctx.PendingAddress = 200
		}))

		Expect(sys.Run()).To(Succeed())
		Expect(sys.Jobs()[0].State).To(Equal(pcb.Suspended))
		Expect(sys.Jobs()[0].PageFaults).To(BeZero())
	})

	DescribeTable("should suspend on fatal exits",
		func(reason psw.ExitReason) {
			Expect(sys.Boot([]string{writeObject(dir, "a", haltWord)})).To(Succeed())
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(2, psw.Status{}.Exit(reason), nil))

			Expect(sys.Run()).To(Succeed())

			p := sys.Jobs()[0]
			Expect(p.State).To(Equal(pcb.Suspended))
			Expect(readOutput(dir, "a")).To(BeEmpty())
			Expect(sys.Frames().Free(0)).To(BeTrue())
			Expect(sys.Summary().Completed).To(BeZero())
		},
		Entry("stack overflow", psw.StackOverflow),
		Entry("stack underflow", psw.StackUnderflow),
		Entry("out of bounds", psw.OutOfBounds),
		Entry("invalid opcode", psw.InvalidOpcode),
	)

	It("should read input into the requested register", func() {
		writeProgram(dir, "a", "halt\n", "7\n")
		Expect(sys.Boot([]string{writeObject(dir, "a", haltWord)})).To(Succeed())

		var regs [machine.RegisterCount]uint16
		gomock.InOrder(
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(1, psw.Status{}.IO(psw.Read, 2), nil)),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(1, psw.Status{}.IO(psw.Read, 3), func(ctx *vm.Context) {
				ctx.Registers[3] = 5
			})),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx *vm.Context) psw.Status {
				regs = ctx.Registers
				return exit(1, halt, nil)(ctx)
			}),
		)

		Expect(sys.Run()).To(Succeed())
		Expect(regs[2]).To(Equal(uint16(7)))
		Expect(regs[3]).To(Equal(uint16(5)), "exhausted input leaves the register alone")
		Expect(sys.Jobs()[0].IOTime).To(Equal(2 * IOLatency))
	})

	It("should write a register sign extended", func() {
		Expect(sys.Boot([]string{writeObject(dir, "a", haltWord)})).To(Succeed())
		gomock.InOrder(
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(1, psw.Status{}.IO(psw.Write, 1), func(ctx *vm.Context) {
				ctx.Registers[1] = 0xfffe
			})),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(1, halt, nil)),
		)

		Expect(sys.Run()).To(Succeed())
		Expect(readOutput(dir, "a")).To(HavePrefix("Output: -2\n------Accounting Information------\n"))
	})

	It("should idle until the earliest wait ends", func() {
		Expect(sys.Boot([]string{writeObject(dir, "a", haltWord), writeObject(dir, "b", haltWord)})).To(Succeed())
		gomock.InOrder(
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(10, psw.Status{}.IO(psw.Write, 0), nil)),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(1, psw.Status{}.Fault(psw.Timeslice), nil)),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx *vm.Context) psw.Status {
				Expect(ctx.PID).To(Equal(1))
				return exit(1, halt, nil)(ctx)
			}),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(1, halt, nil)),
		)

		Expect(sys.Run()).To(Succeed())

		a, b := sys.Jobs()[0], sys.Jobs()[1]
		Expect(a.IOTime).To(Equal(IOLatency))
		Expect(b.IOTime).To(BeZero())
		Expect(b.WaitTime).To(Equal(20))
		Expect(sys.Clock()).To(Equal(62))
		// four switches and 29 idle ticks
		Expect(sys.Summary().SystemTime).To(Equal(4*SwitchOverhead + 29))
	})

	It("should take stack frames from other processes on a switch", func() {
		for f := 0; f < machine.Frames-2; f++ {
			sys.ipt.Reserve(f)
		}
		Expect(sys.Boot([]string{writeObject(dir, "a", haltWord), writeObject(dir, "b", haltWord)})).To(Succeed())
		Expect(sys.Jobs()[1].PageTable[0].Frame).To(Equal(machine.Frames - 1))

		var bMapped bool
		gomock.InOrder(
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(vm.TimeSlice, timeslice, func(ctx *vm.Context) {
				ctx.StackPointer = machine.MemSize - vm.CallFrame
			})),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx *vm.Context) psw.Status {
				bMapped = ctx.PageTable[0].Valid
				return exit(1, halt, nil)(ctx)
			}),
			cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(1, halt, func(ctx *vm.Context) {
				Expect(ctx.StackPointer).To(Equal(machine.MemSize - vm.CallFrame))
			})),
		)

		Expect(sys.Run()).To(Succeed())
		Expect(bMapped).To(BeFalse())
		Expect(sys.Frames().Reserved(machine.Frames - 1)).To(BeTrue())
		Expect(sys.Jobs()[0].LargestStack).To(Equal(vm.CallFrame))
	})

	It("should report every step to the tracer", func() {
		tracer := NewMockTracer(mockCtrl)
		var kinds []EventKind
		tracer.EXPECT().Trace(gomock.Any()).Do(func(e Event) {
			kinds = append(kinds, e.Kind)
		}).AnyTimes()

		var err error
		sys, err = New(m, cpu, Options{Policy: "lru", Tracer: tracer})
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.Boot([]string{writeObject(dir, "a", haltWord)})).To(Succeed())
		cpu.EXPECT().Run(gomock.Any()).DoAndReturn(exit(1, halt, nil))

		Expect(sys.Run()).To(Succeed())
		Expect(kinds).To(Equal([]EventKind{EventPageIn, EventAdmit, EventDispatch, EventExit, EventHalt}))
	})
})
