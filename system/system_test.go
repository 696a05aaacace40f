package system

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"vmos/machine"
	"vmos/pcb"
	"vmos/psw"
	"vmos/vm"
)

var _ = Describe("System running programs", func() {
	var (
		dir string
		m   *machine.Machine
		sys *System
		rec *recorder
	)

	boot := func(policy string, programs ...string) {
		m = machine.New()
		log := slog.New(slog.DiscardHandler)
		rec = &recorder{}
		var err error
		sys, err = New(m, vm.New(m, log), Options{Policy: policy, Log: log, Tracer: rec})
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.Boot(programs)).To(Succeed())
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should write the sum and the accounting", func() {
		prog := writeProgram(dir, "sum", `! add two numbers
loadi 0 5
loadi 1 3
add 0 1
write 0
halt
`, "")
		boot("fifo", prog)
		Expect(sys.Run()).To(Succeed())

		Expect(readOutput(dir, "sum")).To(Equal(`Output: 8
------Accounting Information------
CPU: 5
Waiting Time: 5
Turnaround: 37
I/O Time: 27
Largest Stack Size: 0
Page Faults: 0
Stack Faults: 0

System Time: 37
System CPU Utilization: 35.7143
User CPU Utilization: 11.9048
Throughput: 23.8095
Hit Ratio: 100
`))
		Expect(sys.Summary().HitRatio).To(BeNumerically("==", 100))
	})

	It("should share the processor round robin", func() {
		loop := `loadi 0 10
subi 0 1
compri 0 0
jumpg 1
halt
`
		var progs []string
		for _, name := range []string{"a", "b", "c"} {
			progs = append(progs, writeProgram(dir, name, loop, ""))
		}
		boot("lru", progs...)
		Expect(sys.Run()).To(Succeed())

		jobs := sys.Jobs()
		Expect(jobs).To(HaveLen(3))
		first, last := jobs[0].Turnaround, jobs[0].Turnaround
		for _, p := range jobs {
			Expect(p.State).To(Equal(pcb.Terminated))
			Expect(p.CPUTime).To(Equal(32))
			first = min(first, p.Turnaround)
			last = max(last, p.Turnaround)
		}
		Expect(last - first).To(BeNumerically("<=", len(jobs)*(vm.TimeSlice+SwitchOverhead)))
	})

	DescribeTable("should retry a call colliding with its own code",
		func(policy string) {
			prog := writeProgram(dir, "sub", `loadi 0 7
loadi 1 9
call 5
write 0
halt
write 1
return
`, "")
			m = machine.New()
			log := slog.New(slog.DiscardHandler)
			rec = &recorder{}
			var err error
			sys, err = New(m, vm.New(m, log), Options{Policy: policy, Log: log, Tracer: rec})
			Expect(err).NotTo(HaveOccurred())

			// leave the last frame as the only one free: the program
			// lands where its stack starts
			for f := 0; f < machine.Frames-1; f++ {
				sys.ipt.Reserve(f)
			}
			Expect(sys.Boot([]string{prog})).To(Succeed())
			Expect(sys.Jobs()[0].PageTable[0].Frame).To(Equal(machine.Frames - 1))

			Expect(sys.Run()).To(Succeed())

			collisions := rec.count(func(e Event) bool {
				return e.Kind == EventExit && e.Status.PageFault && e.Status.Reason == psw.StackOverflow
			})
			Expect(collisions).To(Equal(1))

			out := readOutput(dir, "sub")
			Expect(out).To(HavePrefix("Output: 9\nOutput: 7\n"))
			Expect(out).To(ContainSubstring("Largest Stack Size: 6\n"))
			Expect(out).To(ContainSubstring("Page Faults: 0\n"))
			Expect(out).To(ContainSubstring("Stack Faults: 1\n"))
		},
		Entry("fifo", "fifo"),
		Entry("lru", "lru"),
	)

	It("should write a modified page back to the object file", func() {
		// loadi 0 42, store 0 6, halt, then data
		obj := writeObject(dir, "poke", "298", "2310", "49152", " 17", "17", "17", "0", "0", "99")
		before, err := os.ReadFile(obj)
		Expect(err).NotTo(HaveOccurred())

		boot("fifo", obj)
		Expect(sys.Run()).To(Succeed())

		after, err := os.ReadFile(obj)
		Expect(err).NotTo(HaveOccurred())
		want := strings.Split(string(before), "\n")
		want[6] = "42"
		Expect(string(after)).To(Equal(strings.Join(want, "\n")))
	})

	It("should page in code past the first page", func() {
		src := strings.Repeat("noop\n", 9) + "write 0\nhalt\n"
		boot("lru", writeProgram(dir, "long", src, ""))
		Expect(sys.Run()).To(Succeed())

		p := sys.Jobs()[0]
		Expect(p.PageFaults).To(Equal(1))
		Expect(readOutput(dir, "long")).To(HavePrefix("Output: 0\n"))
		Expect(sys.Summary().HitRatio).To(BeNumerically("<", 100))
	})

	It("should suspend a program running into unused memory", func() {
		boot("fifo", writeObject(dir, "runaway", "51200"))
		Expect(sys.Run()).To(Succeed())

		p := sys.Jobs()[0]
		Expect(p.State).To(Equal(pcb.Suspended))
		Expect(readOutput(dir, "runaway")).To(BeEmpty())
		Expect(rec.count(func(e Event) bool { return e.Kind == EventSuspend })).To(Equal(1))
	})

	It("should admit waiting programs as others halt", func() {
		var progs []string
		for _, name := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"} {
			progs = append(progs, writeProgram(dir, name, "halt\n", ""))
		}
		boot("fifo", progs...)
		Expect(sys.Jobs()).To(HaveLen(Degree))

		Expect(sys.Run()).To(Succeed())
		Expect(sys.Jobs()).To(HaveLen(7))
		for i, p := range sys.Jobs() {
			Expect(p.ID).To(Equal(i + 1))
			Expect(p.State).To(Equal(pcb.Terminated))
			Expect(readOutput(dir, p.Name)).To(ContainSubstring("Hit Ratio: "))
		}
		Expect(sys.Summary().Completed).To(Equal(7))
		Expect(filepath.Join(dir, "p7.o")).To(BeAnExistingFile())
	})

	It("should admit waiting programs as others are suspended", func() {
		var progs []string
		for _, name := range []string{"bad1", "bad2", "bad3", "bad4", "bad5"} {
			progs = append(progs, writeObject(dir, name, "63488"))
		}
		progs = append(progs, writeProgram(dir, "good", "halt\n", ""))
		boot("fifo", progs...)
		Expect(sys.Jobs()).To(HaveLen(Degree))

		Expect(sys.Run()).To(Succeed())
		Expect(sys.Jobs()).To(HaveLen(6))
		for _, p := range sys.Jobs()[:5] {
			Expect(p.State).To(Equal(pcb.Suspended))
		}
		good := sys.Jobs()[5]
		Expect(good.Name).To(Equal("good"))
		Expect(good.State).To(Equal(pcb.Terminated))
		Expect(readOutput(dir, "good")).To(ContainSubstring("Hit Ratio: "))
		Expect(sys.Summary().Completed).To(Equal(1))
		Expect(rec.count(func(e Event) bool { return e.Kind == EventSuspend })).To(Equal(5))
	})
})
