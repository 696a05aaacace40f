package system

import (
	"fmt"
	"strconv"

	"vmos/pcb"
)

// Summary holds the system wide figures written at shutdown.
type Summary struct {
	Clock      int
	Completed  int
	SystemTime int     // switch overhead plus idle time
	SystemCPU  float64 // percent of the clock not idle
	UserCPU    float64 // percent of the clock spent running programs
	Throughput float64 // completed programs per 1000 ticks
	HitRatio   float64 // percent of translations that hit
}

// Summary computes the system figures from the current state.
func (sys *System) Summary() Summary {
	r := Summary{
		Clock:      sys.m.Clock,
		Completed:  sys.completed,
		SystemTime: sys.contextTime + sys.idleTime,
	}

	userCPU, faults := 0, 0
	for _, p := range sys.jobs {
		userCPU += p.CPUTime
		faults += p.PageFaults
	}
	hits := sys.cpu.Hits()

	if clock := float64(r.Clock); clock > 0 {
		r.SystemCPU = (clock - float64(sys.idleTime)) / clock * 100
		r.UserCPU = float64(userCPU) / clock * 100
		r.Throughput = float64(r.Completed) / (clock / 1000)
	}
	if hits+faults > 0 {
		r.HitRatio = float64(hits) / float64(hits+faults) * 100
	}
	return r
}

// Lines renders the report the way it appears in output files.
func (r Summary) Lines() []string {
	return []string{
		fmt.Sprintf("System Time: %d", r.SystemTime),
		"System CPU Utilization: " + formatFloat(r.SystemCPU),
		"User CPU Utilization: " + formatFloat(r.UserCPU),
		"Throughput: " + formatFloat(r.Throughput),
		"Hit Ratio: " + formatFloat(r.HitRatio),
	}
}

// formatFloat prints six significant digits, without trailing zeros.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// shutdown appends the report to the output of every completed program and
// closes all process files.
func (sys *System) shutdown() error {
	report := sys.Summary()
	lines := report.Lines()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, p := range sys.jobs {
		if p.State == pcb.Terminated {
			for _, line := range lines {
				keep(p.TTY.Println(line))
			}
		}
		keep(p.TTY.Close())
	}

	sys.log.Info("shutdown", "clock", report.Clock, "completed", report.Completed, "hit ratio", report.HitRatio)
	for _, line := range lines {
		sys.console.WriteConsole(line)
	}
	return firstErr
}
