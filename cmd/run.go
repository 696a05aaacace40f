package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"vmos/config"
	"vmos/console"
	"vmos/logger"
	"vmos/machine"
	"vmos/system"
	"vmos/trace"
	"vmos/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [program ...]",
	Short: "Run programs to completion.",
	Long: "`run a b.s c.o` admits the programs in order, assembling sources, " +
		"and runs them until every one has halted or been suspended. " +
		"Each program's output and accounting go to its .out file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runConfig(cmd, args)
		if err != nil {
			return err
		}
		paths, err := c.ProgramPaths()
		if err != nil {
			return err
		}

		log, closer, err := runLogger(c)
		if err != nil {
			return err
		}
		defer closer.Close()

		var tracers system.Tracers
		if c.TraceDB != "" {
			w := trace.NewSQLiteWriter(c.TraceDB)
			if err := w.Init(); err != nil {
				return err
			}
			defer w.Close()
			log.Info("tracing", "db", w.Path(), "run", w.RunID())
			tracers = append(tracers, w)
		}

		if c.TUI {
			return monitor(c, paths, log, tracers)
		}
		_, err = simulate(c, paths, log, console.NewSimple(cmd.OutOrStdout()), tracers)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	f := runCmd.Flags()
	f.StringSlice("env", nil, "`.env` files with defaults (default ./.env)")
	f.String("policy", "", "page replacement, fifo or lru (default $"+config.EnvPolicy+" or fifo)")
	f.String("log-level", "", "debug, info, warn or error (default $"+config.EnvLogLevel+" or info)")
	f.String("log-file", "", "append the log to this file (default $"+config.EnvLogFile+" or stdout)")
	f.String("trace-db", "", "write every scheduling event to this SQLite database (default $"+config.EnvTraceDB+")")
	f.StringP("list", "l", "", "file naming one program per line")
	f.StringP("dir", "d", "", "run every program of this directory")
	f.Bool("tui", false, "show the terminal monitor")
	f.Duration("delay", 0, "pause after every slice, monitor only")
}

// runConfig merges the environment with the flags of cmd.
func runConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	f := cmd.Flags()
	envFiles, _ := f.GetStringSlice("env")
	c, err := config.Load(envFiles...)
	if err != nil {
		return c, err
	}

	override := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	override("policy", &c.Policy)
	override("log-level", &c.LogLevel)
	override("log-file", &c.LogFile)
	override("trace-db", &c.TraceDB)
	override("list", &c.ProgramList)
	override("dir", &c.Dir)
	c.TUI, _ = f.GetBool("tui")
	c.Delay, _ = f.GetDuration("delay")
	c.Programs = args

	return c, c.Validate()
}

// runLogger builds the logger of a run. The monitor owns the terminal,
// so without a log file it logs nothing.
func runLogger(c config.Config) (*slog.Logger, io.Closer, error) {
	if c.TUI && c.LogFile == "" {
		if _, err := logger.ParseLevel(c.LogLevel); err != nil {
			return nil, nil, err
		}
		return slog.New(slog.DiscardHandler), io.NopCloser(nil), nil
	}
	return logger.New(c.LogFile, c.LogLevel)
}

// simulate boots the programs on a fresh machine and runs them.
func simulate(c config.Config, paths []string, log *slog.Logger, con console.Console, tracer system.Tracer) (system.Summary, error) {
	m := machine.New()
	sys, err := system.New(m, vm.New(m, log), system.Options{
		Policy:  c.Policy,
		Log:     log,
		Console: con,
		Tracer:  tracer,
	})
	if err != nil {
		return system.Summary{}, err
	}

	start := time.Now()
	if err := sys.Boot(paths); err != nil {
		return system.Summary{}, fmt.Errorf("boot: %w", err)
	}
	if err := sys.Run(); err != nil {
		return system.Summary{}, err
	}
	log.Debug("run finished", "elapsed", time.Since(start), "clock", sys.Clock())
	return sys.Summary(), nil
}
