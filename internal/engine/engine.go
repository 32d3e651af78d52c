package engine

import (
	"os"

	"a11yminer/internal/config"
	"a11yminer/internal/output"
)

// ExitCode maps a run outcome to the process exit code:
// 0 = clean run, 2 = partial (some repositories errored), 3 = fatal.
func ExitCode(stats Stats, fatal bool) int {
	if fatal {
		return 3
	}
	if stats.Errored > 0 {
		return 2
	}
	return 0
}

// SetupOutputManager builds the event sinks selected by cfg.Output.
func SetupOutputManager(cfg *config.Config, runID string) (*output.Manager, error) {
	outMgr := output.NewManager(runID)

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, cfg.Runtime.Verbose)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(os.Stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Event log file
	if cfg.Output.Events != "" {
		fs, err := output.NewFileSink(cfg.Output.Events, "ndjson")
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// RecordSchema returns the CSV layout for a mining mode.
func RecordSchema(mode string) output.Schema {
	if mode == config.ModeNoTools {
		return output.NoToolSchema
	}
	return output.ToolUsageSchema
}
