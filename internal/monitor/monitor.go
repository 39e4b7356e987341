// Package monitor follows an externally launched process (a solver started
// by a wrapper script that records its PID to a file) and reports its
// resource usage as run metrics until the process exits.
package monitor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/alahiff/simtrack-client/simtrack"
)

const (
	// DefaultInterval is how often the watched process is sampled.
	DefaultInterval = 10 * time.Second

	pidPollInterval = time.Second

	// clockTicksPerSecond is USER_HZ, the unit of the utime/stime fields
	// in /proc/<pid>/stat.
	clockTicksPerSecond = 100
)

// Monitor polls the process identified by a PID file and logs CPU and
// memory metrics through a Run.
type Monitor struct {
	PIDFile  string
	Interval time.Duration

	// WaitTimeout bounds how long to wait for the PID file to appear.
	// Zero means wait until the context is cancelled.
	WaitTimeout time.Duration

	Log zerolog.Logger
}

// Watch blocks until the watched process exits or ctx is cancelled. On a
// clean exit it logs a final event and closes the run as completed.
func (m *Monitor) Watch(ctx context.Context, run *simtrack.Run) error {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	pid, err := m.waitForPID(ctx)
	if err != nil {
		return err
	}
	m.Log.Info().Int("pid", pid).Str("run", run.ID()).Msg("monitoring process")

	var cpu cpuSampler
	if ticks, err := cpuTicks(pid); err == nil {
		cpu.sample(ticks, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !alive(pid) {
				if err := run.LogEvent(ctx, fmt.Sprintf("process %d exited", pid)); err != nil {
					m.Log.Warn().Err(err).Msg("logging exit event failed")
				}
				return run.Close(ctx)
			}

			values := map[string]float64{}
			if ticks, err := cpuTicks(pid); err == nil {
				if percent, ok := cpu.sample(ticks, interval); ok {
					values["resources/cpu.percent"] = percent
				}
			}
			if rss, err := residentMemory(pid); err == nil {
				values["resources/memory.rss"] = float64(rss)
			}

			if err := run.Log(ctx, values); err != nil {
				m.Log.Warn().Err(err).Msg("logging resource metrics failed")
			}
		}
	}
}

// cpuSampler converts cumulative CPU tick readings into per-interval
// percentages. The first reading only establishes the baseline; a reading
// below the baseline (the PID was reused) re-establishes it instead of
// producing a bogus sample.
type cpuSampler struct {
	previous uint64
	ready    bool
}

func (s *cpuSampler) sample(ticks uint64, interval time.Duration) (float64, bool) {
	previous, ready := s.previous, s.ready
	s.previous, s.ready = ticks, true
	if !ready || ticks < previous {
		return 0, false
	}
	return float64(ticks-previous) / clockTicksPerSecond / interval.Seconds() * 100, true
}

// waitForPID polls for the PID file until it appears and parses.
func (m *Monitor) waitForPID(ctx context.Context) (int, error) {
	deadline := time.Time{}
	if m.WaitTimeout > 0 {
		deadline = time.Now().Add(m.WaitTimeout)
	}

	ticker := time.NewTicker(pidPollInterval)
	defer ticker.Stop()

	for {
		if pid, err := ReadPIDFile(m.PIDFile); err == nil {
			return pid, nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return 0, fmt.Errorf("pid file %s did not appear within %s", m.PIDFile, m.WaitTimeout)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ReadPIDFile parses a PID from the first token of the file.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("pid file %s is empty", path)
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s: invalid pid %q", path, fields[0])
	}
	return pid, nil
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// cpuTicks returns the cumulative user+system CPU time of the process in
// clock ticks, read from /proc/<pid>/stat.
func cpuTicks(pid int) (uint64, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, err
	}
	return parseStatTicks(string(data))
}

// parseStatTicks extracts utime+stime (fields 14 and 15). The comm field
// may contain spaces, so fields are counted from the closing parenthesis.
func parseStatTicks(stat string) (uint64, error) {
	idx := strings.LastIndexByte(stat, ')')
	if idx < 0 {
		return 0, fmt.Errorf("malformed stat line")
	}
	fields := strings.Fields(stat[idx+1:])
	// fields[0] is state (field 3); utime and stime are fields 14 and 15.
	if len(fields) < 13 {
		return 0, fmt.Errorf("malformed stat line: %d fields", len(fields))
	}
	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing utime: %w", err)
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing stime: %w", err)
	}
	return utime + stime, nil
}

// residentMemory returns the RSS of the process in bytes, read from
// /proc/<pid>/status.
func residentMemory(pid int) (int64, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0, err
	}
	return parseVmRSS(string(data))
}

func parseVmRSS(status string) (int64, error) {
	for _, line := range strings.Split(status, "\n") {
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing VmRSS: %w", err)
		}
		return kb * 1024, nil
	}
	return 0, fmt.Errorf("VmRSS not found")
}
