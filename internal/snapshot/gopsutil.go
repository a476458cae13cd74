package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// GopsutilSource reads the host process table via gopsutil and looks up
// window titles by shelling out to xdotool on X11 hosts.
type GopsutilSource struct {
	titleTimeout time.Duration
}

// NewGopsutilSource creates the default host snapshot source.
func NewGopsutilSource(titleTimeout time.Duration) *GopsutilSource {
	if titleTimeout <= 0 {
		titleTimeout = 750 * time.Millisecond
	}
	return &GopsutilSource{titleTimeout: titleTimeout}
}

// Processes returns the current host process table.
func (s *GopsutilSource) Processes(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Process exited between enumeration and inspection
			continue
		}

		cmdline, _ := p.CmdlineWithContext(ctx)
		cpuPercent, _ := p.CPUPercentWithContext(ctx)
		createTime, _ := p.CreateTimeWithContext(ctx)

		var memRSS uint64
		if memInfo, _ := p.MemoryInfoWithContext(ctx); memInfo != nil {
			memRSS = memInfo.RSS
		}

		infos = append(infos, ProcessInfo{
			PID:        strconv.FormatInt(int64(p.Pid), 10),
			Name:       name,
			Cmdline:    cmdline,
			StartTime:  time.UnixMilli(createTime),
			CPUPercent: cpuPercent,
			MemRSS:     memRSS,
		})
	}

	return infos, nil
}

// WindowTitle resolves the title of the first window owned by the process.
// A timeout or a missing window manager is reported via the sentinel errors
// so callers can treat both as "no new information".
func (s *GopsutilSource) WindowTitle(ctx context.Context, pid string) (string, bool, error) {
	if _, err := strconv.ParseInt(pid, 10, 32); err != nil {
		return "", false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.titleTimeout)
	defer cancel()

	// xdotool exits non-zero when the pid owns no window; that is a
	// normal "no title" result, not a failure.
	cmd := exec.CommandContext(ctx, "xdotool", "search", "--pid", pid, "getwindowname")

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", false, ErrLookupTimeout
	}
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			// xdotool not installed
			return "", false, ErrLookupUnavailable
		}
		return "", false, nil
	}

	title := firstLine(stdout.String())
	if title == "" {
		return "", false, nil
	}
	return title, true, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
