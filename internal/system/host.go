// Package system reports host identification for the agent info endpoint.
package system

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/host"
)

// HostInfo identifies the host the agent runs on.
type HostInfo struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	KernelArch    string `json:"kernel_arch"`
	UptimeHuman   string `json:"uptime_human"`
}

// GetHostInfo reads host identification via gopsutil.
func GetHostInfo() (*HostInfo, error) {
	info, err := host.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to get host info: %w", err)
	}

	return &HostInfo{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
		KernelArch:    info.KernelArch,
		UptimeHuman:   formatUptime(info.Uptime),
	}, nil
}

// formatUptime renders uptime seconds as "2d 3h 4m".
func formatUptime(seconds uint64) string {
	d := time.Duration(seconds) * time.Second

	days := d / (24 * time.Hour)
	hours := (d % (24 * time.Hour)) / time.Hour
	minutes := (d % time.Hour) / time.Minute

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
