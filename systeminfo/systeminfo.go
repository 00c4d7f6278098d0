// Package systeminfo captures a snapshot of the host that produced or
// analyzed an rsync run, for inclusion in exported reports.
package systeminfo

import (
	"github.com/shirou/gopsutil/v4/host"
)

type SystemInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_seconds"`
}

// Collect gathers the host snapshot. Errors bubble up so the caller can
// degrade to a report without host facts.
func Collect() (*SystemInfo, error) {
	info, err := host.Info()
	if err != nil {
		return nil, err
	}
	return &SystemInfo{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		UptimeSeconds:   info.Uptime,
	}, nil
}
