package services

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostResources returns current system resources, including free space on
// the volume holding the alert directory
func HostResources(alertDir string) map[string]interface{} {
	resources := make(map[string]interface{})

	// CPU
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		resources["cpuPercent"] = cpuPercent[0]
	}

	// Memory
	if memInfo, err := mem.VirtualMemory(); err == nil {
		resources["memoryTotal"] = memInfo.Total
		resources["memoryUsed"] = memInfo.Used
		resources["memoryPercent"] = memInfo.UsedPercent
	}

	// Alert volume
	if usage, err := disk.Usage(alertDir); err == nil {
		resources["diskTotal"] = usage.Total
		resources["diskFree"] = usage.Free
		resources["diskPercent"] = usage.UsedPercent
	}

	return resources
}
