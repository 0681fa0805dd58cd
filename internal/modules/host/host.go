package host

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"vmctl/internal/core"
)

// Capacity ресурсы узла, которые можно отдать ВМ.
type Capacity struct {
	LogicalCPUs int    `json:"logical_cpus"`
	MemTotal    uint64 `json:"mem_total"`
}

// Module предоставляет базовые метрики узла.
type Module struct{}

func (m *Module) Name() string { return "host" }

func (m *Module) Init(ctx context.Context) error { //nolint:revive // инициализация пока тривиальна
	return nil
}

func (m *Module) Execute(ctx context.Context, cmd string, args []string) (core.Response, error) {
	switch cmd {
	case "status":
		return m.status(ctx)
	case "capacity":
		c, err := m.Capacity(ctx)
		if err != nil {
			return core.Failed("capacity_failed"), err
		}
		return core.OK(c), nil
	default:
		return core.Failed("unknown_command"), fmt.Errorf("command %s not supported", cmd)
	}
}

// Capacity возвращает число логических CPU и объем памяти узла.
func (m *Module) Capacity(ctx context.Context) (Capacity, error) {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return Capacity{}, fmt.Errorf("cpu counts: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Capacity{}, fmt.Errorf("memory info: %w", err)
	}
	return Capacity{LogicalCPUs: n, MemTotal: vm.Total}, nil
}

func (m *Module) status(ctx context.Context) (core.Response, error) {
	hInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return core.Failed("host_info_failed"), fmt.Errorf("host info: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return core.Failed("mem_info_failed"), fmt.Errorf("memory info: %w", err)
	}
	ld, err := load.AvgWithContext(ctx)
	if err != nil {
		return core.Failed("load_info_failed"), fmt.Errorf("load info: %w", err)
	}
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return core.Failed("cpu_info_failed"), fmt.Errorf("cpu counts: %w", err)
	}
	resp := map[string]interface{}{
		"hostname":     hInfo.Hostname,
		"platform":     hInfo.Platform,
		"platformVer":  hInfo.PlatformVersion,
		"kernel":       hInfo.KernelVersion,
		"uptime_sec":   hInfo.Uptime,
		"boot_time":    time.Unix(int64(hInfo.BootTime), 0).UTC().Format(time.RFC3339),
		"logical_cpus": cpus,
		"mem_total":    humanize.IBytes(vm.Total),
		"mem_used":     humanize.IBytes(vm.Used),
		"mem_used_pct": vm.UsedPercent,
		"load1":        ld.Load1,
		"load5":        ld.Load5,
		"load15":       ld.Load15,
	}
	return core.OK(resp), nil
}
