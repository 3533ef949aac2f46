// Package sysres inspects host CPU and memory to recommend and
// validate engine settings.
package sysres

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Validation bounds.
const (
	minHashMB     = 16
	maxHashMB     = 8192
	minDepth      = 1
	maxDepth      = 50
	minMoveTimeMS = 100
	maxMoveTimeMS = 60000

	recommendHashFraction = 0.15
	recommendHashMinMB    = 128
	recommendHashMaxMB    = 2048
)

// Resources describes the host and the engine settings it suggests.
type Resources struct {
	LogicalCores       int     `json:"logical_cores"`
	PhysicalCores      int     `json:"physical_cores"`
	TotalMemoryMB      uint64  `json:"total_memory_mb"`
	AvailableMemoryMB  uint64  `json:"available_memory_mb"`
	MemoryUsedPercent  float64 `json:"memory_used_percent"`
	RecommendedThreads int     `json:"recommended_threads"`
	RecommendedHashMB  int     `json:"recommended_hash_mb"`
}

// hostLimits is the probe seam; tests swap it for a fixed host.
type hostLimits struct {
	logicalCores      int
	physicalCores     int
	totalMB           uint64
	availableMB       uint64
	memoryUsedPercent float64
}

func probeHost() (hostLimits, error) {
	logical, err := cpu.Counts(true)
	if err != nil {
		return hostLimits{}, fmt.Errorf("count cpus: %w", err)
	}
	physical, err := cpu.Counts(false)
	if err != nil || physical < 1 {
		physical = logical
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return hostLimits{}, fmt.Errorf("read memory: %w", err)
	}
	return hostLimits{
		logicalCores:      logical,
		physicalCores:     physical,
		totalMB:           vm.Total / (1 << 20),
		availableMB:       vm.Available / (1 << 20),
		memoryUsedPercent: vm.UsedPercent,
	}, nil
}

// Probe reads the host and returns it with setting recommendations.
func Probe() (*Resources, error) {
	h, err := probeHost()
	if err != nil {
		return nil, err
	}
	return resourcesFrom(h), nil
}

func resourcesFrom(h hostLimits) *Resources {
	threads := h.logicalCores - 2
	if threads < 1 {
		threads = 1
	}
	hash := int(float64(h.availableMB) * recommendHashFraction)
	if hash < recommendHashMinMB {
		hash = recommendHashMinMB
	}
	if hash > recommendHashMaxMB {
		hash = recommendHashMaxMB
	}
	return &Resources{
		LogicalCores:       h.logicalCores,
		PhysicalCores:      h.physicalCores,
		TotalMemoryMB:      h.totalMB,
		AvailableMemoryMB:  h.availableMB,
		MemoryUsedPercent:  h.memoryUsedPercent,
		RecommendedThreads: threads,
		RecommendedHashMB:  hash,
	}
}

// EngineSettings are the tunables checked by Validate.
type EngineSettings struct {
	Path       string
	Threads    int
	HashMB     int
	Depth      int
	MoveTimeMS int
}

// Validate checks the settings against the host. It returns every
// problem found, not just the first.
func Validate(s EngineSettings) ([]string, error) {
	h, err := probeHost()
	if err != nil {
		return nil, err
	}
	return validateAgainst(s, h), nil
}

func validateAgainst(s EngineSettings, h hostLimits) []string {
	var problems []string
	if err := ValidateEnginePath(s.Path); err != nil {
		problems = append(problems, err.Error())
	}
	if s.Threads < 1 || s.Threads > h.logicalCores {
		problems = append(problems,
			fmt.Sprintf("threads must be between 1 and %d, got %d", h.logicalCores, s.Threads))
	}
	if s.HashMB < minHashMB || s.HashMB > maxHashMB {
		problems = append(problems,
			fmt.Sprintf("hash must be between %d and %d MB, got %d", minHashMB, maxHashMB, s.HashMB))
	} else if uint64(s.HashMB) > h.availableMB {
		problems = append(problems,
			fmt.Sprintf("hash %d MB exceeds available memory (%d MB)", s.HashMB, h.availableMB))
	}
	if s.Depth < minDepth || s.Depth > maxDepth {
		problems = append(problems,
			fmt.Sprintf("depth must be between %d and %d, got %d", minDepth, maxDepth, s.Depth))
	}
	if s.MoveTimeMS < minMoveTimeMS || s.MoveTimeMS > maxMoveTimeMS {
		problems = append(problems,
			fmt.Sprintf("move time must be between %d and %d ms, got %d", minMoveTimeMS, maxMoveTimeMS, s.MoveTimeMS))
	}
	return problems
}

// ValidateEnginePath checks that the engine binary exists and is
// executable. Bare names are looked up on PATH.
func ValidateEnginePath(path string) error {
	if path == "" {
		return fmt.Errorf("engine path is empty")
	}
	if !strings.ContainsRune(path, os.PathSeparator) {
		if _, err := exec.LookPath(path); err != nil {
			return fmt.Errorf("engine %q not found on PATH", path)
		}
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("engine path %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("engine path %s is a directory", path)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("engine path %s is not executable", path)
	}
	return nil
}
