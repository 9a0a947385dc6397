//go:build linux

package caller

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// detectSystemMemory reads /proc/meminfo. Kernels without MemAvailable
// report MemFree + Buffers + Cached instead.
func detectSystemMemory() (total int64, available int64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	fields := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		kb, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		fields[strings.TrimSuffix(parts[0], ":")] = kb * KB
	}

	total = fields["MemTotal"]
	available, ok := fields["MemAvailable"]
	if !ok {
		available = fields["MemFree"] + fields["Buffers"] + fields["Cached"]
	}
	return total, available
}
