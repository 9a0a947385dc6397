//go:build linux

package caller

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// detectOptimalWorkers returns the performance core count on hybrid
// machines and the logical CPU count otherwise.
func detectOptimalWorkers() int {
	if n := perfCoresLinux(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// perfCoresLinux counts physical cores clocked within 10% of the mean
// frequency in /proc/cpuinfo. It returns 0 unless that singles out a
// proper subset of the cores.
func perfCoresLinux() int {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	coreFreq := make(map[int]float64)
	coreID := -1
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "processor":
			coreID = -1
		case "core id":
			if id, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				coreID = id
			}
		case "cpu MHz":
			freq, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil || coreID < 0 {
				continue
			}
			if freq > coreFreq[coreID] {
				coreFreq[coreID] = freq
			}
		}
	}
	if len(coreFreq) <= 2 {
		return 0
	}

	var sum float64
	for _, freq := range coreFreq {
		sum += freq
	}
	mean := sum / float64(len(coreFreq))
	perf := 0
	for _, freq := range coreFreq {
		if freq >= mean*0.9 {
			perf++
		}
	}
	if perf < len(coreFreq) {
		return perf
	}
	return 0
}
