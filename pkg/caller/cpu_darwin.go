//go:build darwin

package caller

import (
	"runtime"
	"syscall"
)

// detectOptimalWorkers prefers the performance cores of Apple Silicon.
func detectOptimalWorkers() int {
	for _, name := range []string{"hw.perflevel0.physicalcpu", "hw.physicalcpu"} {
		if n := sysctlInt(name); n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

// sysctlInt decodes a little-endian integer sysctl; syscall.Sysctl hands
// back the raw bytes.
func sysctlInt(name string) int {
	raw, err := syscall.Sysctl(name)
	if err != nil {
		return 0
	}
	n := 0
	for i := 0; i < len(raw) && i < 8; i++ {
		n |= int(raw[i]) << (8 * i)
	}
	return n
}
