//go:build !darwin && !linux

package caller

import "runtime"

func detectOptimalWorkers() int {
	return runtime.NumCPU()
}
