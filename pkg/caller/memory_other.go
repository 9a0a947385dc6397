//go:build !darwin && !linux

package caller

// detectSystemMemory is not implemented here; getSystemMemory falls back to
// defaults.
func detectSystemMemory() (total int64, available int64) {
	return 0, 0
}
