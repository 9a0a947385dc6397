//go:build darwin

package caller

// detectSystemMemory reads hw.memsize. Available memory is estimated as 75%
// of the total.
func detectSystemMemory() (total int64, available int64) {
	total = int64(sysctlInt("hw.memsize"))
	return total, total * 3 / 4
}
