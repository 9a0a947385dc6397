package svreads

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// HistogramBin is one insert size with its pair count.
type HistogramBin struct {
	Size  int
	Count int64
}

// InsertSizeMetrics is the part of a Picard insert size metrics file needed
// to derive concordant fragment sizes.
type InsertSizeMetrics struct {
	MedianInsertSize float64
	PairOrientation  string
	// Histogram is sorted by size.
	Histogram []HistogramBin
	total     int64
}

// ReadInsertSizeMetricsFile parses a Picard CollectInsertSizeMetrics file.
func ReadInsertSizeMetricsFile(path string) (*InsertSizeMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open insert size metrics: %w", err)
	}
	defer f.Close()
	m, err := ReadInsertSizeMetrics(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}

// ReadInsertSizeMetrics parses Picard insert size metrics. The metrics row
// with FR orientation is preferred; the histogram column is the FR count
// column when present and the first count column otherwise.
func ReadInsertSizeMetrics(r io.Reader) (*InsertSizeMetrics, error) {
	const (
		none = iota
		metricsHeader
		metricsRows
		histogramHeader
		histogramRows
	)
	m := &InsertSizeMetrics{}
	state := none
	var columns []string
	countColumn := 1
	haveRow := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "## METRICS CLASS"):
			state = metricsHeader
			continue
		case strings.HasPrefix(line, "## HISTOGRAM"):
			state = histogramHeader
			continue
		case strings.HasPrefix(line, "#"):
			continue
		case strings.TrimSpace(line) == "":
			if state == metricsRows || state == histogramRows {
				state = none
			}
			continue
		}

		fields := strings.Split(line, "\t")
		switch state {
		case metricsHeader:
			columns = fields
			state = metricsRows
		case metricsRows:
			orientation := column(columns, fields, "PAIR_ORIENTATION")
			if haveRow && m.PairOrientation == "FR" {
				continue
			}
			if haveRow && orientation != "FR" {
				continue
			}
			if v := column(columns, fields, "MEDIAN_INSERT_SIZE"); v != "" {
				median, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, fmt.Errorf("bad MEDIAN_INSERT_SIZE %q: %w", v, err)
				}
				m.MedianInsertSize = median
			}
			m.PairOrientation = orientation
			haveRow = true
		case histogramHeader:
			for i, name := range fields {
				if strings.HasSuffix(strings.ToLower(name), "fr_count") {
					countColumn = i
					break
				}
			}
			state = histogramRows
		case histogramRows:
			if len(fields) <= countColumn {
				return nil, fmt.Errorf("short histogram line %q", line)
			}
			size, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("bad insert size %q: %w", fields[0], err)
			}
			count, err := strconv.ParseFloat(fields[countColumn], 64)
			if err != nil {
				return nil, fmt.Errorf("bad histogram count %q: %w", fields[countColumn], err)
			}
			m.Histogram = append(m.Histogram, HistogramBin{Size: size, Count: int64(count)})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(m.Histogram) == 0 {
		return nil, fmt.Errorf("no insert size histogram")
	}
	sort.Slice(m.Histogram, func(i, j int) bool { return m.Histogram[i].Size < m.Histogram[j].Size })
	for _, bin := range m.Histogram {
		m.total += bin.Count
	}
	if m.total == 0 {
		return nil, fmt.Errorf("empty insert size histogram")
	}
	return m, nil
}

func column(columns, fields []string, name string) string {
	for i, c := range columns {
		if c == name && i < len(fields) {
			return fields[i]
		}
	}
	return ""
}

// InverseCumulative returns the smallest insert size whose cumulative
// fraction of pairs reaches p.
func (m *InsertSizeMetrics) InverseCumulative(p float64) int {
	target := p * float64(m.total)
	var cumulative int64
	for _, bin := range m.Histogram {
		cumulative += bin.Count
		if float64(cumulative) >= target {
			return bin.Size
		}
	}
	return m.Histogram[len(m.Histogram)-1].Size
}

// TotalPairs returns the number of pairs in the histogram.
func (m *InsertSizeMetrics) TotalPairs() int64 {
	return m.total
}
