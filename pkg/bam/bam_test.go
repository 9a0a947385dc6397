package bam

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence/evidencetest"
	"github.com/scttfrdmn/breakasm-go/pkg/svreads"
)

const seq = "ACGTTAGCCATGAGTC"

func writeBAM(t *testing.T, h *sam.Header, records ...*sam.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := bam.NewWriter(&buf, h, 1)
	assert.NoError(t, err)
	for _, rec := range records {
		assert.NoError(t, w.Write(rec))
	}
	assert.NoError(t, w.Close())
	return buf.Bytes()
}

func readBAM(t *testing.T, data []byte) *Reader {
	t.Helper()
	r, err := NewReader(bytes.NewReader(data), 1)
	assert.NoError(t, err)
	return r
}

func names(t *testing.T, data []byte) []string {
	t.Helper()
	r := readBAM(t, data)
	defer r.Close()
	var out []string
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		out = append(out, rec.Name)
	}
	return out
}

// testRecords returns a clipped read on chr1, an unremarkable read on chr1
// and a chr2 fragment whose mate is unmapped.
func testRecords(h *sam.Header) []*sam.Record {
	clipped := evidencetest.Read(h, 0, 100, "4M12S", seq, nil)
	clipped.Name = "clipped"
	plain := evidencetest.Read(h, 0, 200, "16M", seq, nil)
	plain.Name = "plain"
	mapped := evidencetest.Pair(h, evidencetest.Read(h, 1, 300, "16M", seq, nil), false, -1, 0, false, true)
	mapped.Name = "frag"
	mate, err := sam.NewRecord("frag", nil, nil, -1, -1, 0, 0, nil, []byte(seq), nil, nil)
	if err != nil {
		panic(err)
	}
	mate.Flags = sam.Paired | sam.Unmapped | sam.Read2
	return []*sam.Record{clipped, plain, mapped, mate}
}

func TestReadRegions(t *testing.T) {
	h := evidencetest.Header(10000, 10000, 10000)
	data := writeBAM(t, h, testRecords(h)...)

	regions, err := ReadRegions(readBAM(t, data))
	assert.NoError(t, err)
	assert.EQ(t, len(regions), 2)
	expect.EQ(t, regions[0].Name, "chr1")
	expect.EQ(t, regions[0].ReferenceIndex, 0)
	expect.EQ(t, len(regions[0].Records), 2)
	expect.EQ(t, regions[1].Name, "chr2")
	expect.EQ(t, regions[1].Records[0].Name, "frag")

	regions, err = ReadRegions(readBAM(t, data), "chr2")
	assert.NoError(t, err)
	assert.EQ(t, len(regions), 1)
	expect.EQ(t, regions[0].ReferenceIndex, 1)

	_, err = ReadRegions(readBAM(t, data), "chrX")
	expect.NotNil(t, err)
}

func TestLoadRegions(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "bam")
	defer cleanup()
	h := evidencetest.Header(10000, 10000)
	path := filepath.Join(dir, "sample.bam")
	assert.NoError(t, os.WriteFile(path, writeBAM(t, h, testRecords(h)...), 0644))

	header, regions, err := LoadRegions(path, 1)
	assert.NoError(t, err)
	expect.EQ(t, len(header.Refs()), 2)
	expect.EQ(t, len(regions), 2)

	_, _, err = LoadRegions(filepath.Join(dir, "missing.bam"), 1)
	expect.NotNil(t, err)
}

func TestExtractSVReads(t *testing.T) {
	h := evidencetest.Header(10000, 10000)
	data := writeBAM(t, h, testRecords(h)...)

	var out bytes.Buffer
	stats, err := ExtractSVReads(readBAM(t, data), &out, svreads.DefaultConfig(), 1)
	assert.NoError(t, err)
	expect.EQ(t, stats.Records, 4)
	expect.EQ(t, stats.Fragments, 3)
	expect.EQ(t, stats.KeptFragments, 2)
	expect.EQ(t, stats.KeptRecords, 3)
	expect.EQ(t, names(t, out.Bytes()), []string{"clipped", "frag", "frag"})
}

func TestExtractSVReadsBlacklist(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "extract")
	defer cleanup()
	bedPath := filepath.Join(dir, "blacklist.bed")
	assert.NoError(t, os.WriteFile(bedPath, []byte("chr1\t49\t150\n"), 0644))

	h := evidencetest.Header(10000, 10000)
	in := filepath.Join(dir, "in.bam")
	assert.NoError(t, os.WriteFile(in, writeBAM(t, h, testRecords(h)...), 0644))

	cfg := svreads.DefaultConfig()
	cfg.Blacklist = []string{bedPath}
	out := filepath.Join(dir, "out.bam")
	stats, err := Extract(in, out, cfg)
	assert.NoError(t, err)
	expect.EQ(t, stats.BlacklistedFragment, 1)
	expect.EQ(t, stats.KeptFragments, 1)

	data, err := os.ReadFile(out)
	assert.NoError(t, err)
	expect.EQ(t, names(t, data), []string{"frag", "frag"})
}

func TestExtractRejectsBadConfig(t *testing.T) {
	h := evidencetest.Header(10000)
	cfg := svreads.DefaultConfig()
	cfg.ConcordanceMethod = svreads.Percentage
	var out bytes.Buffer
	_, err := ExtractSVReads(readBAM(t, writeBAM(t, h)), &out, cfg, 1)
	expect.NotNil(t, err)
}
