package caller

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/calling"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence/evidencetest"
	"github.com/scttfrdmn/breakasm-go/pkg/svreads"
)

const (
	clipSeq  = "ACGTTAGCCATGAGTC"
	splitSeq = "ACGTTAGCTTCAGGAC"
)

func testConfig() *Config {
	cfg := NewConfig()
	cfg.Workers = 2
	cfg.K = 4
	cfg.MaxSupportSpan = 20
	cfg.Window = 20
	cfg.ShowProgress = false
	return cfg
}

func testResources(t *testing.T, h *sam.Header) *svreads.Resources {
	t.Helper()
	res, err := svreads.NewResources(svreads.DefaultConfig(), h)
	assert.NoError(t, err)
	return res
}

// testRegion holds three identical soft clipped reads ending at pos+3 and
// one read split to chr2:1000 ending at 5004.
func testRegion(h *sam.Header, refIndex, pos int) Region {
	qual := bytes.Repeat([]byte{30}, len(clipSeq))
	region := Region{ReferenceIndex: refIndex, Name: h.Refs()[refIndex].Name()}
	for i := 0; i < 3; i++ {
		region.Records = append(region.Records, evidencetest.Read(h, refIndex, pos, "4M12S", clipSeq, qual))
	}
	split := evidencetest.WithSA(evidencetest.Read(h, refIndex, 5000, "5M11S", splitSeq, qual), "chr2,1000,+,5S11M,60,0;")
	region.Records = append(region.Records, split)
	return region
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	expect.NoError(t, cfg.Validate())

	cfg.K = 33
	expect.NotNil(t, cfg.Validate())

	cfg = testConfig()
	cfg.Workers = 0
	expect.NotNil(t, cfg.Validate())

	cfg = testConfig()
	cfg.Calling.MinIndelSize = 0
	expect.NotNil(t, cfg.Validate())

	cfg = testConfig()
	cfg.Reads.ConcordanceMethod = svreads.Percentage
	expect.True(t, errors.Is(cfg.Validate(), svreads.ErrConfiguration))

	cfg = testConfig()
	cfg.ProgressInterval = 0
	expect.NoError(t, cfg.Validate())
	expect.True(t, cfg.ProgressInterval > 0)
}

func TestConfigFitsMemory(t *testing.T) {
	cfg := testConfig()
	cfg.availableMemory = 4 * GB
	need, ok := cfg.fitsMemory()
	expect.EQ(t, need, int64(2*workerMemory))
	expect.True(t, ok)

	cfg.availableMemory = workerMemory
	_, ok = cfg.fitsMemory()
	expect.False(t, ok)
	// a shortfall only warns
	expect.NoError(t, cfg.Validate())

	cfg.availableMemory = 0
	_, ok = cfg.fitsMemory()
	expect.True(t, ok)
}

func TestCallRegion(t *testing.T) {
	h := evidencetest.Header(10000, 10000)
	cfg := testConfig()
	result, err := CallRegion(context.Background(), cfg, testResources(t, h), testRegion(h, 0, 100))
	assert.NoError(t, err)

	assert.EQ(t, len(result.Calls), 2)
	clip := result.Calls[0]
	expect.EQ(t, clip.ID, "chr1_1")
	expect.EQ(t, clip.Breakend, breakend.New(0, breakend.Forward, 103, 103))
	expect.False(t, clip.IsBreakpoint())
	expect.EQ(t, clip.Assembly, clipSeq)
	expect.EQ(t, clip.Score, float64(13*3*120))
	expect.EQ(t, clip.EvidenceCount, 3)
	expect.False(t, clip.IsFiltered())

	split := result.Calls[1]
	expect.EQ(t, split.ID, "chr1_2")
	expect.EQ(t, split.Breakend, breakend.New(0, breakend.Forward, 5004, 5004))
	assert.True(t, split.IsBreakpoint())
	expect.EQ(t, *split.Breakpoint, breakend.Breakpoint{
		Local:  breakend.New(0, breakend.Forward, 5004, 5004),
		Remote: breakend.New(1, breakend.Backward, 1000, 1000),
	})
	expect.EQ(t, split.Assembly, splitSeq)
	expect.EQ(t, split.EvidenceCount, 1)

	expect.EQ(t, result.Reads.Records, 4)
	expect.EQ(t, result.Reads.SoftClip, 3)
	expect.EQ(t, result.Reads.SplitRead, 1)
	expect.EQ(t, result.Stats.Evidence, 4)
	expect.EQ(t, result.Stats.Contigs, 2)
	expect.EQ(t, result.Stats.Calls, 2)
	expect.EQ(t, result.Stats.Duplicates, 0)
	expect.True(t, result.Stats.GraphNodes > 0)
}

func TestCallRegionUnassembledEvidence(t *testing.T) {
	h := evidencetest.Header(10000, 10000)
	cfg := testConfig()
	cfg.MinContigWeight = 1000000
	res := testResources(t, h)

	result, err := CallRegion(context.Background(), cfg, res, testRegion(h, 0, 100))
	assert.NoError(t, err)
	expect.EQ(t, result.Stats.Contigs, 0)
	// only the split read knows its partner
	assert.EQ(t, len(result.Calls), 1)
	call := result.Calls[0]
	expect.True(t, call.IsBreakpoint())
	expect.EQ(t, call.Score, float64(16*30))
	expect.EQ(t, call.EvidenceCount, 1)
	expect.EQ(t, call.Assembly, "")

	cfg.Calling.CallOnlyAssemblies = true
	result, err = CallRegion(context.Background(), cfg, res, testRegion(h, 0, 100))
	assert.NoError(t, err)
	expect.EQ(t, len(result.Calls), 0)
}

func TestCallRegionFilteredCalls(t *testing.T) {
	h := evidencetest.Header(10000, 10000)
	cfg := testConfig()
	cfg.Calling.MinScore = 2000
	res := testResources(t, h)

	result, err := CallRegion(context.Background(), cfg, res, testRegion(h, 0, 100))
	assert.NoError(t, err)
	assert.EQ(t, len(result.Calls), 2)
	expect.EQ(t, result.Calls[1].Filters, []calling.Filter{calling.LowQual})
	expect.EQ(t, result.Stats.Filtered, 1)

	cfg.Calling.WriteFilteredCalls = false
	result, err = CallRegion(context.Background(), cfg, res, testRegion(h, 0, 100))
	assert.NoError(t, err)
	assert.EQ(t, len(result.Calls), 1)
	expect.EQ(t, result.Calls[0].ID, "chr1_1")
	expect.EQ(t, result.Stats.Filtered, 1)
}

func TestCallRegionCancelled(t *testing.T) {
	h := evidencetest.Header(10000, 10000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CallRegion(ctx, testConfig(), testResources(t, h), testRegion(h, 0, 100))
	expect.True(t, errors.Is(err, context.Canceled))
}

func TestDominantRemote(t *testing.T) {
	_, ok := dominantRemote(nil)
	expect.False(t, ok)

	remote, ok := dominantRemote(map[sideKey][]breakend.Summary{
		{ref: 0, dir: breakend.Backward}: {breakend.New(0, breakend.Backward, 10, 10)},
		{ref: 1, dir: breakend.Forward}: {
			breakend.New(1, breakend.Forward, 500, 510),
			breakend.New(1, breakend.Forward, 490, 495),
		},
	})
	expect.True(t, ok)
	expect.EQ(t, remote, breakend.New(1, breakend.Forward, 490, 510))

	remote, _ = dominantRemote(map[sideKey][]breakend.Summary{
		{ref: 1, dir: breakend.Forward}:  {breakend.New(1, breakend.Forward, 5, 5)},
		{ref: 0, dir: breakend.Backward}: {breakend.New(0, breakend.Backward, 7, 7)},
		{ref: 0, dir: breakend.Forward}:  {breakend.New(0, breakend.Forward, 9, 9)},
	})
	expect.EQ(t, remote, breakend.New(0, breakend.Forward, 9, 9))
}

func TestParallelCaller(t *testing.T) {
	h := evidencetest.Header(10000, 10000)
	res := testResources(t, h)
	pc := NewParallelCaller(context.Background(), testConfig(), res)
	pc.Start()
	// submitted out of order; results come back by index
	assert.NoError(t, pc.Submit(testRegion(h, 1, 200), 1))
	assert.NoError(t, pc.Submit(testRegion(h, 0, 100), 0))
	run, err := pc.Finalize()
	assert.NoError(t, err)

	assert.EQ(t, len(run.Regions), 2)
	expect.EQ(t, run.Regions[0].Name, "chr1")
	expect.EQ(t, run.Regions[1].Name, "chr2")
	expect.EQ(t, run.Reads.Records, 8)
	expect.EQ(t, run.Stats.Contigs, 4)

	var ids []string
	for _, call := range run.Calls {
		ids = append(ids, call.ID)
	}
	expect.EQ(t, ids, []string{"chr1_1", "chr1_2", "chr2_1", "chr2_2"})
}

func TestParallelCallerCancelled(t *testing.T) {
	h := evidencetest.Header(10000, 10000)
	ctx, cancel := context.WithCancel(context.Background())
	pc := NewParallelCaller(ctx, testConfig(), testResources(t, h))
	pc.Start()
	cancel()
	_ = pc.Submit(testRegion(h, 0, 100), 0)
	_, err := pc.Finalize()
	expect.True(t, errors.Is(err, context.Canceled))
}

func TestParallelCallerSubmitAfterCancel(t *testing.T) {
	h := evidencetest.Header(10000, 10000)
	ctx, cancel := context.WithCancel(context.Background())
	pc := NewParallelCaller(ctx, testConfig(), testResources(t, h))
	pc.Start()
	cancel()
	var err error
	for i := 0; err == nil; i++ {
		err = pc.Submit(testRegion(h, 0, 100), i)
	}
	expect.True(t, errors.Is(err, context.Canceled))
	_, ferr := pc.Finalize()
	expect.True(t, errors.Is(ferr, context.Canceled))
}

func TestFormatDuration(t *testing.T) {
	expect.EQ(t, formatDuration(0), "0s")
	expect.EQ(t, formatDuration(65*1e9), "1m 5s")
	expect.EQ(t, formatDuration(3725*1e9), "1h 2m 5s")
}
