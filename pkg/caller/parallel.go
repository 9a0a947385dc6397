package caller

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/grailbio/base/log"
	"github.com/scttfrdmn/breakasm-go/pkg/calling"
	"github.com/scttfrdmn/breakasm-go/pkg/callset"
	"github.com/scttfrdmn/breakasm-go/pkg/svreads"
)

// ParallelCaller calls regions on a pool of workers and merges their calls
// into one sorted list.
type ParallelCaller struct {
	cfg     *Config
	res     *svreads.Resources
	workers int

	jobQueue    chan regionJob    // Regions waiting for a worker
	resultQueue chan regionResult // Finished regions
	workerWg    sync.WaitGroup
	resultWg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	resultsMutex sync.Mutex
	results      []regionResult
	err          error // first failure

	start          time.Time
	recordsQueued  atomic.Int64
	recordsDone    atomic.Int64
	regionsDone    atomic.Int64
	callsMade      atomic.Int64
	progressDone   chan struct{}
	progressClosed sync.Once
}

type regionJob struct {
	region Region
	index  int // submission order
}

type regionResult struct {
	result *RegionResult
	index  int
	err    error
}

// RunResult is the outcome of a calling run.
type RunResult struct {
	Calls   []calling.Call // all regions, in calling.Compare order
	Regions []*RegionResult
	Reads   svreads.Counts
	Stats   RegionStats
	Elapsed time.Duration
}

// NewParallelCaller creates a caller. Cancelling ctx stops the run.
func NewParallelCaller(ctx context.Context, cfg *Config, res *svreads.Resources) *ParallelCaller {
	workers := cfg.Workers
	if workers <= 0 {
		workers = detectOptimalWorkers()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &ParallelCaller{
		cfg:          cfg,
		res:          res,
		workers:      workers,
		jobQueue:     make(chan regionJob, workers*2),
		resultQueue:  make(chan regionResult, workers*2),
		ctx:          ctx,
		cancel:       cancel,
		progressDone: make(chan struct{}),
	}
}

// Start starts the worker pool and, when enabled, the progress reporter.
func (pc *ParallelCaller) Start() {
	pc.start = time.Now()
	for i := 0; i < pc.workers; i++ {
		pc.workerWg.Add(1)
		go pc.worker(i)
	}
	pc.resultWg.Add(1)
	go pc.resultCollector()

	if pc.cfg.ShowProgress {
		go pc.reportProgress()
	}
}

func (pc *ParallelCaller) worker(id int) {
	defer pc.workerWg.Done()

	for job := range pc.jobQueue {
		// Drain without working once the run has failed
		if pc.ctx.Err() != nil {
			continue
		}
		result, err := CallRegion(pc.ctx, pc.cfg, pc.res, job.region)
		if err != nil {
			err = fmt.Errorf("worker %d failed on region %s: %w", id, job.region.Name, err)
		}
		pc.recordsDone.Add(int64(len(job.region.Records)))
		pc.resultQueue <- regionResult{result: result, index: job.index, err: err}
	}
}

func (pc *ParallelCaller) resultCollector() {
	defer pc.resultWg.Done()

	for r := range pc.resultQueue {
		pc.resultsMutex.Lock()
		if r.err != nil {
			if pc.err == nil {
				pc.err = r.err
				pc.cancel()
			}
			pc.resultsMutex.Unlock()
			continue
		}
		pc.results = append(pc.results, r)
		pc.resultsMutex.Unlock()

		pc.regionsDone.Add(1)
		pc.callsMade.Add(int64(len(r.result.Calls)))
	}
}

// Submit queues a region. index orders the per-region results. It blocks
// while the queue is full and fails once the run is cancelled.
func (pc *ParallelCaller) Submit(region Region, index int) error {
	pc.recordsQueued.Add(int64(len(region.Records)))
	select {
	case pc.jobQueue <- regionJob{region: region, index: index}:
		return nil
	case <-pc.ctx.Done():
		return pc.failure()
	}
}

func (pc *ParallelCaller) failure() error {
	pc.resultsMutex.Lock()
	defer pc.resultsMutex.Unlock()
	if pc.err != nil {
		return pc.err
	}
	return pc.ctx.Err()
}

// Finalize waits for every submitted region and merges the calls. The
// caller must not be used afterwards.
func (pc *ParallelCaller) Finalize() (*RunResult, error) {
	close(pc.jobQueue)
	pc.workerWg.Wait()
	close(pc.resultQueue)
	pc.resultWg.Wait()
	pc.stopProgress()
	defer pc.cancel()

	if err := pc.failure(); err != nil {
		return nil, err
	}

	slices.SortFunc(pc.results, func(a, b regionResult) int {
		return a.index - b.index
	})
	run := &RunResult{Elapsed: time.Since(pc.start)}
	lists := make([][]calling.Call, 0, len(pc.results))
	for _, r := range pc.results {
		run.Regions = append(run.Regions, r.result)
		run.Reads.Add(r.result.Reads)
		run.Stats.Add(r.result.Stats)
		lists = append(lists, r.result.Calls)
	}
	run.Calls = callset.MergeCalls(lists...)
	log.Printf("called %d regions with %d workers in %s", len(run.Regions), pc.workers, formatDuration(run.Elapsed))
	return run, nil
}

// Workers returns the number of workers.
func (pc *ParallelCaller) Workers() int {
	return pc.workers
}

func (pc *ParallelCaller) stopProgress() {
	pc.progressClosed.Do(func() {
		close(pc.progressDone)
		if pc.cfg.ShowProgress {
			pc.printProgress()
			fmt.Fprintf(os.Stderr, "\n")
		}
	})
}

// reportProgress prints progress updates
func (pc *ParallelCaller) reportProgress() {
	ticker := time.NewTicker(pc.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pc.progressDone:
			return
		case <-ticker.C:
			pc.printProgress()
		}
	}
}

func (pc *ParallelCaller) printProgress() {
	elapsed := time.Since(pc.start)
	done := pc.recordsDone.Load()
	readsPerSec := float64(done) / elapsed.Seconds()

	fmt.Fprintf(os.Stderr, "\rProgress: %s/%s reads (%.1f K reads/s) | Regions: %d | Calls: %s | Elapsed: %s",
		humanize.Comma(done),
		humanize.Comma(pc.recordsQueued.Load()),
		readsPerSec/1000,
		pc.regionsDone.Load(),
		humanize.Comma(pc.callsMade.Load()),
		formatDuration(elapsed),
	)
}

// PrintSummary prints the run summary to stderr.
func (r *RunResult) PrintSummary() {
	fmt.Fprintf(os.Stderr, "Calling complete!\n")
	fmt.Fprintf(os.Stderr, "  Regions: %d\n", len(r.Regions))
	fmt.Fprintf(os.Stderr, "  Records: %s (%s skipped, %s blacklisted)\n",
		humanize.Comma(int64(r.Reads.Records)),
		humanize.Comma(int64(r.Reads.Skipped)),
		humanize.Comma(int64(r.Reads.Blacklisted)))
	fmt.Fprintf(os.Stderr, "  Evidence: %s soft clip, %s split read, %s discordant pair\n",
		humanize.Comma(int64(r.Reads.SoftClip)),
		humanize.Comma(int64(r.Reads.SplitRead)),
		humanize.Comma(int64(r.Reads.DiscordantPair)))
	if r.Stats.Rejected > 0 {
		fmt.Fprintf(os.Stderr, "  Rejected evidence: %d\n", r.Stats.Rejected)
	}
	fmt.Fprintf(os.Stderr, "  Graph: %s nodes, %s edges (peak %s active)\n",
		humanize.Comma(int64(r.Stats.GraphNodes)),
		humanize.Comma(int64(r.Stats.GraphEdges)),
		humanize.Comma(int64(r.Stats.PeakActive)))
	fmt.Fprintf(os.Stderr, "  Contigs: %d\n", r.Stats.Contigs)
	fmt.Fprintf(os.Stderr, "  Calls: %d (%d filtered, %d duplicates removed)\n",
		len(r.Calls), r.Stats.Filtered, r.Stats.Duplicates)
	fmt.Fprintf(os.Stderr, "  Elapsed time: %s\n", formatDuration(r.Elapsed))
}
