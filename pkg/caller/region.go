package caller

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/log"
	"github.com/scttfrdmn/breakasm-go/pkg/calling"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence"
	"github.com/scttfrdmn/breakasm-go/pkg/positional"
	"github.com/scttfrdmn/breakasm-go/pkg/svreads"
)

// Region is the unit of parallel work: the alignment records of one contig.
type Region struct {
	ReferenceIndex int
	Name           string
	Records        []*sam.Record
}

// RegionStats counts the work done on a region.
type RegionStats struct {
	Evidence     int `json:"evidence"`
	Rejected     int `json:"rejected"`
	KmerNodes    int `json:"kmer_nodes"`
	PeakBuffered int `json:"peak_buffered"`
	GraphNodes   int `json:"graph_nodes"`
	GraphEdges   int `json:"graph_edges"`
	PeakActive   int `json:"peak_active"`
	Contigs      int `json:"contigs"`
	Calls        int `json:"calls"`
	Filtered     int `json:"filtered"`
	Duplicates   int `json:"duplicates"`
}

// Add accumulates o into s. Peaks take the maximum.
func (s *RegionStats) Add(o RegionStats) {
	s.Evidence += o.Evidence
	s.Rejected += o.Rejected
	s.KmerNodes += o.KmerNodes
	s.PeakBuffered = max(s.PeakBuffered, o.PeakBuffered)
	s.GraphNodes += o.GraphNodes
	s.GraphEdges += o.GraphEdges
	s.PeakActive = max(s.PeakActive, o.PeakActive)
	s.Contigs += o.Contigs
	s.Calls += o.Calls
	s.Filtered += o.Filtered
	s.Duplicates += o.Duplicates
}

// RegionResult holds the calls of one region, in calling.Compare order.
type RegionResult struct {
	Name           string
	ReferenceIndex int
	Calls          []calling.Call
	Reads          svreads.Counts
	Stats          RegionStats
}

// how many records are classified between cancellation checks
const checkInterval = 4096

// CallRegion runs the full pipeline on one region. Evidence IDs are only
// unique within the region.
func CallRegion(ctx context.Context, cfg *Config, res *svreads.Resources, region Region) (*RegionResult, error) {
	classifier := svreads.NewClassifier(res)
	var byID []*evidence.Evidence
	for i, rec := range region.Records {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		byID = append(byID, classifier.Evidence(rec)...)
	}

	sorted := slices.Clone(byID)
	slices.SortFunc(sorted, func(a, b *evidence.Evidence) int {
		if c := cmp.Compare(a.ReferenceIndex(), b.ReferenceIndex()); c != 0 {
			return c
		}
		return evidence.ByStartEnd(a, b)
	})

	nodes := positional.NewSupportNodeIterator(cfg.K, slices.Values(sorted), cfg.MaxSupportSpan)
	defer nodes.Close()
	asm := positional.NewAssembler(nodes, cfg.K, cfg.Window, cfg.MinContigWeight)

	result := &RegionResult{
		Name:           region.Name,
		ReferenceIndex: region.ReferenceIndex,
	}
	assembled := make([]bool, len(byID))
	var calls []calling.Call
	for contig := range asm.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Stats.Contigs++
		for _, id := range contig.Evidence {
			assembled[id] = true
		}
		calls = append(calls, contigCall(contig, byID))
	}
	if err := asm.Err(); err != nil {
		return nil, fmt.Errorf("failed to assemble %s: %w", region.Name, err)
	}

	if !cfg.Calling.CallOnlyAssemblies {
		for _, e := range byID {
			if assembled[e.ID] {
				continue
			}
			if call, ok := evidenceCall(e); ok {
				calls = append(calls, call)
			}
		}
	}

	deduped := cfg.Calling.Deduplicate(calls, res.Dictionary)
	result.Stats.Duplicates = len(calls) - len(deduped)
	for _, call := range deduped {
		call = cfg.Calling.Annotate(call)
		if call.IsFiltered() {
			result.Stats.Filtered++
		}
		if !cfg.Calling.Keep(call) {
			continue
		}
		call.ID = fmt.Sprintf("%s_%d", region.Name, len(result.Calls)+1)
		result.Calls = append(result.Calls, call)
	}

	graph := asm.Graph()
	result.Reads = classifier.Counts()
	result.Stats.Evidence = nodes.EvidenceCount()
	result.Stats.Rejected = nodes.Rejected()
	result.Stats.KmerNodes = nodes.NodeCount()
	result.Stats.PeakBuffered = nodes.PeakBuffered()
	result.Stats.GraphNodes = graph.NodeCount()
	result.Stats.GraphEdges = graph.EdgeCount()
	result.Stats.PeakActive = graph.PeakActive()
	result.Stats.Calls = len(result.Calls)

	log.Debug.Printf("%s: %d records, %d evidence, %d contigs, %d calls",
		region.Name, len(region.Records), len(byID), result.Stats.Contigs, result.Stats.Calls)
	return result, nil
}
