// Package evidencetest builds alignment records for tests.
package evidencetest

import (
	"fmt"
	"sync/atomic"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence"
)

var readCounter atomic.Int64

// Header returns a header with one contig per length, named chr1, chr2, ...
func Header(lengths ...int) *sam.Header {
	refs := make([]*sam.Reference, len(lengths))
	for i, length := range lengths {
		ref, err := sam.NewReference(fmt.Sprintf("chr%d", i+1), "", "", length, nil, nil)
		if err != nil {
			panic(err)
		}
		refs[i] = ref
	}
	h, err := sam.NewHeader(nil, refs)
	if err != nil {
		panic(err)
	}
	return h
}

// Read creates a mapped record aligned at the 1-based position pos. An empty
// qual leaves the qualities missing.
func Read(h *sam.Header, refIndex, pos int, cigar, seq string, qual []byte) *sam.Record {
	co, err := sam.ParseCigar([]byte(cigar))
	if err != nil {
		panic(err)
	}
	if len(qual) == 0 {
		qual = nil
	}
	name := fmt.Sprintf("read%d", readCounter.Add(1))
	rec, err := sam.NewRecord(name, h.Refs()[refIndex], nil, pos-1, -1, 0, 60, co, []byte(seq), qual, nil)
	if err != nil {
		panic(err)
	}
	return rec
}

// Pair marks rec as paired with a mate aligned at the 1-based mate position.
// A negative mateRefIndex leaves the mate unmapped.
func Pair(h *sam.Header, rec *sam.Record, reverse bool, mateRefIndex, matePos int, mateReverse bool, first bool) *sam.Record {
	rec.Flags |= sam.Paired
	if reverse {
		rec.Flags |= sam.Reverse
	}
	if first {
		rec.Flags |= sam.Read1
	} else {
		rec.Flags |= sam.Read2
	}
	if mateRefIndex < 0 {
		rec.Flags |= sam.MateUnmapped
		rec.MateRef = nil
		rec.MatePos = -1
		return rec
	}
	if mateReverse {
		rec.Flags |= sam.MateReverse
	}
	rec.MateRef = h.Refs()[mateRefIndex]
	rec.MatePos = matePos - 1
	if rec.MateRef == rec.Ref {
		lo, hi := min(rec.Pos, rec.MatePos), max(rec.End(), rec.MatePos+rec.Seq.Length)
		rec.TempLen = hi - lo
		if rec.Pos > rec.MatePos {
			rec.TempLen = -rec.TempLen
		}
	}
	return rec
}

// WithSA attaches a supplementary alignment tag.
func WithSA(rec *sam.Record, sa string) *sam.Record {
	aux, err := sam.NewAux(sam.NewTag("SA"), sa)
	if err != nil {
		panic(err)
	}
	rec.AuxFields = append(rec.AuxFields, aux)
	return rec
}

// Quals returns qualities 0, 1, 2, ... for a read of length n.
func Quals(n int) []byte {
	q := make([]byte, n)
	for i := range q {
		q[i] = byte(i)
	}
	return q
}

// Scenario builds the mixed evidence set used to exercise the merge stream:
// for every position 1..positions a forward and a backward soft clip of a
// 1S4M6S read and two discordant pairs of a 1S9M1S read, all carrying seq.
func Scenario(h *sam.Header, seq string, positions, maxFragmentSize int) []*evidence.Evidence {
	qual := Quals(len(seq))
	var out []*evidence.Evidence
	id := 0
	add := func(e *evidence.Evidence, err error) {
		if err != nil {
			panic(err)
		}
		out = append(out, e)
		id++
	}
	for i := 1; i <= positions; i++ {
		add(evidence.NewSoftClip(id, Read(h, 0, i, "1S4M6S", seq, qual), breakend.Forward))
		add(evidence.NewSoftClip(id, Read(h, 0, i, "1S4M6S", seq, qual), breakend.Backward))
		for _, mateReverse := range []bool{true, false} {
			rec := Pair(h, Read(h, 0, i, "1S9M1S", seq, qual), false, 1, 1, mateReverse, true)
			add(evidence.NewDiscordantPair(id, rec, maxFragmentSize, nil))
		}
	}
	return out
}
