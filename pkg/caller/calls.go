package caller

import (
	"cmp"
	"slices"

	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/calling"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence"
	"github.com/scttfrdmn/breakasm-go/pkg/positional"
)

type sideKey struct {
	ref int
	dir breakend.Direction
}

// dominantRemote unions the partner breakends of the most common contig
// and direction. Ties go to the lower contig, then forward.
func dominantRemote(remotes map[sideKey][]breakend.Summary) (breakend.Summary, bool) {
	if len(remotes) == 0 {
		return breakend.Summary{}, false
	}
	keys := make([]sideKey, 0, len(remotes))
	for key := range remotes {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b sideKey) int {
		if c := cmp.Compare(len(remotes[b]), len(remotes[a])); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ref, b.ref); c != 0 {
			return c
		}
		return cmp.Compare(a.dir, b.dir)
	})
	group := remotes[keys[0]]
	remote := group[0]
	for _, s := range group[1:] {
		remote = remote.Union(s)
	}
	return remote, true
}

// contigCall turns an assembled contig into a call. The local breakend
// covers the exact positions of the clipped reads in the contig, or the
// read pair intervals when there are none. A partner breakend is added when
// the evidence knows one.
func contigCall(c *positional.Contig, byID []*evidence.Evidence) calling.Call {
	var exact, paired *breakend.Summary
	remotes := make(map[sideKey][]breakend.Summary)
	for _, id := range c.Evidence {
		e := byID[id]
		target := &exact
		if e.Kind == evidence.DiscordantPair {
			target = &paired
		}
		b := e.Breakend()
		if *target == nil {
			*target = &b
		} else {
			u := (*target).Union(b)
			*target = &u
		}
		if r, ok := e.Remote(); ok {
			key := sideKey{ref: r.ReferenceIndex, dir: r.Direction}
			remotes[key] = append(remotes[key], r)
		}
	}
	local := exact
	if local == nil {
		local = paired
	}

	call := calling.Call{
		Breakend:      *local,
		Score:         float64(c.Weight),
		EvidenceCount: len(c.Evidence),
		Assembly:      string(c.Sequence),
	}
	if remote, ok := dominantRemote(remotes); ok {
		bp := breakend.NewBreakpoint(*local, remote)
		call.Breakpoint = &bp
	}
	return call
}

// evidenceCall calls a single unassembled evidence record. Only evidence
// that knows its partner breakend produces a call.
func evidenceCall(e *evidence.Evidence) (calling.Call, bool) {
	remote, ok := e.Remote()
	if !ok {
		return calling.Call{}, false
	}
	bp := breakend.NewBreakpoint(e.Breakend(), remote)
	return calling.Call{
		Breakend:      e.Breakend(),
		Breakpoint:    &bp,
		Score:         float64(e.Quality()),
		EvidenceCount: 1,
	}, true
}
