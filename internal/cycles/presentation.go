package cycles

import (
	"sort"

	"github.com/themeshri/onchain-journal-app/internal/domain"
)

// Flatten merges every token's cycles into one presentation list, sorted by
// start timestamp descending, and assigns a 1-based global sequence number.
// Pure and stateless; this is the ordering contract the UI relies on, not
// part of the aggregation state machine.
func Flatten(series []*domain.TokenCycleSeries) []*domain.CycleView {
	var views []*domain.CycleView
	for _, s := range series {
		for _, c := range s.Cycles {
			views = append(views, &domain.CycleView{TradeCycle: c})
		}
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].StartTimestamp != views[j].StartTimestamp {
			return views[i].StartTimestamp > views[j].StartTimestamp
		}
		// Tie-break for deterministic output.
		if views[i].TokenMint != views[j].TokenMint {
			return views[i].TokenMint < views[j].TokenMint
		}
		return views[i].SequenceNumber > views[j].SequenceNumber
	})

	for i, v := range views {
		v.GlobalSequence = i + 1
	}
	return views
}
