// ABOUTME: Reassembler folds out-of-order unit results into an index-ordered composite
// ABOUTME: Pure upsert-by-index state; safe to render at any partial point
package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/infinitecontext/infinitectx/internal/models"
)

// Reassembler accumulates unit results keyed by index. Folding is
// idempotent: replaying a result leaves the state unchanged.
type Reassembler struct {
	results map[int]models.UnitResult
	total   int
}

// NewReassembler returns an empty reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{results: make(map[int]models.UnitResult)}
}

// Fold upserts one result by unit index.
func (r *Reassembler) Fold(res models.UnitResult) {
	r.results[res.Index] = res
	if res.TotalUnits > r.total {
		r.total = res.TotalUnits
	}
}

// Len returns how many distinct units have arrived so far.
func (r *Reassembler) Len() int {
	return len(r.results)
}

// Total returns the batch size as reported by the arrived results, or
// 0 before the first fold.
func (r *Reassembler) Total() int {
	return r.total
}

// Complete reports whether every unit of the batch has arrived.
func (r *Reassembler) Complete() bool {
	return r.total > 0 && len(r.results) == r.total
}

// Results returns the known results sorted by unit index ascending.
func (r *Reassembler) Results() []models.UnitResult {
	out := make([]models.UnitResult, 0, len(r.results))
	for _, res := range r.results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Render produces the composite view: labeled sections sorted by index,
// with failed units shown as inline error markers instead of being
// dropped. Valid at any partial state, including after one result.
func (r *Reassembler) Render() string {
	results := r.Results()

	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Part %d/%d:\n", res.Index, res.TotalUnits)
		if res.Status == models.StatusError {
			fmt.Fprintf(&b, "[error: %s]", res.ErrorMessage)
		} else {
			b.WriteString(res.ResponseText)
		}
	}
	return b.String()
}
