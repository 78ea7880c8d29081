package inconsistency

import "sort"

// Report is the outcome of a single comparison.
type Report struct {
	// Findings are in the order they were discovered.
	Findings []Finding
}

// Add appends a finding to the report.
func (r *Report) Add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Equal returns whether the compared tables were found to be equivalent.
func (r Report) Equal() bool {
	return len(r.Findings) == 0
}

// Count returns the number of findings of the given kind.
func (r Report) Count(kind Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind() == kind {
			n++
		}
	}
	return n
}

// GroupedByKind returns the findings ordered by kind, keeping discovery order
// within a kind.
func (r Report) GroupedByKind() []Finding {
	ret := make([]Finding, len(r.Findings))
	copy(ret, r.Findings)
	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].Kind() < ret[j].Kind()
	})
	return ret
}
