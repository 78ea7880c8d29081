package inconsistency

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
)

// WriteText writes the final, itemized report. If grouped is set, findings
// are ordered by kind instead of by discovery.
func WriteText(w io.Writer, r Report, grouped bool) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s\nFINAL REPORT\n%s\n", rule(), rule())
	if r.Equal() {
		sb.WriteString("✓ Tables are identical (possibly reordered)\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}
	fmt.Fprintf(&sb, "✗ Found %d difference(s):\n\n", len(r.Findings))
	findings := r.Findings
	if grouped {
		findings = r.GroupedByKind()
	}
	for i, f := range findings {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, strings.ToUpper(f.Kind().String()), f.Message())
	}
	fmt.Fprintf(&sb, "\n%s\n", rule())
	_, err := io.WriteString(w, sb.String())
	return err
}

type jsonFinding struct {
	Kind         Kind   `json:"kind"`
	Message      string `json:"message"`
	Column       string `json:"column,omitempty"`
	FirstDiffRow *int   `json:"first_diff_row,omitempty"`
}

type jsonReport struct {
	Equal    bool          `json:"equal"`
	Findings []jsonFinding `json:"findings"`
}

// WriteJSON writes the report as a single JSON document.
func WriteJSON(w io.Writer, r Report, grouped bool) error {
	findings := r.Findings
	if grouped {
		findings = r.GroupedByKind()
	}
	out := jsonReport{
		Equal:    r.Equal(),
		Findings: make([]jsonFinding, 0, len(findings)),
	}
	for _, f := range findings {
		jf := jsonFinding{Kind: f.Kind(), Message: f.Message()}
		switch f := f.(type) {
		case MismatchingColumn:
			jf.Column = f.Column
			if f.HasFirstDiffRow {
				row := f.FirstDiffRow
				jf.FirstDiffRow = &row
			}
		case ComparisonError:
			jf.Column = f.Column
		}
		out.Findings = append(out.Findings, jf)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return errors.Wrap(err, "error encoding report")
	}
	return nil
}
