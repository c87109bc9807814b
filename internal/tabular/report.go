package tabular

import "fmt"

// maxIssues caps how many row-level issues a Report retains.
const maxIssues = 25

// Report summarizes schema validation of one loaded table.
type Report struct {
	Source  string   `json:"source" yaml:"source"`
	Rows    int      `json:"rows" yaml:"rows"`
	Loaded  int      `json:"loaded" yaml:"loaded"`
	Skipped int      `json:"skipped" yaml:"skipped"`
	Issues  []string `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// Skip records a rejected row. line is the 1-based data row number.
func (r *Report) Skip(line int, reason string) {
	r.Skipped++
	r.Note(fmt.Sprintf("row %d: %s", line, reason))
}

// Note records an issue that did not reject a row.
func (r *Report) Note(issue string) {
	if len(r.Issues) < maxIssues {
		r.Issues = append(r.Issues, issue)
	}
}
