// Package report assembles the run-summary shape returned by the Test
// Manager's caller and renders it as JSON or a short text summary. A
// richer reporting UI is an external collaborator; this package only
// builds the documented shape.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/httprun/internal/model"
)

// Summary aggregates counts and timing across a whole run.
type Summary struct {
	TotalTests         int           `json:"totalTests" yaml:"totalTests"`
	PassedTests        int           `json:"passedTests" yaml:"passedTests"`
	FailedTests        int           `json:"failedTests" yaml:"failedTests"`
	TotalExecutionTime time.Duration `json:"totalExecutionTime" yaml:"totalExecutionTime"`
	StartTime          time.Time     `json:"startTime" yaml:"startTime"`
	EndTime            time.Time     `json:"endTime" yaml:"endTime"`
}

// Report is the documented `{ results, summary }` shape.
type Report struct {
	Results []*model.RequestResult `json:"results" yaml:"results"`
	Summary Summary                `json:"summary" yaml:"summary"`
	Status  string                 `json:"status" yaml:"status"` // "ok" or "cancelled"
}

// Build assembles a Report from a run's results and timing, counting every
// TestResult across every request.
func Build(results []*model.RequestResult, start, end time.Time, cancelled bool) *Report {
	s := Summary{StartTime: start, EndTime: end, TotalExecutionTime: end.Sub(start)}
	for _, r := range results {
		for _, t := range r.TestResults {
			s.TotalTests++
			if t.Passed {
				s.PassedTests++
			} else {
				s.FailedTests++
			}
		}
	}
	status := "ok"
	if cancelled {
		status = "cancelled"
	}
	return &Report{Results: results, Summary: s, Status: status}
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteYAML renders the report as YAML, for a saved run record that's
// meant to be read by a human or diffed in version control rather than
// consumed by another program.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(r)
}

// WriteText renders a short human-readable summary: one line per request,
// then the totals line. Not a replacement for a real reporting UI, just
// enough for CI logs.
func (r *Report) WriteText(w io.Writer) {
	for _, res := range r.Results {
		switch {
		case res.Skipped:
			fmt.Fprintf(w, "SKIP  %s (%s)\n", requestLabel(res.Request), res.SkippedCause)
		case res.Err != nil:
			fmt.Fprintf(w, "ERROR %s: %v\n", requestLabel(res.Request), res.Err)
		default:
			mark := "PASS"
			if !res.Passed() {
				mark = "FAIL"
			}
			fmt.Fprintf(w, "%s  %s (%d tests)\n", mark, requestLabel(res.Request), len(res.TestResults))
			for _, t := range res.TestResults {
				if t.Passed {
					continue
				}
				for _, a := range t.Results {
					if !a.Passed {
						fmt.Fprintf(w, "       - %s: %s\n", t.Name, a.Message)
					}
				}
			}
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total (%s)\n",
		r.Summary.PassedTests, r.Summary.FailedTests, r.Summary.TotalTests, r.Summary.TotalExecutionTime)
}

func requestLabel(req *model.Request) string {
	if req == nil {
		return "<unknown>"
	}
	if req.Name != "" {
		return req.Name
	}
	return req.Method + " " + req.URL
}
