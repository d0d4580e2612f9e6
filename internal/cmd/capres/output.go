package capres

import (
	"encoding/json"

	"github.com/NigeWarren/dotty/internal/cli"
	"github.com/NigeWarren/dotty/internal/diagnostics"
	"github.com/NigeWarren/dotty/internal/scenario"
)

// totals sums the findings of every report.
func totals(reports []*fileReport) (requests, errors, warnings int) {
	for _, rep := range reports {
		requests += rep.result.Requests
		errors += rep.result.ErrorCount()
		warnings += rep.result.WarningCount()
	}
	return requests, errors, warnings
}

func (r *runner) outputText(reports []*fileReport) int {
	w := r.stdout
	quiet := r.cfg.Output.Quiet

	printed := 0
	for _, rep := range reports {
		for _, d := range rep.result.Diagnostics {
			if quiet && d.Severity != diagnostics.SeverityError {
				continue
			}
			cli.Writef(w, "%s: %s: %s: %s [%s]\n", rep.path, d.Site, d.Severity, d.Message, d.Code)
			for _, rel := range d.Related {
				cli.Writef(w, "\t%s: %s\n", rel.Pos, rel.Message)
			}
			printed++
		}
	}

	requests, errors, warnings := totals(reports)
	if !quiet {
		if printed > 0 {
			cli.Writeln(w)
		}
		if errors > 0 || warnings > 0 {
			cli.Writef(w, "Found %d error(s) and %d warning(s) in %d request(s)\n",
				errors, warnings, requests)
		} else {
			cli.Writef(w, "Resolved %d request(s) in %d file(s), no issues found\n", requests, len(reports))
		}
	}

	return cli.ExitCode(errors, warnings)
}

type jsonOutput struct {
	Files       int              `json:"files"`
	Requests    int              `json:"requests"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
	Results     []jsonRequest    `json:"results"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
}

type jsonRequest struct {
	File    string `json:"file"`
	Site    string `json:"site"`
	Type    string `json:"type"`
	Mode    string `json:"mode"`
	Outcome string `json:"outcome"`
	Result  string `json:"result"`
	Expect  string `json:"expect,omitempty"`
}

type jsonDiagnostic struct {
	File     string        `json:"file"`
	Site     string        `json:"site"`
	Position string        `json:"position,omitempty"`
	Severity string        `json:"severity"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Related  []jsonRelated `json:"related,omitempty"`
}

type jsonRelated struct {
	Position string `json:"position"`
	Message  string `json:"message"`
}

func (r *runner) outputJSON(reports []*fileReport) int {
	requests, errors, warnings := totals(reports)
	out := jsonOutput{
		Files:       len(reports),
		Requests:    requests,
		Errors:      errors,
		Warnings:    warnings,
		Results:     make([]jsonRequest, 0, requests),
		Diagnostics: []jsonDiagnostic{},
	}

	for _, rep := range reports {
		for _, e := range rep.entries {
			out.Results = append(out.Results, jsonRequest{
				File:    rep.path,
				Site:    string(e.site.ID),
				Type:    e.request.Type.String(),
				Mode:    e.mode.String(),
				Outcome: e.outcome.Kind().String(),
				Result:  scenario.Expectation(e.outcome),
				Expect:  e.request.Expect,
			})
		}
		for _, d := range rep.result.Diagnostics {
			jd := jsonDiagnostic{
				File:     rep.path,
				Site:     string(d.Site),
				Severity: d.Severity.String(),
				Code:     d.Code,
				Message:  d.Message,
			}
			if d.Pos.IsValid() {
				jd.Position = d.Pos.String()
			}
			for _, rel := range d.Related {
				jd.Related = append(jd.Related, jsonRelated{Position: rel.Pos.String(), Message: rel.Message})
			}
			out.Diagnostics = append(out.Diagnostics, jd)
		}
	}

	enc := json.NewEncoder(r.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return cli.ExitError
	}

	return cli.ExitCode(errors, warnings)
}
