package capres

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/NigeWarren/dotty/internal/cli"
	"github.com/NigeWarren/dotty/internal/scenario"
)

// outputCheck compares every request carrying an expectation with its
// outcome and prints a unified diff per file that disagrees.
func (r *runner) outputCheck(reports []*fileReport) int {
	w := r.stdout
	checked, failed := 0, 0

	for _, rep := range reports {
		var want, got []string
		mismatch := false
		for _, e := range rep.entries {
			if e.request.Expect == "" {
				continue
			}
			checked++
			prefix := fmt.Sprintf("%s: %s: ", e.site.ID, e.request.Type)
			actual := scenario.Expectation(e.outcome)
			if scenario.Matches(e.request.Expect, e.outcome) {
				// Kind-only expectations are satisfied by any outcome of that kind.
				actual = e.request.Expect
			} else {
				failed++
				mismatch = true
			}
			want = append(want, prefix+strings.TrimSpace(e.request.Expect)+"\n")
			got = append(got, prefix+actual+"\n")
		}
		if !mismatch {
			continue
		}

		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        want,
			B:        got,
			FromFile: rep.path + " (expected)",
			ToFile:   rep.path + " (actual)",
			Context:  3,
		})
		if err != nil {
			cli.Writef(r.stderr, "capres: %s: %v\n", rep.path, err)
			return cli.ExitError
		}
		cli.Write(w, text)
	}

	if !r.cfg.Output.Quiet {
		cli.Writef(w, "Checked %d expectation(s): %d failed\n", checked, failed)
	}
	if failed > 0 {
		return cli.ExitError
	}
	return cli.ExitOK
}
