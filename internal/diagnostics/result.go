package diagnostics

// Result holds the diagnostics of one or more resolved requests.
type Result struct {
	// Diagnostics contains all findings.
	Diagnostics []Diagnostic

	// Requests is the number of requests that were classified.
	Requests int
}

// Add appends the diagnostics of one request.
func (r *Result) Add(ds ...Diagnostic) {
	r.Requests++
	r.Diagnostics = append(r.Diagnostics, ds...)
}

// HasErrors returns true if any diagnostic is an error.
func (r *Result) HasErrors() bool {
	return r.ErrorCount() > 0
}

// ErrorCount returns the number of error-level diagnostics.
func (r *Result) ErrorCount() int {
	return r.count(SeverityError)
}

// WarningCount returns the number of warning-level diagnostics.
func (r *Result) WarningCount() int {
	return r.count(SeverityWarning)
}

func (r *Result) count(s Severity) int {
	count := 0
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			count++
		}
	}
	return count
}
