// Package diagnostics turns resolution outcomes into user-facing findings.
//
// Classification is pure: it never re-runs resolution and never renders
// text for a particular frontend. Hosts decide how to print the result.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/NigeWarren/dotty/internal/migration"
	"github.com/NigeWarren/dotty/internal/resolve"
	"github.com/NigeWarren/dotty/internal/scope"
	"github.com/NigeWarren/dotty/internal/sortutil"
)

// Diagnostic codes.
const (
	CodeDeprecatedImport = "deprecated-capability-import"
	CodeAmbiguous        = "ambiguous-capability"
	CodeNotFound         = "capability-not-found"
	CodeDivergent        = "divergent-capability-search"
	CodeMissingImport    = "missing-capability-import"
)

// Diagnostic represents a single finding at a resolution site.
type Diagnostic struct {
	// Site is the resolution site the finding belongs to.
	Site scope.SiteID

	// Pos is the declaration the finding points at, if any.
	Pos scope.Position

	// Severity indicates the severity of the finding.
	Severity Severity

	// Code is a stable identifier for this kind of finding.
	Code string

	// Message is a terse human-readable summary.
	Message string

	// Related points at the other declarations involved.
	Related []Related
}

// Related is a secondary location attached to a diagnostic.
type Related struct {
	Pos     scope.Position
	Message string
}

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Classify reports the diagnostics for one outcome at site.
func Classify(site scope.SiteID, out resolve.Outcome, mode migration.Mode) []Diagnostic {
	switch o := out.(type) {
	case *resolve.Resolved:
		return deprecations(site, o, mode)
	case *resolve.Ambiguous:
		return []Diagnostic{ambiguous(site, o)}
	case *resolve.NotFound:
		return notFound(site, o)
	case *resolve.DivergentSearch:
		return []Diagnostic{divergent(site, o)}
	default:
		panic(fmt.Sprintf("diagnostics: unexpected outcome %T", out))
	}
}

func deprecations(site scope.SiteID, o *resolve.Resolved, mode migration.Mode) []Diagnostic {
	if !mode.ReportsDeprecation() {
		return nil
	}
	var out []Diagnostic
	for _, d := range o.Deprecations {
		out = append(out, Diagnostic{
			Site:     site,
			Pos:      d.Pos,
			Severity: SeverityWarning,
			Code:     CodeDeprecatedImport,
			Message: fmt.Sprintf("%s is an old-style provider imported by an ordinary import (%s); use a capability import",
				displayName(d.Name, d.Ref), d.Frame),
		})
	}
	return out
}

func ambiguous(site scope.SiteID, o *resolve.Ambiguous) Diagnostic {
	names := make([]string, len(o.Candidates))
	related := make([]Related, len(o.Candidates))
	for i, c := range o.Candidates {
		names[i] = c.DisplayName()
		related[i] = Related{Pos: c.Pos, Message: fmt.Sprintf("candidate %s: %s", c.DisplayName(), c.Type)}
	}
	return Diagnostic{
		Site:     site,
		Severity: SeverityError,
		Code:     CodeAmbiguous,
		Message:  fmt.Sprintf("ambiguous capability for %s: %s", o.Required, strings.Join(names, ", ")),
		Related:  related,
	}
}

func notFound(site scope.SiteID, o *resolve.NotFound) []Diagnostic {
	d := Diagnostic{
		Site:     site,
		Severity: SeverityError,
		Code:     CodeNotFound,
		Message:  fmt.Sprintf("no capability provider found for %s", o.Required),
	}
	for _, r := range o.Rejected {
		d.Related = append(d.Related, Related{
			Pos:     r.Candidate.Pos,
			Message: rejectionMessage(r),
		})
	}

	out := []Diagnostic{d}
	for _, h := range o.Hints {
		out = append(out, Diagnostic{
			Site:     site,
			Pos:      h.Pos,
			Severity: SeverityInfo,
			Code:     CodeMissingImport,
			Message:  fmt.Sprintf("%s provides %s but is only visible through a capability import (%s)", h.DisplayName(), h.Type, h.Frame),
		})
	}
	return out
}

func rejectionMessage(r resolve.Rejection) string {
	name := r.Candidate.DisplayName()
	switch r.Reason {
	case resolve.RejectWrongType:
		return fmt.Sprintf("%s has incompatible type %s", name, r.Candidate.Type)
	case resolve.RejectMigration:
		return fmt.Sprintf("%s is an old-style provider from an ordinary import, not eligible in %s mode", name, r.Detail)
	case resolve.RejectShadowed:
		return fmt.Sprintf("%s is shadowed by %s", name, r.Detail)
	case resolve.RejectNestedNotFound:
		return fmt.Sprintf("%s needs %s, which has no provider", name, r.Detail)
	case resolve.RejectNestedAmbiguous:
		return fmt.Sprintf("%s needs %s, which is ambiguous", name, r.Detail)
	case resolve.RejectNestedDivergent:
		return fmt.Sprintf("%s needs %s, whose search diverges", name, r.Detail)
	default:
		return fmt.Sprintf("%s rejected: %s", name, r.Reason)
	}
}

func divergent(site scope.SiteID, o *resolve.DivergentSearch) Diagnostic {
	steps := make([]string, len(o.Cycle))
	for i, e := range o.Cycle {
		steps[i] = e.Type.String()
	}
	return Diagnostic{
		Site:     site,
		Severity: SeverityError,
		Code:     CodeDivergent,
		Message:  fmt.Sprintf("capability search for %s diverges: %s", o.Required, strings.Join(steps, " -> ")),
	}
}

func displayName(name string, ref scope.ProviderRef) string {
	if name != "" {
		return name
	}
	return string(ref)
}

// Sort orders diagnostics by site, then declaration position.
func Sort(ds []Diagnostic) {
	sortutil.ByLocation(ds,
		func(d Diagnostic) string { return string(d.Site) },
		func(d Diagnostic) int { return d.Pos.Line },
		func(d Diagnostic) int { return d.Pos.Col },
	)
}
