// Package resolve finds the unique capability provider for a required type at
// a resolution site.
//
// Resolution runs in four steps: Collect gathers the providers visible
// through each frame's channel, Filter applies the migration policy,
// shadowing and ranking, the Resolver matches the survivors against the
// required type and synthesizes their parameters recursively, and the best
// ranked fully resolved provider wins. Equally ranked winners are ambiguous.
package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/NigeWarren/dotty/internal/logging"
	"github.com/NigeWarren/dotty/internal/migration"
	"github.com/NigeWarren/dotty/internal/scope"
	"github.com/NigeWarren/dotty/internal/types"
)

// ErrNoRequiredType is returned for a request without a required type.
var ErrNoRequiredType = errors.New("resolve: request has no required type")

// Request asks for a provider of Type at the site described by Chain.
type Request struct {
	Type  types.TypeRef
	Chain *scope.Chain
	Mode  migration.Mode
}

// Options configures a Resolver.
type Options struct {
	// Matcher is the type compatibility oracle. Defaults to types.Structural{}.
	Matcher types.Matcher

	// Logger receives debug traces of the search. Defaults to discarding.
	Logger *slog.Logger

	// Specificity enables the most-specific refinement among equally ranked
	// winners. Off by default, so rank alone decides and every tie is
	// ambiguous.
	Specificity bool
}

// Resolver resolves capability requests. It holds no per-request state and
// may be shared by concurrent callers.
type Resolver struct {
	matcher     types.Matcher
	logger      *slog.Logger
	specificity bool
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	r := &Resolver{
		matcher:     opts.Matcher,
		logger:      opts.Logger,
		specificity: opts.Specificity,
	}
	if r.matcher == nil {
		r.matcher = types.Structural{}
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	return r
}

// Resolve runs one top-level request. User-facing failures (ambiguity, no
// provider, divergence) are reported as the Outcome; the error is reserved
// for broken requests, such as a malformed chain or an unknown mode.
func (r *Resolver) Resolve(req Request) (Outcome, error) {
	if req.Type == nil {
		return nil, ErrNoRequiredType
	}
	if err := req.Chain.Validate(); err != nil {
		return nil, fmt.Errorf("resolving %s: %w", req.Type, err)
	}
	mode, err := migration.Parse(string(req.Mode))
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", req.Type, err)
	}

	collected, hidden := Collect(req.Chain)
	kept, rejected := Filter(collected, mode)

	s := &search{
		Resolver: r,
		site:     req.Chain.Site(),
		mode:     mode,
		kept:     kept,
		rejected: rejected,
		hidden:   hidden,
	}
	out := s.resolve(req.Type, nil)
	r.logger.Debug("capability resolved",
		"site", s.site,
		"type", req.Type.String(),
		"mode", mode.String(),
		"outcome", out.Kind().String(),
	)
	return out, nil
}

// search is the state of one top-level request. The candidate sets are
// computed once because nested requests resolve at the same site.
type search struct {
	*Resolver
	site     scope.SiteID
	mode     migration.Mode
	kept     []Candidate
	rejected []Rejection
	hidden   []Candidate
}

// success is a candidate whose parameters all resolved.
type success struct {
	cand    Candidate
	witness *Witness
	deps    []Deprecation
}

func (s *search) resolve(required types.TypeRef, p *path) Outcome {
	if cycle, ok := p.recurrence(PathEntry{Type: required, Site: s.site}); ok {
		s.logger.Debug("divergent search: recurrence", "type", required.String(), "site", s.site)
		return &DivergentSearch{Required: required, Cycle: cycle}
	}

	var (
		rejected  []Rejection
		divergent *DivergentSearch
	)
	for _, r := range s.rejected {
		if _, ok := s.matcher.Match(r.Candidate.Type, r.Candidate.TypeParams, required); ok {
			rejected = append(rejected, r)
		}
	}

	for start := 0; start < len(s.kept); {
		end := start + 1
		for end < len(s.kept) && s.kept[end].Rank.Ties(s.kept[start].Rank) {
			end++
		}
		group := s.kept[start:end]
		start = end

		var wins []success
		for _, c := range group {
			subst, ok := s.matcher.Match(c.Type, c.TypeParams, required)
			if !ok {
				rejected = append(rejected, Rejection{Candidate: c, Reason: RejectWrongType})
				continue
			}
			win, rej, div := s.synthesize(required, c, subst, p)
			if rej != nil {
				rejected = append(rejected, *rej)
				if div != nil && divergent == nil {
					divergent = div
				}
				continue
			}
			wins = append(wins, win)
		}

		s.logger.Debug("candidate group",
			"type", required.String(),
			"depth", p.len(),
			"group", len(group),
			"resolved", len(wins),
		)

		if len(wins) == 0 {
			continue
		}
		if s.specificity && len(wins) > 1 {
			wins = s.mostSpecific(wins)
		}
		if len(wins) == 1 {
			w := wins[0]
			return &Resolved{
				Required:     required,
				Witness:      w.witness,
				Ref:          w.cand.Ref,
				Deprecations: dedupe(w.deps),
			}
		}
		tied := make([]Candidate, len(wins))
		for i, w := range wins {
			tied[i] = w.cand
		}
		return &Ambiguous{Required: required, Candidates: tied}
	}

	if divergent != nil {
		return &DivergentSearch{Required: required, Cycle: divergent.Cycle}
	}

	var hints []Candidate
	for _, h := range s.hidden {
		if _, ok := s.matcher.Match(h.Type, h.TypeParams, required); ok {
			hints = append(hints, h)
		}
	}
	sortRejections(rejected)
	return &NotFound{Required: required, Rejected: rejected, Hints: hints}
}

// synthesize resolves every parameter of c for required. On failure it
// returns the rejection, and the nested divergence if that was the cause.
func (s *search) synthesize(required types.TypeRef, c Candidate, subst types.Subst, p *path) (success, *Rejection, *DivergentSearch) {
	entry := PathEntry{Type: required, Site: s.site, Ref: c.Ref}
	if cycle, ok := p.dominated(entry); ok {
		s.logger.Debug("divergent search: growing requirement", "type", required.String(), "provider", string(c.Ref))
		return success{}, &Rejection{Candidate: c, Reason: RejectNestedDivergent, Detail: required.String()},
			&DivergentSearch{Required: required, Cycle: cycle}
	}
	next := p.push(entry)

	w := &Witness{
		Ref:  c.Ref,
		Name: c.Name,
		Type: types.Apply(c.Type, subst),
	}
	for _, tp := range c.TypeParams {
		if bound, ok := subst[tp]; ok {
			w.TypeArgs = append(w.TypeArgs, bound)
		} else {
			w.TypeArgs = append(w.TypeArgs, types.Var(tp))
		}
	}

	var deps []Deprecation
	if c.Deprecated && s.mode.ReportsDeprecation() {
		deps = append(deps, Deprecation{Ref: c.Ref, Name: c.Name, Pos: c.Pos, Frame: c.Frame})
	}

	for _, param := range c.Params {
		need := types.Apply(param, subst)
		switch o := s.resolve(need, next).(type) {
		case *Resolved:
			w.Args = append(w.Args, o.Witness)
			deps = append(deps, o.Deprecations...)
		case *Ambiguous:
			return success{}, &Rejection{Candidate: c, Reason: RejectNestedAmbiguous, Detail: need.String()}, nil
		case *NotFound:
			return success{}, &Rejection{Candidate: c, Reason: RejectNestedNotFound, Detail: need.String()}, nil
		case *DivergentSearch:
			return success{}, &Rejection{Candidate: c, Reason: RejectNestedDivergent, Detail: need.String()}, o
		}
	}
	return success{cand: c, witness: w, deps: deps}, nil, nil
}

// mostSpecific drops every win that another win is strictly more specific than.
func (s *search) mostSpecific(wins []success) []success {
	out := make([]success, 0, len(wins))
	for i, a := range wins {
		dominated := false
		for j, b := range wins {
			if i != j && types.MoreSpecific(s.matcher, b.cand.Type, b.cand.TypeParams, a.cand.Type, a.cand.TypeParams) {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, a)
		}
	}
	return out
}

func dedupe(deps []Deprecation) []Deprecation {
	if len(deps) < 2 {
		return deps
	}
	seen := make(map[scope.ProviderRef]bool, len(deps))
	out := deps[:0:0]
	for _, d := range deps {
		if !seen[d.Ref] {
			seen[d.Ref] = true
			out = append(out, d)
		}
	}
	return out
}

func sortRejections(rs []Rejection) {
	slices.SortStableFunc(rs, func(a, b Rejection) int {
		return a.Candidate.Rank.Compare(b.Candidate.Rank)
	})
}
