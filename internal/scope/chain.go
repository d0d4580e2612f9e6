package scope

import (
	"errors"
	"fmt"
	"slices"
)

// ErrMalformedScope reports a scope chain that violates the construction
// contract. It indicates a bug in the host, not in the program being checked.
var ErrMalformedScope = errors.New("malformed scope chain")

// MalformedScopeError describes where a chain broke its contract.
type MalformedScopeError struct {
	Site   SiteID
	Frame  int
	Reason string
}

func (e *MalformedScopeError) Error() string {
	return fmt.Sprintf("%s: site %s, frame %d: %s", ErrMalformedScope, e.Site, e.Frame, e.Reason)
}

func (e *MalformedScopeError) Unwrap() error { return ErrMalformedScope }

// Chain is an immutable, innermost-first sequence of frames for one site.
type Chain struct {
	site   SiteID
	frames []Frame
}

// NewChain copies frames into a chain for site and validates it.
func NewChain(site SiteID, frames ...Frame) (*Chain, error) {
	c := &Chain{site: site, frames: make([]Frame, len(frames))}
	for i, f := range frames {
		f.Bindings = slices.Clone(f.Bindings)
		c.frames[i] = f
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Site returns the site the chain was built for.
func (c *Chain) Site() SiteID { return c.site }

// Len returns the number of frames.
func (c *Chain) Len() int { return len(c.frames) }

// Frames returns a copy of the frames, innermost first.
func (c *Chain) Frames() []Frame {
	return slices.Clone(c.frames)
}

// Walk visits frames innermost first until fn returns false.
// The frame must not be retained or modified.
func (c *Chain) Walk(fn func(index int, f *Frame) bool) {
	for i := range c.frames {
		if !fn(i, &c.frames[i]) {
			return
		}
	}
}

// Validate checks the chain invariants: known origins, non-negative depths
// that never decrease outward, and a declared type on every provider.
func (c *Chain) Validate() error {
	if c == nil {
		return &MalformedScopeError{Reason: "nil chain"}
	}
	prev := 0
	for i, f := range c.frames {
		if !f.Origin.Valid() {
			return &MalformedScopeError{Site: c.site, Frame: i, Reason: fmt.Sprintf("unknown origin %s", f.Origin)}
		}
		if f.Depth < 0 {
			return &MalformedScopeError{Site: c.site, Frame: i, Reason: fmt.Sprintf("negative depth %d", f.Depth)}
		}
		if f.Depth < prev {
			return &MalformedScopeError{
				Site:   c.site,
				Frame:  i,
				Reason: fmt.Sprintf("depth %d after depth %d", f.Depth, prev),
			}
		}
		prev = f.Depth
		for j, b := range f.Bindings {
			if b.Provider && b.Type == nil {
				return &MalformedScopeError{
					Site:   c.site,
					Frame:  i,
					Reason: fmt.Sprintf("provider binding %d (%s) has no type", j, b.Key()),
				}
			}
		}
	}
	return nil
}
