// Package migration defines how old-style capability providers reached
// through ordinary imports are treated during a compilation run.
package migration

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Mode controls whether old-style providers exposed by ordinary imports
// take part in resolution.
type Mode string

const (
	// Permissive keeps such providers without a diagnostic.
	Permissive Mode = "permissive"

	// Warn keeps such providers and reports a deprecation when one is selected.
	Warn Mode = "warn"

	// Strict drops such providers before ranking, as if they were not visible.
	Strict Mode = "strict"
)

// String returns the string representation of the Mode.
func (m Mode) String() string {
	return string(m)
}

// Parse parses a string into a Mode.
// An empty string defaults to Permissive.
func Parse(s string) (Mode, error) {
	switch s {
	case "", "permissive":
		return Permissive, nil
	case "warn", "warning":
		return Warn, nil
	case "strict", "error":
		return Strict, nil
	default:
		return "", fmt.Errorf("unknown migration mode: %q (valid: permissive, warn, strict)", s)
	}
}

// KeepsOldStyleImports returns true if old-style providers reached through
// ordinary imports remain candidates.
func (m Mode) KeepsOldStyleImports() bool {
	return m == Permissive || m == Warn
}

// ReportsDeprecation returns true if selecting such a provider is reported.
func (m Mode) ReportsDeprecation() bool {
	return m == Warn
}

// AllModes returns all defined migration modes.
func AllModes() []Mode {
	return []Mode{Permissive, Warn, Strict}
}

// FutureVersion is the source version naming the next, unreleased language level.
const FutureVersion = "future"

// FromVersion maps a declared language-version target to its mode:
// up to 3.0 is Permissive, 3.1 is Warn, anything later is Strict.
//
// Accepted forms: "3", "3.0", "3.1.2", "v3.1", "3.1-migration", "future",
// "future-migration". A "-migration" suffix does not change the mapping.
func FromVersion(version string) (Mode, error) {
	v := strings.TrimSpace(version)
	v = strings.TrimSuffix(v, "-migration")
	if v == "" {
		return "", fmt.Errorf("empty language version")
	}
	if v == FutureVersion {
		return Strict, nil
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return "", fmt.Errorf("invalid language version %q", version)
	}

	mm := semver.MajorMinor(v)
	switch c := semver.Compare(mm, "v3.1"); {
	case c < 0:
		return Permissive, nil
	case c == 0:
		return Warn, nil
	default:
		return Strict, nil
	}
}
