// Package version reports the build version of capres.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set by the linker: -X github.com/NigeWarren/dotty/internal/version.Version=...
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the version for -version output. Binaries installed with
// go install report their module version when none was linked in.
func String() string {
	v := Version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return fmt.Sprintf("%s (commit %s, built %s)", v, Commit, Date)
}
