// Package cmdtest provides a testscript-based test harness for the capres
// command.
//
// It uses txtar files to specify scenario inputs and expected outputs.
//
// Example test file (testdata/capres/ambiguous.txtar):
//
//	# Two providers in the same frame are ambiguous
//	! exec capres amb.toml
//	stdout 'ambiguous-capability'
//
//	-- amb.toml --
//	[[site]]
//	id = "A.scala:1"
//	...
package cmdtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/NigeWarren/dotty/internal/capconfig"
	"github.com/NigeWarren/dotty/internal/cmd/capres"
)

// Run executes the testscript tests in the given directory.
func Run(t *testing.T, dir string) {
	testscript.Run(t, testscript.Params{
		Dir: dir,
		Setup: func(env *testscript.Env) error {
			// Keep config discovery inside the script's work directory.
			if err := os.Mkdir(filepath.Join(env.WorkDir, ".git"), 0o755); err != nil {
				return err
			}
			env.Setenv(capconfig.EnvConfig, "")
			return nil
		},
	})
}

// Main is the TestMain function that should be called from test files.
// It registers capres as a testscript command.
func Main(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"capres": func() int { return capres.Run(os.Args[1:]) },
	}))
}
