package capres

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NigeWarren/dotty/internal/capconfig"
)

const ambiguousScenario = `
[[site]]
id = "S.scala:1"

  [[site.frame]]
  origin = "local"

    [[site.frame.given]]
    name = "a"
    type = "Ord[Int]"
    line = 2

    [[site.frame.given]]
    name = "b"
    type = "Ord[Int]"
    line = 3

  [[site.request]]
  type = "Ord[Int]"
  expect = "ambiguous"
`

const legacyScenario = `
[[site]]
id = "L.scala:5"

  [[site.frame]]
  origin = "import"
  label = "import Legacy._"

    [[site.frame.given]]
    name = "legacyOrd"
    type = "Ord[Int]"
    style = "old"
    line = 1

  [[site.request]]
  type = "Ord[Int]"
  expect = "resolved legacyOrd"
`

func setup(t *testing.T, files map[string]string) string {
	t.Helper()
	t.Setenv(capconfig.EnvConfig, "")
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	t.Chdir(dir)
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := RunWithIO(context.Background(), args, nil, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := run(t, "-version")
	if code != 0 {
		t.Errorf("RunWithIO(-version) returned %d, want 0", code)
	}
	if !strings.HasPrefix(stdout, "capres ") {
		t.Errorf("RunWithIO(-version) = %q, want capres prefix", stdout)
	}
}

func TestRun_Help(t *testing.T) {
	code, _, stderr := run(t, "-help")
	if code != 0 {
		t.Errorf("RunWithIO(-help) returned %d, want 0", code)
	}
	if !strings.Contains(stderr, "Usage: capres") {
		t.Errorf("usage not printed:\n%s", stderr)
	}
}

func TestRun_NoArgs(t *testing.T) {
	code, _, stderr := run(t)
	if code != 1 {
		t.Errorf("RunWithIO() returned %d, want 1", code)
	}
	if !strings.Contains(stderr, "no scenarios specified") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_Ambiguous(t *testing.T) {
	setup(t, map[string]string{"amb.toml": ambiguousScenario})

	code, stdout, stderr := run(t, "amb.toml")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1\nstderr: %s", code, stderr)
	}
	want := "amb.toml: S.scala:1: error: ambiguous capability for Ord[Int]: a, b [ambiguous-capability]\n" +
		"\tamb.toml:2:0: candidate a: Ord[Int]\n" +
		"\tamb.toml:3:0: candidate b: Ord[Int]\n" +
		"\n" +
		"Found 1 error(s) and 0 warning(s) in 1 request(s)\n"
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_MigrationModes(t *testing.T) {
	setup(t, map[string]string{"legacy.toml": legacyScenario})

	tests := []struct {
		args     []string
		wantCode int
		want     string
	}{
		{[]string{"-source", "3.0"}, 0, "Resolved 1 request(s) in 1 file(s), no issues found"},
		{[]string{"-source", "3.1-migration"}, 2, "warning: legacyOrd is an old-style provider imported by an ordinary import"},
		{[]string{"-mode", "strict"}, 1, "error: no capability provider found for Ord[Int]"},
		{[]string{"-source", "future"}, 1, "[capability-not-found]"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			code, stdout, stderr := run(t, append(tt.args, "legacy.toml")...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nstdout: %s\nstderr: %s", code, tt.wantCode, stdout, stderr)
			}
			if !strings.Contains(stdout, tt.want) {
				t.Errorf("output does not contain %q:\n%s", tt.want, stdout)
			}
		})
	}
}

func TestRun_Quiet(t *testing.T) {
	setup(t, map[string]string{"legacy.toml": legacyScenario})

	code, stdout, _ := run(t, "-quiet", "-source", "3.1", "legacy.toml")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if stdout != "" {
		t.Errorf("quiet output = %q, want empty", stdout)
	}
}

func TestRun_JSON(t *testing.T) {
	setup(t, map[string]string{
		"amb.toml":    ambiguousScenario,
		"legacy.toml": legacyScenario,
	})

	code, stdout, stderr := run(t, "-json", "-source", "3.1", ".")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1\nstderr: %s", code, stderr)
	}

	var out jsonOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if out.Files != 2 || out.Requests != 2 || out.Errors != 1 || out.Warnings != 1 {
		t.Errorf("totals = %+v", out)
	}
	want := []jsonRequest{
		{File: "amb.toml", Site: "S.scala:1", Type: "Ord[Int]", Mode: "warn", Outcome: "ambiguous", Result: "ambiguous a, b", Expect: "ambiguous"},
		{File: "legacy.toml", Site: "L.scala:5", Type: "Ord[Int]", Mode: "warn", Outcome: "resolved", Result: "resolved legacyOrd", Expect: "resolved legacyOrd"},
	}
	if diff := cmp.Diff(want, out.Results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if len(out.Diagnostics) != 2 || out.Diagnostics[1].Code != "deprecated-capability-import" {
		t.Errorf("diagnostics = %+v", out.Diagnostics)
	}
}

func TestRun_Check(t *testing.T) {
	setup(t, map[string]string{"legacy.toml": legacyScenario})

	code, stdout, _ := run(t, "-check", "legacy.toml")
	if code != 0 {
		t.Errorf("check in permissive mode = %d, want 0\n%s", code, stdout)
	}
	if !strings.Contains(stdout, "Checked 1 expectation(s): 0 failed") {
		t.Errorf("summary missing:\n%s", stdout)
	}

	code, stdout, _ = run(t, "-check", "-mode", "strict", "legacy.toml")
	if code != 1 {
		t.Errorf("check in strict mode = %d, want 1", code)
	}
	for _, want := range []string{
		"--- legacy.toml (expected)",
		"+++ legacy.toml (actual)",
		"-L.scala:5: Ord[Int]: resolved legacyOrd",
		"+L.scala:5: Ord[Int]: not-found",
		"Checked 1 expectation(s): 1 failed",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output does not contain %q:\n%s", want, stdout)
		}
	}
}

func TestRun_ConfigFile(t *testing.T) {
	setup(t, map[string]string{
		"legacy.toml": legacyScenario,
		"capres.toml": "[resolve]\nmode = \"strict\"\n",
	})

	// Discovered config selects strict mode.
	if code, stdout, _ := run(t, "legacy.toml"); code != 1 {
		t.Errorf("exit code = %d, want 1\n%s", code, stdout)
	}
	// -source without -mode replaces the configured mode.
	if code, stdout, _ := run(t, "-source", "3.0", "legacy.toml"); code != 0 {
		t.Errorf("exit code = %d, want 0\n%s", code, stdout)
	}
	// The directory walk skips the config file itself.
	code, stdout, _ := run(t, "-mode", "permissive", ".")
	if code != 0 || !strings.Contains(stdout, "in 1 file(s)") {
		t.Errorf("exit code = %d\n%s", code, stdout)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	setup(t, map[string]string{
		"legacy.toml": legacyScenario,
		"bad.toml":    "[resolve]\nmode = \"lenient\"\n",
	})

	code, _, stderr := run(t, "-config", "bad.toml", "legacy.toml")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr, "capres: ") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_BrokenScenario(t *testing.T) {
	setup(t, map[string]string{"broken.toml": "[[site]]\nid = \"a\"\n[[site.request]]\ntype = \"Ord[\"\n"})

	code, _, stderr := run(t, "broken.toml")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "broken.toml") {
		t.Errorf("stderr does not name the file: %q", stderr)
	}
}

func TestExpandPaths(t *testing.T) {
	dir := setup(t, map[string]string{
		"b.toml":          "",
		"a.yaml":          "",
		"nested/c.sky":    "",
		"nested/notes.md": "",
		".hidden/d.toml":  "",
		"capres.sky":      "",
	})

	got, err := expandPaths([]string{dir, filepath.Join(dir, "a.yaml"), filepath.Join(dir, "*.toml")})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.toml"),
		filepath.Join(dir, "nested", "c.sky"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("expandPaths mismatch (-want +got):\n%s", diff)
	}

	if _, err := expandPaths([]string{filepath.Join(dir, "missing.toml")}); err == nil {
		t.Error("expandPaths(missing) returned no error")
	}
}
