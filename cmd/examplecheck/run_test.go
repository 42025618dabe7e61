package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamwaffles/stm32f103xx-hal/internal/manifest"
	"github.com/jamwaffles/stm32f103xx-hal/internal/testutil"
)

// setup builds a complete fixture for an end-to-end run: a library root as
// the working directory, a served template archive, a fake cargo, and a
// private TMPDIR so scratch workspaces can be observed. Returns the library
// dir, the cargo log path, and the args selecting the fixture template.
func setup(t *testing.T, failOn string, exampleNames ...string) (lib, cargoLog string, args []string) {
	t.Helper()

	t.Setenv("EXAMPLECHECK_TARGET", "")
	t.Setenv("TARGET", "")
	t.Setenv("TMPDIR", t.TempDir())

	lib = testutil.CreateLibrary(t, "stm32f103xx-hal", exampleNames...)
	chdir(t, lib)

	cargoLog = testutil.FakeCargo(t, failOn)
	url := testutil.ServeArchive(t, testutil.TemplateArchive(t))

	args = []string{
		"--target", "thumbv7m-none-eabi",
		"--template-repo", url,
		"--template-version", "v0.3.7",
	}
	return lib, cargoLog, args
}

// scratchDirs lists examplecheck scratch workspaces left under TMPDIR.
func scratchDirs(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(os.Getenv("TMPDIR"))
	if err != nil {
		t.Fatal(err)
	}
	var dirs []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "examplecheck-") {
			dirs = append(dirs, filepath.Join(os.Getenv("TMPDIR"), e.Name()))
		}
	}
	return dirs
}

func execute(args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func TestRun_checksEveryExampleInOrder(t *testing.T) {
	_, cargoLog, args := setup(t, "", "uart", "blink")

	if err := execute(args); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	log := testutil.CargoLog(t, cargoLog)
	if len(log) != 2 {
		t.Fatalf("cargo invoked %d times, want 2", len(log))
	}
	// Lexicographic order, regardless of creation order.
	wantArgs := []string{
		"check --example blink --target thumbv7m-none-eabi",
		"check --example uart --target thumbv7m-none-eabi",
	}
	for i, want := range wantArgs {
		if log[i].Args != want {
			t.Errorf("call %d = %q, want %q", i, log[i].Args, want)
		}
	}
	// Checks run inside the scratch workspace, not the library.
	if !strings.Contains(log[0].Dir, "examplecheck-") {
		t.Errorf("check ran in %q, want a scratch workspace", log[0].Dir)
	}
}

func TestRun_templateExamplesDiscarded(t *testing.T) {
	// The template archive ships its own examples/hello.rs; only the
	// library's examples may be checked.
	_, cargoLog, args := setup(t, "", "blink")

	if err := execute(args); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, call := range testutil.CargoLog(t, cargoLog) {
		if strings.Contains(call.Args, "hello") {
			t.Errorf("template example was checked: %q", call.Args)
		}
	}
}

func TestRun_failFast(t *testing.T) {
	_, cargoLog, args := setup(t, "pwm", "blink", "pwm", "uart")

	if err := execute(args); err == nil {
		t.Fatal("run should fail when an example fails its check")
	}

	log := testutil.CargoLog(t, cargoLog)
	if len(log) != 2 {
		t.Fatalf("cargo invoked %d times, want 2 (blink, then failing pwm)", len(log))
	}
	if !strings.Contains(log[0].Args, "blink") || !strings.Contains(log[1].Args, "pwm") {
		t.Errorf("unexpected check order: %v", log)
	}
	for _, call := range log {
		if strings.Contains(call.Args, "uart") {
			t.Error("examples after the first failure must not be checked")
		}
	}
}

func TestRun_cleanup(t *testing.T) {
	tests := []struct {
		name   string
		failOn string
	}{
		{"success", ""},
		{"check failure", "blink"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, args := setup(t, tt.failOn, "blink")

			err := execute(args)
			if (tt.failOn != "") != (err != nil) {
				t.Fatalf("err = %v, failOn = %q", err, tt.failOn)
			}
			if dirs := scratchDirs(t); len(dirs) != 0 {
				t.Errorf("scratch workspaces left behind: %v", dirs)
			}
		})
	}
}

func TestRun_cleanupOnProvisioningFailure(t *testing.T) {
	_, cargoLog, args := setup(t, "", "blink")

	// Point the template repo at a port nothing listens on.
	args[3] = "http://127.0.0.1:1/missing"
	if err := execute(args); err == nil {
		t.Fatal("run should fail when the archive is unreachable")
	}

	if dirs := scratchDirs(t); len(dirs) != 0 {
		t.Errorf("scratch workspaces left behind: %v", dirs)
	}
	if log := testutil.CargoLog(t, cargoLog); len(log) != 0 {
		t.Errorf("no checks may run after provisioning fails, got %v", log)
	}
}

func TestRun_keep(t *testing.T) {
	_, _, args := setup(t, "", "blink", "uart")

	// The injected path entries are built from the harness's own view of
	// the invocation directory.
	lib, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	if err := execute(append(args, "--keep")); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	dirs := scratchDirs(t)
	if len(dirs) != 1 {
		t.Fatalf("want exactly one kept workspace, got %v", dirs)
	}
	scratch := dirs[0]

	// Manifest extension: prior content plus both injected entries.
	doc, err := manifest.Load(filepath.Join(scratch, "Cargo.toml"))
	if err != nil {
		t.Fatalf("loading scratch manifest: %v", err)
	}
	if doc.Dependency("cortex-m") != "0.5.8" {
		t.Error("template dependency lost during injection")
	}
	hal, ok := doc.Dependency("stm32f103xx-hal").(map[string]any)
	if !ok || hal["path"] != lib {
		t.Errorf("stm32f103xx-hal = %v, want path table pointing at %s", doc.Dependency("stm32f103xx-hal"), lib)
	}
	if doc.Dependency("cortex-m-rt") != "0.6.5" {
		t.Errorf("cortex-m-rt = %v, want pinned 0.6.5", doc.Dependency("cortex-m-rt"))
	}

	// Correct example source: the examples path is a link to the library.
	target, err := os.Readlink(filepath.Join(scratch, "examples"))
	if err != nil {
		t.Fatalf("examples is not a symlink: %v", err)
	}
	if target != filepath.Join(lib, "examples") {
		t.Errorf("examples links to %q, want %q", target, filepath.Join(lib, "examples"))
	}

	// Pruned template paths stay gone.
	for _, p := range []string{"build.rs", "memory.x", "src"} {
		if _, err := os.Stat(filepath.Join(scratch, p)); !os.IsNotExist(err) {
			t.Errorf("template path %s should have been pruned", p)
		}
	}
}

func TestRun_missingTarget(t *testing.T) {
	_, cargoLog, args := setup(t, "", "blink")

	// Drop --target and its value.
	err := execute(args[2:])
	if err == nil || !strings.Contains(err.Error(), "target") {
		t.Fatalf("err = %v, want missing-target error", err)
	}
	// The run must fail before any verification work happens.
	if log := testutil.CargoLog(t, cargoLog); len(log) != 0 {
		t.Errorf("cargo was invoked despite missing target: %v", log)
	}
	if dirs := scratchDirs(t); len(dirs) != 0 {
		t.Errorf("scratch workspaces left behind: %v", dirs)
	}
}

func TestRun_targetFromEnvironment(t *testing.T) {
	_, cargoLog, args := setup(t, "", "blink")
	t.Setenv("EXAMPLECHECK_TARGET", "thumbv6m-none-eabi")

	// No --target flag; environment supplies it.
	if err := execute(args[2:]); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	log := testutil.CargoLog(t, cargoLog)
	if len(log) != 1 || !strings.Contains(log[0].Args, "--target thumbv6m-none-eabi") {
		t.Errorf("cargo log = %v, want check against thumbv6m-none-eabi", log)
	}
}

func TestRun_isolation(t *testing.T) {
	lib, _, args := setup(t, "", "blink", "uart")

	before, err := os.ReadFile(filepath.Join(lib, "Cargo.toml"))
	if err != nil {
		t.Fatal(err)
	}

	if err := execute(args); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	after, err := os.ReadFile(filepath.Join(lib, "Cargo.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("library manifest was modified by the run")
	}

	entries, err := os.ReadDir(filepath.Join(lib, "examples"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("library examples changed: %d entries, want 2", len(entries))
	}
}
