// Package cargo wraps the Cargo and rustup CLI commands the harness drives.
// Check output is passed straight through to the console; the harness never
// parses it.
package cargo

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Check runs a compilation check for a single example against a target. It
// validates that the example builds without producing a runnable artifact.
// The tool's own diagnostics go to the inherited stdout/stderr.
func Check(dir, example, target string) error {
	if err := run(dir, "check", "--example", example, "--target", target); err != nil {
		return fmt.Errorf("checking example %s for %s: %w", example, target, err)
	}
	return nil
}

// Version returns the cargo version string.
func Version() (string, error) {
	out, err := output(".", "cargo", "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsInstalled returns true if cargo is available on the system PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("cargo")
	return err == nil
}

// IsRustupInstalled returns true if rustup is available on the system PATH.
func IsRustupInstalled() bool {
	_, err := exec.LookPath("rustup")
	return err == nil
}

// TargetInstalled reports whether rustup has the given target installed.
func TargetInstalled(target string) (bool, error) {
	out, err := output(".", "rustup", "target", "list", "--installed")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == target {
			return true, nil
		}
	}
	return false, nil
}

// run executes a cargo command in the given directory with console
// passthrough.
func run(dir string, args ...string) error {
	cmd := exec.Command("cargo", args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// output executes a command and returns its stdout. Stderr is captured and
// included in the error on failure.
func output(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}
