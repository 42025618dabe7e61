// Package testutil builds the fixtures the harness tests run against: a
// template release archive served over HTTP, a library tree with examples,
// and fake cargo/rustup executables that record their invocations.
package testutil

import (
	"archive/tar"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// TemplateManifest is the Cargo.toml baked into archives built by
// TemplateArchive. Tests asserting manifest extension rely on the cortex-m
// entry surviving injection.
const TemplateManifest = `[package]
name = "cortex-m-quickstart"
version = "0.3.7"

[dependencies]
cortex-m = "0.5.8"

[profile.release]
lto = true
`

// TemplateArchive builds a gzipped tarball shaped like a GitHub release
// archive: a single wrapping directory containing the quickstart template,
// including the files the provisioner is expected to prune.
func TemplateArchive(t *testing.T) []byte {
	t.Helper()

	files := map[string]string{
		"cortex-m-quickstart-0.3.7/Cargo.toml":        TemplateManifest,
		"cortex-m-quickstart-0.3.7/build.rs":          "fn main() {}\n",
		"cortex-m-quickstart-0.3.7/memory.x":          "MEMORY { }\n",
		"cortex-m-quickstart-0.3.7/src/main.rs":       "#![no_std]\nfn main() {}\n",
		"cortex-m-quickstart-0.3.7/examples/hello.rs": "// template example, must be discarded\n",
		"cortex-m-quickstart-0.3.7/README.md":         "# quickstart\n",
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	// Root directory entry, as real release archives have.
	if err := tw.WriteHeader(&tar.Header{
		Name:     "cortex-m-quickstart-0.3.7/",
		Typeflag: tar.TypeDir,
		Mode:     0755,
	}); err != nil {
		t.Fatal(err)
	}

	for name, content := range files {
		hdr := &tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// ServeArchive starts a test server that serves data for any GET and returns
// its base URL. The server shuts down with the test.
func ServeArchive(t *testing.T, data []byte) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// CreateLibrary lays out a minimal library root: a Cargo.toml naming the
// crate and an examples directory with one .rs file per given example name.
func CreateLibrary(t *testing.T, crate string, examples ...string) string {
	t.Helper()
	dir := t.TempDir()

	manifest := fmt.Sprintf("[package]\nname = %q\nversion = \"0.1.0\"\n", crate)
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "examples"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, ex := range examples {
		path := filepath.Join(dir, "examples", ex+".rs")
		if err := os.WriteFile(path, []byte("fn main() {}\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// Call is one recorded invocation of a fake executable.
type Call struct {
	Dir  string // working directory of the invocation
	Args string // space-joined arguments
}

// FakeCargo prepends a fake cargo executable to PATH. Every invocation
// appends "dir|args" to the returned log file, one line per call. If failOn
// is non-empty, an invocation whose arguments mention it exits 1.
func FakeCargo(t *testing.T, failOn string) (logPath string) {
	t.Helper()
	dir := t.TempDir()
	logPath = filepath.Join(dir, "cargo.log")

	script := fmt.Sprintf(`#!/bin/sh
echo "$PWD|$@" >> %q
`, logPath)
	if failOn != "" {
		script += fmt.Sprintf(`case "$*" in *%s*) exit 1 ;; esac
`, failOn)
	}
	script += "exit 0\n"

	writeExecutable(t, filepath.Join(dir, "cargo"), script)
	prependPath(t, dir)
	return logPath
}

// FakeRustup prepends a fake rustup to PATH whose `target list --installed`
// reports the given targets.
func FakeRustup(t *testing.T, targets ...string) {
	t.Helper()
	dir := t.TempDir()

	script := "#!/bin/sh\n"
	for _, tgt := range targets {
		script += fmt.Sprintf("echo %q\n", tgt)
	}
	script += "exit 0\n"

	writeExecutable(t, filepath.Join(dir, "rustup"), script)
	prependPath(t, dir)
}

// CargoLog reads the fake cargo invocation log in call order. A missing log
// means cargo was never invoked.
func CargoLog(t *testing.T, logPath string) []Call {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	var calls []Call
	for _, l := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(l) == 0 {
			continue
		}
		dir, args, ok := bytes.Cut(l, []byte("|"))
		if !ok {
			t.Fatalf("malformed cargo log line: %q", l)
		}
		calls = append(calls, Call{Dir: string(dir), Args: string(args)})
	}
	return calls
}

func writeExecutable(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0755); err != nil { //nolint:gosec // test executable
		t.Fatal(err)
	}
}

func prependPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
