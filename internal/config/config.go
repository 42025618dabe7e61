// Package config resolves the harness configuration: compiled-in defaults,
// an optional examplecheck.yaml in the library root, and environment
// variables. Command-line flags override all of these and are applied by the
// caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the optional per-library configuration file, looked up in the
// invocation directory.
const FileName = "examplecheck.yaml"

// Config holds everything one verification run needs to know up front.
type Config struct {
	// Target is the cross-compilation target triple. It has no default
	// and must be set via file, environment, or flag.
	Target string `yaml:"target,omitempty"`

	// TemplateRepo and TemplateVersion name the upstream project skeleton
	// archive. The archive URL is derived, never discovered.
	TemplateRepo    string `yaml:"template_repo,omitempty"`
	TemplateVersion string `yaml:"template_version,omitempty"`

	// RuntimeCrate is the auxiliary runtime dependency injected into the
	// scratch manifest alongside the library itself, pinned to
	// RuntimeVersion.
	RuntimeCrate   string `yaml:"runtime_crate,omitempty"`
	RuntimeVersion string `yaml:"runtime_version,omitempty"`

	// Prune lists template-owned paths removed from the scratch workspace
	// after extraction, relative to the workspace root.
	Prune []string `yaml:"prune,omitempty"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		TemplateRepo:    "https://github.com/rust-embedded/cortex-m-quickstart",
		TemplateVersion: "v0.3.7",
		RuntimeCrate:    "cortex-m-rt",
		RuntimeVersion:  "0.6.5",
		Prune:           []string{"build.rs", "examples", "memory.x", "src"},
	}
}

// Load resolves the configuration for a run rooted at dir: defaults, then
// examplecheck.yaml if present, then environment variables. A missing file is
// not an error; a malformed one is.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err == nil {
		if cfg, err = parse(cfg, data); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	if t := os.Getenv("EXAMPLECHECK_TARGET"); t != "" {
		cfg.Target = t
	} else if t := os.Getenv("TARGET"); t != "" {
		cfg.Target = t
	}

	return cfg, nil
}

// parse overlays YAML content onto base. Only fields present in the document
// are overridden.
func parse(base Config, data []byte) (Config, error) {
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Config{}, err
	}
	if overlay.Target != "" {
		base.Target = overlay.Target
	}
	if overlay.TemplateRepo != "" {
		base.TemplateRepo = overlay.TemplateRepo
	}
	if overlay.TemplateVersion != "" {
		base.TemplateVersion = overlay.TemplateVersion
	}
	if overlay.RuntimeCrate != "" {
		base.RuntimeCrate = overlay.RuntimeCrate
	}
	if overlay.RuntimeVersion != "" {
		base.RuntimeVersion = overlay.RuntimeVersion
	}
	if overlay.Prune != nil {
		base.Prune = overlay.Prune
	}
	return base, nil
}

// Validate checks that the configuration is complete enough to start a run.
func (c Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("no target configured: set --target, EXAMPLECHECK_TARGET, or target in %s", FileName)
	}
	if c.TemplateRepo == "" || c.TemplateVersion == "" {
		return fmt.Errorf("template archive reference is incomplete (repo %q, version %q)", c.TemplateRepo, c.TemplateVersion)
	}
	if c.RuntimeCrate == "" || c.RuntimeVersion == "" {
		return fmt.Errorf("runtime crate reference is incomplete (crate %q, version %q)", c.RuntimeCrate, c.RuntimeVersion)
	}
	return nil
}

// ArchiveURL returns the download URL for the template archive at the
// configured version.
func (c Config) ArchiveURL() string {
	return fmt.Sprintf("%s/archive/%s.tar.gz", c.TemplateRepo, c.TemplateVersion)
}
