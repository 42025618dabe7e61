// Package manifest performs structural operations on Cargo manifests. The
// scratch project's Cargo.toml is decoded into a document, extended with the
// run's dependency entries, and re-encoded; nothing is appended textually,
// so an entry that would collide with existing content is caught here rather
// than by the build tool.
package manifest

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Document is a decoded Cargo.toml.
type Document struct {
	root map[string]any
}

// Load reads and decodes a Cargo.toml.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes Cargo.toml content.
func Parse(data []byte) (*Document, error) {
	root := map[string]any{}
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	return &Document{root: root}, nil
}

// Save encodes the document to path.
func (d *Document) Save(path string) error {
	data, err := toml.Marshal(d.root)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// AddPathDependency declares a dependency resolved from a local directory
// instead of a registry.
func (d *Document) AddPathDependency(name, dir string) error {
	return d.addDependency(name, map[string]any{"path": dir})
}

// AddVersionDependency declares a registry dependency pinned to a version.
func (d *Document) AddVersionDependency(name, version string) error {
	return d.addDependency(name, version)
}

// addDependency inserts into the [dependencies] table, creating it if the
// template had none. Existing entries are never replaced; a name collision
// is an error.
func (d *Document) addDependency(name string, value any) error {
	if name == "" {
		return fmt.Errorf("dependency name is required")
	}

	deps, err := d.dependencies()
	if err != nil {
		return err
	}
	if _, exists := deps[name]; exists {
		return fmt.Errorf("dependency %q already declared in manifest", name)
	}
	deps[name] = value
	return nil
}

func (d *Document) dependencies() (map[string]any, error) {
	v, ok := d.root["dependencies"]
	if !ok {
		deps := map[string]any{}
		d.root["dependencies"] = deps
		return deps, nil
	}
	deps, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("manifest dependencies is not a table")
	}
	return deps, nil
}

// Dependency returns the raw value declared for a dependency, or nil.
func (d *Document) Dependency(name string) any {
	deps, ok := d.root["dependencies"].(map[string]any)
	if !ok {
		return nil
	}
	return deps[name]
}

// PackageName reads [package].name from the Cargo.toml at path. The harness
// uses it to discover the library crate's registry name from its own
// manifest.
func PackageName(path string) (string, error) {
	doc, err := Load(path)
	if err != nil {
		return "", err
	}
	pkg, ok := doc.root["package"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("manifest %s: no [package] table", path)
	}
	name, ok := pkg["name"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("manifest %s: package name is missing", path)
	}
	return name, nil
}
