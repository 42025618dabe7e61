package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scratch is the ephemeral directory for one run. It is owned exclusively by
// that run: created fresh, never reused, and removed when the run ends.
type Scratch struct {
	// Root is the temporary directory the scratch project is assembled in.
	Root string
	// Origin is the invocation directory, treated as the root of the
	// library under test. It is referenced by path only, never written.
	Origin string
}

// Create makes a uniquely-named scratch directory for a run rooted at origin.
func Create(origin string) (*Scratch, error) {
	origin, err := filepath.Abs(origin)
	if err != nil {
		return nil, fmt.Errorf("resolving origin directory: %w", err)
	}

	root, err := os.MkdirTemp("", "examplecheck-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}

	return &Scratch{Root: root, Origin: origin}, nil
}

// Remove deletes the scratch directory recursively. It is safe to call after
// a partially-failed run; a root that is already gone is not an error.
func (s *Scratch) Remove() error {
	if err := os.RemoveAll(s.Root); err != nil {
		return fmt.Errorf("removing scratch directory: %w", err)
	}
	return nil
}

// ManifestPath returns the scratch project's Cargo.toml path.
func (s *Scratch) ManifestPath() string {
	return filepath.Join(s.Root, "Cargo.toml")
}

// ExamplesPath returns the scratch project's examples path. After linking it
// resolves to the library's real examples.
func (s *Scratch) ExamplesPath() string {
	return filepath.Join(s.Root, "examples")
}

// OriginManifestPath returns the library's own Cargo.toml path.
func (s *Scratch) OriginManifestPath() string {
	return filepath.Join(s.Origin, "Cargo.toml")
}

// OriginExamplesPath returns the library's real examples directory.
func (s *Scratch) OriginExamplesPath() string {
	return filepath.Join(s.Origin, "examples")
}
