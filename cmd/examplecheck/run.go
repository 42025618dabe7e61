package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jamwaffles/stm32f103xx-hal/internal/cargo"
	"github.com/jamwaffles/stm32f103xx-hal/internal/config"
	"github.com/jamwaffles/stm32f103xx-hal/internal/examples"
	"github.com/jamwaffles/stm32f103xx-hal/internal/manifest"
	"github.com/jamwaffles/stm32f103xx-hal/internal/template"
	"github.com/jamwaffles/stm32f103xx-hal/internal/ui"
	"github.com/jamwaffles/stm32f103xx-hal/internal/workspace"
	"github.com/spf13/cobra"
)

// runCheck drives the whole pipeline: scratch workspace, template
// provisioning, dependency injection, example linking, then the per-example
// check loop. The first error at any stage aborts the run; workspace removal
// happens regardless.
func runCheck(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	keep, _ := cmd.Flags().GetBool("keep")
	setupLogging(cmd.ErrOrStderr(), verbose)

	// The invocation directory is the library root. Capture it before
	// anything else; every later step references it by absolute path.
	origin, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving invocation directory: %w", err)
	}

	cfg, err := resolveConfig(cmd, origin)
	if err != nil {
		return err
	}

	scratch, err := workspace.Create(origin)
	if err != nil {
		return err
	}
	defer func() {
		if keep {
			slog.Info("keeping scratch workspace", "dir", scratch.Root)
			return
		}
		if err := scratch.Remove(); err != nil {
			slog.Warn("scratch workspace cleanup failed", "error", err)
		}
	}()

	start := time.Now()

	names, err := assemble(cmd, cfg, scratch)
	if err != nil {
		return err
	}
	if err := verify(cmd, cfg, scratch, names); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Verified %d examples for %s in %s.\n",
		len(names), cfg.Target, time.Since(start).Round(time.Millisecond))
	return nil
}

// resolveConfig loads file/environment configuration for the library at
// origin and applies flag overrides on top.
func resolveConfig(cmd *cobra.Command, origin string) (config.Config, error) {
	cfg, err := config.Load(origin)
	if err != nil {
		return config.Config{}, err
	}

	if v, _ := cmd.Flags().GetString("target"); v != "" {
		cfg.Target = v
	}
	if v, _ := cmd.Flags().GetString("template-repo"); v != "" {
		cfg.TemplateRepo = v
	}
	if v, _ := cmd.Flags().GetString("template-version"); v != "" {
		cfg.TemplateVersion = v
	}
	if v, _ := cmd.Flags().GetString("runtime-version"); v != "" {
		cfg.RuntimeVersion = v
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// assemble builds the scratch project: template in, template-owned parts
// out, manifest patched, real examples linked. Returns the example names to
// check, in lexicographic order.
func assemble(cmd *cobra.Command, cfg config.Config, scratch *workspace.Scratch) ([]string, error) {
	slog.Debug("provisioning template", "url", cfg.ArchiveURL(), "dir", scratch.Root)
	if err := template.Provision(cmd.Context(), cfg.ArchiveURL(), scratch.Root, cfg.Prune); err != nil {
		return nil, err
	}

	if err := inject(cfg, scratch); err != nil {
		return nil, err
	}

	if err := examples.Link(scratch.ExamplesPath(), scratch.OriginExamplesPath()); err != nil {
		return nil, err
	}

	names, err := examples.List(scratch.ExamplesPath())
	if err != nil {
		return nil, err
	}
	slog.Debug("examples enumerated", "count", len(names))
	return names, nil
}

// inject extends the scratch manifest with the library as a path dependency
// and the runtime crate at its pinned version.
func inject(cfg config.Config, scratch *workspace.Scratch) error {
	crate, err := manifest.PackageName(scratch.OriginManifestPath())
	if err != nil {
		return err
	}

	doc, err := manifest.Load(scratch.ManifestPath())
	if err != nil {
		return err
	}
	if err := doc.AddPathDependency(crate, scratch.Origin); err != nil {
		return err
	}
	if err := doc.AddVersionDependency(cfg.RuntimeCrate, cfg.RuntimeVersion); err != nil {
		return err
	}
	if err := doc.Save(scratch.ManifestPath()); err != nil {
		return err
	}

	slog.Debug("manifest patched", "crate", crate, "runtime", cfg.RuntimeCrate+" "+cfg.RuntimeVersion)
	return nil
}

// verify checks every example in order, stopping at the first failure.
func verify(cmd *cobra.Command, cfg config.Config, scratch *workspace.Scratch, names []string) error {
	progress := ui.NewProgress(cmd.ErrOrStderr(), len(names))
	for _, name := range names {
		if err := cargo.Check(scratch.Root, name, cfg.Target); err != nil {
			progress.Fail(name)
			return err
		}
		progress.Done(name)
	}
	return nil
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
