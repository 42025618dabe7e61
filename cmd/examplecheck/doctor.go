package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jamwaffles/stm32f103xx-hal/internal/cargo"
	"github.com/jamwaffles/stm32f103xx-hal/internal/config"
	"github.com/jamwaffles/stm32f103xx-hal/internal/manifest"
	"github.com/jamwaffles/stm32f103xx-hal/internal/ui"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the environment a verification run needs",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	origin, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving invocation directory: %w", err)
	}

	cfg, err := config.Load(origin)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("target"); v != "" {
		cfg.Target = v
	}

	ok := true
	table := ui.NewTable(cmd.OutOrStdout(), "CHECK", "STATUS", "DETAIL")
	report := func(check string, passed bool, detail string) {
		status := "ok"
		if !passed {
			status = "FAILED"
			ok = false
		}
		table.Row(check, status, detail)
	}

	checkCargo(report)
	checkTarget(report, cfg.Target)
	checkLibrary(report, origin)
	checkTemplate(report, cfg.ArchiveURL())

	if err := table.Flush(); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("doctor checks failed")
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nAll checks passed.")
	return nil
}

func checkCargo(report func(string, bool, string)) {
	if !cargo.IsInstalled() {
		report("cargo", false, "not on PATH; install via https://rustup.rs")
		return
	}
	ver, err := cargo.Version()
	if err != nil {
		report("cargo", false, err.Error())
		return
	}
	report("cargo", true, ver)
}

func checkTarget(report func(string, bool, string), target string) {
	if target == "" {
		report("target", false, "no target configured (--target or EXAMPLECHECK_TARGET)")
		return
	}
	if !cargo.IsRustupInstalled() {
		report("target", false, "rustup not on PATH, cannot verify "+target)
		return
	}
	installed, err := cargo.TargetInstalled(target)
	if err != nil {
		report("target", false, err.Error())
		return
	}
	if !installed {
		report("target", false, target+" not installed (rustup target add "+target+")")
		return
	}
	report("target", true, target)
}

func checkLibrary(report func(string, bool, string), origin string) {
	crate, err := manifest.PackageName(filepath.Join(origin, "Cargo.toml"))
	if err != nil {
		report("library", false, "no readable Cargo.toml in current directory")
		return
	}
	if info, err := os.Stat(filepath.Join(origin, "examples")); err != nil || !info.IsDir() {
		report("library", false, crate+" has no examples directory")
		return
	}
	report("library", true, crate)
}

// checkTemplate probes the archive endpoint without downloading it. This is
// the only doctor check that touches the network, bounded so a dead endpoint
// does not hang the diagnosis.
func checkTemplate(report func(string, bool, string), url string) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Head(url)
	if err != nil {
		report("template", false, err.Error())
		return
	}
	resp.Body.Close() //nolint:errcheck // HEAD response
	// Release endpoints answer HEAD with 200 or a redirect already
	// followed by the client.
	if resp.StatusCode != http.StatusOK {
		report("template", false, fmt.Sprintf("%s: %s", url, resp.Status))
		return
	}
	report("template", true, url)
}
