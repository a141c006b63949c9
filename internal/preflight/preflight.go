package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"mediapack/internal/config"
)

// Result is one row of doctor output.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

type check struct {
	name    string
	enabled bool
	run     func() Result
}

// RunAll checks the directories and template the authoring CLI depends on.
// The audit directory is only checked when auditing is enabled. Remaining
// checks are skipped once ctx is done.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	dirCheck := func(name, dir string) func() Result {
		return func() Result { return CheckDirectoryAccess(name, dir) }
	}
	checks := []check{
		{name: "Output directory", enabled: true, run: dirCheck("Output directory", cfg.Paths.OutputDir)},
		{name: "Hashes directory", enabled: true, run: dirCheck("Hashes directory", cfg.Paths.HashesDir)},
		{name: "Scratch root", enabled: true, run: dirCheck("Scratch root", cfg.ScratchRoot())},
		{name: "Launcher template", enabled: true, run: func() Result {
			if strings.TrimSpace(cfg.Packer.Template) == "" {
				return Result{Name: "Launcher template", Detail: "not configured (set packer.template)"}
			}
			return CheckTemplate(cfg.Packer.Template)
		}},
		{name: "Audit directory", enabled: cfg.Audit.Enabled, run: dirCheck("Audit directory", filepath.Dir(cfg.Paths.AuditDB))},
	}

	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		if !c.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Name: c.name, Detail: "skipped: " + err.Error()})
			continue
		}
		results = append(results, c.run())
	}
	return results
}
