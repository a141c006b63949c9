package packer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mediapack/internal/config"
	"mediapack/internal/failure"
	"mediapack/internal/textutil"
)

// fallbackName is used when an input's base name sanitizes to nothing.
const fallbackName = "media"

// Job packs Inputs into one container at Output.
type Job struct {
	Inputs []string
	Output string
}

// BatchJobs plans one job per input under outputDir. Output names come from
// the input's base name made filesystem-safe, plus ext.
//
// With config.CollisionSuffix an existing or already planned name becomes
// name_1, name_2 and so on. With config.CollisionOverwrite existing files are
// replaced, but two inputs in the same batch still never share an output.
func BatchJobs(inputs []string, outputDir, ext, policy string) ([]Job, error) {
	policy = strings.ToLower(strings.TrimSpace(policy))
	if policy == "" {
		policy = config.CollisionSuffix
	}
	if policy != config.CollisionSuffix && policy != config.CollisionOverwrite {
		return nil, failure.Wrap(failure.ErrConfiguration, "packer", "plan", fmt.Sprintf("unknown collision policy %q", policy), nil)
	}

	planned := make(map[string]struct{}, len(inputs))
	jobs := make([]Job, 0, len(inputs))
	for _, input := range inputs {
		base := filepath.Base(input)
		name := textutil.SafeFileName(strings.TrimSuffix(base, filepath.Ext(base)))
		if name == "" {
			name = fallbackName
		}
		output := pickOutput(outputDir, name, ext, policy, planned)
		planned[strings.ToLower(output)] = struct{}{}
		jobs = append(jobs, Job{Inputs: []string{input}, Output: output})
	}
	return jobs, nil
}

func pickOutput(dir, name, ext, policy string, planned map[string]struct{}) string {
	candidate := filepath.Join(dir, name+ext)
	for n := 1; ; n++ {
		_, taken := planned[strings.ToLower(candidate)]
		if !taken && (policy == config.CollisionOverwrite || !exists(candidate)) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, n, ext))
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
