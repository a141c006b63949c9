package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediapack/internal/config"
	"mediapack/internal/launcher"
	"mediapack/internal/license"
	"mediapack/internal/packer"
	"mediapack/internal/textutil"
)

type sealFlags struct {
	password      string
	askPassword   bool
	allowlistPath string
	subject       string
}

func (f *sealFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.password, "password", "", "Encrypt payloads with this password")
	cmd.Flags().BoolVar(&f.askPassword, "ask-password", false, "Prompt for the encryption password")
	cmd.Flags().StringVar(&f.allowlistPath, "allowlist", "", "Hash list (JSON) restricting playback to listed USB devices")
	cmd.Flags().StringVar(&f.subject, "subject", "", "Label recorded with issued hashes")
}

func (f *sealFlags) resolvePassword(cmd *cobra.Command) (string, error) {
	if f.password != "" || !f.askPassword {
		return f.password, nil
	}
	prompt := launcher.NewTerminal()
	prompt.Out = cmd.ErrOrStderr()
	password, ok, err := prompt.Password(cmd.Context())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("--ask-password needs an interactive terminal; use --password instead")
	}
	prompt.Prompt = "Confirm password: "
	confirm, _, err := prompt.Password(cmd.Context())
	if err != nil {
		return "", err
	}
	if confirm != password {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

func (f *sealFlags) loadAllowlist() (*license.Allowlist, error) {
	path := strings.TrimSpace(f.allowlistPath)
	if path == "" {
		return nil, nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	allowlist, err := license.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	if allowlist.Len() == 0 {
		return nil, fmt.Errorf("allowlist %s is empty; remove --allowlist to build an unrestricted container", expanded)
	}
	return allowlist, nil
}

func newPackCommand(ctx *commandContext) *cobra.Command {
	var flags sealFlags

	cmd := &cobra.Command{
		Use:   "pack <launcherTemplate> <output> <input>...",
		Short: "Pack input files into one self-extracting container",
		Long: "Pack copies the launcher template to <output> and appends every input as one\n" +
			"archive payload. An existing <output> is replaced.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			password, err := flags.resolvePassword(cmd)
			if err != nil {
				return err
			}
			allowlist, err := flags.loadAllowlist()
			if err != nil {
				return err
			}
			output, err := config.ExpandPath(args[1])
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}

			recorder, closeAudit := ctx.openAuditRecorder(logger)
			defer closeAudit()

			p, err := packer.New(packer.Options{
				Template:  args[0],
				Password:  password,
				Allowlist: allowlist,
				Workers:   1,
				Subject:   flags.subject,
				Audit:     recorder,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			results := p.Pack(cmd.Context(), []packer.Job{{Inputs: args[2:], Output: output}})
			printResults(cmd.OutOrStdout(), results)
			return results[0].Err
		},
	}
	flags.register(cmd)
	return cmd
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		flags       sealFlags
		template    string
		outDir      string
		onCollision string
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "batch <input>...",
		Short: "Pack each input into its own container",
		Long: "Batch builds one container per input under <out-dir>/<subject>/, named after\n" +
			"the input. Inputs are packed in parallel; one failure does not stop the rest.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			subjectDir := textutil.SafeFileName(flags.subject)
			if subjectDir == "" {
				return errors.New("--subject is required and must contain a usable name")
			}
			if strings.TrimSpace(template) == "" {
				template = cfg.Packer.Template
			}
			if strings.TrimSpace(template) == "" {
				return errors.New("no launcher template: pass --template or set packer.template")
			}
			if strings.TrimSpace(outDir) == "" {
				outDir = cfg.Paths.OutputDir
			}
			if outDir, err = config.ExpandPath(outDir); err != nil {
				return fmt.Errorf("resolve output directory: %w", err)
			}
			if strings.TrimSpace(onCollision) == "" {
				onCollision = cfg.Packer.OnCollision
			}
			if workers <= 0 {
				workers = cfg.Packer.Workers
			}
			ext := cfg.Packer.OutputExtension
			if ext == "" {
				ext = filepath.Ext(template)
			}

			password, err := flags.resolvePassword(cmd)
			if err != nil {
				return err
			}
			allowlist, err := flags.loadAllowlist()
			if err != nil {
				return err
			}
			jobs, err := packer.BatchJobs(args, filepath.Join(outDir, subjectDir), ext, onCollision)
			if err != nil {
				return err
			}

			recorder, closeAudit := ctx.openAuditRecorder(logger)
			defer closeAudit()

			p, err := packer.New(packer.Options{
				Template:  template,
				Password:  password,
				Allowlist: allowlist,
				Workers:   workers,
				Subject:   flags.subject,
				Audit:     recorder,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			results := p.Pack(cmd.Context(), jobs)
			printResults(cmd.OutOrStdout(), results)

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d containers failed", failed, len(results))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&template, "template", "", "Launcher template (defaults to packer.template)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output root (defaults to paths.output_dir)")
	cmd.Flags().StringVar(&onCollision, "on-collision", "", "Existing output handling: suffix or overwrite")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel packing jobs (defaults to packer.workers)")
	return cmd
}

func printResults(out io.Writer, results []packer.Result) {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status := "ok"
		if res.Err != nil {
			status = "failed"
		}
		rows = append(rows, []string{
			strings.Join(res.Job.Inputs, ", "),
			res.Output,
			status,
			strconv.FormatInt(res.PayloadBytes, 10),
			yesNo(res.Encrypted),
			yesNo(res.Licensed),
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Input", "Output", "Status", "Payload", "Encrypted", "Licensed", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight},
	))
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(out, "%s: %v\n", strings.Join(res.Job.Inputs, ", "), res.Err)
		}
	}
}
