package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediapack/internal/config"
	"mediapack/internal/device"
	"mediapack/internal/license"
)

func newAllowlistCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allowlist",
		Short: "Build and manage USB hash lists",
	}
	cmd.AddCommand(newAllowlistHashCommand(ctx))
	cmd.AddCommand(newAllowlistEditCommand(ctx, "add"))
	cmd.AddCommand(newAllowlistEditCommand(ctx, "replace"))
	cmd.AddCommand(newAllowlistImportCommand(ctx))
	cmd.AddCommand(newAllowlistExportCommand(ctx))
	cmd.AddCommand(newAllowlistShowCommand())
	return cmd
}

func newAllowlistHashCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <serial>...",
		Short: "Print the allowlist hash of hardware serials",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			hasher := license.NewHasher(cfg.License.Salt)
			out := cmd.OutOrStdout()
			for _, serial := range args {
				serial = strings.TrimSpace(serial)
				if serial == "" {
					return errors.New("serial must not be blank")
				}
				fmt.Fprintf(out, "%s  %s\n", hasher.Hash(serial), serial)
			}
			return nil
		},
	}
}

// newAllowlistEditCommand builds the add and replace verbs. They differ only
// in whether the existing file contents are kept.
func newAllowlistEditCommand(ctx *commandContext, mode string) *cobra.Command {
	var (
		file    string
		roots   []string
		serials []string
	)

	short := "Add devices to a hash list, keeping existing entries"
	if mode == "replace" {
		short = "Replace a hash list with the selected devices"
	}

	cmd := &cobra.Command{
		Use:   mode,
		Short: short,
		Long: short + ".\n\nDevices come from --serial values and from attached removable drives\n" +
			"mounted at a --root. Without either flag every attached removable drive is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(file)
			if err != nil {
				return err
			}
			identities, err := selectIdentities(cmd, roots, serials)
			if err != nil {
				return err
			}

			builder := license.NewBuilder(license.NewHasher(cfg.License.Salt))
			var added int
			if mode == "replace" {
				builder.Replace(identities...)
				added = builder.Allowlist().Len()
			} else {
				existing, err := readAllowlistIfExists(path)
				if err != nil {
					return err
				}
				builder.Import(existing)
				added = builder.Add(identities...)
			}

			result := builder.Allowlist()
			if result.Len() == 0 {
				return errors.New("no selected device reports a hardware serial")
			}
			if err := result.WriteFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d new, %d total\n", path, added, result.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Hash list to write")
	cmd.Flags().StringSliceVar(&roots, "root", nil, "Use the removable drive mounted at this path (repeatable)")
	cmd.Flags().StringSliceVar(&serials, "serial", nil, "Use this hardware serial (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func selectIdentities(cmd *cobra.Command, roots, serials []string) ([]device.Identity, error) {
	var identities []device.Identity
	for _, serial := range serials {
		identities = append(identities, device.Identity{HardwareSerial: serial, Caption: "manual"})
	}
	if len(serials) > 0 && len(roots) == 0 {
		return identities, nil
	}

	attached, err := newDeviceProvider().ListRemovable(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("list removable drives: %w", err)
	}
	if len(roots) > 0 {
		expanded := make([]string, 0, len(roots))
		for _, root := range roots {
			path, err := config.ExpandPath(root)
			if err != nil {
				return nil, err
			}
			expanded = append(expanded, path)
		}
		matched := device.FilterByRoots(attached, expanded)
		if len(matched) == 0 {
			return nil, fmt.Errorf("no removable drive is mounted at %s", strings.Join(roots, ", "))
		}
		attached = matched
	}
	return append(identities, attached...), nil
}

func readAllowlistIfExists(path string) (*license.Allowlist, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return license.ReadFile(path)
}

func newAllowlistImportCommand(ctx *commandContext) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import <source>",
		Short: "Merge another hash list into a hash list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(file)
			if err != nil {
				return err
			}
			incoming, err := license.ReadFile(source)
			if err != nil {
				return err
			}
			existing, err := readAllowlistIfExists(path)
			if err != nil {
				return err
			}

			builder := license.NewBuilder(license.NewHasher(cfg.License.Salt))
			builder.Import(existing)
			added := builder.Import(incoming)
			result := builder.Allowlist()
			if err := result.WriteFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d new, %d total\n", path, added, result.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Hash list to merge into")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newAllowlistExportCommand(ctx *commandContext) *cobra.Command {
	var (
		file    string
		subject string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a hash list into the hashes directory under a subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(file)
			if err != nil {
				return err
			}
			allowlist, err := license.ReadFile(path)
			if err != nil {
				return err
			}
			target := license.ExportPath(cfg.Paths.HashesDir, subject)
			if err := allowlist.WriteFile(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d hashes to %s\n", allowlist.Len(), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Hash list to export")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject the hashes were issued for")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newAllowlistShowCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:         "show",
		Short:       "List the hashes in a hash list",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(file)
			if err != nil {
				return err
			}
			allowlist, err := license.ReadFile(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if allowlist.Len() == 0 {
				fmt.Fprintf(out, "%s lists no hashes\n", path)
				return nil
			}
			entries := allowlist.Entries()
			rows := make([][]string, 0, len(entries))
			for i, hash := range entries {
				rows = append(rows, []string{strconv.Itoa(i + 1), hash})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Hash"}, rows, []columnAlignment{alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Hash list to show")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
