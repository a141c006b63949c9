package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"mediapack/internal/device"
	"mediapack/internal/license"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Show removable drives and their allowlist hashes",
	}
	cmd.AddCommand(newDevicesListCommand(ctx))
	cmd.AddCommand(newDevicesWatchCommand(ctx))
	return cmd
}

func newDevicesListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List attached removable drives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			identities, err := newDeviceProvider().ListRemovable(cmd.Context())
			if err != nil {
				return fmt.Errorf("list removable drives: %w", err)
			}
			hasher := license.NewHasher(cfg.License.Salt)

			if asJSON {
				type deviceView struct {
					Root    string `json:"root"`
					Serial  string `json:"serial"`
					Caption string `json:"caption"`
					Hash    string `json:"hash,omitempty"`
				}
				views := make([]deviceView, 0, len(identities))
				for _, id := range identities {
					views = append(views, deviceView{Root: id.VolumeRoot, Serial: id.HardwareSerial, Caption: id.Caption, Hash: hashOrEmpty(hasher, id)})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(identities) == 0 {
				fmt.Fprintln(out, "No removable drives found")
				return nil
			}
			rows := make([][]string, 0, len(identities))
			for _, id := range identities {
				root := id.VolumeRoot
				if root == "" {
					root = "(not mounted)"
				}
				rows = append(rows, []string{root, id.HardwareSerial, id.Caption, hashOrEmpty(hasher, id)})
			}
			fmt.Fprintln(out, renderTable([]string{"Root", "Serial", "Device", "Hash"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func hashOrEmpty(hasher license.Hasher, id device.Identity) string {
	if id.HardwareSerial == "" {
		return ""
	}
	return hasher.Hash(id.HardwareSerial)
}

func newDevicesWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Report USB drives as they are attached or removed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			hasher := license.NewHasher(cfg.License.Salt)
			out := cmd.OutOrStdout()

			var mu sync.Mutex
			monitor := device.NewMonitor(logger, func(event device.Event) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "%-6s %-12s serial=%q hash=%s %s\n",
					event.Action, event.Device, event.Identity.HardwareSerial,
					hashOrEmpty(hasher, event.Identity), event.Identity.Caption)
			})

			if err := monitor.Start(cmd.Context()); err != nil {
				return fmt.Errorf("start device monitor: %w", err)
			}
			defer monitor.Stop()

			if isTerminal(out) {
				fmt.Fprintln(out, "Watching for USB drives (Ctrl+C to stop)")
			}
			<-cmd.Context().Done()
			return nil
		},
	}
}
