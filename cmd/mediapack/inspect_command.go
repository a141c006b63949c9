package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"mediapack/internal/archive"
	"mediapack/internal/config"
	"mediapack/internal/container"
)

type inspectView struct {
	Path          string          `json:"path"`
	Size          int64           `json:"size"`
	MagicOffset   int64           `json:"magic_offset"`
	PayloadOffset int64           `json:"payload_offset"`
	PayloadBytes  int64           `json:"payload_bytes"`
	Encrypted     bool            `json:"encrypted"`
	Hashes        []string        `json:"hashes"`
	Entries       []archive.Entry `json:"entries,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "inspect <container>",
		Short:       "Show the trailer, license block and contents of a container",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			view, err := inspectContainer(path)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, view)
			}
			printInspect(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func inspectContainer(path string) (inspectView, error) {
	box, err := container.Open(path)
	if err != nil {
		return inspectView{}, err
	}
	defer box.Close()

	view := inspectView{
		Path:          box.Path(),
		Size:          box.Size,
		MagicOffset:   box.MagicOffset,
		PayloadOffset: box.PayloadOffset,
		PayloadBytes:  box.PayloadLength,
		Hashes:        box.Hashes,
	}
	head := make([]byte, len(archive.Signature))
	n, _ := io.ReadFull(box.PayloadReader(), head)
	view.Encrypted = !archive.HasSignature(head[:n])
	if !view.Encrypted {
		view.Entries, err = archive.List(box.PayloadReader(), box.PayloadLength)
		if err != nil {
			return inspectView{}, err
		}
	}
	return view, nil
}

func printInspect(out io.Writer, view inspectView) {
	license := "none (plays anywhere)"
	if len(view.Hashes) > 0 {
		license = fmt.Sprintf("%d device hashes", len(view.Hashes))
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, [][]string{
		{"Path", view.Path},
		{"Size", strconv.FormatInt(view.Size, 10)},
		{"Payload offset", strconv.FormatInt(view.PayloadOffset, 10)},
		{"Payload bytes", strconv.FormatInt(view.PayloadBytes, 10)},
		{"Trailer magic at", strconv.FormatInt(view.MagicOffset, 10)},
		{"Encrypted", yesNo(view.Encrypted)},
		{"License", license},
	}, nil))

	if view.Encrypted {
		fmt.Fprintln(out, "Payload is encrypted; contents are not listed")
		return
	}
	rows := make([][]string, 0, len(view.Entries))
	for _, entry := range view.Entries {
		rows = append(rows, []string{entry.Name, strconv.FormatUint(entry.Size, 10), strconv.FormatUint(entry.CompressedSize, 10)})
	}
	fmt.Fprintln(out, renderTable([]string{"File", "Size", "Stored"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
}
